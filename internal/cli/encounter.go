package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <code>",
		Short: "Record an encounter from a scanned code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"code": args[0]}

			var result ScanResult
			if err := client.Post("/api/v1/scan", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	return cmd
}

func newEncountersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encounters",
		Short: "Encounter ledger commands",
	}

	cmd.AddCommand(newEncountersListCmd())
	cmd.AddCommand(newEncountersGetCmd())
	cmd.AddCommand(newEncountersAnnotateCmd())

	return cmd
}

func newEncountersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your encounters at the event",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result EncounterList
			if err := client.Get("/api/v1/encounters", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newEncountersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <encounter-id>",
		Short: "Show one encounter with the counterpart's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result EncounterDetail
			if err := client.Get("/api/v1/encounters/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newEncountersAnnotateCmd() *cobra.Command {
	var note string
	var rating int

	cmd := &cobra.Command{
		Use:   "annotate <encounter-id>",
		Short: "Set your private note and rating for an encounter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{}
			if cmd.Flags().Changed("note") {
				req["note"] = note
			}
			if cmd.Flags().Changed("rating") {
				if rating < 1 || rating > 5 {
					return fmt.Errorf("--rating must be between 1 and 5")
				}
				req["rating"] = rating
			}

			var result EncounterDetail
			if err := client.Put("/api/v1/encounters/"+args[0]+"/annotation", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Private note about the encounter")
	cmd.Flags().IntVar(&rating, "rating", 0, "Rating from 1 to 5")

	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show your encounter stats for the event",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatsResult
			if err := client.Get("/api/v1/stats", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
