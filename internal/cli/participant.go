package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your identity, event and profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MeResult
			if err := client.Get("/api/v1/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newProfileCmd() *cobra.Command {
	var firstName, lastName, photoURL, instagram, niche, about, helpful string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if firstName == "" {
				return fmt.Errorf("--first-name is required")
			}

			req := map[string]any{"first_name": firstName}
			for key, value := range map[string]string{
				"last_name": lastName,
				"photo_url": photoURL,
				"instagram": instagram,
				"niche":     niche,
				"about":     about,
				"helpful":   helpful,
			} {
				if value != "" {
					req[key] = value
				}
			}

			var result Profile
			if err := client.Put("/api/v1/me/profile", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "First name (required)")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&photoURL, "photo-url", "", "Photo URL")
	cmd.Flags().StringVar(&instagram, "instagram", "", "Instagram handle")
	cmd.Flags().StringVar(&niche, "niche", "", "Professional niche")
	cmd.Flags().StringVar(&about, "about", "", "About text")
	cmd.Flags().StringVar(&helpful, "helpful", "", "What you can help with")
	_ = cmd.MarkFlagRequired("first-name")

	return cmd
}

func newCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "code",
		Short: "Issue your encounter code",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CodeResult
			if err := client.Get("/api/v1/me/code", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newParticipantsCmd() *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "participants",
		Short: "List the event's participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if query != "" {
				params.Set("q", query)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/v1/participants"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var result ParticipantList
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by name, niche or instagram")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to return")

	return cmd
}
