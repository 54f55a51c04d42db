// Package cli implements the pulse command line client.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "CLI tool for the EventPulse API",
		Long: `pulse is a CLI tool for interacting with the EventPulse JSON API.

It covers the full encounter flow: identity, profile editing, issuing
your encounter code, scanning someone else's, and browsing your
encounters, notes and ratings.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL, cfg.InitData, cfg.DevID, cfg.Event)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: PULSE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.InitData, "init-data", cfg.InitData, "Telegram init data (env: PULSE_INIT_DATA)")
	rootCmd.PersistentFlags().StringVar(&cfg.DevID, "dev-id", cfg.DevID, "Dev fallback Telegram id (env: PULSE_DEV_TELEGRAM_ID)")
	rootCmd.PersistentFlags().StringVar(&cfg.Event, "event", cfg.Event, "Event slug (env: PULSE_EVENT)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newMeCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newCodeCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newEncountersCmd())
	rootCmd.AddCommand(newParticipantsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
