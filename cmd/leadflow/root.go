package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadflow",
		Short: "Dialogue aggregation and lead-scoring engine",
		Long: `leadflow groups chat messages into bounded dialogue sessions, scores them
for commercial intent via an AI analysis service (with a keyword fallback)
and emits throttled lead notifications plus an append-only lead log.`,
	}

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	}
}
