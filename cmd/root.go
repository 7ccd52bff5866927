package cmd

import (
	"fmt"
	"os"

	"github.com/benzaid32/virtuoso-ai-music-lab/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "virtuoso",
	Short: "Virtuoso analyzes audio for key, tempo and energy.",
	Long: `Virtuoso runs a deterministic audio analysis engine that derives musical
key, scale, tempo and energy from WAV and MP3 files, and serves the results
over an HTTP API. Running it without a subcommand starts the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
