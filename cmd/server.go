package cmd

import (
	"github.com/benzaid32/virtuoso-ai-music-lab/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the analysis HTTP server",
	Long: `Start the Virtuoso HTTP server. It exposes the analysis API and, when a
watch directory is configured, ingests files dropped into it.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
