package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/benzaid32/virtuoso-ai-music-lab/config"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/auth"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the analysis API",
	Long:  `Mint an HS256 bearer token signed with AUTH_SECRET for use against a server running with AUTH_ENABLED=true.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cfg.AuthSecret == "" {
			log.Fatal("AUTH_SECRET is not configured")
		}

		token, err := auth.GenerateToken(cfg.AuthSecret, tokenSubject, tokenTTL)
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "dev", "token subject")
	tokenCmd.Flags().DurationVarP(&tokenTTL, "ttl", "t", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
