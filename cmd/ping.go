package cmd

import (
	"fmt"
	"os"

	"github.com/benzaid32/virtuoso-ai-music-lab/config"
	"github.com/benzaid32/virtuoso-ai-music-lab/db"
	"github.com/benzaid32/virtuoso-ai-music-lab/storage"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to MySQL, Redis and MinIO",
	Long:  `Connect to each configured backend once and report whether it is reachable.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		failed := false

		fmt.Printf("MySQL %s:%s ... ", cfg.DBHost, cfg.DBPort)
		if err := db.ConnectGormDB(cfg); err != nil {
			fmt.Printf("FAIL: %v\n", err)
			failed = true
		} else {
			fmt.Println("ok")
			db.CloseGormDB()
		}

		fmt.Printf("Redis %s:%s ... ", cfg.RedisHost, cfg.RedisPort)
		if err := db.ConnectRedis(cfg); err != nil {
			fmt.Printf("FAIL: %v\n", err)
			failed = true
		} else {
			fmt.Println("ok")
			db.CloseRedis()
		}

		fmt.Printf("MinIO %s ... ", cfg.MinioEndpoint)
		if err := storage.InitMinio(cfg); err != nil {
			fmt.Printf("FAIL: %v\n", err)
			failed = true
		} else {
			fmt.Println("ok")
		}

		if failed {
			os.Exit(1)
		}
		fmt.Println("All backends reachable.")
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
