package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benzaid32/virtuoso-ai-music-lab/config"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/ingest"
	"github.com/benzaid32/virtuoso-ai-music-lab/db"
	"github.com/benzaid32/virtuoso-ai-music-lab/logger"
	"github.com/benzaid32/virtuoso-ai-music-lab/model"
	"github.com/benzaid32/virtuoso-ai-music-lab/repository"

	"github.com/spf13/cobra"
)

var (
	watchDir     string
	watchWorkers int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a drop folder and analyze new audio files",
	Long: `Watch a directory for WAV and MP3 files and run each new file through the
analysis engine. Results are persisted like uploads; files whose content has
already been analyzed are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if watchDir != "" {
			cfg.WatchDir = watchDir
		}
		if watchWorkers > 0 {
			cfg.WatchWorkers = watchWorkers
		}

		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
		defer logger.Sync()

		if err := db.ConnectGormDB(cfg); err != nil {
			logger.Fatal("Failed to connect to database", logger.ErrorField(err))
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrateModels(&model.AnalysisRecord{}); err != nil {
			logger.Fatal("Failed to migrate database schema", logger.ErrorField(err))
		}

		if err := db.ConnectRedis(cfg); err != nil {
			logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
		}
		defer db.CloseRedis()

		watcher, err := ingest.NewWatcher(cfg, repository.NewAnalysisRepository())
		if err != nil {
			logger.Fatal("Failed to set up drop folder watcher", logger.ErrorField(err))
		}

		ctx, cancel := context.WithCancel(context.Background())
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-stop
			logger.Info("Stopping watcher...")
			cancel()
		}()

		if err := watcher.Run(ctx); err != nil {
			logger.Fatal("Watcher failed", logger.ErrorField(err))
		}
		logger.Info("Watcher stopped")
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch, overrides WATCH_DIR")
	watchCmd.Flags().IntVarP(&watchWorkers, "workers", "w", 0, "number of analysis workers, overrides WATCH_WORKERS")
	rootCmd.AddCommand(watchCmd)
}
