package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/benzaid32/virtuoso-ai-music-lab/config"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/ingest"
	"github.com/benzaid32/virtuoso-ai-music-lab/db"
	"github.com/benzaid32/virtuoso-ai-music-lab/logger"
	"github.com/benzaid32/virtuoso-ai-music-lab/model"
	"github.com/benzaid32/virtuoso-ai-music-lab/repository"
	"github.com/benzaid32/virtuoso-ai-music-lab/storage"
)

// NewRouter wires the API routes and shared middleware.
func NewRouter(apiHandler *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/health", apiHandler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/analyze", apiHandler.AuthMiddleware(apiHandler.AnalyzeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/analyses", apiHandler.AuthMiddleware(apiHandler.ListAnalysesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/analyses/{id}", apiHandler.AuthMiddleware(apiHandler.GetAnalysisHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/analyses/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteAnalysisHandler)).Methods(http.MethodDelete)

	return router
}

// Start initializes dependencies and runs the HTTP server until it receives
// an interrupt signal.
func Start() {
	cfg := config.Load()

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

	// The service analyzes fine without MinIO, uploads just go unarchived.
	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("MinIO unavailable, uploads will not be archived", logger.ErrorField(err))
	}

	analysisRepo := repository.NewAnalysisRepository()
	apiHandler := NewAPIHandler(analysisRepo, cfg)
	router := NewRouter(apiHandler)

	server := &http.Server{
		Addr:         cfg.ServerHost + ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Background workers stop with this context when the server shuts down.
	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	if cfg.WatchDir != "" {
		watcher, err := ingest.NewWatcher(cfg, analysisRepo)
		if err != nil {
			logger.Fatal("Failed to set up drop folder watcher", logger.ErrorField(err))
		}
		go func() {
			if err := watcher.Run(backgroundCtx); err != nil {
				logger.Error("Drop folder watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	if cfg.RetentionDays > 0 {
		go runRetentionSweep(backgroundCtx, analysisRepo, cfg.RetentionDays)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting",
			logger.String("addr", server.Addr),
			logger.Bool("authEnabled", cfg.AuthEnabled),
			logger.String("watchDir", cfg.WatchDir))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")
	cancelBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

// runRetentionSweep periodically deletes analysis records older than the
// configured retention window.
func runRetentionSweep(ctx context.Context, repo repository.AnalysisRepository, retentionDays int) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			deleted, err := repo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				logger.Warn("Retention sweep failed", logger.ErrorField(err))
				continue
			}
			if deleted > 0 {
				logger.Info("Retention sweep removed old analyses",
					logger.Int64("deleted", deleted),
					logger.String("cutoff", cutoff.Format(time.RFC3339)))
			}
		}
	}
}
