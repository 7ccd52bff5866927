// Package ingest watches a drop folder and runs every audio file that lands
// in it through the analysis engine.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/benzaid32/virtuoso-ai-music-lab/cache"
	"github.com/benzaid32/virtuoso-ai-music-lab/config"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/analysis"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/audio"
	"github.com/benzaid32/virtuoso-ai-music-lab/logger"
	"github.com/benzaid32/virtuoso-ai-music-lab/model"
	"github.com/benzaid32/virtuoso-ai-music-lab/repository"
)

const (
	// A file is considered settled once no write event has touched it for
	// this long. Copies into the drop folder arrive in bursts.
	stabilityWindow = 1 * time.Second
	checkInterval   = 500 * time.Millisecond
	sizeProbeDelay  = 30 * time.Millisecond
	taskBacklog     = 100
)

// Watcher ingests audio files dropped into a directory.
type Watcher struct {
	cfg       *config.Config
	repo      repository.AnalysisRepository
	dir       string
	workers   int
	processed sync.Map
}

// NewWatcher validates the configured drop folder and prepares a watcher
// over it.
func NewWatcher(cfg *config.Config, repo repository.AnalysisRepository) (*Watcher, error) {
	if cfg.WatchDir == "" {
		return nil, fmt.Errorf("ingest: no watch directory configured")
	}
	info, err := os.Stat(cfg.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("ingest: cannot access watch directory %s: %w", cfg.WatchDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest: watch path %s is not a directory", cfg.WatchDir)
	}

	workers := cfg.WatchWorkers
	if workers <= 0 {
		workers = 2
	}

	return &Watcher{
		cfg:     cfg,
		repo:    repo,
		dir:     cfg.WatchDir,
		workers: workers,
	}, nil
}

// Run watches the drop folder until the context is canceled. Files already
// present at startup are enqueued first.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ingest: failed to create directory watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("ingest: failed to watch %s: %w", w.dir, err)
	}

	taskChan := make(chan string, taskBacklog)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.worker(ctx, workerID, taskChan)
		}(i)
	}

	logger.Info("[Watch] Watching drop folder",
		logger.String("dir", w.dir),
		logger.Int("workers", w.workers))

	w.enqueueExisting(ctx, taskChan)
	w.watchLoop(ctx, fsWatcher, taskChan)

	close(taskChan)
	wg.Wait()
	return nil
}

// enqueueExisting picks up files that were dropped while the watcher was not
// running.
func (w *Watcher) enqueueExisting(ctx context.Context, taskChan chan<- string) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("[Watch] Failed to scan drop folder", logger.ErrorField(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isAudioFile(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, loaded := w.processed.LoadOrStore(path, true); loaded {
			continue
		}
		select {
		case taskChan <- path:
		case <-ctx.Done():
			return
		}
	}
}

// watchLoop funnels file events into the task channel. New files are held in
// a pending set until their write burst settles.
func (w *Watcher) watchLoop(ctx context.Context, fsWatcher *fsnotify.Watcher, taskChan chan<- string) {
	pendingFiles := make(map[string]time.Time)
	checkTicker := time.NewTicker(checkInterval)
	defer checkTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if !isAudioFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pendingFiles[event.Name] = time.Now()
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// A fresh drop under the same name gets analyzed again.
				delete(pendingFiles, event.Name)
				w.processed.Delete(event.Name)
			}

		case <-checkTicker.C:
			now := time.Now()
			for path, lastEvent := range pendingFiles {
				if now.Sub(lastEvent) < stabilityWindow {
					continue
				}
				if _, loaded := w.processed.LoadOrStore(path, true); loaded {
					delete(pendingFiles, path)
					continue
				}
				if !isFileComplete(path) {
					w.processed.Delete(path)
					continue
				}

				select {
				case taskChan <- path:
					delete(pendingFiles, path)
					logger.Debug("[Watch] Queued file", logger.String("file", path))
				default:
					// Backlog is full, retry on the next tick.
					w.processed.Delete(path)
				}
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("[Watch] Directory watcher error", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) worker(ctx context.Context, workerID int, taskChan <-chan string) {
	for path := range taskChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.processFile(ctx, path); err != nil {
			logger.Warn("[Watch] Failed to process file",
				logger.Int("worker", workerID),
				logger.String("file", path),
				logger.ErrorField(err))
		}
	}
}

// processFile runs one dropped file through decode, analysis and
// persistence. Files whose content has been analyzed before are skipped.
func (w *Watcher) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])
	ttl := time.Duration(w.cfg.CacheTTLHours) * time.Hour

	if cached := cache.GetAnalysis(ctx, contentHash); cached != nil {
		logger.Info("[Watch] Skipping cached file",
			logger.String("file", filepath.Base(path)),
			logger.String("contentHash", contentHash))
		return nil
	}

	// The startup scan re-enqueues everything still sitting in the folder,
	// so check the database before redoing the work.
	existing, err := w.repo.GetByContentHash(ctx, contentHash)
	if err == nil {
		cache.SetAnalysis(ctx, existing, ttl)
		logger.Info("[Watch] Skipping already analyzed file",
			logger.String("file", filepath.Base(path)),
			logger.String("id", existing.ID))
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up analysis for %s: %w", path, err)
	}

	buf, err := audio.Decode(path, data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	analysisStart := time.Now()
	result, err := analysis.Analyze(ctx, buf, analysis.Options{
		MaxDurationSeconds:  w.cfg.MaxDurationSeconds,
		TargetWaveformPeaks: w.cfg.WaveformPeaks,
	})
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", path, err)
	}
	logger.Debug("[Watch] Engine finished",
		logger.String("file", filepath.Base(path)),
		logger.Duration("took", time.Since(analysisStart)))

	record := model.NewAnalysisRecord(filepath.Base(path), contentHash, int64(len(data)), model.SourceWatch, result)
	if err := w.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to persist analysis for %s: %w", path, err)
	}
	cache.SetAnalysis(ctx, record, ttl)

	logger.Info("[Watch] Analyzed file",
		logger.String("id", record.ID),
		logger.String("file", record.FileName),
		logger.String("key", record.Key),
		logger.String("scale", record.Scale),
		logger.Float64("tempo", record.TempoBPM),
		logger.Float64("confidence", record.Confidence))
	return nil
}

func isAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".mp3":
		return true
	}
	return false
}

// isFileComplete treats a file as fully written when its size holds steady
// across a short probe.
func isFileComplete(path string) bool {
	info1, err := os.Stat(path)
	if err != nil || !info1.Mode().IsRegular() || info1.Size() == 0 {
		return false
	}

	time.Sleep(sizeProbeDelay)

	info2, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info1.Size() == info2.Size()
}
