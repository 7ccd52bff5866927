package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/benzaid32/virtuoso-ai-music-lab/cache"
	"github.com/benzaid32/virtuoso-ai-music-lab/config"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/analysis"
	"github.com/benzaid32/virtuoso-ai-music-lab/core/audio"
	"github.com/benzaid32/virtuoso-ai-music-lab/logger"
	"github.com/benzaid32/virtuoso-ai-music-lab/model"
	"github.com/benzaid32/virtuoso-ai-music-lab/repository"
	"github.com/benzaid32/virtuoso-ai-music-lab/storage"
)

const serviceVersion = "1.0.0"

// APIHandler handles all API requests.
type APIHandler struct {
	analysisRepo repository.AnalysisRepository
	cfg          *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(analysisRepo repository.AnalysisRepository, cfg *config.Config) *APIHandler {
	return &APIHandler{
		analysisRepo: analysisRepo,
		cfg:          cfg,
	}
}

// writeError sends the JSON error envelope the clients expect.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// HealthHandler reports service liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"service": "virtuoso-audio-analysis",
		"version": serviceVersion,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// AnalyzeHandler accepts an audio upload and runs the analysis engine on it.
// Expected multipart form fields:
// - audio: the audio file (WAV or MP3)
// - maxDurationSeconds: optional cap on the analyzed duration
// - waveformPeaks: optional waveform resolution override
func (h *APIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	maxBytes := h.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds the %dMB limit", h.cfg.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'audio' in form")
		return
	}
	defer audioFile.Close()

	opts := analysis.Options{
		MaxDurationSeconds:  h.cfg.MaxDurationSeconds,
		TargetWaveformPeaks: h.cfg.WaveformPeaks,
	}
	if v := r.FormValue("maxDurationSeconds"); v != "" {
		seconds, err := strconv.ParseFloat(v, 64)
		if err != nil || seconds < 0 {
			writeError(w, http.StatusBadRequest, "Invalid 'maxDurationSeconds' value")
			return
		}
		opts.MaxDurationSeconds = seconds
	}
	if v := r.FormValue("waveformPeaks"); v != "" {
		peaks, err := strconv.Atoi(v)
		if err != nil || peaks < 0 {
			writeError(w, http.StatusBadRequest, "Invalid 'waveformPeaks' value")
			return
		}
		opts.TargetWaveformPeaks = peaks
	}

	data, err := io.ReadAll(audioFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read upload: %v", err))
		return
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	if cached := cache.GetAnalysis(r.Context(), contentHash); cached != nil {
		logger.Info("[Analyze] Serving cached analysis",
			logger.String("fileName", audioHeader.Filename),
			logger.String("contentHash", contentHash))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"cached":   true,
			"analysis": cached,
		})
		return
	}

	buf, err := audio.Decode(audioHeader.Filename, data)
	if err != nil {
		logger.Warn("[Analyze] Decode failed",
			logger.String("fileName", audioHeader.Filename),
			logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to decode audio: %v", err))
		return
	}

	analysisStart := time.Now()
	result, err := analysis.Analyze(r.Context(), buf, opts)
	if err != nil {
		if analysis.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid audio input: %v", err))
			return
		}
		logger.Error("[Analyze] Analysis failed",
			logger.String("fileName", audioHeader.Filename),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}
	logger.Debug("[Analyze] Engine finished",
		logger.String("fileName", audioHeader.Filename),
		logger.Duration("took", time.Since(analysisStart)))

	record := model.NewAnalysisRecord(audioHeader.Filename, contentHash, int64(len(data)), model.SourceUpload, result)

	// Archival is best-effort. The analysis result matters more than keeping
	// the raw bytes around.
	if storage.GetMinioClient() != nil {
		contentType := audioHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		key, err := storage.ArchiveUpload(r.Context(), audioHeader.Filename, data, contentType)
		if err != nil {
			logger.Warn("[Analyze] Failed to archive upload",
				logger.String("fileName", audioHeader.Filename),
				logger.ErrorField(err))
		} else {
			record.StorageKey = key
		}
	}

	if err := h.analysisRepo.Create(r.Context(), record); err != nil {
		logger.Error("[Analyze] Failed to persist analysis",
			logger.String("fileName", audioHeader.Filename),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to persist analysis")
		return
	}

	cache.SetAnalysis(r.Context(), record, time.Duration(h.cfg.CacheTTLHours)*time.Hour)

	logger.Info("[Analyze] Analysis complete",
		logger.String("id", record.ID),
		logger.String("fileName", record.FileName),
		logger.String("key", record.Key),
		logger.String("scale", record.Scale),
		logger.Float64("tempo", record.TempoBPM),
		logger.Float64("confidence", record.Confidence))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"analysis": record,
	})
}

// ListAnalysesHandler returns the most recent analyses.
func (h *APIHandler) ListAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid 'limit' value")
			return
		}
		limit = parsed
	}

	records, err := h.analysisRepo.List(r.Context(), limit)
	if err != nil {
		logger.Error("[Analyses] Failed to list analyses", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list analyses")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"count":    len(records),
		"analyses": records,
	})
}

// GetAnalysisHandler returns a single analysis by ID.
func (h *APIHandler) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.analysisRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		logger.Error("[Analyses] Failed to load analysis",
			logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load analysis")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"analysis": record,
	})
}

// DeleteAnalysisHandler removes an analysis and drops its cache entry.
func (h *APIHandler) DeleteAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.analysisRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		logger.Error("[Analyses] Failed to load analysis for deletion",
			logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete analysis")
		return
	}

	if err := h.analysisRepo.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		logger.Error("[Analyses] Failed to delete analysis",
			logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete analysis")
		return
	}

	cache.InvalidateAnalysis(r.Context(), record.ContentHash)

	subject, _ := GetSubjectFromContext(r.Context())
	logger.Info("[Analyses] Deleted analysis",
		logger.String("id", id),
		logger.String("fileName", record.FileName),
		logger.String("subject", subject))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"id":      id,
	})
}
