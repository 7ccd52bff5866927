package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/benzaid32/virtuoso-ai-music-lab/core/analysis"
)

// Analysis sources.
const (
	SourceUpload = "upload"
	SourceWatch  = "watch"
	SourceCLI    = "cli"
)

// AnalysisRecord stores one completed audio analysis.
type AnalysisRecord struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	FileName    string    `json:"fileName" gorm:"size:512"`
	ContentHash string    `json:"contentHash" gorm:"size:64;index"`
	SizeBytes   int64     `json:"sizeBytes"`
	StorageKey  string    `json:"storageKey,omitempty" gorm:"size:512"` // Object key of the archived upload, empty when archiving was skipped
	Source      string    `json:"source" gorm:"size:16"`                // upload, watch or cli
	Key         string    `json:"key" gorm:"column:music_key;size:4"`
	Scale       string    `json:"scale" gorm:"size:8"`
	TempoBPM    float64   `json:"tempo"`
	Energy      float64   `json:"energy"`
	Confidence  float64   `json:"confidence"`
	Duration    float64   `json:"duration"`
	OnsetCount  int       `json:"onsetCount"`
	OnsetTimes  []float64 `json:"onsetTimes" gorm:"serializer:json;type:text"`
	Waveform    []float64 `json:"waveform" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewAnalysisRecord assembles a persistent record from an engine result.
func NewAnalysisRecord(fileName, contentHash string, sizeBytes int64, source string, res *analysis.Result) *AnalysisRecord {
	return &AnalysisRecord{
		ID:          uuid.New().String(),
		FileName:    fileName,
		ContentHash: contentHash,
		SizeBytes:   sizeBytes,
		Source:      source,
		Key:         res.Key,
		Scale:       res.Mode,
		TempoBPM:    res.TempoBPM,
		Energy:      res.Energy,
		Confidence:  res.Confidence,
		Duration:    res.DurationSeconds,
		OnsetCount:  len(res.OnsetTimes),
		OnsetTimes:  res.OnsetTimes,
		Waveform:    res.Waveform,
	}
}
