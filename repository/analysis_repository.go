package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/benzaid32/virtuoso-ai-music-lab/db"
	"github.com/benzaid32/virtuoso-ai-music-lab/model"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("repository: record not found")

// AnalysisRepository defines the interface for analysis record operations.
type AnalysisRepository interface {
	Create(ctx context.Context, record *model.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*model.AnalysisRecord, error)
	GetByContentHash(ctx context.Context, hash string) (*model.AnalysisRecord, error)
	List(ctx context.Context, limit int) ([]*model.AnalysisRecord, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// gormAnalysisRepository implements AnalysisRepository on the shared GORM
// connection.
type gormAnalysisRepository struct {
	DB *gorm.DB
}

// NewAnalysisRepository creates a repository bound to the shared connection.
func NewAnalysisRepository() AnalysisRepository {
	return &gormAnalysisRepository{DB: db.GormDB}
}

// Create persists a new analysis record.
func (r *gormAnalysisRepository) Create(ctx context.Context, record *model.AnalysisRecord) error {
	if err := r.DB.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create analysis record: %w", err)
	}
	return nil
}

// GetByID retrieves one record by its ID.
func (r *gormAnalysisRepository) GetByID(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	var record model.AnalysisRecord
	err := r.DB.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis record %s: %w", id, err)
	}
	return &record, nil
}

// GetByContentHash retrieves the most recent record for a content hash.
// Used to short-circuit repeat analyses of identical files.
func (r *gormAnalysisRepository) GetByContentHash(ctx context.Context, hash string) (*model.AnalysisRecord, error) {
	var record model.AnalysisRecord
	err := r.DB.WithContext(ctx).
		Where("content_hash = ?", hash).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis record by hash: %w", err)
	}
	return &record, nil
}

// List returns the most recent records, newest first.
func (r *gormAnalysisRepository) List(ctx context.Context, limit int) ([]*model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []*model.AnalysisRecord
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis records: %w", err)
	}
	return records, nil
}

// DeleteByID removes one record.
func (r *gormAnalysisRepository) DeleteByID(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&model.AnalysisRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete analysis record %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes records created before the cutoff and reports how
// many were deleted.
func (r *gormAnalysisRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.AnalysisRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune analysis records: %w", res.Error)
	}
	return res.RowsAffected, nil
}
