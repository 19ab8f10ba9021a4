package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JobRecord is a completed-job entry written to the optional job ledger.
// It is purely observational: nothing in the engine or the job queue ever
// reads a JobRecord back. Losing the ledger loses history, never
// correctness.
type JobRecord struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Kind       string    `gorm:"column:kind;type:varchar(16);index"`
	C1         int32     `gorm:"column:c1"`
	C2         int32     `gorm:"column:c2"`
	D1         int32     `gorm:"column:d1"`
	D2         int32     `gorm:"column:d2"`
	Offset     int       `gorm:"column:offset"`
	Size       int       `gorm:"column:size"`
	Status     string    `gorm:"column:status;type:varchar(16)"`
	ResultSize int       `gorm:"column:result_size"`
	DurationMS int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for JobRecord.
func (JobRecord) TableName() string {
	return "job_ledger"
}

// JobRepository persists completed job records for after-the-fact
// inspection. It is intentionally write-mostly: ListRecent exists for
// operator tooling, not for anything the query path depends on.
type JobRepository interface {
	SaveCompletedJob(ctx context.Context, rec *JobRecord) error
	ListRecent(ctx context.Context, limit int) ([]JobRecord, error)
}

// GormJobRepository is the GORM-backed JobRepository.
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository constructs a GormJobRepository, migrating the
// job_ledger table if it does not already exist.
func NewGormJobRepository(db *gorm.DB) (*GormJobRepository, error) {
	if err := db.AutoMigrate(&JobRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate job_ledger: %w", err)
	}
	return &GormJobRepository{db: db}, nil
}

// SaveCompletedJob inserts a record for a job that has already finished.
// Callers treat a failure here as a log line, not an error to surface to
// the client that issued the query.
func (r *GormJobRepository) SaveCompletedJob(ctx context.Context, rec *JobRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}
	return nil
}

// ListRecent returns the most recently completed jobs, newest first.
func (r *GormJobRepository) ListRecent(ctx context.Context, limit int) ([]JobRecord, error) {
	var recs []JobRecord
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}
	return recs, nil
}
