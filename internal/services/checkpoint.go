package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cardvault/backend/internal/models"
)

// CheckpointStore persists reconciliation progress so a run interrupted
// after set k resumes at set k+1 without reprocessing earlier sets.
type CheckpointStore interface {
	// Load returns the checkpoint for a job, or a zero-valued checkpoint
	// (cursor 0) when the job has never run.
	Load(jobID string) (*models.ImportCheckpoint, error)

	// Save upserts the checkpoint. Called once per processed set, so a
	// crash loses at most one set's worth of progress.
	Save(cp *models.ImportCheckpoint) error

	// Clear removes the checkpoint after a fully completed run. Clearing a
	// job that has no checkpoint is not an error.
	Clear(jobID string) error
}

// GormCheckpointStore stores checkpoints as rows in the catalog database.
type GormCheckpointStore struct {
	db *gorm.DB
}

func NewGormCheckpointStore(db *gorm.DB) *GormCheckpointStore {
	return &GormCheckpointStore{db: db}
}

func (s *GormCheckpointStore) Load(jobID string) (*models.ImportCheckpoint, error) {
	var cp models.ImportCheckpoint
	err := s.db.First(&cp, "job_id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.ImportCheckpoint{JobID: jobID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *GormCheckpointStore) Save(cp *models.ImportCheckpoint) error {
	cp.UpdatedAt = time.Now()
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(cp).Error
}

func (s *GormCheckpointStore) Clear(jobID string) error {
	return s.db.Delete(&models.ImportCheckpoint{}, "job_id = ?", jobID).Error
}
