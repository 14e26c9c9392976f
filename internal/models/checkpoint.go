package models

import (
	"time"
)

// ImportCheckpoint is the durable cursor for a reconciliation job. It is
// created lazily on the first run, saved after every canonical set is
// processed, and deleted once the cursor has passed the last set. A crash
// or interrupt therefore loses at most one set's worth of progress.
type ImportCheckpoint struct {
	JobID              string    `json:"job_id" gorm:"primaryKey"`
	CursorSetIndex     int       `json:"cursor_set_index"`
	TotalCardsAdded    int       `json:"total_cards_added"`
	TotalSetsProcessed int       `json:"total_sets_processed"`
	LastError          string    `json:"last_error,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}
