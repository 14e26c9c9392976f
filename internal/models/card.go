package models

import (
	"time"
)

// Card belongs to exactly one CardSet. The reconciler inserts cards it has
// never seen and leaves existing rows untouched; no two cards may share
// (SetID, CardNumber, Name).
type Card struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	SetID          string    `json:"set_id" gorm:"not null;uniqueIndex:idx_card_identity"`
	CardNumber     string    `json:"card_number" gorm:"uniqueIndex:idx_card_identity"`
	Name           string    `json:"name" gorm:"not null;uniqueIndex:idx_card_identity"`
	EstimatedValue float64   `json:"estimated_value"`
	FrontImageURL  string    `json:"front_image_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
