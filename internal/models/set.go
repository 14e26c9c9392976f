package models

import (
	"time"
)

// CardSet is an internal, authoritative card-set record. Sets are created
// and edited by catalog management, never by the reconciliation engine,
// which only reads them.
type CardSet struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;index"`
	Year      int       `json:"year"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
