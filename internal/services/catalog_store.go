package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cardvault/backend/internal/models"
)

// CatalogStore is the reconciler's view of the canonical catalog. The
// reconciler reads sets and inserts missing cards; it never updates or
// deletes existing rows.
type CatalogStore interface {
	ListSets() ([]models.CardSet, error)
	CardExists(setID, cardNumber, name string) (bool, error)
	InsertCard(card *models.Card) error
}

// GormCatalogStore backs the catalog with the application database.
type GormCatalogStore struct {
	db *gorm.DB
}

func NewGormCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{db: db}
}

// ListSets returns all canonical sets in a stable order (oldest year first,
// then name) so checkpoint cursors stay meaningful across runs.
func (s *GormCatalogStore) ListSets() ([]models.CardSet, error) {
	var sets []models.CardSet
	err := s.db.Order("year ASC, name ASC").Find(&sets).Error
	return sets, err
}

func (s *GormCatalogStore) CardExists(setID, cardNumber, name string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Card{}).
		Where("set_id = ? AND card_number = ? AND name = ?", setID, cardNumber, name).
		Count(&count).Error
	return count > 0, err
}

func (s *GormCatalogStore) InsertCard(card *models.Card) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	return s.db.Create(card).Error
}
