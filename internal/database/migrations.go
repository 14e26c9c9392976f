package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicateCards removes duplicate cards entries before the unique
// (set_id, card_number, name) constraint is added. This runs BEFORE
// AutoMigrate to prevent constraint violations on databases populated by
// older import scripts that had no uniqueness guarantee.
func cleanupDuplicateCards(db *gorm.DB) error {
	if !db.Migrator().HasTable("cards") {
		return nil // No table, no duplicates to clean
	}

	// Keep the oldest row for each identity; later duplicates were produced
	// by re-imports and carry no extra information.
	result := db.Exec(`
		DELETE FROM cards
		WHERE id NOT IN (
			SELECT MIN(id)
			FROM cards
			GROUP BY set_id, card_number, name
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate cards entries", result.RowsAffected)
	}

	return nil
}
