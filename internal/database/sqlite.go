package database

import (
	"log"

	"github.com/cardvault/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Initialize(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	// Legacy rows can violate the card identity constraint; clean them up
	// before AutoMigrate tries to add the unique index.
	if err := cleanupDuplicateCards(DB); err != nil {
		return err
	}

	err = DB.AutoMigrate(&models.CardSet{}, &models.Card{}, &models.ImportCheckpoint{})
	if err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
