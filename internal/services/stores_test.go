package services

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardvault/backend/internal/models"
)

func newStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.CardSet{}, &models.Card{}, &models.ImportCheckpoint{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestGormCatalogStoreInsertAndExists(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewGormCatalogStore(db)

	if err := db.Create(&models.CardSet{ID: "set-a", Name: "1992 Marvel Masterpieces", Year: 1992, Slug: "1992-marvel-masterpieces"}).Error; err != nil {
		t.Fatalf("failed to seed set: %v", err)
	}

	exists, err := store.CardExists("set-a", "15", "Spider-Man")
	if err != nil {
		t.Fatalf("CardExists failed: %v", err)
	}
	if exists {
		t.Error("CardExists = true before insert")
	}

	card := &models.Card{SetID: "set-a", CardNumber: "15", Name: "Spider-Man", EstimatedValue: 2.50}
	if err := store.InsertCard(card); err != nil {
		t.Fatalf("InsertCard failed: %v", err)
	}
	if card.ID == "" {
		t.Error("InsertCard did not assign an ID")
	}

	exists, err = store.CardExists("set-a", "15", "Spider-Man")
	if err != nil {
		t.Fatalf("CardExists failed: %v", err)
	}
	if !exists {
		t.Error("CardExists = false after insert")
	}

	// Same number, different name is a different card.
	exists, _ = store.CardExists("set-a", "15", "Venom")
	if exists {
		t.Error("CardExists matched a different card name")
	}
}

func TestGormCatalogStoreRejectsDuplicateIdentity(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewGormCatalogStore(db)

	first := &models.Card{SetID: "set-a", CardNumber: "64", Name: "Colossus"}
	if err := store.InsertCard(first); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	dup := &models.Card{SetID: "set-a", CardNumber: "64", Name: "Colossus"}
	if err := store.InsertCard(dup); err == nil {
		t.Error("duplicate (set, number, name) insert succeeded, want constraint error")
	}

	var count int64
	db.Model(&models.Card{}).Count(&count)
	if count != 1 {
		t.Errorf("cards rows = %d, want 1", count)
	}
}

func TestGormCatalogStoreListSetsOrder(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewGormCatalogStore(db)

	seed := []models.CardSet{
		{ID: "b", Name: "Marvel Universe Series 3", Year: 1993, Slug: "universe-3"},
		{ID: "a", Name: "1992 Marvel Masterpieces", Year: 1992, Slug: "masterpieces-92"},
		{ID: "c", Name: "Flair Marvel Annual", Year: 1994, Slug: "flair-94"},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("failed to seed set: %v", err)
		}
	}

	sets, err := store.ListSets()
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 3 {
		t.Fatalf("got %d sets, want 3", len(sets))
	}
	// Oldest first, so checkpoint cursors stay stable across runs.
	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if sets[i].ID != want {
			t.Errorf("sets[%d].ID = %q, want %q", i, sets[i].ID, want)
		}
	}
}

func TestGormCheckpointStoreLifecycle(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewGormCheckpointStore(db)

	// Fresh job loads a zero-valued checkpoint.
	cp, err := store.Load("job-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cp.CursorSetIndex != 0 || cp.TotalCardsAdded != 0 {
		t.Errorf("fresh checkpoint not zero-valued: %+v", cp)
	}

	cp.CursorSetIndex = 3
	cp.TotalCardsAdded = 42
	cp.TotalSetsProcessed = 3
	if err := store.Save(cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("job-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.CursorSetIndex != 3 || loaded.TotalCardsAdded != 42 {
		t.Errorf("loaded checkpoint = %+v, want cursor 3, cards 42", loaded)
	}

	// Save is an upsert: cursor only moves forward across the run.
	loaded.CursorSetIndex = 4
	loaded.LastError = "provider unavailable"
	if err := store.Save(loaded); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	again, _ := store.Load("job-1")
	if again.CursorSetIndex != 4 || again.LastError != "provider unavailable" {
		t.Errorf("upserted checkpoint = %+v", again)
	}

	if err := store.Clear("job-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	cleared, _ := store.Load("job-1")
	if cleared.CursorSetIndex != 0 {
		t.Errorf("checkpoint survived Clear: %+v", cleared)
	}

	// Clearing an absent checkpoint is not an error.
	if err := store.Clear("job-1"); err != nil {
		t.Errorf("Clear on missing checkpoint failed: %v", err)
	}
}

func TestGormCheckpointStoreIsolatesJobs(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewGormCheckpointStore(db)

	a := &models.ImportCheckpoint{JobID: "job-a", CursorSetIndex: 5}
	b := &models.ImportCheckpoint{JobID: "job-b", CursorSetIndex: 9}
	if err := store.Save(a); err != nil {
		t.Fatalf("Save job-a failed: %v", err)
	}
	if err := store.Save(b); err != nil {
		t.Fatalf("Save job-b failed: %v", err)
	}

	gotA, _ := store.Load("job-a")
	gotB, _ := store.Load("job-b")
	if gotA.CursorSetIndex != 5 || gotB.CursorSetIndex != 9 {
		t.Errorf("cursors = %d/%d, want 5/9", gotA.CursorSetIndex, gotB.CursorSetIndex)
	}

	if err := store.Clear("job-a"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	gotB, _ = store.Load("job-b")
	if gotB.CursorSetIndex != 9 {
		t.Error("clearing job-a touched job-b")
	}
}
