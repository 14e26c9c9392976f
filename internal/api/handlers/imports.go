package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/services"
)

type ImportHandler struct {
	reconcileService *services.ReconcileService
}

func NewImportHandler(reconcile *services.ReconcileService) *ImportHandler {
	return &ImportHandler{reconcileService: reconcile}
}

type startImportRequest struct {
	ResumeFromIndex *int `json:"resume_from_index"`
	MaxSets         int  `json:"max_sets"`
	DryRun          bool `json:"dry_run"`
}

// StartImport launches a reconciliation run in the background. Returns 409
// if a run is already in progress.
func (h *ImportHandler) StartImport(c *gin.Context) {
	// All fields are optional; an empty body starts a default run.
	var req startImportRequest
	_ = c.ShouldBindJSON(&req)

	if h.reconcileService.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "an import is already running"})
		return
	}

	opts := services.ReconcileOptions{
		ResumeFromIndex: -1,
		MaxSets:         req.MaxSets,
		DryRun:          req.DryRun,
	}
	if req.ResumeFromIndex != nil {
		opts.ResumeFromIndex = *req.ResumeFromIndex
	}

	go func() {
		stats, err := h.reconcileService.Run(context.Background(), opts)
		if err != nil {
			log.Printf("Import run failed: %v", err)
			return
		}
		log.Printf("Import run finished: %d sets, %d cards added", stats.SetsProcessed, stats.CardsAdded)
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "dry_run": req.DryRun})
}

// GetStatus reports whether a run is in progress, the last run's summary,
// and the stored checkpoint.
func (h *ImportHandler) GetStatus(c *gin.Context) {
	checkpoint, err := h.reconcileService.Checkpoint(services.DefaultImportJobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"running":    h.reconcileService.IsRunning(),
		"last_run":   h.reconcileService.LastStats(),
		"checkpoint": checkpoint,
	})
}

// GetUnmatched returns listings no candidate set accepted, for operator review.
func (h *ImportHandler) GetUnmatched(c *gin.Context) {
	unmatched := h.reconcileService.UnmatchedListings()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(unmatched),
		"unmatched": unmatched,
	})
}

// ResetCheckpoint clears the import cursor so the next run starts over.
func (h *ImportHandler) ResetCheckpoint(c *gin.Context) {
	if err := h.reconcileService.ResetCheckpoint(services.DefaultImportJobID); err != nil {
		if errors.Is(err, services.ErrImportRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "an import is already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
