package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
)

// DefaultImportJobID names the single logical import job. At most one
// orchestrator may run against a given job's checkpoint at a time.
const DefaultImportJobID = "catalog-import"

// maxUnmatchedRetained caps the operator-review list so a noisy provider
// can't grow it without bound.
const maxUnmatchedRetained = 500

var ErrImportRunning = errors.New("reconcile: an import is already running")

// ReconcileOptions is the operational surface for one run.
type ReconcileOptions struct {
	// JobID selects the checkpoint; empty means DefaultImportJobID.
	JobID string
	// ResumeFromIndex overrides the checkpoint cursor when >= 0.
	ResumeFromIndex int
	// MaxSets caps how many sets this run processes; 0 means no cap.
	MaxSets int
	// DryRun runs the full matching/parsing pipeline but suppresses card
	// inserts and checkpoint writes, reporting what would be inserted.
	DryRun bool
}

// ImportStats summarizes a reconciliation run. The run always completes
// with a summary even when individual sets failed.
type ImportStats struct {
	SetsProcessed int           `json:"sets_processed"`
	CardsAdded    int           `json:"cards_added"`
	CardsSkipped  int           `json:"cards_skipped"`
	Unmatched     int           `json:"unmatched"`
	Errors        []string      `json:"errors,omitempty"`
	Duration      time.Duration `json:"duration"`
	DryRun        bool          `json:"dry_run"`
	Completed     bool          `json:"completed"`
}

// ReconcileService drives the end-to-end import pipeline: query the external
// provider per canonical set, validate that each listing belongs to the set,
// parse a card identity out of the title, and insert cards the catalog has
// never seen. Strictly sequential: the provider rate limit is a global
// constraint, so there is exactly one worker.
type ReconcileService struct {
	provider    ListingProvider
	store       CatalogStore
	checkpoints CheckpointStore
	matcher     *SetMatcher

	mu        sync.Mutex
	running   bool
	lastStats *ImportStats
	unmatched []models.UnmatchedListing
}

func NewReconcileService(provider ListingProvider, store CatalogStore, checkpoints CheckpointStore, matcher *SetMatcher) *ReconcileService {
	return &ReconcileService{
		provider:    provider,
		store:       store,
		checkpoints: checkpoints,
		matcher:     matcher,
	}
}

// IsRunning returns whether an import is currently in progress.
func (s *ReconcileService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastStats returns the summary of the most recently finished run, or nil.
func (s *ReconcileService) LastStats() *ImportStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStats
}

// UnmatchedListings returns listings no candidate set accepted, for
// operator review.
func (s *ReconcileService) UnmatchedListings() []models.UnmatchedListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UnmatchedListing, len(s.unmatched))
	copy(out, s.unmatched)
	return out
}

// Checkpoint exposes the stored cursor for status reporting.
func (s *ReconcileService) Checkpoint(jobID string) (*models.ImportCheckpoint, error) {
	if jobID == "" {
		jobID = DefaultImportJobID
	}
	return s.checkpoints.Load(jobID)
}

// ResetCheckpoint clears a job's cursor so the next run starts from set 0.
// Rejected while a run is in progress.
func (s *ReconcileService) ResetCheckpoint(jobID string) error {
	if s.IsRunning() {
		return ErrImportRunning
	}
	if jobID == "" {
		jobID = DefaultImportJobID
	}
	return s.checkpoints.Clear(jobID)
}

// Run executes one reconciliation pass. Only a missing/invalid provider
// credential aborts the run; every other failure is caught per set or per
// listing and accumulated into the returned stats. On context cancellation
// the current checkpoint is persisted so the next run resumes where this
// one stopped.
func (s *ReconcileService) Run(ctx context.Context, opts ReconcileOptions) (*ImportStats, error) {
	if !s.provider.IsConfigured() {
		return nil, ErrMissingToken
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrImportRunning
	}
	s.running = true
	s.unmatched = nil
	s.mu.Unlock()

	metrics.ImportRunning.Set(1)
	defer func() {
		metrics.ImportRunning.Set(0)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	jobID := opts.JobID
	if jobID == "" {
		jobID = DefaultImportJobID
	}

	start := time.Now()
	stats := &ImportStats{DryRun: opts.DryRun}
	defer func() {
		stats.Duration = time.Since(start)
		s.mu.Lock()
		s.lastStats = stats
		s.mu.Unlock()
	}()

	cp, err := s.checkpoints.Load(jobID)
	if err != nil {
		return stats, fmt.Errorf("load checkpoint: %w", err)
	}
	if opts.ResumeFromIndex >= 0 {
		cp.CursorSetIndex = opts.ResumeFromIndex
	}

	sets, err := s.store.ListSets()
	if err != nil {
		return stats, fmt.Errorf("list sets: %w", err)
	}

	if cp.CursorSetIndex > len(sets) {
		cp.CursorSetIndex = len(sets)
	}

	end := len(sets)
	if opts.MaxSets > 0 && cp.CursorSetIndex+opts.MaxSets < end {
		end = cp.CursorSetIndex + opts.MaxSets
	}

	log.Printf("Reconcile: starting at set %d/%d (dry_run=%v)", cp.CursorSetIndex, len(sets), opts.DryRun)

	for i := cp.CursorSetIndex; i < end; i++ {
		select {
		case <-ctx.Done():
			// Persist whatever progress we have and bow out; the next run
			// picks up at the cursor.
			if !opts.DryRun {
				if saveErr := s.checkpoints.Save(cp); saveErr != nil {
					log.Printf("Reconcile: failed to save checkpoint on cancel: %v", saveErr)
				}
			}
			log.Printf("Reconcile: cancelled after %d sets", stats.SetsProcessed)
			return stats, ctx.Err()
		default:
		}

		set := sets[i]
		setStart := time.Now()

		added, skipped, unmatched, setErr := s.processSet(ctx, set, opts.DryRun)
		stats.CardsAdded += added
		stats.CardsSkipped += skipped
		stats.Unmatched += unmatched

		if setErr != nil && ctx.Err() != nil {
			// Interrupted mid-set: the failure is the cancellation, not the
			// provider. Keep the cursor on this set so the next run redoes it.
			if !opts.DryRun {
				if saveErr := s.checkpoints.Save(cp); saveErr != nil {
					log.Printf("Reconcile: failed to save checkpoint on cancel: %v", saveErr)
				}
			}
			log.Printf("Reconcile: cancelled during set %q", set.Name)
			return stats, ctx.Err()
		}

		stats.SetsProcessed++

		// A single set's external failure must never block progress on the
		// rest: record the error and advance the cursor past it anyway.
		cp.CursorSetIndex = i + 1
		cp.TotalSetsProcessed++
		cp.TotalCardsAdded += added
		if setErr != nil {
			if errors.Is(setErr, ErrInvalidToken) {
				cp.LastError = setErr.Error()
				if !opts.DryRun {
					if saveErr := s.checkpoints.Save(cp); saveErr != nil {
						log.Printf("Reconcile: failed to save checkpoint: %v", saveErr)
					}
				}
				stats.Errors = append(stats.Errors, setErr.Error())
				return stats, setErr
			}
			cp.LastError = setErr.Error()
			stats.Errors = append(stats.Errors, setErr.Error())
			log.Printf("Reconcile: set %q failed, skipping: %v", set.Name, setErr)
		} else {
			cp.LastError = ""
		}

		if !opts.DryRun {
			if saveErr := s.checkpoints.Save(cp); saveErr != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("save checkpoint after %q: %v", set.Name, saveErr))
			}
		}

		metrics.SetsProcessedTotal.Inc()
		metrics.SetProcessDuration.Observe(time.Since(setStart).Seconds())
	}

	if cp.CursorSetIndex >= len(sets) {
		stats.Completed = true
		if !opts.DryRun {
			if err := s.checkpoints.Clear(jobID); err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("clear checkpoint: %v", err))
			}
		}
	}

	log.Printf("Reconcile: finished in %v - %d sets, %d added, %d skipped, %d unmatched, %d errors",
		time.Since(start), stats.SetsProcessed, stats.CardsAdded, stats.CardsSkipped, stats.Unmatched, len(stats.Errors))

	return stats, nil
}

// processSet reconciles one canonical set: fetch candidate listings,
// validate each truly belongs to this set, parse identities and insert
// missing cards. Listing-level problems are counted, not propagated.
func (s *ReconcileService) processSet(ctx context.Context, set models.CardSet, dryRun bool) (added, skipped, unmatched int, err error) {
	listings, err := s.provider.SearchListings(ctx, set.Name)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch %q: %w", set.Name, err)
	}

	candidates := []models.CardSet{set}

	for _, listing := range listings {
		// Listings were fetched for this one set, so matching validates
		// "does this listing really belong here" rather than searching.
		match := s.matcher.Match(listing, candidates)
		if match == nil {
			unmatched++
			metrics.ListingsUnmatchedTotal.Inc()
			s.recordUnmatched(listing, set, "no strategy accepted the listing")
			continue
		}

		identity := ParseListingTitle(listing.Title)
		if identity.CardNumber == "" {
			// Placeholder cards are not created automatically.
			skipped++
			metrics.CardsSkippedTotal.Inc()
			continue
		}

		exists, existsErr := s.store.CardExists(set.ID, identity.CardNumber, identity.CardName)
		if existsErr != nil {
			return added, skipped, unmatched, fmt.Errorf("lookup %q #%s: %w", identity.CardName, identity.CardNumber, existsErr)
		}
		if exists {
			// Idempotent: existing rows are immutable from this subsystem's
			// perspective.
			skipped++
			metrics.CardsSkippedTotal.Inc()
			continue
		}

		if dryRun {
			added++
			log.Printf("Reconcile: [dry run] would add %q #%s to set %q (strategy=%s confidence=%.2f)",
				identity.CardName, identity.CardNumber, set.Name, match.Strategy, match.Confidence)
			continue
		}

		card := &models.Card{
			SetID:          set.ID,
			CardNumber:     identity.CardNumber,
			Name:           identity.CardName,
			EstimatedValue: listing.LoosePrice,
			FrontImageURL:  listing.ImageURL,
		}
		if insertErr := s.store.InsertCard(card); insertErr != nil {
			// Most likely a uniqueness race with a concurrent writer; the
			// row exists either way, so treat it as a silent skip.
			skipped++
			metrics.CardsSkippedTotal.Inc()
			log.Printf("Reconcile: insert %q #%s skipped: %v", identity.CardName, identity.CardNumber, insertErr)
			continue
		}

		added++
		metrics.CardsImportedTotal.Inc()
	}

	return added, skipped, unmatched, nil
}

func (s *ReconcileService) recordUnmatched(listing models.ExternalListing, set models.CardSet, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.unmatched) >= maxUnmatchedRetained {
		return
	}
	s.unmatched = append(s.unmatched, models.UnmatchedListing{
		ExternalID:    listing.ExternalID,
		Title:         listing.Title,
		CategoryLabel: listing.CategoryLabel,
		SetName:       set.Name,
		Reason:        reason,
	})
}
