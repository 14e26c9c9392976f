// reconcile runs one catalog reconciliation pass against the external
// pricing provider and exits.
//
// Usage: go run main.go -db=<path> [-dry-run] [-max-sets=N] [-resume-from=N]
//
// The tool:
// 1. Loads the import checkpoint (or honors -resume-from)
// 2. Queries the provider once per remaining canonical set
// 3. Inserts cards the catalog has never seen (insert-if-absent)
// 4. Saves the checkpoint after every set, so Ctrl-C is safe
// 5. Prints a summary even when individual sets failed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cardvault/backend/internal/database"
	"github.com/cardvault/backend/internal/services"
)

func main() {
	dbPath := flag.String("db", "./cardvault.db", "Path to SQLite database")
	dryRun := flag.Bool("dry-run", false, "Run the full pipeline without inserting cards")
	maxSets := flag.Int("max-sets", 0, "Cap on sets processed this run (0 = all)")
	resumeFrom := flag.Int("resume-from", -1, "Override the checkpoint cursor (-1 = use checkpoint)")
	jobID := flag.String("job", services.DefaultImportJobID, "Checkpoint job ID")
	intervalMS := flag.Int("interval-ms", 1000, "Minimum milliseconds between provider requests")
	flag.Parse()

	if err := database.Initialize(*dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	apiToken := os.Getenv("PRICECHARTING_API_TOKEN")
	if apiToken == "" {
		if tokenPath := os.Getenv("PRICECHARTING_TOKEN_FILE"); tokenPath != "" {
			if data, err := os.ReadFile(tokenPath); err == nil {
				apiToken = strings.TrimSpace(string(data))
			}
		}
	}
	if apiToken == "" {
		log.Fatal("PRICECHARTING_API_TOKEN is required")
	}

	provider := services.NewPriceChartingService(services.PriceChartingConfig{
		APIToken:           apiToken,
		MinRequestInterval: time.Duration(*intervalMS) * time.Millisecond,
	})

	db := database.GetDB()
	reconcileService := services.NewReconcileService(
		provider,
		services.NewGormCatalogStore(db),
		services.NewGormCheckpointStore(db),
		services.NewSetMatcher(services.DefaultMatchConfig()),
	)

	// Ctrl-C finishes the in-flight request, persists the checkpoint and
	// exits; the next run resumes at the cursor.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Interrupt received, finishing current set...")
		cancel()
	}()

	stats, err := reconcileService.Run(ctx, services.ReconcileOptions{
		JobID:           *jobID,
		ResumeFromIndex: *resumeFrom,
		MaxSets:         *maxSets,
		DryRun:          *dryRun,
	})
	if err != nil && stats == nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Println("=== Import summary ===")
	fmt.Printf("Sets processed: %d\n", stats.SetsProcessed)
	fmt.Printf("Cards added:    %d\n", stats.CardsAdded)
	fmt.Printf("Cards skipped:  %d\n", stats.CardsSkipped)
	fmt.Printf("Unmatched:      %d\n", stats.Unmatched)
	fmt.Printf("Duration:       %v\n", stats.Duration)
	if stats.DryRun {
		fmt.Println("(dry run: no cards were inserted)")
	}
	if len(stats.Errors) > 0 {
		fmt.Printf("Errors (%d):\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	for _, u := range reconcileService.UnmatchedListings() {
		fmt.Printf("unmatched: %q [%s] while importing %q: %s\n", u.Title, u.CategoryLabel, u.SetName, u.Reason)
	}

	if err != nil {
		// Cancelled or aborted: non-zero exit, but the summary above stands.
		log.Fatalf("Import ended early: %v", err)
	}
}
