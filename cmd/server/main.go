package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cardvault/backend/internal/api"
	"github.com/cardvault/backend/internal/database"
	"github.com/cardvault/backend/internal/services"
)

func main() {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./cardvault.db"
	}

	// Initialize database
	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Provider credentials: env var, or a mounted secret file
	apiToken := os.Getenv("PRICECHARTING_API_TOKEN")
	if apiToken == "" {
		if tokenPath := os.Getenv("PRICECHARTING_TOKEN_FILE"); tokenPath != "" {
			if data, err := os.ReadFile(tokenPath); err == nil {
				apiToken = strings.TrimSpace(string(data))
			}
		}
	}

	// Request pacing: one named interval for the whole process. Pick the
	// value your provider contract allows.
	minInterval := time.Second
	if ms := os.Getenv("RECONCILE_MIN_INTERVAL_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			minInterval = time.Duration(v) * time.Millisecond
		}
	}

	maxRetries := 0
	if v := os.Getenv("RECONCILE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxRetries = n
		}
	}

	providerService := services.NewPriceChartingService(services.PriceChartingConfig{
		APIToken:           apiToken,
		MinRequestInterval: minInterval,
		MaxAttempts:        maxRetries,
	})
	if providerService.IsConfigured() {
		log.Printf("PriceCharting provider configured (min interval %v)", minInterval)
	} else {
		log.Println("PriceCharting provider NOT configured: imports will be rejected until a token is set")
	}

	catalogStore := services.NewGormCatalogStore(database.GetDB())
	checkpointStore := services.NewGormCheckpointStore(database.GetDB())
	matcher := services.NewSetMatcher(services.DefaultMatchConfig())
	reconcileService := services.NewReconcileService(providerService, catalogStore, checkpointStore, matcher)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optionally run an import on startup (if enabled)
	if os.Getenv("RUN_IMPORT_ON_STARTUP") == "true" {
		go func() {
			// Wait a bit for the server to be ready
			time.Sleep(5 * time.Second)
			log.Println("Starting catalog import on startup...")
			stats, err := reconcileService.Run(ctx, services.ReconcileOptions{ResumeFromIndex: -1})
			if err != nil {
				log.Printf("Catalog import failed: %v", err)
			} else if stats != nil {
				log.Printf("Catalog import completed: %d sets, %d cards added", stats.SetsProcessed, stats.CardsAdded)
			}
		}()
	}

	// Setup router
	router := api.SetupRouter(reconcileService, catalogStore)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context so an in-flight import persists its checkpoint
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
