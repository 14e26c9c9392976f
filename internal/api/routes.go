package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardvault/backend/internal/api/handlers"
	"github.com/cardvault/backend/internal/services"
)

func SetupRouter(reconcileService *services.ReconcileService, catalogStore services.CatalogStore) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false // Explicitly set
	router.Use(cors.New(config))

	// Initialize handlers
	importHandler := handlers.NewImportHandler(reconcileService)
	catalogHandler := handlers.NewCatalogHandler(catalogStore)

	// API routes
	api := router.Group("/api")
	{
		// Import control routes
		imports := api.Group("/import")
		{
			imports.POST("/start", importHandler.StartImport)
			imports.GET("/status", importHandler.GetStatus)
			imports.GET("/unmatched", importHandler.GetUnmatched)
			imports.POST("/reset", importHandler.ResetCheckpoint)
		}

		// Catalog read routes
		sets := api.Group("/sets")
		{
			sets.GET("", catalogHandler.ListSets)
			sets.GET("/:id/cards", catalogHandler.ListSetCards)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
