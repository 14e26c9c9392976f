package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/database"
	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/services"
)

type CatalogHandler struct {
	catalogStore services.CatalogStore
}

func NewCatalogHandler(store services.CatalogStore) *CatalogHandler {
	return &CatalogHandler{catalogStore: store}
}

// ListSets returns every canonical set, oldest first.
func (h *CatalogHandler) ListSets(c *gin.Context) {
	sets, err := h.catalogStore.ListSets()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sets": sets, "count": len(sets)})
}

// ListSetCards returns the cards of one canonical set.
func (h *CatalogHandler) ListSetCards(c *gin.Context) {
	setID := c.Param("id")

	db := database.GetDB()

	var set models.CardSet
	if err := db.First(&set, "id = ?", setID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "set not found"})
		return
	}

	var cards []models.Card
	if err := db.Order("card_number ASC, name ASC").Find(&cards, "set_id = ?", setID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": set, "cards": cards, "count": len(cards)})
}
