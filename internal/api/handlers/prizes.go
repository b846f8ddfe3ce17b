package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/clawmachine/internal/game"
	"github.com/playmatatu/clawmachine/internal/models"
	"github.com/playmatatu/clawmachine/internal/prize"
)

// WinHistory lists a profile's recorded wins. save.PostgresStore satisfies it.
type WinHistory interface {
	Wins(ctx context.Context, profileID int, limit int) ([]models.PrizeWin, error)
}

// GetPrizes returns the caller's whole catalog with won/total counts. Locked
// prizes are returned without their image.
// GET /api/v1/prizes
func GetPrizes(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		catalog, err := mgr.Catalog(c.Request.Context(), id)
		if err != nil {
			log.Printf("[PRIZES] catalog failed for profile %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		shelf := prize.NewShelf(catalog, prize.DefaultLayout)
		pages := make([]prize.Page, 0, shelf.PageCount())
		for i := 0; i < shelf.PageCount(); i++ {
			pages = append(pages, shelf.PageAt(i))
		}
		won, total := catalog.Counts()
		c.JSON(http.StatusOK, gin.H{"won": won, "total": total, "sections": pages})
	}
}

// GetShelfPage returns a single shelf page by index.
// GET /api/v1/prizes/shelf/:page
func GetShelfPage(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		page, err := strconv.Atoi(c.Param("page"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
			return
		}
		catalog, err := mgr.Catalog(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		shelf := prize.NewShelf(catalog, prize.DefaultLayout)
		if page < 0 || page >= shelf.PageCount() {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such page", "count": shelf.PageCount()})
			return
		}
		c.JSON(http.StatusOK, shelf.PageAt(page))
	}
}

// GetWins returns the caller's most recent wins.
// GET /api/v1/prizes/wins?limit=20
func GetWins(history WinHistory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := profileID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if history == nil {
			c.JSON(http.StatusOK, gin.H{"wins": []models.PrizeWin{}})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit <= 0 || limit > 100 {
			limit = 20
		}
		wins, err := history.Wins(c.Request.Context(), id, limit)
		if err != nil {
			log.Printf("[PRIZES] wins failed for profile %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if wins == nil {
			wins = []models.PrizeWin{}
		}
		c.JSON(http.StatusOK, gin.H{"wins": wins})
	}
}
