package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlas-codex/scrapling/models"
	"github.com/atlas-codex/scrapling/scrape"
)

// Scrape returns a handler for POST /scrape.
//
// The orchestrator never errors past its boundary, so any well-formed
// request gets a 200 with the success flag inside the envelope; only a
// malformed body produces a 400.
func Scrape(o *scrape.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error:   models.ErrCodeInvalidInput + ": " + err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, o.Scrape(c.Request.Context(), &req))
	}
}
