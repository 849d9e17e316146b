package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atlas-codex/scrapling/adaptive"
	"github.com/atlas-codex/scrapling/models"
)

// Health returns a handler for GET /health. It reports liveness plus the
// number of site identities with recorded adaptations.
func Health(store *adaptive.Store, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:          "healthy",
			Service:         "scrapling",
			Uptime:          time.Since(startTime).Round(time.Second).String(),
			AdaptiveDomains: store.Count(),
			Timestamp:       time.Now().UTC(),
			Version:         "0.1.0",
		})
	}
}
