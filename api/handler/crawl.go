package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atlas-codex/scrapling/crawl"
	"github.com/atlas-codex/scrapling/models"
	"github.com/atlas-codex/scrapling/webhook"
)

// Crawl returns a handler for POST /crawl. The crawl runs synchronously and
// the full report is the response body; an optional webhook receives the
// same report once the crawl finishes.
func Crawl(cr *crawl.Crawler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error:   models.ErrCodeInvalidInput + ": " + err.Error(),
			})
			return
		}

		report := cr.Crawl(c.Request.Context(), &req)

		if req.WebhookURL != "" {
			// Delivery is detached from the request lifecycle so a slow
			// endpoint cannot delay the response.
			webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
				Type:      webhook.EventCrawlCompleted,
				StartURL:  req.URL,
				Timestamp: time.Now().Unix(),
				Data:      report,
			})
		}

		c.JSON(http.StatusOK, report)
	}
}
