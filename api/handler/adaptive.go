package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atlas-codex/scrapling/adaptive"
	"github.com/atlas-codex/scrapling/models"
)

// GetAdaptiveSelectors returns a handler for GET /adaptive-selectors/:site.
// A site with no stored mappings yields an empty set, not a 404: a store
// miss means "no adaptation available", never an error.
func GetAdaptiveSelectors(store *adaptive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		site := c.Param("site")
		selectors := store.Get(c.Request.Context(), site)

		c.JSON(http.StatusOK, models.AdaptiveSelectorsResponse{
			SiteIdentity: site,
			Selectors:    selectors,
			Count:        len(selectors),
		})
	}
}

// UpdateAdaptiveSelector returns a handler for POST /adaptive-selectors/update.
// It manually upserts one SelectorMapping, the operator-provided replacement
// the resolution engine will replay when the original selector stops
// matching.
func UpdateAdaptiveSelector(store *adaptive.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UpdateSelectorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   models.ErrCodeInvalidInput + ": " + err.Error(),
			})
			return
		}

		mapping := req.Mapping
		if mapping.LastUpdated.IsZero() {
			mapping.LastUpdated = time.Now()
		}
		store.Put(c.Request.Context(), req.SiteIdentity, req.Field, mapping)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "adaptive selector updated",
		})
	}
}
