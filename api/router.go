package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/atlas-codex/scrapling/api/handler"
	"github.com/atlas-codex/scrapling/api/middleware"
	"github.com/atlas-codex/scrapling/config"
	"github.com/atlas-codex/scrapling/crawl"
	"github.com/atlas-codex/scrapling/scrape"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS
//	API:     Auth (if enabled) → RateLimit
//
// CORS is permissive because the service fronts internal API callers.
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(o *scrape.Orchestrator, cr *crawl.Crawler, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		MaxAge:          12 * time.Hour,
	}))

	// Health — no auth required.
	r.GET("/health", handler.Health(o.Store(), startTime))

	// Protected group — auth + rate limit.
	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	protected.POST("/scrape", handler.Scrape(o))

	// Crawl
	protected.POST("/crawl", handler.Crawl(cr))

	// Adaptive selectors
	protected.GET("/adaptive-selectors/:site", handler.GetAdaptiveSelectors(o.Store()))
	protected.POST("/adaptive-selectors/update", handler.UpdateAdaptiveSelector(o.Store()))

	return r
}
