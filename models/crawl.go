package models

// CrawlRequest is the payload for POST /crawl.
type CrawlRequest struct {
	// URL is the starting page. Required. Discovered links are only
	// followed when they share this URL as a literal prefix.
	URL string `json:"url" binding:"required,url"`

	// MaxPages limits the number of recorded page results.
	// Default: 10. Max: 500.
	MaxPages int `json:"max_pages,omitempty" binding:"omitempty,min=1,max=500"`

	// IncludePatterns, when non-empty, restricts crawling to URLs
	// containing at least one of these substrings.
	IncludePatterns []string `json:"include_patterns,omitempty"`

	// ExcludePatterns skips any URL containing one of these substrings.
	// Exclusion wins over inclusion.
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`

	// FollowLinks enables enqueueing of links discovered on fetched pages.
	FollowLinks bool `json:"follow_links,omitempty"`

	// Strategy, JavaScript, Timeout and Formats are applied to every
	// page fetch, as in ScrapeRequest.
	Strategy   string   `json:"strategy,omitempty" binding:"omitempty,oneof=adaptive standard stealth async"`
	JavaScript bool     `json:"javascript,omitempty"`
	Timeout    int      `json:"timeout,omitempty" binding:"omitempty,min=1"`
	Formats    []string `json:"formats,omitempty"`

	// WebhookURL, when set, receives a signed "crawl.completed" event
	// after the crawl finishes.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *CrawlRequest) Defaults() {
	if r.MaxPages == 0 {
		r.MaxPages = 10
	}
	if r.Strategy == "" || r.Strategy == StrategyAdaptive {
		r.Strategy = StrategyStandard
	}
	if r.Timeout == 0 {
		r.Timeout = 30000
	}
}

// PageResult is the outcome of one crawled page.
type PageResult struct {
	URL    string `json:"url"`
	Status string `json:"status"` // "success" or "failed"

	// Data is the per-page scrape response on success.
	Data *ScrapeResponse `json:"data,omitempty"`

	// Error is populated when Status is "failed".
	Error string `json:"error,omitempty"`
}

// CrawlStats aggregates the outcome counts of a crawl.
type CrawlStats struct {
	TotalPages      int `json:"total_pages"`
	SuccessfulPages int `json:"successful_pages"`
	FailedPages     int `json:"failed_pages"`
}

// CrawlReport is the response for POST /crawl: aggregate stats plus the
// ordered per-page outcomes.
type CrawlReport struct {
	Stats CrawlStats   `json:"stats"`
	Pages []PageResult `json:"pages"`
}
