package models

import "time"

// ScrapeResponse is the response for POST /scrape.
//
// Exactly one of Data or Content is populated on success: Data when the
// request carried selectors, Content (raw markup) when it did not. Error is
// populated only when Success is false, never alongside extracted output.
type ScrapeResponse struct {
	// Success indicates whether the scrape completed without a fetch error.
	// Missing fields degrade gracefully and do not flip this to false.
	Success bool `json:"success"`

	// Data maps field names to extracted values: a string for a single
	// match, an ordered []string for multiple matches (document order).
	// A field whose selector failed carries an "Error: ..." string.
	Data map[string]any `json:"data,omitempty"`

	// Content is the raw fetched markup, returned when no selectors
	// were requested.
	Content string `json:"content,omitempty"`

	// Metadata describes the fetched page and the request that produced it.
	Metadata Metadata `json:"metadata"`

	// AdaptiveSelectors maps field names to the stored replacement
	// selector that was applied because the requested one no longer
	// matched. Nil when no adaptation occurred.
	AdaptiveSelectors map[string]string `json:"adaptive_selectors,omitempty"`

	// Cost is the deterministic cost estimate for the request, computed
	// from the strategy and JS flag alone. Zero on failure.
	Cost float64 `json:"cost"`

	// ResponseTime is the wall-clock duration in seconds.
	ResponseTime float64 `json:"response_time"`

	// Markdown is the page converted to Markdown, when the "markdown"
	// format was requested.
	Markdown string `json:"markdown,omitempty"`

	// Links are the page's anchors, when the "links" format was requested.
	Links []Link `json:"links,omitempty"`

	// Screenshot is a base64 full-page capture (browser path only).
	Screenshot string `json:"screenshot,omitempty"`

	// Evidence is the content-integrity record attached to browser-backed
	// fetches.
	Evidence *Evidence `json:"evidence,omitempty"`

	// Error is populated only when Success is false.
	Error string `json:"error,omitempty"`
}

// Metadata holds page-level information recorded for a scrape.
type Metadata struct {
	URL             string `json:"url"`
	Strategy        string `json:"strategy"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	Language        string `json:"language,omitempty"`
	Author          string `json:"author,omitempty"`
	StatusCode      int    `json:"status_code,omitempty"`
	ContentLength   int    `json:"content_length,omitempty"`
	AdaptiveEnabled bool   `json:"adaptive_enabled"`
}

// Link represents a hyperlink harvested from the page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Evidence is the tamper-evidence record for browser-backed fetches:
// a SHA-256 digest of the raw markup and the UTC capture time.
type Evidence struct {
	Hash        string    `json:"hash"`
	Timestamp   time.Time `json:"timestamp"`
	BrowserUsed bool      `json:"browser_used"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status          string    `json:"status"`
	Service         string    `json:"service"`
	Uptime          string    `json:"uptime"`
	AdaptiveDomains int       `json:"adaptive_domains"`
	Timestamp       time.Time `json:"timestamp"`
	Version         string    `json:"version"`
}

// AdaptiveSelectorsResponse is the response for GET /adaptive-selectors/:site.
type AdaptiveSelectorsResponse struct {
	SiteIdentity string                     `json:"site_identity"`
	Selectors    map[string]SelectorMapping `json:"selectors"`
	Count        int                        `json:"count"`
}

// UpdateSelectorRequest is the payload for POST /adaptive-selectors/update.
type UpdateSelectorRequest struct {
	SiteIdentity string          `json:"site_identity" binding:"required"`
	Field        string          `json:"field" binding:"required"`
	Mapping      SelectorMapping `json:"mapping" binding:"required"`
}
