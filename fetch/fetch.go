// Package fetch defines the page-fetch capability the scrape pipeline runs
// on, plus its two implementations: a plain HTTP fetcher with a Chrome TLS
// fingerprint and a headless-browser fetcher built on rod.
package fetch

import (
	"context"
	"time"

	"github.com/atlas-codex/scrapling/models"
)

// Page is the capability set a fetched page exposes to the extraction
// pipeline. Both fetch backends satisfy it, so the selector engine never
// cares whether the markup was rendered by a browser.
type Page interface {
	// HTML returns the raw page markup.
	HTML() string

	// Title returns the page title.
	Title() string

	// StatusCode returns the HTTP status of the fetch (0 if unknown).
	StatusCode() int

	// Query applies a CSS selector and returns the matched elements'
	// text in document order. A selector that matches nothing returns an
	// empty slice and no error; an invalid selector returns an error.
	Query(selector string) ([]string, error)
}

// Request contains everything a fetcher needs to retrieve a page.
type Request struct {
	URL        string
	Headers    map[string]string
	Timeout    time.Duration
	Stealth    bool
	RenderJS   bool
	BlockAds   bool
	Screenshot bool
}

// Result is a fetched page plus the extras only some backends produce.
type Result struct {
	Page Page

	// Description, Language and Author are page metadata evaluated in the
	// browser (empty on the HTTP path, where metadata comes from markup).
	Description string
	Language    string
	Author      string

	// Screenshot is the full-page capture, when requested.
	Screenshot []byte

	// Evidence is the content-integrity record for browser-backed fetches.
	Evidence *models.Evidence
}

// Fetcher retrieves pages. Implementations must honor ctx cancellation and
// the request timeout, failing only that fetch.
type Fetcher interface {
	// Name returns the fetcher identifier (e.g. "http", "browser").
	Name() string

	// Fetch retrieves the page for the given request.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}
