// Package scrape drives one page request end-to-end: fetch, per-field
// selector resolution, result formats, and the response envelope.
package scrape

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/atlas-codex/scrapling/adaptive"
	"github.com/atlas-codex/scrapling/fetch"
	"github.com/atlas-codex/scrapling/models"
	"github.com/atlas-codex/scrapling/render"
	"github.com/atlas-codex/scrapling/siteid"
)

// Cost weights. The estimate is declared, not measured: it must be
// reproducible from the strategy and JS flag alone.
const (
	costBase    = 0.0001
	costStealth = 0.0004
	costJS      = 0.0002
)

// Cost returns the deterministic cost estimate for a request.
func Cost(strategy string, javascript bool) float64 {
	cost := costBase
	if strategy == models.StrategyStealth {
		cost += costStealth
	}
	if javascript {
		cost += costJS
	}
	return cost
}

// Orchestrator owns the fetch backends and the adaptive selector machinery.
// Construct one at process start and share it; it has no per-request state.
type Orchestrator struct {
	standard fetch.Fetcher
	browser  fetch.Fetcher
	store    *adaptive.Store
	resolver *adaptive.Resolver
	markdown *render.Markdown
}

// New creates an Orchestrator. browser may equal standard in deployments
// without a headless browser; the stealth strategy then degrades to plain
// HTTP fetching.
func New(standard, browser fetch.Fetcher, store *adaptive.Store) *Orchestrator {
	return &Orchestrator{
		standard: standard,
		browser:  browser,
		store:    store,
		resolver: adaptive.NewResolver(store),
		markdown: render.NewMarkdown(),
	}
}

// Store exposes the adaptive selector store for the HTTP surface.
func (o *Orchestrator) Store() *adaptive.Store {
	return o.store
}

// Scrape runs one request and always returns a well-formed envelope; no
// error ever crosses this boundary. Fetch failures flip Success off with a
// zero cost, missing fields degrade to absent values, and selector failures
// stay scoped to their field.
func (o *Orchestrator) Scrape(ctx context.Context, req *models.ScrapeRequest) *models.ScrapeResponse {
	start := time.Now()
	req.Defaults()

	stealthMode := req.Strategy == models.StrategyStealth

	fetcher := o.standard
	if stealthMode {
		fetcher = o.browser
	}

	result, err := fetcher.Fetch(ctx, &fetch.Request{
		URL:        req.URL,
		Headers:    req.Headers,
		Timeout:    time.Duration(req.Timeout) * time.Millisecond,
		Stealth:    stealthMode,
		RenderJS:   stealthMode && req.JavaScript,
		BlockAds:   *req.BlockAds,
		Screenshot: stealthMode && req.WantsFormat(models.FormatScreenshot),
	})
	if err != nil {
		slog.Warn("fetch failed", "url", req.URL, "strategy", req.Strategy, "error", err)
		return &models.ScrapeResponse{
			Success: false,
			Metadata: models.Metadata{
				URL:             req.URL,
				Strategy:        req.Strategy,
				AdaptiveEnabled: *req.AutoSave,
			},
			Cost:         0,
			ResponseTime: time.Since(start).Seconds(),
			Error:        err.Error(),
		}
	}

	page := result.Page
	rawHTML := page.HTML()

	resp := &models.ScrapeResponse{
		Success: true,
		Metadata: models.Metadata{
			URL:             req.URL,
			Strategy:        req.Strategy,
			Title:           page.Title(),
			Description:     result.Description,
			Language:        result.Language,
			Author:          result.Author,
			StatusCode:      page.StatusCode(),
			ContentLength:   len(rawHTML),
			AdaptiveEnabled: *req.AutoSave,
		},
		Cost:     Cost(req.Strategy, req.JavaScript),
		Evidence: result.Evidence,
	}

	if len(req.Selectors) > 0 {
		site := siteid.Resolve(req.URL)
		data := make(map[string]any, len(req.Selectors))
		adapted := make(map[string]string)

		for field, selector := range req.Selectors {
			out := o.resolver.ResolveAndApply(ctx, site, field, selector, page, *req.AutoSave)
			if out.Err != nil {
				// Field-scoped failure, recorded in place of the value.
				data[field] = "Error: " + out.Err.Error()
				continue
			}
			if v := out.Value(); v != nil {
				data[field] = v
			}
			if out.Adapted {
				adapted[field] = out.SelectorUsed
				slog.Info("adaptive selector applied",
					"site", site, "field", field, "selector", out.SelectorUsed)
			}
		}

		if len(data) > 0 {
			resp.Data = data
		}
		if len(adapted) > 0 {
			resp.AdaptiveSelectors = adapted
		}
	} else {
		resp.Content = rawHTML
	}

	o.attachFormats(req, rawHTML, result, resp)

	resp.ResponseTime = time.Since(start).Seconds()
	return resp
}

// attachFormats fills the optional extra outputs the request asked for.
func (o *Orchestrator) attachFormats(req *models.ScrapeRequest, rawHTML string, result *fetch.Result, resp *models.ScrapeResponse) {
	if resp.Content == "" && req.WantsFormat(models.FormatHTML) {
		resp.Content = rawHTML
	}
	if req.WantsFormat(models.FormatMarkdown) {
		md, err := o.markdown.Convert(rawHTML, req.URL)
		if err != nil {
			slog.Warn("markdown conversion failed", "url", req.URL, "error", err)
		} else {
			resp.Markdown = md
		}
	}
	if req.WantsFormat(models.FormatLinks) {
		resp.Links = render.Links(rawHTML, req.URL)
	}
	if len(result.Screenshot) > 0 {
		resp.Screenshot = base64.StdEncoding.EncodeToString(result.Screenshot)
	}
}
