package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/atlas-codex/scrapling/config"
	"github.com/atlas-codex/scrapling/models"
)

// BrowserFetcher runs fetches through a shared headless Chrome with a
// reusable page pool. It serves the "stealth" strategy and any request that
// needs JS rendering, screenshots, or browser-evaluated metadata.
// It is safe for concurrent use.
type BrowserFetcher struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	browserCfg  config.BrowserConfig
	scraperCfg  config.ScraperConfig
	activePages atomic.Int32
}

// NewBrowserFetcher launches a headless browser and initialises the page pool.
func NewBrowserFetcher(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*BrowserFetcher, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	pool := rod.NewPagePool(browserCfg.MaxPages)
	slog.Info("page pool created", "maxPages", browserCfg.MaxPages)

	return &BrowserFetcher{
		browser:    browser,
		pagePool:   pool,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}, nil
}

func (f *BrowserFetcher) Name() string { return "browser" }

// ActivePages reports how many pool pages are currently in use.
func (f *BrowserFetcher) ActivePages() int {
	return int(f.activePages.Load())
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (f *BrowserFetcher) Close() {
	slog.Info("browser fetcher shutting down: draining page pool")
	f.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	f.browser.MustClose()
	slog.Info("browser fetcher shutdown complete")
}

// Fetch navigates a pooled page to the URL and extracts markup, metadata,
// links and an optional screenshot.
//
// Lifecycle:
//
//  1. Timeout guard        – hard deadline on the entire operation
//  2. Acquire page         – borrow a tab from the pool (or create one)
//  3. DEFER: cleanup       – about:blank + return to pool (leak prevention)
//  4. Stealth injection    – mask navigator.webdriver etc. (before navigation!)
//  5. Headers              – custom headers + Google referer fallback
//  6. Hijack mount         – block resource types / ad hosts (before navigation!)
//  7. Context binding      – propagate timeout to all rod operations
//  8. Navigate + wait      – DOM-stable wait (network idle conflicts with hijack)
//  9. Extract              – HTML, title, status, metadata, evidence
func (f *BrowserFetcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	timeout := req.Timeout
	if timeout <= 0 || timeout > f.scraperCfg.MaxTimeout {
		timeout = f.scraperCfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ── 2. Acquire page from pool ─────────────────────────────────────
	f.activePages.Add(1)
	defer f.activePages.Add(-1)

	page, acquireErr := f.pagePool.Get(func() (*rod.Page, error) {
		return f.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	// ── 3. CRITICAL DEFER: prevent DOM memory leak + guarantee pool return
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		f.pagePool.Put(page)
	}()

	// ── 4. Stealth injection ──────────────────────────────────────────
	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 5. Extra headers (custom + Google referer) ───────────────────
	extraHeaders := make(map[string]string, len(req.Headers)+1)
	if _, hasReferer := req.Headers["Referer"]; !hasReferer {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	if len(extraHeaders) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(extraHeaders),
		}.Call(page)
	}

	// ── 6. Mount hijack router ───────────────────────────────────────
	router := setupHijack(page, f.scraperCfg.BlockedResourceTypes, req.BlockAds)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 7. Bind request context to page ──────────────────────────────
	p := page.Context(ctx)

	// ── 8. Navigate + wait ───────────────────────────────────────────
	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	// WaitRequestIdle uses the Fetch domain, which conflicts with
	// HijackRequests on Chromium 145+, so the DOM-stable wait is the
	// reliable option whenever a router is mounted.
	if router == nil && req.RenderJS {
		wait := p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
		wait()
	} else {
		if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
				"error", stableErr,
			)
		}
	}

	// ── 9. Extract ───────────────────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	// Status code via the performance navigation entry: available without
	// CDP event listeners, which would conflict with the hijack router.
	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	doc, parseErr := NewDocument(rawHTML, statusCode)
	if parseErr != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeInternal,
			"failed to parse rendered HTML",
			parseErr,
		)
	}

	result := &Result{
		Page:        doc,
		Description: evalStringOrEmpty(p, `() => document.querySelector('meta[name="description"]')?.content || ""`),
		Language:    evalStringOrEmpty(p, `() => document.documentElement.lang || ""`),
		Author:      evalStringOrEmpty(p, `() => document.querySelector('meta[name="author"]')?.content || ""`),
		Evidence:    newEvidence(rawHTML),
	}

	if req.Screenshot {
		shot, shotErr := p.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if shotErr != nil {
			slog.Warn("full-page screenshot failed", "url", req.URL, "error", shotErr)
		} else {
			result.Screenshot = shot
		}
	}

	return result, nil
}

// newEvidence builds the content-integrity record for a browser fetch.
func newEvidence(rawHTML string) *models.Evidence {
	sum := sha256.Sum256([]byte(rawHTML))
	return &models.Evidence{
		Hash:        hex.EncodeToString(sum[:]),
		Timestamp:   time.Now().UTC(),
		BrowserUsed: true,
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can report them with the right code.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeFetchFailed, msg, err)
	}
}
