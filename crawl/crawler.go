// Package crawl expands outward from a start URL, reusing the scrape
// orchestrator for every page. The traversal is breadth-first and strictly
// sequential: the page budget, not concurrency, bounds resource usage.
package crawl

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atlas-codex/scrapling/models"
	"github.com/atlas-codex/scrapling/scrape"
)

// Crawler runs bounded breadth-first crawls through a scrape Orchestrator.
type Crawler struct {
	orchestrator *scrape.Orchestrator
}

// New creates a Crawler over the given orchestrator.
func New(orchestrator *scrape.Orchestrator) *Crawler {
	return &Crawler{orchestrator: orchestrator}
}

// Crawl walks pages from req.URL until the frontier drains or the number of
// recorded results reaches MaxPages, whichever comes first.
//
// Frontier discipline:
//   - FIFO pop order (breadth-first).
//   - Visited set keyed by literal URL string; a popped URL already visited
//     is skipped without counting toward the budget.
//   - A URL matching any exclude pattern is skipped; with non-empty include
//     patterns, a URL matching none is skipped. Exclusion wins. Skipped
//     URLs are neither fetched nor counted.
//   - With FollowLinks, links discovered on a successful page are enqueued
//     when they start with the start URL (same-prefix scope) and are not
//     yet visited.
//
// Per-page failures become failed report entries; the crawl continues.
func (c *Crawler) Crawl(ctx context.Context, req *models.CrawlRequest) *models.CrawlReport {
	req.Defaults()

	visited := make(map[string]struct{})
	frontier := []string{req.URL}
	var pages []models.PageResult

	for len(frontier) > 0 && len(pages) < req.MaxPages {
		if ctx.Err() != nil {
			slog.Info("crawl canceled", "url", req.URL, "visited", len(visited))
			break
		}

		url := frontier[0]
		frontier = frontier[1:]

		if _, seen := visited[url]; seen {
			continue
		}
		visited[url] = struct{}{}

		if matchesAny(url, req.ExcludePatterns) {
			continue
		}
		if len(req.IncludePatterns) > 0 && !matchesAny(url, req.IncludePatterns) {
			continue
		}

		resp := c.scrapePage(ctx, url, req)
		if !resp.Success {
			pages = append(pages, models.PageResult{
				URL:    url,
				Status: "failed",
				Error:  resp.Error,
			})
			continue
		}

		pages = append(pages, models.PageResult{
			URL:    url,
			Status: "success",
			Data:   resp,
		})

		if req.FollowLinks {
			for _, link := range resp.Links {
				if !strings.HasPrefix(link.Href, req.URL) {
					continue
				}
				if _, seen := visited[link.Href]; seen {
					continue
				}
				frontier = append(frontier, link.Href)
			}
		}
	}

	stats := models.CrawlStats{TotalPages: len(pages)}
	for _, p := range pages {
		if p.Status == "success" {
			stats.SuccessfulPages++
		} else {
			stats.FailedPages++
		}
	}

	slog.Info("crawl finished",
		"start", req.URL,
		"total", stats.TotalPages,
		"successful", stats.SuccessfulPages,
		"failed", stats.FailedPages,
	)

	return &models.CrawlReport{Stats: stats, Pages: pages}
}

// scrapePage fetches one page through the orchestrator, forcing link
// harvesting when the crawl follows links.
func (c *Crawler) scrapePage(ctx context.Context, url string, req *models.CrawlRequest) *models.ScrapeResponse {
	formats := req.Formats
	if req.FollowLinks && !containsString(formats, models.FormatLinks) {
		formats = append(append([]string{}, formats...), models.FormatLinks)
	}

	return c.orchestrator.Scrape(ctx, &models.ScrapeRequest{
		URL:        url,
		Strategy:   req.Strategy,
		JavaScript: req.JavaScript,
		Timeout:    req.Timeout,
		Formats:    formats,
	})
}

// matchesAny reports whether the URL contains any of the pattern substrings.
func matchesAny(url string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(url, p) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
