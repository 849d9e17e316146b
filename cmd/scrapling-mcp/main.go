package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/atlas-codex/scrapling/siteid"
)

// scrapeRequest mirrors the Scrapling API request model.
type scrapeRequest struct {
	URL        string            `json:"url"`
	Strategy   string            `json:"strategy,omitempty"`
	Selectors  map[string]string `json:"selectors,omitempty"`
	JavaScript bool              `json:"javascript,omitempty"`
	Formats    []string          `json:"formats,omitempty"`
}

// scrapeResponse mirrors the Scrapling API response model.
type scrapeResponse struct {
	Success  bool                   `json:"success"`
	Data     map[string]interface{} `json:"data"`
	Content  string                 `json:"content"`
	Markdown string                 `json:"markdown"`
	Metadata *struct {
		Title      string `json:"title"`
		URL        string `json:"url"`
		Strategy   string `json:"strategy"`
		StatusCode int    `json:"status_code"`
	} `json:"metadata"`
	AdaptiveSelectors map[string]string `json:"adaptive_selectors"`
	Cost              float64           `json:"cost"`
	Error             string            `json:"error"`
}

// crawlReport mirrors the Scrapling crawl API response.
type crawlReport struct {
	Stats struct {
		TotalPages      int `json:"total_pages"`
		SuccessfulPages int `json:"successful_pages"`
		FailedPages     int `json:"failed_pages"`
	} `json:"stats"`
	Pages []struct {
		URL    string          `json:"url"`
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  string          `json:"error"`
	} `json:"pages"`
}

// selectorsResponse mirrors the adaptive-selectors API response.
type selectorsResponse struct {
	SiteIdentity string `json:"site_identity"`
	Selectors    map[string]struct {
		Original    string  `json:"original"`
		Adapted     string  `json:"adapted"`
		Confidence  float64 `json:"confidence"`
		LastUpdated string  `json:"last_updated"`
	} `json:"selectors"`
	Count int `json:"count"`
}

func main() {
	apiURL := os.Getenv("SCRAPLING_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8001"
	}
	// Optional: the service runs open when no API keys are configured.
	apiKey := os.Getenv("SCRAPLING_API_KEY")

	s := server.NewMCPServer(
		"scrapling",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_page",
		mcp.WithDescription("Scrape a web page with self-healing CSS selectors. Returns extracted field data, page content, and markdown. Selectors that stop matching fall back to previously learned replacements for the site."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
		mcp.WithString("strategy",
			mcp.Description("Fetch strategy: 'adaptive' (default, HTTP with selector healing), 'standard' (plain HTTP), 'stealth' (headless browser with fingerprint masking), or 'async'"),
			mcp.Enum("adaptive", "standard", "stealth", "async"),
		),
		mcp.WithString("selectors",
			mcp.Description("JSON object mapping field names to CSS selectors, e.g. {\"title\": \"h1\", \"price\": \".price\"}"),
		),
		mcp.WithBoolean("javascript",
			mcp.Description("Wait for JavaScript rendering (stealth strategy only)"),
		),
	)
	s.AddTool(scrapeTool, handleScrapePage(apiURL, apiKey))

	crawlTool := mcp.NewTool("crawl_site",
		mcp.WithDescription("Crawl a website breadth-first starting from a URL, scraping each discovered page under the start URL's path prefix. Returns per-page results and aggregate stats."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The starting URL to crawl from"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum number of pages to visit (default: 10, max: 500)"),
		),
		mcp.WithArray("include_patterns",
			mcp.Description("Only crawl URLs containing one of these substrings"),
		),
		mcp.WithArray("exclude_patterns",
			mcp.Description("Skip URLs containing any of these substrings (wins over include_patterns)"),
		),
	)
	s.AddTool(crawlTool, handleCrawlSite(apiURL, apiKey))

	selectorsTool := mcp.NewTool("get_adaptive_selectors",
		mcp.WithDescription("List the learned selector mappings for a site. Accepts either a site identity hash or a plain URL/hostname."),
		mcp.WithString("site",
			mcp.Required(),
			mcp.Description("Site identity hash, or a URL/hostname to look up"),
		),
	)
	s.AddTool(selectorsTool, handleGetSelectors(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// isIdentityHash reports whether s already looks like a site identity
// (32 lowercase hex characters) rather than a URL or hostname.
func isIdentityHash(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// apiPost sends a POST request to the Scrapling API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScrapePage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:        url,
			Strategy:   request.GetString("strategy", ""),
			JavaScript: request.GetBool("javascript", false),
			Formats:    []string{"markdown"},
		}

		if raw := request.GetString("selectors", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &reqBody.Selectors); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("selectors must be a JSON object of field->selector: %v", err)), nil
			}
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/scrape", reqBody)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !scrapeResp.Success {
			errMsg := "scrape failed"
			if scrapeResp.Error != "" {
				errMsg = scrapeResp.Error
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		if scrapeResp.Metadata != nil {
			sb.WriteString(fmt.Sprintf("Title: %s\nSource: %s\nStrategy: %s\n\n",
				scrapeResp.Metadata.Title, scrapeResp.Metadata.URL, scrapeResp.Metadata.Strategy))
		}

		if len(scrapeResp.Data) > 0 {
			data, _ := json.MarshalIndent(scrapeResp.Data, "", "  ")
			sb.WriteString("Extracted data:\n")
			sb.Write(data)
			sb.WriteString("\n\n")
		}

		if len(scrapeResp.AdaptiveSelectors) > 0 {
			sb.WriteString("Adapted selectors used:\n")
			for field, sel := range scrapeResp.AdaptiveSelectors {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", field, sel))
			}
			sb.WriteString("\n")
		}

		switch {
		case scrapeResp.Markdown != "":
			sb.WriteString(scrapeResp.Markdown)
		case scrapeResp.Content != "":
			sb.WriteString(scrapeResp.Content)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleCrawlSite(apiURL, apiKey string) server.ToolHandlerFunc {
	// Crawls are synchronous server-side; allow them time to finish.
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]interface{}{
			"url":          url,
			"follow_links": true,
		}
		if maxPages := request.GetInt("max_pages", 0); maxPages > 0 {
			payload["max_pages"] = maxPages
		}
		if include := request.GetStringSlice("include_patterns", nil); len(include) > 0 {
			payload["include_patterns"] = include
		}
		if exclude := request.GetStringSlice("exclude_patterns", nil); len(exclude) > 0 {
			payload["exclude_patterns"] = exclude
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/crawl", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var report crawlReport
		if err := json.Unmarshal(respBody, &report); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl report: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Crawled %d pages (%d succeeded, %d failed)\n\n",
			report.Stats.TotalPages, report.Stats.SuccessfulPages, report.Stats.FailedPages))

		for i, page := range report.Pages {
			if page.Status == "success" {
				sb.WriteString(fmt.Sprintf("--- [%d] %s ---\n", i+1, page.URL))
				if len(page.Data) > 0 {
					sb.Write(page.Data)
					sb.WriteString("\n")
				}
				sb.WriteString("\n")
			} else {
				sb.WriteString(fmt.Sprintf("--- [%d] %s: FAILED (%s) ---\n\n", i+1, page.URL, page.Error))
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGetSelectors(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		site, err := request.RequireString("site")
		if err != nil {
			return mcp.NewToolResultError("site is required"), nil
		}
		if !isIdentityHash(site) {
			site = siteid.Resolve(site)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/adaptive-selectors/"+site, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		if apiKey != "" {
			req.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var selResp selectorsResponse
		if err := json.Unmarshal(respBody, &selResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if selResp.Count == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No learned selectors for site %s", selResp.SiteIdentity)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Site %s: %d learned selector(s)\n\n", selResp.SiteIdentity, selResp.Count))
		for field, m := range selResp.Selectors {
			sb.WriteString(fmt.Sprintf("%s:\n  original: %s\n  adapted:  %s\n  confidence: %.2f (updated %s)\n",
				field, m.Original, m.Adapted, m.Confidence, m.LastUpdated))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
