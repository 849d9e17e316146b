package crawl

import (
	"context"
	"errors"
	"testing"

	"github.com/atlas-codex/scrapling/adaptive"
	"github.com/atlas-codex/scrapling/fetch"
	"github.com/atlas-codex/scrapling/models"
	"github.com/atlas-codex/scrapling/scrape"
)

// siteFetcher serves a canned site: URL → HTML, missing URLs fail.
type siteFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *siteFetcher) Name() string { return "fake" }

func (f *siteFetcher) Fetch(_ context.Context, req *fetch.Request) (*fetch.Result, error) {
	f.fetched = append(f.fetched, req.URL)
	html, ok := f.pages[req.URL]
	if !ok {
		return nil, errors.New("navigation failed")
	}
	doc, err := fetch.NewDocument(html, 200)
	if err != nil {
		return nil, err
	}
	return &fetch.Result{Page: doc}, nil
}

func page(links ...string) string {
	html := "<html><body>"
	for _, l := range links {
		html += `<a href="` + l + `">link</a>`
	}
	return html + "</body></html>"
}

func newTestCrawler(pages map[string]string) (*Crawler, *siteFetcher) {
	f := &siteFetcher{pages: pages}
	o := scrape.New(f, f, adaptive.NewStore(nil))
	return New(o), f
}

func TestCrawl_FollowsLinksBreadthFirst(t *testing.T) {
	c, f := newTestCrawler(map[string]string{
		"https://example.com/":  page("https://example.com/a", "https://example.com/b"),
		"https://example.com/a": page("https://example.com/c"),
		"https://example.com/b": page(),
		"https://example.com/c": page(),
	})

	report := c.Crawl(context.Background(), &models.CrawlRequest{
		URL:         "https://example.com/",
		MaxPages:    10,
		FollowLinks: true,
	})

	want := []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}
	if len(f.fetched) != len(want) {
		t.Fatalf("fetched %v, want %v", f.fetched, want)
	}
	for i, u := range want {
		if f.fetched[i] != u {
			t.Errorf("fetch order[%d] = %s, want %s (FIFO)", i, f.fetched[i], u)
		}
	}
	if report.Stats.TotalPages != 4 || report.Stats.SuccessfulPages != 4 {
		t.Errorf("stats = %+v", report.Stats)
	}
}

func TestCrawl_MaxPagesBudget(t *testing.T) {
	c, f := newTestCrawler(map[string]string{
		"https://example.com/":  page("https://example.com/a", "https://example.com/b", "https://example.com/c"),
		"https://example.com/a": page(),
		"https://example.com/b": page(),
		"https://example.com/c": page(),
	})

	report := c.Crawl(context.Background(), &models.CrawlRequest{
		URL:         "https://example.com/",
		MaxPages:    2,
		FollowLinks: true,
	})

	if report.Stats.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2 regardless of frontier size", report.Stats.TotalPages)
	}
	if len(f.fetched) != 2 {
		t.Errorf("fetched %d pages, want 2", len(f.fetched))
	}
}

func TestCrawl_DuplicateLinksFetchedOnce(t *testing.T) {
	c, f := newTestCrawler(map[string]string{
		"https://example.com/":  page("https://example.com/a", "https://example.com/a"),
		"https://example.com/a": page("https://example.com/"),
	})

	c.Crawl(context.Background(), &models.CrawlRequest{
		URL:         "https://example.com/",
		MaxPages:    10,
		FollowLinks: true,
	})

	counts := make(map[string]int)
	for _, u := range f.fetched {
		counts[u]++
	}
	for u, n := range counts {
		if n != 1 {
			t.Errorf("%s fetched %d times, want 1", u, n)
		}
	}
}

func TestCrawl_ExcludeWinsOverInclude(t *testing.T) {
	c, f := newTestCrawler(map[string]string{
		"https://example.com/": page(
			"https://example.com/admin/panel",
			"https://example.com/docs/intro",
		),
		"https://example.com/admin/panel": page(),
		"https://example.com/docs/intro":  page(),
	})

	report := c.Crawl(context.Background(), &models.CrawlRequest{
		URL:             "https://example.com/",
		MaxPages:        10,
		FollowLinks:     true,
		IncludePatterns: []string{"example.com"},
		ExcludePatterns: []string{"/admin"},
	})

	for _, u := range f.fetched {
		if u == "https://example.com/admin/panel" {
			t.Error("excluded URL was fetched")
		}
	}
	// The excluded page must not appear in the report either.
	for _, p := range report.Pages {
		if p.URL == "https://example.com/admin/panel" {
			t.Error("excluded URL counted in report")
		}
	}
}

func TestCrawl_IncludeFilter(t *testing.T) {
	c, f := newTestCrawler(map[string]string{
		"https://example.com/private": page(),
	})

	report := c.Crawl(context.Background(), &models.CrawlRequest{
		URL:             "https://example.com/private",
		MaxPages:        10,
		IncludePatterns: []string{"/public"},
	})

	if len(f.fetched) != 0 {
		t.Errorf("URL matching no include pattern was fetched: %v", f.fetched)
	}
	if report.Stats.TotalPages != 0 {
		t.Errorf("filtered URL counted toward the budget: %+v", report.Stats)
	}
}

func TestCrawl_FailuresRecordedAndCrawlContinues(t *testing.T) {
	c, _ := newTestCrawler(map[string]string{
		"https://example.com/":  page("https://example.com/missing", "https://example.com/ok"),
		"https://example.com/ok": page(),
	})

	report := c.Crawl(context.Background(), &models.CrawlRequest{
		URL:         "https://example.com/",
		MaxPages:    10,
		FollowLinks: true,
	})

	if report.Stats.FailedPages != 1 || report.Stats.SuccessfulPages != 2 {
		t.Fatalf("stats = %+v, want 1 failed / 2 successful", report.Stats)
	}

	var failed *models.PageResult
	for i := range report.Pages {
		if report.Pages[i].Status == "failed" {
			failed = &report.Pages[i]
		}
	}
	if failed == nil {
		t.Fatal("no failed entry in report")
	}
	if failed.URL != "https://example.com/missing" || failed.Error == "" {
		t.Errorf("failed entry = %+v", failed)
	}
}

func TestCrawl_ScopeRestrictedToStartPrefix(t *testing.T) {
	c, f := newTestCrawler(map[string]string{
		"https://example.com/": page("https://other.org/page", "https://example.com/in"),
		"https://example.com/in": page(),
	})

	c.Crawl(context.Background(), &models.CrawlRequest{
		URL:         "https://example.com/",
		MaxPages:    10,
		FollowLinks: true,
	})

	for _, u := range f.fetched {
		if u == "https://other.org/page" {
			t.Error("off-prefix link was followed")
		}
	}
}

func TestCrawl_NoFollowLinksStops(t *testing.T) {
	c, f := newTestCrawler(map[string]string{
		"https://example.com/": page("https://example.com/a"),
	})

	report := c.Crawl(context.Background(), &models.CrawlRequest{
		URL:      "https://example.com/",
		MaxPages: 10,
	})

	if len(f.fetched) != 1 || report.Stats.TotalPages != 1 {
		t.Errorf("without follow_links only the start URL is fetched: fetched=%v", f.fetched)
	}
}
