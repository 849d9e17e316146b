package render

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/atlas-codex/scrapling/models"
)

// Links parses raw markup and returns every anchor with an http(s) href,
// resolved against the source URL and de-duplicated, in document order.
// The crawler feeds on this list when following links.
func Links(rawHTML string, sourceURL string) []models.Link {
	links := []models.Link{}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return links
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		// Resolve relative URLs against the base.
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		// Skip fragments, javascript:, mailto:, tel: etc.
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		links = append(links, models.Link{
			Href: absURL,
			Text: strings.TrimSpace(s.Text()),
		})
	})

	return links
}
