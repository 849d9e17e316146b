// Package render produces the optional result formats a scrape can request:
// a Markdown rendition of the page and the harvested link list.
package render

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Markdown converts page markup to Markdown. The converter is created once
// and reused across all requests (goroutine-safe).
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown initialises a reusable Markdown renderer:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: preserves table structure with minimal cell padding.
func NewMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Convert renders rawHTML as Markdown. The sourceURL resolves relative links
// in <a> and <img> tags into absolute URLs so the output is self-contained.
func (m *Markdown) Convert(rawHTML, sourceURL string) (string, error) {
	return m.conv.ConvertString(rawHTML, converter.WithDomain(sourceURL))
}
