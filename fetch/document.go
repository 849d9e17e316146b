package fetch

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is the shared Page implementation: parsed markup queried with
// compiled cascadia selectors. Both fetch backends wrap their output in one,
// and tests can construct them directly from HTML strings.
type Document struct {
	raw    string
	title  string
	status int
	root   *html.Node
}

// NewDocument parses raw markup into a queryable Document. The HTML parser
// is forgiving, so this only fails on reader-level errors; malformed markup
// still yields a usable (best-effort) tree.
func NewDocument(rawHTML string, statusCode int) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	d := &Document{
		raw:    rawHTML,
		status: statusCode,
		root:   root,
	}
	if sel, err := cascadia.Compile("title"); err == nil {
		if n := sel.MatchFirst(root); n != nil {
			d.title = strings.TrimSpace(nodeText(n))
		}
	}
	return d, nil
}

func (d *Document) HTML() string    { return d.raw }
func (d *Document) Title() string   { return d.title }
func (d *Document) StatusCode() int { return d.status }

// Query compiles the CSS selector and returns the text of every matched
// element in document order. Match order follows cascadia's depth-first
// traversal, which is the document order of the parsed tree.
func (d *Document) Query(selector string) ([]string, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	nodes := sel.MatchAll(d.root)
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, strings.TrimSpace(nodeText(n)))
	}
	return texts, nil
}

// nodeText concatenates the text nodes under n, skipping script and style
// subtrees so extracted values stay human-visible text.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
