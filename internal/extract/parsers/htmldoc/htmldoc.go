// Package htmldoc extracts document metadata from HTML files, such as the
// landing pages and reports that ship alongside many datasets.
package htmldoc

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/model"
	"golang.org/x/net/html"
)

// Name is the registry name of the parser
const Name = "html"

// Extensions handled by the parser
var Extensions = []string{".html", ".htm", ".xhtml"}

// Record is the metadata of one HTML document
type Record struct {
	Title    string            `json:"title,omitempty"`
	Language string            `json:"language,omitempty"`
	Meta     map[string]string `json:"meta,omitempty" jsonschema:"description=<meta name|property> to content"`
	Headings []string          `json:"headings,omitempty"`
	Links    []string          `json:"links,omitempty"`
	Words    int               `json:"words"`
}

// Parser extracts HTML metadata
type Parser struct {
	extract.Base
	maxLinks int
}

// New creates an HTML parser
func New() *Parser {
	return &Parser{maxLinks: 200}
}

// Describe returns the parser documentation
func (p *Parser) Describe() string {
	return `Extract title, meta tags, headings and links from HTML documents

Only files with an .html, .htm or .xhtml extension are grouped.`
}

// Version returns the parser version
func (p *Parser) Version() string {
	return "0.1.0"
}

// Implementors returns the points of contact
func (p *Parser) Implementors() []string {
	return []string{"Materials IO Maintainers"}
}

// Schema describes Record
func (p *Parser) Schema() *jsonschema.Schema {
	return extract.ReflectSchema(&Record{})
}

// Group yields one group per HTML file
func (p *Parser) Group(files, dirs []string, ctx model.Context) iter.Seq[model.FileGroup] {
	var matched []string
	for _, f := range files {
		if hasExtension(f) {
			matched = append(matched, f)
		}
	}
	return p.Base.Group(matched, dirs, ctx)
}

// Parse reads one HTML file
func (p *Parser) Parse(group model.FileGroup, ctx model.Context) (model.Record, error) {
	return extract.ParseSingle(group, ctx, p.parseFile)
}

func (p *Parser) parseFile(path string, _ model.Context) (model.Record, error) {
	if !hasExtension(path) {
		return nil, model.Unparsable("%s is not an HTML file", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rec := Record{Meta: make(map[string]string)}

	if root := findFirst(doc, isElement("html")); root != nil {
		rec.Language = getAttribute(root, "lang")
	}
	if title := findFirst(doc, isElement("title")); title != nil {
		rec.Title = extractText(title)
	}

	for _, meta := range findAll(doc, isElement("meta")) {
		key := getAttribute(meta, "name")
		if key == "" {
			key = getAttribute(meta, "property")
		}
		if key == "" {
			continue
		}
		rec.Meta[strings.ToLower(key)] = getAttribute(meta, "content")
	}
	if len(rec.Meta) == 0 {
		rec.Meta = nil
	}

	for _, h := range findAll(doc, isElement("h1", "h2", "h3")) {
		if text := extractText(h); text != "" {
			rec.Headings = append(rec.Headings, text)
		}
	}

	for _, a := range findAll(doc, isElement("a")) {
		href := getAttribute(a, "href")
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		rec.Links = append(rec.Links, href)
		if len(rec.Links) >= p.maxLinks {
			break
		}
	}

	if body := findFirst(doc, isElement("body")); body != nil {
		rec.Words = len(strings.Fields(extractText(body)))
	}

	return extract.ToRecord(rec)
}

func hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func isElement(names ...string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, name := range names {
			if n.Data == name {
				return true
			}
		}
		return false
	}
}

// extractText extracts text content from a node, skipping scripts and styles
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}

	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text := extractText(c); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// getAttribute gets an attribute value from a node
func getAttribute(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// findAll finds all nodes matching a predicate
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// findFirst finds the first node matching a predicate
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}
