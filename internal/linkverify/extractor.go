package linkverify

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/urlgen"
)

// Link represents an extracted link from HTML content.
type Link struct {
	URL        string // The URL or path
	Text       string // Link text or alt text
	Tag        string // HTML tag (a, img, script, link, ...)
	Attribute  string // Attribute containing the link (href, src)
	IsInternal bool   // True if the link points into the output tree
}

// Page is the result of scanning one HTML file.
type Page struct {
	Links []*Link
	// IDs holds every element id, i.e. the valid fragment targets.
	IDs map[string]bool
}

// linkAttrs maps an element to the attribute carrying its link.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
}

// ExtractFile scans the HTML file at path.
func ExtractFile(path string) (*Page, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").
			WithContext("html_path", path).Build()
	}
	defer func() {
		_ = file.Close()
	}()
	return Extract(file)
}

// Extract scans an HTML document for links and element ids.
func Extract(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	page := &Page{IDs: make(map[string]bool)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := getAttr(n, "id"); id != "" {
				page.IDs[id] = true
			}
			if attr, ok := linkAttrs[n.Data]; ok {
				if u := getAttr(n, attr); u != "" {
					text := extractText(n)
					if n.Data == "img" {
						text = getAttr(n, "alt")
					}
					page.Links = append(page.Links, &Link{
						URL:        u,
						Text:       text,
						Tag:        n.Data,
						Attribute:  attr,
						IsInternal: !urlgen.IsExternal(u),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return page, nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// extractText extracts text content from an HTML node and its children.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.TrimSpace(text.String())
}

// ShouldVerifyLink reports whether link points at a file of the output tree.
func ShouldVerifyLink(link *Link) bool {
	if !link.IsInternal || link.URL == "" {
		return false
	}
	return !strings.HasPrefix(link.URL, "data:")
}
