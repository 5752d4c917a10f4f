// Package render is the render phase of a document: it turns a parsed
// markdown.Document into an HTML page, resolving links, images and variable
// substitutions through the document's compilation.Context.
package render

import (
	"bytes"
	_ "embed"
	"html/template"
	"os"

	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/docweave/internal/compilation"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/markdown"
	"git.home.luguber.info/inful/docweave/internal/origin"
	"git.home.luguber.info/inful/docweave/internal/urlgen"
)

//go:embed page.html.tmpl
var defaultPage string

var (
	// ErrTemplate indicates the page template could not be loaded or parsed.
	ErrTemplate = errors.ConfigError("invalid page template").Build()

	// ErrRenderFailed indicates a document could not be rendered.
	ErrRenderFailed = errors.RenderError("failed to render document").Build()
)

// Options configures a Renderer.
type Options struct {
	// TemplatePath replaces the built-in page template when set.
	TemplatePath string
	// SourceExtensions are rewritten to ".html" on internal links.
	SourceExtensions []string
}

// Renderer renders parsed documents into HTML pages. It is safe for
// concurrent use.
type Renderer struct {
	page       *template.Template
	extensions []string
}

// PageData is the value the page template is executed with.
type PageData struct {
	Title string
	Body  template.HTML
	Nav   []NavItem
	TOC   []TOCItem
}

// NavItem links one document of the run.
type NavItem struct {
	Title   string
	URL     string
	Current bool
}

// TOCItem links one heading of the current page.
type TOCItem struct {
	Level  int
	Title  string
	Anchor string
}

// New returns a Renderer using opts.
func New(opts Options) (*Renderer, error) {
	source := defaultPage
	if opts.TemplatePath != "" {
		data, err := os.ReadFile(opts.TemplatePath)
		if err != nil {
			return nil, ErrTemplate.WithCause(err).WithContext("path", opts.TemplatePath)
		}
		source = string(data)
	}
	page, err := template.New("page").Parse(source)
	if err != nil {
		return nil, ErrTemplate.WithCause(err).WithContext("path", opts.TemplatePath)
	}
	if len(opts.SourceExtensions) == 0 {
		opts.SourceExtensions = origin.DefaultExtensions
	}
	return &Renderer{page: page, extensions: opts.SourceExtensions}, nil
}

// OutputPath returns where the page for logicalPath is written.
func (r *Renderer) OutputPath(outputRoot, logicalPath string) string {
	return urlgen.OutputURL(outputRoot, "", urlgen.WithExtension(logicalPath, ".html", r.extensions...))
}

// Render renders doc, which must be the document bound to cctx, into a page.
func (r *Renderer) Render(cctx *compilation.Context, doc *markdown.Document) ([]byte, error) {
	body, err := r.Body(cctx, doc)
	if err != nil {
		return nil, err
	}

	title := doc.Title
	if entry, ok := cctx.MetaEntry(); ok && entry.Title != "" {
		title = entry.Title
	}
	data := PageData{
		Title: title,
		Body:  template.HTML(body), // #nosec G203 -- produced by the goldmark HTML renderer
		Nav:   r.nav(cctx),
		TOC:   toc(doc),
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, data); err != nil {
		return nil, ErrRenderFailed.WithCause(err).WithContext("document", doc.LogicalPath)
	}
	return buf.Bytes(), nil
}

// Body renders the document body alone. The context's link table and
// variables are first restored from the registry entry written when doc was
// parsed.
func (r *Renderer) Body(cctx *compilation.Context, doc *markdown.Document) ([]byte, error) {
	if entry, ok := cctx.MetaEntry(); ok {
		cctx.Restore(entry)
	}
	rd := renderer.NewRenderer(renderer.WithNodeRenderers(
		util.Prioritized(html.NewRenderer(), 1000),
		util.Prioritized(newNodeRenderer(cctx, r.extensions), 100),
	))

	var buf bytes.Buffer
	if err := rd.Render(&buf, doc.Source, doc.Root); err != nil {
		return nil, ErrRenderFailed.WithCause(err).WithContext("document", doc.LogicalPath)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) nav(cctx *compilation.Context) []NavItem {
	entries := cctx.Registry().Entries()
	items := make([]NavItem, 0, len(entries))
	for _, e := range entries {
		page := urlgen.WithExtension(e.LogicalPath, ".html", r.extensions...)
		items = append(items, NavItem{
			Title:   e.Title,
			URL:     cctx.GenerateURL("/" + page),
			Current: e.LogicalPath == cctx.LogicalPath(),
		})
	}
	return items
}

func toc(doc *markdown.Document) []TOCItem {
	items := make([]TOCItem, 0, len(doc.Headings))
	for _, h := range doc.Headings {
		if h.Anchor == "" {
			continue
		}
		items = append(items, TOCItem{Level: h.Level, Title: h.Title, Anchor: h.Anchor})
	}
	return items
}
