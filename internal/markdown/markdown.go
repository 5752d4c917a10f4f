// Package markdown is the parse phase of a document: it turns Markdown source
// into a goldmark AST and records the document's link targets, anonymous
// references, variables and heading levels on its compilation.Context.
//
// Conventions on top of CommonMark:
//
//	[label]: url        named link target
//	[text](_)           anonymous reference, bound to the next "__ url" line
//	__ url              anonymous target
//	[text](ref:name)    named reference, resolved at render time
//	|name|              variable substitution, resolved at render time
//
// Frontmatter keys become document variables.
package markdown

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docweave/internal/compilation"
	"git.home.luguber.info/inful/docweave/internal/frontmatter"
	"git.home.luguber.info/inful/docweave/internal/links"
	"git.home.luguber.info/inful/docweave/internal/registry"
	"git.home.luguber.info/inful/docweave/internal/urlgen"
)

// RefScheme prefixes link destinations that name a link target instead of a URL.
const RefScheme = "ref:"

// MaxHeadingLevel is the deepest heading level emitted.
const MaxHeadingLevel = 6

// Document is a parsed source document.
type Document struct {
	LogicalPath string
	// Source is the Markdown body the AST segments point into.
	Source []byte
	Root   ast.Node
	Title  string
	// Headings lists every heading with its effective level.
	Headings []registry.Heading
	// Assets are the internal image URLs as written in the document.
	Assets      []string
	Fingerprint string
}

// Entry returns the registry entry for d, completing the context snapshot
// with the table of contents and fingerprint.
func (d *Document) Entry(cctx *compilation.Context) *registry.Entry {
	e := cctx.Snapshot()
	e.Title = d.Title
	e.Headings = slices.Clone(d.Headings)
	e.Fingerprint = d.Fingerprint
	return e
}

// Parser parses documents. It is safe for concurrent use; each call gets its
// own compilation.Context.
type Parser struct {
	md          goldmark.Markdown
	fingerprint func(fields map[string]any, body []byte) (string, error)
}

// NewParser returns a parser with auto heading IDs and the docweave extension.
func NewParser() *Parser {
	return &Parser{md: New(), fingerprint: frontmatter.Fingerprint}
}

// New returns the goldmark instance shared by parsing and rendering.
func New(opts ...goldmark.Option) goldmark.Markdown {
	opts = append([]goldmark.Option{
		goldmark.WithExtensions(Extension),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	}, opts...)
	return goldmark.New(opts...)
}

// Parse parses content as the document bound to cctx.
//
// A malformed frontmatter block or an anonymous target without a pending
// reference fails the document. Anonymous references left without a target
// are reported as warnings.
func (p *Parser) Parse(cctx *compilation.Context, content []byte) (*Document, error) {
	block, err := frontmatter.Split(content)
	if err != nil {
		cctx.AddError("invalid frontmatter", err.Error())
		return nil, err
	}
	fields, err := block.Fields()
	if err != nil {
		cctx.AddError("invalid frontmatter", err.Error())
		return nil, err
	}
	for name, value := range fields {
		cctx.SetVariable(name, value)
	}

	fingerprint, err := p.fingerprint(fields, block.Body)
	if err != nil {
		cctx.AddError("could not fingerprint document", err.Error())
		return nil, err
	}

	doc := &Document{
		LogicalPath: cctx.LogicalPath(),
		Source:      block.Body,
		Fingerprint: fingerprint,
	}

	pc := parser.NewContext()
	doc.Root = p.md.Parser().Parse(text.NewReader(doc.Source), parser.WithContext(pc))

	cctx.Reset()
	var targets []string
	err = ast.Walk(doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			doc.Headings = append(doc.Headings, p.heading(cctx, doc.Source, node))
		case *ast.Link:
			if string(node.Destination) == links.Anonymous {
				cctx.PushAnonymous(PlainText(node, doc.Source, cctx))
			}
		case *ast.Image:
			dest := string(node.Destination)
			if dest != "" && !urlgen.IsExternal(dest) && dest[0] != '#' {
				doc.Assets = append(doc.Assets, dest)
			}
		case *AnonymousTarget:
			targets = append(targets, node.URL)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	refs := pc.References()
	slices.SortFunc(refs, func(a, b parser.Reference) int {
		return strings.Compare(string(a.Label()), string(b.Label()))
	})
	for _, ref := range refs {
		if _, err := cctx.SetLink(string(ref.Label()), string(ref.Destination())); err != nil {
			return nil, err
		}
	}

	// Anonymous targets bind to references in declaration order, wherever the
	// target line appears.
	for _, url := range targets {
		if _, err := cctx.SetLink(links.Anonymous, url); err != nil {
			cctx.AddError("anonymous link target has no pending reference", url)
			return nil, err
		}
	}
	for _, name := range cctx.PendingAnonymous() {
		cctx.AddWarning("anonymous reference has no target", name)
	}

	doc.Title = documentTitle(cctx, doc)
	return doc, nil
}

func (p *Parser) heading(cctx *compilation.Context, source []byte, node *ast.Heading) registry.Heading {
	level := min(cctx.TitleLevel(headingMarker(source, node)), MaxHeadingLevel)
	node.Level = level

	h := registry.Heading{Level: level, Title: PlainText(node, source, cctx)}
	if id, ok := node.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok {
			h.Anchor = string(b)
		}
	}
	return h
}

// headingMarker returns "#", "##", ... for ATX headings and "=" or "-" for
// setext headings, judged from the source line the heading text starts on.
func headingMarker(source []byte, node *ast.Heading) string {
	lines := node.Lines()
	if lines.Len() == 0 {
		return strings.Repeat("#", node.Level)
	}
	start := lines.At(0).Start
	lineStart := start
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if strings.Contains(string(source[lineStart:start]), "#") {
		return strings.Repeat("#", node.Level)
	}
	if node.Level == 1 {
		return "="
	}
	return "-"
}

func documentTitle(cctx *compilation.Context, doc *Document) string {
	if title, ok := cctx.Variable("title", nil).(string); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if len(doc.Headings) > 0 {
		return doc.Headings[0].Title
	}
	base := path.Base(doc.LogicalPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// PlainText returns the text content of n with substitutions resolved
// against cctx. Unknown variables are kept as written.
func PlainText(n ast.Node, source []byte, cctx *compilation.Context) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *Substitution:
			b.WriteString(Substitute(cctx, t.Name))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// Substitute returns the string form of variable name, or "|name|" when it
// is not set.
func Substitute(cctx *compilation.Context, name string) string {
	v := cctx.Variable(name, nil)
	switch vv := v.(type) {
	case nil:
		return "|" + name + "|"
	case string:
		return vv
	default:
		return fmt.Sprint(vv)
	}
}
