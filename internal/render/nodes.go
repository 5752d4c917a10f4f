package render

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/docweave/internal/compilation"
	"git.home.luguber.info/inful/docweave/internal/links"
	"git.home.luguber.info/inful/docweave/internal/markdown"
	"git.home.luguber.info/inful/docweave/internal/urlgen"
)

// nodeRenderer overrides the goldmark HTML renderer for the node kinds whose
// output depends on the compilation context. It is bound to one document.
type nodeRenderer struct {
	cctx       *compilation.Context
	extensions []string
	// unresolved holds links rendered as plain text.
	unresolved map[*ast.Link]bool
}

func newNodeRenderer(cctx *compilation.Context, extensions []string) *nodeRenderer {
	return &nodeRenderer{cctx: cctx, extensions: extensions, unresolved: make(map[*ast.Link]bool)}
}

// dispatch maps node kinds to their render functions. Kinds not listed fall
// through to the goldmark HTML renderer.
func (r *nodeRenderer) dispatch() map[ast.NodeKind]renderer.NodeRendererFunc {
	return map[ast.NodeKind]renderer.NodeRendererFunc{
		ast.KindLink:                 r.renderLink,
		ast.KindImage:                r.renderImage,
		markdown.KindSubstitution:    r.renderSubstitution,
		markdown.KindAnonymousTarget: r.renderAnonymousTarget,
	}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	for kind, fn := range r.dispatch() {
		reg.Register(kind, fn)
	}
}

func (r *nodeRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	if !entering {
		if r.unresolved[n] {
			return ast.WalkContinue, nil
		}
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}

	href, ok := r.linkHref(n, source)
	if !ok {
		r.unresolved[n] = true
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString(`<a href="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape([]byte(href), true)))
	_ = w.WriteByte('"')
	if n.Title != nil {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_ = w.WriteByte('"')
	}
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, html.LinkAttributeFilter)
	}
	_ = w.WriteByte('>')
	return ast.WalkContinue, nil
}

// linkHref resolves the destination of n. Named and anonymous references go
// through the link tables; plain internal links are re-rooted on the output
// tree. ok is false when a reference does not resolve.
func (r *nodeRenderer) linkHref(n *ast.Link, source []byte) (string, bool) {
	dest := string(n.Destination)

	var href string
	switch {
	case dest == links.Anonymous:
		// Anonymous targets bind in declaration order within the document;
		// an unbound one was already reported while parsing.
		href = r.cctx.LocalLink(markdown.PlainText(n, source, r.cctx))
		if href == "" {
			return "", false
		}
	case strings.HasPrefix(dest, markdown.RefScheme):
		name := strings.TrimPrefix(dest, markdown.RefScheme)
		href = r.cctx.Link(name, true)
		if href == "" {
			r.cctx.AddWarning("unresolved link", name)
			return "", false
		}
	default:
		if dest == "" || dest[0] == '#' || urlgen.IsExternal(dest) {
			return safeURL(dest), true
		}
		return urlgen.WithExtension(r.cctx.GenerateURL(dest), ".html", r.extensions...), true
	}
	return safeURL(urlgen.WithExtension(href, ".html", r.extensions...)), true
}

// safeURL blanks script-bearing destinations the way goldmark does for
// links it renders itself.
func safeURL(dest string) string {
	if html.IsDangerousURL([]byte(dest)) {
		return ""
	}
	return dest
}

func (r *nodeRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Image)

	src := string(n.Destination)
	if src != "" && src[0] != '#' && !urlgen.IsExternal(src) {
		src = r.cctx.GenerateURL(src)
	}
	src = safeURL(src)

	_, _ = w.WriteString(`<img src="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape([]byte(src), true)))
	_, _ = w.WriteString(`" alt="`)
	_, _ = w.Write(util.EscapeHTML([]byte(markdown.PlainText(n, source, r.cctx))))
	_ = w.WriteByte('"')
	if n.Title != nil {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_ = w.WriteByte('"')
	}
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, html.ImageAttributeFilter)
	}
	_, _ = w.WriteString(">")
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderSubstitution(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*markdown.Substitution)
	if r.cctx.Variable(n.Name, nil) == nil {
		r.cctx.AddWarning("undefined variable", n.Name)
	}
	_, _ = w.Write(util.EscapeHTML([]byte(markdown.Substitute(r.cctx, n.Name))))
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderAnonymousTarget(_ util.BufWriter, _ []byte, _ ast.Node, _ bool) (ast.WalkStatus, error) {
	return ast.WalkSkipChildren, nil
}
