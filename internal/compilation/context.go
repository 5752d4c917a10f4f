// Package compilation holds the per-document compilation context: the state a
// document accumulates while it is parsed (link targets, variables, heading
// levels) and the URL computations used while it is rendered.
//
// A Context is bound to one document at a time and is not safe for concurrent
// use; the run controller creates one per worker. Cross-document state lives in
// the shared registry.Registry.
package compilation

import (
	"context"
	"log/slog"
	"maps"

	"git.home.luguber.info/inful/docweave/internal/diagnostics"
	"git.home.luguber.info/inful/docweave/internal/links"
	"git.home.luguber.info/inful/docweave/internal/logfields"
	"git.home.luguber.info/inful/docweave/internal/origin"
	"git.home.luguber.info/inful/docweave/internal/registry"
	"git.home.luguber.info/inful/docweave/internal/titles"
	"git.home.luguber.info/inful/docweave/internal/urlgen"
)

// Options configures a Context. Registry and Diagnostics are shared by every
// Context of a run.
type Options struct {
	// OutputRoot is the directory rendered documents and assets are written below.
	OutputRoot string
	// InitialHeaderLevel is the level given to the first heading marker seen.
	// Values below 1 mean 1.
	InitialHeaderLevel int
	Origin             origin.Origin
	Registry           *registry.Registry
	Diagnostics        *diagnostics.Collector
	Logger             *slog.Logger
}

// Context is the compilation state of the document currently bound.
type Context struct {
	opts Options

	logicalPath      string
	physicalPath     string
	currentDirectory string
	phase            string

	variables map[string]any
	links     *links.Table
	titles    *titles.Tracker
}

// New returns a Context with no document bound.
func New(opts Options) *Context {
	if opts.InitialHeaderLevel < 1 {
		opts.InitialHeaderLevel = 1
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diagnostics.NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Context{opts: opts}
	c.Bind("", "")
	return c
}

// Bind switches the context to a new document and drops all state gathered
// for the previous one.
func (c *Context) Bind(logicalPath, physicalPath string) {
	c.logicalPath = logicalPath
	c.physicalPath = physicalPath
	c.currentDirectory = "."
	c.phase = ""
	c.variables = make(map[string]any)
	c.links = links.NewTable()
	c.titles = titles.NewTracker()
}

// Reset clears the heading-level mapping; the first marker seen afterwards is
// level 1 again.
func (c *Context) Reset() {
	c.titles.Reset()
}

// SetPhase names the phase ("parse", "render") reported with diagnostics.
func (c *Context) SetPhase(phase string) { c.phase = phase }

// LogicalPath returns the bound document's path relative to the documentation root.
func (c *Context) LogicalPath() string { return c.logicalPath }

// PhysicalPath returns where the bound document lives on the origin.
func (c *Context) PhysicalPath() string { return c.physicalPath }

// DirName returns the directory of the logical path, "" for top-level documents.
func (c *Context) DirName() string { return urlgen.Dir(c.logicalPath) }

// SetCurrentDirectory sets the directory documents are resolved from on the origin.
func (c *Context) SetCurrentDirectory(dir string) { c.currentDirectory = dir }

// CurrentDirectory returns the origin directory, "." unless set.
func (c *Context) CurrentDirectory() string { return c.currentDirectory }

// Origin returns the origin documents are read from. It may be nil.
func (c *Context) Origin() origin.Origin { return c.opts.Origin }

// Registry returns the shared document registry.
func (c *Context) Registry() *registry.Registry { return c.opts.Registry }

// OutputRoot returns the configured output directory.
func (c *Context) OutputRoot() string { return c.opts.OutputRoot }

// Logger returns the logger with the bound document attached.
func (c *Context) Logger() *slog.Logger {
	return c.opts.Logger.With(logfields.Document(c.logicalPath))
}

// SetVariable stores value under name; a later call replaces it.
func (c *Context) SetVariable(name string, value any) {
	c.variables[name] = value
}

// Variable returns the value stored under name, or def.
func (c *Context) Variable(name string, def any) any {
	if v, ok := c.variables[name]; ok {
		return v
	}
	return def
}

// Variables returns a copy of every variable.
func (c *Context) Variables() map[string]any {
	return maps.Clone(c.variables)
}

// SetLink records a link target. Naming it links.Anonymous binds it to the
// oldest pending anonymous reference; the name actually used is returned.
func (c *Context) SetLink(name, url string) (string, error) {
	return c.links.SetLink(name, url)
}

// PushAnonymous queues an anonymous reference awaiting its target.
func (c *Context) PushAnonymous(name string) { c.links.PushAnonymous(name) }

// ResetAnonymousStack drops every pending anonymous reference.
func (c *Context) ResetAnonymousStack() { c.links.ResetAnonymousStack() }

// PendingAnonymous returns the anonymous references still waiting for a target.
func (c *Context) PendingAnonymous() []string { return c.links.Pending() }

// Links returns a copy of the link table.
func (c *Context) Links() map[string]string { return c.links.Links() }

// LocalLink returns the URL for name from the bound document's own table,
// relative to the document, or "" when the document does not define it.
func (c *Context) LocalLink(name string) string {
	if url, ok := c.links.Get(name); ok {
		return c.RelativeURL(url)
	}
	return ""
}

// Link returns the URL for name, or "" when no document defines it.
//
// The bound document's own table is consulted first, then the registry. With
// relative set, the URL is rewritten to be usable from the bound document:
// local targets are cleaned relative URLs, targets defined elsewhere are
// re-rooted from their defining document.
func (c *Context) Link(name string, relative bool) string {
	if url, ok := c.links.Get(name); ok {
		if relative {
			return c.RelativeURL(url)
		}
		return url
	}

	target, ok := c.opts.Registry.ResolveLink(name)
	if !ok || target.Source == c.logicalPath {
		return ""
	}
	if !relative {
		return target.URL
	}
	return c.RelativeURL(target.Canonical())
}

// TitleLevel returns the heading level for a marker: its depth by order of
// first appearance, offset by the initial header level.
func (c *Context) TitleLevel(marker string) int {
	return c.titles.Level(marker) + c.opts.InitialHeaderLevel - 1
}

// InitialHeaderLevel returns the configured initial header level.
func (c *Context) InitialHeaderLevel() int { return c.opts.InitialHeaderLevel }

// RelativeURL returns url as seen from the bound document.
func (c *Context) RelativeURL(url string) string {
	return urlgen.RelativeURL(c.DirName(), url)
}

// AbsoluteURL joins url to the bound document's directory.
func (c *Context) AbsoluteURL(url string) string {
	return urlgen.AbsoluteURL(c.DirName(), url)
}

// CanonicalURL resolves url against the bound document's directory.
func (c *Context) CanonicalURL(url string) string {
	return urlgen.CanonicalURL(c.DirName(), url)
}

// OutputURL returns where the target of url is written below the output root.
func (c *Context) OutputURL(url string) string {
	return urlgen.OutputURL(c.opts.OutputRoot, c.DirName(), url)
}

// GenerateURL returns the link to path to embed in the bound document's output.
func (c *Context) GenerateURL(path string) string {
	return urlgen.GenerateURL(path, c.DirName())
}

// AbsoluteRelativePath locates url on the origin, below the current directory.
func (c *Context) AbsoluteRelativePath(url string) string {
	return urlgen.AbsoluteRelativePath(c.currentDirectory, c.DirName(), url)
}

// MetaEntry returns the registry entry of the bound document, if it was parsed.
func (c *Context) MetaEntry() (*registry.Entry, bool) {
	return c.opts.Registry.Get(c.logicalPath)
}

// Snapshot returns the parse state of the bound document as a registry entry.
// Title, headings and fingerprint are left for the caller to fill in.
func (c *Context) Snapshot() *registry.Entry {
	return &registry.Entry{
		LogicalPath: c.logicalPath,
		Variables:   c.Variables(),
		Links:       c.Links(),
	}
}

// Restore replaces the link table and variables with those persisted in e.
func (c *Context) Restore(e *registry.Entry) {
	c.variables = make(map[string]any, len(e.Variables))
	maps.Copy(c.variables, e.Variables)
	c.links.Load(e.Links)
}

// AddError logs message as an error and records it against the bound document.
// detail carries the offending link name, URL or error text and may be empty.
func (c *Context) AddError(message, detail string) {
	c.report(diagnostics.SeverityError, slog.LevelError, message, detail)
}

// AddWarning logs message as a warning and records it against the bound document.
func (c *Context) AddWarning(message, detail string) {
	c.report(diagnostics.SeverityWarning, slog.LevelWarn, message, detail)
}

func (c *Context) report(severity diagnostics.Severity, level slog.Level, message, detail string) {
	attrs := []slog.Attr{logfields.Document(c.logicalPath)}
	if c.phase != "" {
		attrs = append(attrs, logfields.Phase(c.phase))
	}
	if detail != "" {
		attrs = append(attrs, slog.String("detail", detail))
	}
	c.opts.Logger.LogAttrs(context.Background(), level, message, attrs...)

	c.opts.Diagnostics.Add(diagnostics.Diagnostic{
		Document: c.logicalPath,
		Phase:    c.phase,
		Severity: severity,
		Message:  message,
		Detail:   detail,
	})
}
