// Package registry is the document registry shared by every document of a
// compilation run.
//
// Parsing a document ends with a Put of its Entry (link table, variables and
// table-of-contents metadata). Rendering, which only starts once every document
// has been parsed, reads entries back: to restore a document's own state, to
// resolve links defined in other documents, and to build navigation. Entries
// are never removed during a run.
package registry

import (
	"maps"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/docweave/internal/links"
	"git.home.luguber.info/inful/docweave/internal/urlgen"
)

// Heading is one entry of a document's table of contents.
type Heading struct {
	Level  int    `json:"level" yaml:"level"`
	Title  string `json:"title" yaml:"title"`
	Anchor string `json:"anchor,omitempty" yaml:"anchor,omitempty"`
}

// Entry is the persisted state of one parsed document.
type Entry struct {
	LogicalPath string            `json:"logical_path" yaml:"logical_path"`
	Title       string            `json:"title" yaml:"title"`
	Headings    []Heading         `json:"headings,omitempty" yaml:"headings,omitempty"`
	Variables   map[string]any    `json:"variables,omitempty" yaml:"variables,omitempty"`
	Links       map[string]string `json:"links,omitempty" yaml:"links,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a copy that shares no maps or slices with e.
func (e *Entry) Clone() *Entry {
	out := *e
	out.Headings = slices.Clone(e.Headings)
	out.Variables = maps.Clone(e.Variables)
	out.Links = maps.Clone(e.Links)
	return &out
}

// Target is a link name resolved through another document's link table.
type Target struct {
	// Source is the logical path of the document defining the link.
	Source string
	// URL is the target as written in Source.
	URL string
}

// Canonical returns the target as a root-relative URL ("/guide/install.md").
// Fragment-only targets point into Source itself. External targets are
// returned unchanged.
func (t Target) Canonical() string {
	if t.URL == "" {
		return ""
	}
	if t.URL[0] == '#' || t.URL[0] == '?' {
		return "/" + t.Source + t.URL
	}
	canonical := urlgen.CanonicalURL(urlgen.Dir(t.Source), t.URL)
	if urlgen.IsExternal(canonical) {
		return canonical
	}
	return "/" + canonical
}

// Registry maps logical paths to entries. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	// definers indexes link names to the sorted logical paths defining them.
	definers map[string][]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		entries:  make(map[string]*Entry),
		definers: make(map[string][]string),
	}
}

// Get returns the entry for logicalPath. A missing entry is not an error:
// the document may simply not be part of this run.
func (r *Registry) Get(logicalPath string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[logicalPath]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Put stores e, replacing any entry with the same logical path. The previous
// entry is returned so callers can flag a path compiled twice.
func (r *Registry) Put(e *Entry) (*Entry, bool) {
	stored := e.Clone()
	stored.Links = normalizeKeys(stored.Links)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.entries[stored.LogicalPath]
	if replaced {
		r.unindex(previous)
	}
	r.entries[stored.LogicalPath] = stored
	r.index(stored)
	return previous, replaced
}

// Load stores every entry in entries, as Put would.
func (r *Registry) Load(entries []*Entry) {
	for _, e := range entries {
		r.Put(e)
	}
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Paths returns every logical path in lexical order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Entries returns copies of every entry ordered by logical path.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b *Entry) int {
		switch {
		case a.LogicalPath < b.LogicalPath:
			return -1
		case a.LogicalPath > b.LogicalPath:
			return 1
		}
		return 0
	})
	return out
}

// ResolveLink finds name in any document's link table. When several documents
// define it, the one with the lexically smallest logical path wins.
func (r *Registry) ResolveLink(name string) (Target, bool) {
	key := links.Normalize(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := r.definers[key]
	if len(sources) == 0 {
		return Target{}, false
	}
	source := sources[0]
	return Target{Source: source, URL: r.entries[source].Links[key]}, true
}

// Definers returns the logical paths of every document defining name.
func (r *Registry) Definers(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.definers[links.Normalize(name)])
}

func normalizeKeys(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for name, url := range in {
		out[links.Normalize(name)] = url
	}
	return out
}

func (r *Registry) index(e *Entry) {
	for name := range e.Links {
		paths := r.definers[name]
		i, found := slices.BinarySearch(paths, e.LogicalPath)
		if !found {
			r.definers[name] = slices.Insert(paths, i, e.LogicalPath)
		}
	}
}

func (r *Registry) unindex(e *Entry) {
	for name := range e.Links {
		paths := r.definers[name]
		if i, found := slices.BinarySearch(paths, e.LogicalPath); found {
			paths = slices.Delete(paths, i, i+1)
		}
		if len(paths) == 0 {
			delete(r.definers, name)
			continue
		}
		r.definers[name] = paths
	}
}
