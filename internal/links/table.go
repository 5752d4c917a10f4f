// Package links holds the per-document link table: named link targets and the
// queue of anonymous references waiting for their target.
package links

import (
	"maps"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

// Anonymous is the link name that binds a target to the oldest pending
// anonymous reference instead of to a name of its own.
const Anonymous = "_"

// ErrAnonymousUnderflow is returned when an anonymous target is declared while
// no anonymous reference is waiting for one.
var ErrAnonymousUnderflow = errors.LinkResolutionError("anonymous link target has no pending reference").Build()

// Normalize returns the lookup key for a link name: trimmed, NFC-normalized
// and case-folded, so "Setup", " setup " and "SETUP" share one entry.
func Normalize(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// Table maps normalized link names to target URLs. It is owned by one
// document's compilation and is not safe for concurrent use.
type Table struct {
	links     map[string]string
	anonymous []string
}

// NewTable returns an empty link table.
func NewTable() *Table {
	return &Table{links: make(map[string]string)}
}

// SetLink stores url under name and returns the name it was stored under.
//
// When name is the anonymous marker the oldest pending anonymous reference is
// consumed and becomes the resolved name. A later definition of the same name
// replaces the earlier one.
func (t *Table) SetLink(name, url string) (string, error) {
	resolved := Normalize(name)
	url = strings.TrimSpace(url)

	if resolved == Anonymous {
		if len(t.anonymous) == 0 {
			return "", ErrAnonymousUnderflow.WithContext("url", url)
		}
		resolved = t.anonymous[0]
		t.anonymous = t.anonymous[1:]
	}

	t.links[resolved] = url
	return resolved, nil
}

// PushAnonymous queues an anonymous reference named by its link text.
func (t *Table) PushAnonymous(name string) {
	t.anonymous = append(t.anonymous, Normalize(name))
}

// ResetAnonymousStack drops every pending anonymous reference.
func (t *Table) ResetAnonymousStack() {
	t.anonymous = nil
}

// Pending returns the anonymous references still waiting for a target, oldest first.
func (t *Table) Pending() []string {
	return append([]string(nil), t.anonymous...)
}

// Get looks up the raw URL stored for name.
func (t *Table) Get(name string) (string, bool) {
	url, ok := t.links[Normalize(name)]
	return url, ok
}

// Links returns a copy of the table.
func (t *Table) Links() map[string]string {
	return maps.Clone(t.links)
}

// Load replaces the table with links, normalizing every key. Pending anonymous
// references are dropped.
func (t *Table) Load(links map[string]string) {
	t.links = make(map[string]string, len(links))
	for name, url := range links {
		t.links[Normalize(name)] = url
	}
	t.anonymous = nil
}

// Len returns the number of named targets.
func (t *Table) Len() int {
	return len(t.links)
}
