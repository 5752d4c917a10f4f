// Package diagnostics collects the warnings and errors reported against
// individual documents while a run is in progress.
package diagnostics

import (
	"cmp"
	"slices"
	"sync"
)

// Severity indicates the importance of a diagnostic.
type Severity int

const (
	// SeverityInfo is informational only.
	SeverityInfo Severity = iota
	// SeverityWarning flags something the author should fix; the document still renders.
	SeverityWarning
	// SeverityError marks the document as failed.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic is one message reported against a document.
type Diagnostic struct {
	Document string   // Logical path ("" for run-level messages)
	Phase    string   // "parse", "render", "check", ...
	Severity Severity // Diagnostic severity
	Message  string   // Short description
	Detail   string   // Offending link name, URL or error text

	seq int
}

// Collector accumulates diagnostics from concurrent workers.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records d.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d.seq = len(c.items)
	c.items = append(c.items, d)
}

// Items returns every diagnostic grouped by document, in report order within a document.
func (c *Collector) Items() []Diagnostic {
	c.mu.Lock()
	out := slices.Clone(c.items)
	c.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		if n := cmp.Compare(a.Document, b.Document); n != 0 {
			return n
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// For returns the diagnostics reported against document.
func (c *Collector) For(document string) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Items() {
		if d.Document == document {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many diagnostics of severity were recorded.
func (c *Collector) Count(severity Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, d := range c.items {
		if d.Severity == severity {
			n++
		}
	}
	return n
}

// Len returns the total number of diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// HasErrors reports whether any error-level diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	return c.Count(SeverityError) > 0
}

// Reset drops every recorded diagnostic.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
