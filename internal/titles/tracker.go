// Package titles infers heading depth from the order in which a document
// first uses each heading marker.
package titles

// Tracker assigns ordinal depths to heading markers. The first distinct marker
// seen becomes depth 1, the next one depth 2, and so on; a repeated marker keeps
// the depth it was first given. A Tracker covers a single document's pass.
type Tracker struct {
	levels  map[string]int
	current int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{levels: make(map[string]int)}
}

// Level returns the depth of marker, assigning the next depth on first use.
func (t *Tracker) Level(marker string) int {
	if level, ok := t.levels[marker]; ok {
		return level
	}
	t.current++
	t.levels[marker] = t.current
	return t.current
}

// Reset forgets every marker. Call it before starting a new document.
func (t *Tracker) Reset() {
	clear(t.levels)
	t.current = 0
}

// depth is the deepest level assigned so far.
func (t *Tracker) depth() int {
	return t.current
}
