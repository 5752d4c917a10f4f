package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Phase", KeyPhase, "parse", Phase("parse")},
		{"Document", KeyDocument, "guide/intro.md", Document("guide/intro.md")},
		{"Physical", KeyPhysical, "/src/guide/intro.md", Physical("/src/guide/intro.md")},
		{"Link", KeyLink, "setup", Link("setup")},
		{"URL", KeyURL, "install.md", URL("install.md")},
		{"Marker", KeyMarker, "=", Marker("=")},
		{"Output", KeyOutput, "site", Output("site")},
		{"Origin", KeyOrigin, "dir", Origin("dir")},
		{"Revision", KeyRevision, "HEAD", Revision("HEAD")},
		{"Severity", KeySeverity, "warning", Severity("warning")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Errorf("%s: key %q want %q", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Errorf("%s: value %q want %q", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestNumericAndErrorHelpers(t *testing.T) {
	if a := Count(3); a.Key != KeyCount || a.Value.Int64() != 3 {
		t.Errorf("unexpected count attr %v", a)
	}
	if a := DurationMS(1.5); a.Value.Float64() != 1.5 {
		t.Errorf("unexpected duration attr %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Errorf("nil error should be empty, got %q", a.Value.String())
	}
	if a := Error(errors.New("x")); a.Value.String() != "x" {
		t.Errorf("unexpected error attr %q", a.Value.String())
	}
}
