package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPhase      = "phase"
	KeyDocument   = "document"
	KeyPhysical   = "physical_path"
	KeyLink       = "link"
	KeyURL        = "url"
	KeyMarker     = "marker"
	KeyOutput     = "output"
	KeyCount      = "count"
	KeyWorkers    = "workers"
	KeyDurationMS = "duration_ms"
	KeyOrigin     = "origin"
	KeyRevision   = "revision"
	KeySeverity   = "severity"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Phase(p string) slog.Attr        { return slog.String(KeyPhase, p) }
func Document(path string) slog.Attr  { return slog.String(KeyDocument, path) }
func Physical(path string) slog.Attr  { return slog.String(KeyPhysical, path) }
func Link(name string) slog.Attr      { return slog.String(KeyLink, name) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Marker(m string) slog.Attr       { return slog.String(KeyMarker, m) }
func Output(path string) slog.Attr    { return slog.String(KeyOutput, path) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Workers(n int) slog.Attr         { return slog.Int(KeyWorkers, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Origin(o string) slog.Attr       { return slog.String(KeyOrigin, o) }
func Revision(rev string) slog.Attr   { return slog.String(KeyRevision, rev) }
func Severity(s string) slog.Attr     { return slog.String(KeySeverity, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
