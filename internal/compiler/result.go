package compiler

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/docweave/internal/diagnostics"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/registry"
)

// Status represents the outcome of a run.
type Status string

const (
	// StatusSuccess means every document compiled without warnings.
	StatusSuccess Status = "success"
	// StatusWarning means every document compiled but diagnostics were raised.
	StatusWarning Status = "warning"
	// StatusFailed means at least one document failed.
	StatusFailed Status = "failed"
	// StatusCanceled means the run was interrupted.
	StatusCanceled Status = "canceled"
)

// IsSuccess reports whether every document was written.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusWarning
}

// Failure records a document that could not be compiled.
type Failure struct {
	Document string
	Phase    string
	Err      error
}

// Result contains the outcome of a run.
type Result struct {
	RunID  string
	Status Status
	Origin string

	// Documents is the number of documents listed by the origin.
	Documents int
	Parsed    int
	Rendered  int
	// Unchanged counts parsed documents whose fingerprint matches the
	// persisted registry.
	Unchanged int
	Assets    int
	Failures  []Failure

	// Registry holds every entry written by the parse phase.
	Registry    *registry.Registry
	Diagnostics []diagnostics.Diagnostic

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Err summarizes the failures of the run, or returns nil. The category of the
// first failure, by logical path, is kept so callers can map it to an exit code.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	first := r.Failures[0]
	return errors.WrapError(first.Err, errors.GetCategory(first.Err),
		fmt.Sprintf("%d of %d documents failed", len(r.Failures), r.Documents)).
		WithContext("document", first.Document).
		WithContext("phase", first.Phase).
		Build()
}

// failed reports whether the document at logicalPath failed.
func (r *Result) failed(logicalPath string) bool {
	for _, f := range r.Failures {
		if f.Document == logicalPath {
			return true
		}
	}
	return false
}

func (r *Result) finish(status Status) {
	r.Status = status
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}
