// Package linkverify checks the rendered output tree for internal links and
// asset references that point at missing files or missing fragments.
package linkverify

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docweave/internal/diagnostics"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

// PhaseCheck names the phase of diagnostics produced by the verifier.
const PhaseCheck = "check"

// ErrScanFailed indicates the output directory could not be walked.
var ErrScanFailed = errors.FileSystemError("failed to scan output directory").Build()

// BrokenLink is an internal link whose target does not exist.
type BrokenLink struct {
	// Page is the slash-separated path of the page below the output root.
	Page   string
	URL    string
	Tag    string
	Reason string
}

// Report is the outcome of a verification.
type Report struct {
	Pages  int
	Links  int
	Broken []BrokenLink
}

// OK reports whether no broken link was found.
func (r *Report) OK() bool { return len(r.Broken) == 0 }

// Diagnostics adds one error per broken link to c.
func (r *Report) Diagnostics(c *diagnostics.Collector) {
	for _, b := range r.Broken {
		c.Add(diagnostics.Diagnostic{
			Document: b.Page,
			Phase:    PhaseCheck,
			Severity: diagnostics.SeverityError,
			Message:  b.Reason,
			Detail:   b.URL,
		})
	}
}

// Verifier checks the pages below an output root.
type Verifier struct {
	root    string
	workers int

	mu    sync.Mutex
	pages map[string]*Page
}

// NewVerifier returns a verifier for the output tree at root.
func NewVerifier(root string, workers int) *Verifier {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Verifier{root: root, workers: workers, pages: make(map[string]*Page)}
}

// Verify scans every .html file below the root.
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	var files []string
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".html") {
			rel, relErr := filepath.Rel(v.root, p)
			if relErr != nil {
				return relErr
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return ctx.Err()
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ErrScanFailed.WithCause(err).WithContext("root", v.root)
	}

	report := &Report{Pages: len(files)}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := v.page(file)
			if err != nil {
				return err
			}
			var broken []BrokenLink
			checked := 0
			for _, link := range page.Links {
				if !ShouldVerifyLink(link) {
					continue
				}
				checked++
				if reason := v.check(file, page, link.URL); reason != "" {
					broken = append(broken, BrokenLink{Page: file, URL: link.URL, Tag: link.Tag, Reason: reason})
				}
			}
			mu.Lock()
			report.Links += checked
			report.Broken = append(report.Broken, broken...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(report.Broken, func(a, b BrokenLink) int {
		if c := strings.Compare(a.Page, b.Page); c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})
	return report, nil
}

// check returns why ref, found on page, is broken, or "".
func (v *Verifier) check(pagePath string, page *Page, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return "malformed link"
	}

	target := pagePath
	targetPage := page
	if u.Path != "" {
		var ok bool
		target, ok = v.resolve(pagePath, u.Path)
		if !ok {
			return "link target does not exist"
		}
		if u.Fragment == "" || !strings.EqualFold(path.Ext(target), ".html") {
			return ""
		}
		targetPage, err = v.page(target)
		if err != nil {
			return "link target is not readable"
		}
	}
	if u.Fragment != "" && !targetPage.IDs[u.Fragment] {
		return "link fragment does not exist"
	}
	return ""
}

// resolve maps the path of a link found on pagePath to an existing file below
// the root. Directory links resolve to their index.html.
func (v *Verifier) resolve(pagePath, ref string) (string, bool) {
	var target string
	if strings.HasPrefix(ref, "/") {
		target = path.Clean(strings.TrimPrefix(ref, "/"))
	} else {
		target = path.Join(path.Dir(pagePath), ref)
	}
	if target == ".." || strings.HasPrefix(target, "../") {
		return "", false
	}

	info, err := os.Stat(filepath.Join(v.root, filepath.FromSlash(target)))
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		index := path.Join(target, "index.html")
		if _, err := os.Stat(filepath.Join(v.root, filepath.FromSlash(index))); err != nil {
			return "", false
		}
		return index, true
	}
	return target, true
}

// page returns the scanned page at rel, scanning it on first use.
func (v *Verifier) page(rel string) (*Page, error) {
	v.mu.Lock()
	p, ok := v.pages[rel]
	v.mu.Unlock()
	if ok {
		return p, nil
	}

	p, err := ExtractFile(filepath.Join(v.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.pages[rel] = p
	v.mu.Unlock()
	return p, nil
}
