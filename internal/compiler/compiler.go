package compiler

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docweave/internal/compilation"
	"git.home.luguber.info/inful/docweave/internal/diagnostics"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/logfields"
	"git.home.luguber.info/inful/docweave/internal/markdown"
	"git.home.luguber.info/inful/docweave/internal/metrics"
	"git.home.luguber.info/inful/docweave/internal/observability"
	"git.home.luguber.info/inful/docweave/internal/origin"
	"git.home.luguber.info/inful/docweave/internal/registry"
	"git.home.luguber.info/inful/docweave/internal/render"
	"git.home.luguber.info/inful/docweave/internal/retry"
)

const (
	PhaseParse   = "parse"
	PhaseRender  = "render"
	PhasePersist = "persist"
)

// Options configures a Compiler.
type Options struct {
	// Output is the directory pages and assets are written below.
	Output string
	// Clean removes Output before writing.
	Clean bool
	// DryRun parses and renders without touching Output.
	DryRun bool
	// InitialHeaderLevel is the level of the first heading marker of a document.
	InitialHeaderLevel int
	// Workers bounds the documents compiled in parallel; 0 means one per CPU.
	Workers int
	// Extensions are the source extensions rewritten to .html in links.
	Extensions []string
	// TemplatePath replaces the built-in page template.
	TemplatePath string
}

// Compiler compiles every document of an origin.
type Compiler struct {
	origin   origin.Origin
	opts     Options
	parser   *markdown.Parser
	renderer *render.Renderer
	store    registry.Store
	retry    retry.Policy
	recorder metrics.Recorder
	logger   *slog.Logger
}

// New returns a Compiler reading from src.
func New(src origin.Origin, opts Options) (*Compiler, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = origin.DefaultExtensions
	}
	rd, err := render.New(render.Options{TemplatePath: opts.TemplatePath, SourceExtensions: opts.Extensions})
	if err != nil {
		return nil, err
	}
	return &Compiler{
		origin:   src,
		opts:     opts,
		parser:   markdown.NewParser(),
		renderer: rd,
		retry:    retry.DefaultPolicy(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}, nil
}

// WithStore persists the registry to s after each run. Fingerprints already in
// s are compared to count unchanged documents.
func (c *Compiler) WithStore(s registry.Store) *Compiler {
	c.store = s
	return c
}

// WithRetryPolicy sets the policy applied to transient store failures.
func (c *Compiler) WithRetryPolicy(p retry.Policy) *Compiler {
	c.retry = p
	return c
}

// WithRecorder sets the metrics recorder.
func (c *Compiler) WithRecorder(r metrics.Recorder) *Compiler {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	c.recorder = r
	return c
}

// WithLogger sets the logger used for the run and every document.
func (c *Compiler) WithLogger(l *slog.Logger) *Compiler {
	if l != nil {
		c.logger = l
	}
	return c
}

type run struct {
	*Compiler
	result   *Result
	registry *registry.Registry
	diags    *diagnostics.Collector
	previous map[string]string

	mu     sync.Mutex
	parsed map[string]*markdown.Document
	assets sync.Map
}

// Run compiles every document. The returned error is non-nil only when the
// run itself could not complete; per-document failures are in Result.Failures.
func (c *Compiler) Run(ctx context.Context) (*Result, error) {
	r := &run{
		Compiler: c,
		result: &Result{
			RunID:     uuid.NewString(),
			Origin:    c.origin.String(),
			StartTime: time.Now(),
		},
		registry: registry.New(),
		diags:    diagnostics.NewCollector(),
		parsed:   make(map[string]*markdown.Document),
	}
	r.result.Registry = r.registry

	ctx = observability.WithLogger(ctx, c.logger)
	ctx = observability.WithRunID(ctx, r.result.RunID)
	observability.InfoContext(ctx, "Starting compilation",
		logfields.Origin(r.result.Origin),
		logfields.Output(c.opts.Output),
		logfields.Workers(c.opts.Workers))

	err := r.execute(ctx)
	slices.SortStableFunc(r.result.Failures, func(a, b Failure) int {
		return strings.Compare(a.Document, b.Document)
	})
	r.result.Diagnostics = r.diags.Items()
	for _, d := range r.result.Diagnostics {
		c.recorder.IncDiagnostic(strings.ToLower(d.Severity.String()))
	}
	c.recorder.SetRegistrySize(r.registry.Len())

	status := StatusSuccess
	switch {
	case ctx.Err() != nil:
		status = StatusCanceled
	case err != nil, len(r.result.Failures) > 0:
		status = StatusFailed
	case r.diags.Count(diagnostics.SeverityWarning) > 0 || r.diags.HasErrors():
		status = StatusWarning
	}
	r.result.finish(status)
	c.recorder.IncRunOutcome(outcome(status))
	c.recorder.ObserveRunDuration(r.result.Duration)

	attrs := []slog.Attr{
		slog.String("status", string(status)),
		logfields.Count(r.result.Documents),
		slog.Int("rendered", r.result.Rendered),
		slog.Int("failed", len(r.result.Failures)),
		logfields.DurationMS(float64(r.result.Duration.Microseconds()) / 1000),
	}
	if err != nil {
		attrs = append(attrs, logfields.Error(err))
		observability.ErrorContext(ctx, "Compilation aborted", attrs...)
	} else {
		observability.InfoContext(ctx, "Compilation finished", attrs...)
	}
	return r.result, err
}

func (r *run) execute(ctx context.Context) error {
	docs, err := r.origin.Documents(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	r.result.Documents = len(docs)

	if r.store != nil {
		r.loadPrevious(ctx)
	}

	if err := r.parseAll(ctx, docs); err != nil {
		return err
	}

	if r.opts.Clean && !r.opts.DryRun {
		if err := cleanOutput(r.opts.Output, r.origin); err != nil {
			return err
		}
	}
	if err := r.renderAll(ctx); err != nil {
		return err
	}

	if r.store != nil && !r.opts.DryRun {
		return r.persist(ctx)
	}
	return nil
}

func (r *run) newContext(doc origin.Document, phase string) *compilation.Context {
	cctx := compilation.New(compilation.Options{
		OutputRoot:         r.opts.Output,
		InitialHeaderLevel: r.opts.InitialHeaderLevel,
		Origin:             r.origin,
		Registry:           r.registry,
		Diagnostics:        r.diags,
		Logger:             r.logger.With(logfields.RunID(r.result.RunID)),
	})
	cctx.Bind(doc.LogicalPath, doc.PhysicalPath)
	cctx.SetPhase(phase)
	return cctx
}

func (r *run) fail(ctx context.Context, doc, phase string, err error) {
	r.mu.Lock()
	r.result.Failures = append(r.result.Failures, Failure{Document: doc, Phase: phase, Err: err})
	r.mu.Unlock()
	r.recorder.IncDocument(phase, metrics.ResultFailed)
	observability.ErrorContext(observability.WithDocument(ctx, doc), "Document failed", logfields.Error(err))
}

func (r *run) parseAll(ctx context.Context, docs []origin.Document) error {
	start := time.Now()
	ctx = observability.WithPhase(ctx, PhaseParse)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.parse(gctx, doc)
			return nil
		})
	}
	err := g.Wait()
	r.recorder.ObservePhaseDuration(PhaseParse, time.Since(start))
	if err != nil {
		return err
	}
	observability.DebugContext(ctx, "Parse phase complete",
		logfields.Count(r.result.Parsed),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return ctx.Err()
}

func (r *run) parse(ctx context.Context, src origin.Document) {
	content, err := r.origin.ReadFile(src.LogicalPath)
	if err != nil {
		r.fail(ctx, src.LogicalPath, PhaseParse, err)
		return
	}

	cctx := r.newContext(src, PhaseParse)
	doc, err := r.parser.Parse(cctx, content)
	if err != nil {
		r.fail(ctx, src.LogicalPath, PhaseParse, err)
		return
	}

	entry := doc.Entry(cctx)
	if previous, replaced := r.registry.Put(entry); replaced {
		detail := "same content"
		if previous.Fingerprint != entry.Fingerprint {
			detail = "content differs"
		}
		cctx.AddWarning("document compiled more than once in this run", detail)
	}

	r.mu.Lock()
	r.parsed[src.LogicalPath] = doc
	r.result.Parsed++
	if fp, ok := r.previous[src.LogicalPath]; ok && fp == doc.Fingerprint {
		r.result.Unchanged++
	}
	r.mu.Unlock()
	r.recorder.IncDocument(PhaseParse, metrics.ResultSuccess)
}

func (r *run) renderAll(ctx context.Context) error {
	start := time.Now()
	ctx = observability.WithPhase(ctx, PhaseRender)

	paths := make([]string, 0, len(r.parsed))
	for p := range r.parsed {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, p := range paths {
		doc := r.parsed[p]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.render(gctx, doc)
		})
	}
	err := g.Wait()
	r.recorder.ObservePhaseDuration(PhaseRender, time.Since(start))
	if err != nil {
		return err
	}
	return ctx.Err()
}

// render writes one page and its assets. Only output errors are returned:
// they would fail every following document too.
func (r *run) render(ctx context.Context, doc *markdown.Document) error {
	src := origin.Document{LogicalPath: doc.LogicalPath, PhysicalPath: r.origin.PhysicalPath(doc.LogicalPath)}
	cctx := r.newContext(src, PhaseRender)

	page, err := r.renderer.Render(cctx, doc)
	if err != nil {
		r.fail(ctx, doc.LogicalPath, PhaseRender, err)
		return nil
	}
	if !r.opts.DryRun {
		out := r.renderer.OutputPath(r.opts.Output, doc.LogicalPath)
		if err := writeOutput(out, page); err != nil {
			r.recorder.IncDocument(PhaseRender, metrics.ResultFailed)
			return err
		}
		if err := r.copyAssets(cctx, doc); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.result.Rendered++
	r.mu.Unlock()
	r.recorder.IncDocument(PhaseRender, metrics.ResultSuccess)
	return nil
}

func (r *run) copyAssets(cctx *compilation.Context, doc *markdown.Document) error {
	for _, asset := range doc.Assets {
		asset = stripSuffix(asset)
		logical := cctx.CanonicalURL(asset)
		if logical == "" {
			continue
		}
		if _, seen := r.assets.LoadOrStore(logical, struct{}{}); seen {
			continue
		}
		data, err := r.origin.ReadFile(logical)
		if err != nil {
			if errors.HasCategory(err, errors.CategoryNotFound) {
				cctx.AddWarning("missing asset", asset)
				continue
			}
			return err
		}
		if err := writeOutput(cctx.OutputURL(asset), data); err != nil {
			return err
		}
		r.mu.Lock()
		r.result.Assets++
		r.mu.Unlock()
	}
	return nil
}

func (r *run) loadPrevious(ctx context.Context) {
	entries, err := r.store.LoadAll(ctx)
	if err != nil {
		observability.WarnContext(ctx, "Could not load persisted registry", logfields.Error(err))
		return
	}
	r.previous = make(map[string]string, len(entries))
	for _, e := range entries {
		r.previous[e.LogicalPath] = e.Fingerprint
	}
}

func (r *run) persist(ctx context.Context) error {
	start := time.Now()
	ctx = observability.WithPhase(ctx, PhasePersist)
	for _, e := range r.registry.Entries() {
		err := r.retry.Do(ctx, func() error { return r.store.Save(ctx, e) })
		if err != nil {
			r.diags.Add(diagnostics.Diagnostic{
				Phase:    PhasePersist,
				Severity: diagnostics.SeverityError,
				Message:  "failed to persist registry",
				Detail:   err.Error(),
			})
			return ErrPersistFailed.WithCause(err).WithContext("document", e.LogicalPath)
		}
	}
	r.recorder.ObservePhaseDuration(PhasePersist, time.Since(start))
	observability.DebugContext(ctx, "Registry persisted", logfields.Count(r.registry.Len()))
	return nil
}

func outcome(s Status) metrics.OutcomeLabel {
	switch s {
	case StatusSuccess:
		return metrics.OutcomeSuccess
	case StatusWarning:
		return metrics.OutcomeWarning
	case StatusCanceled:
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}
