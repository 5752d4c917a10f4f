package compiler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docweave/internal/diagnostics"
	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
	"git.home.luguber.info/inful/docweave/internal/links"
	"git.home.luguber.info/inful/docweave/internal/metrics"
	"git.home.luguber.info/inful/docweave/internal/origin"
	"git.home.luguber.info/inful/docweave/internal/registry"
	"git.home.luguber.info/inful/docweave/internal/retry"
)

var guideTree = map[string]string{
	"guide/intro.md": `---
title: Introduction
---
# Intro

Start with [setup](ref:setup) and read [the FAQ](_).

![logo](img/logo.png)

__ https://faq.example.com

[setup]: install.md
`,
	"guide/install.md":       "# Install\n\n## Requirements\n",
	"guide/advanced/deep.md": "# Deep\n\nBack to [setup](ref:setup).\n",
	"guide/img/logo.png":     "PNG",
	".hidden/skip.md":        "# Hidden\n",
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func newCompiler(t *testing.T, src origin.Origin, opts Options) *Compiler {
	t.Helper()
	c, err := New(src, opts)
	require.NoError(t, err)
	return c.WithLogger(slog.New(slog.DiscardHandler))
}

func dirOrigin(t *testing.T, files map[string]string) *origin.DirOrigin {
	t.Helper()
	o, err := origin.NewDirOrigin(writeTree(t, files))
	require.NoError(t, err)
	return o
}

func readOutput(t *testing.T, out, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestRunCompilesTree(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	c := newCompiler(t, dirOrigin(t, guideTree), Options{Output: out, Clean: true, Workers: 2})

	result, err := c.Run(t.Context())
	require.NoError(t, err)
	require.NoError(t, result.Err())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.True(t, result.Status.IsSuccess())
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Documents)
	assert.Equal(t, 3, result.Parsed)
	assert.Equal(t, 3, result.Rendered)
	assert.Equal(t, 1, result.Assets)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 3, result.Registry.Len())
	assert.Positive(t, result.Duration)

	intro := readOutput(t, out, "guide/intro.html")
	assert.Contains(t, intro, "<title>Introduction</title>")
	assert.Contains(t, intro, `<a href="install.html">setup</a>`)
	assert.Contains(t, intro, `<a href="https://faq.example.com">the FAQ</a>`)
	assert.Contains(t, intro, `<img src="img/logo.png" alt="logo">`)

	deep := readOutput(t, out, "guide/advanced/deep.html")
	assert.Contains(t, deep, `<a href="../install.html">setup</a>`)

	assert.Equal(t, "PNG", readOutput(t, out, "guide/img/logo.png"))
	assert.NoFileExists(t, filepath.Join(out, ".hidden", "skip.html"))
}

func TestRunCleansOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	stale := filepath.Join(out, "stale.html")
	require.NoError(t, os.MkdirAll(out, 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	c := newCompiler(t, dirOrigin(t, guideTree), Options{Output: out, Clean: true})
	_, err := c.Run(t.Context())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestRunRefusesToCleanSources(t *testing.T) {
	src := dirOrigin(t, guideTree)
	c := newCompiler(t, src, Options{Output: src.Root(), Clean: true})

	result, err := c.Run(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeClean)
	assert.Equal(t, StatusFailed, result.Status)
	assert.FileExists(t, filepath.Join(src.Root(), "guide", "intro.md"))
}

func TestRunDryRunWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "site")
	c := newCompiler(t, dirOrigin(t, guideTree), Options{Output: out, Clean: true, DryRun: true})

	result, err := c.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rendered)
	assert.NoDirExists(t, out)
}

func TestRunOrdersFailuresByDocument(t *testing.T) {
	files := map[string]string{
		"a.md": "---\ntitle: [\n---\n# A\n",
		"b.md": "# B\n\n__ https://orphan.example.com\n",
		"c.md": "---\ntitle: [\n---\n# C\n",
		"d.md": "# D\n\n__ https://orphan.example.com\n",
		"e.md": "# E\n",
	}
	for range 5 {
		result, err := newCompiler(t, dirOrigin(t, files), Options{Output: filepath.Join(t.TempDir(), "site"), Workers: 4}).Run(t.Context())
		require.NoError(t, err)

		require.Len(t, result.Failures, 4)
		for i, want := range []string{"a.md", "b.md", "c.md", "d.md"} {
			assert.Equal(t, want, result.Failures[i].Document)
		}
		runErr := result.Err()
		assert.True(t, errors.HasCategory(runErr, errors.CategoryParse), "got %v", runErr)
		ce, ok := errors.AsClassified(runErr)
		require.True(t, ok)
		doc, _ := ce.Context().GetString("document")
		assert.Equal(t, "a.md", doc)
	}
}

func TestRunContinuesPastFailedDocument(t *testing.T) {
	files := map[string]string{
		"good.md":   "# Good\n\nSee [broken](broken.md).\n",
		"broken.md": "# Broken\n\n__ https://orphan.example.com\n",
	}
	out := filepath.Join(t.TempDir(), "site")
	c := newCompiler(t, dirOrigin(t, files), Options{Output: out})

	result, err := c.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 1, result.Parsed)
	assert.Equal(t, 1, result.Rendered)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "broken.md", result.Failures[0].Document)
	assert.Equal(t, PhaseParse, result.Failures[0].Phase)
	assert.ErrorIs(t, result.Failures[0].Err, links.ErrAnonymousUnderflow)
	assert.True(t, result.failed("broken.md"))
	assert.False(t, result.failed("good.md"))

	runErr := result.Err()
	require.Error(t, runErr)
	assert.True(t, errors.HasCategory(runErr, errors.CategoryLinkResolution))
	assert.Contains(t, runErr.Error(), "1 of 2 documents failed")

	assert.FileExists(t, filepath.Join(out, "good.html"))
	assert.NoFileExists(t, filepath.Join(out, "broken.html"))
}

func TestRunReportsWarnings(t *testing.T) {
	files := map[string]string{
		"index.md": "# Home\n\n[nowhere](ref:nowhere) and [pending](_) and ![gone](gone.png)\n",
	}
	c := newCompiler(t, dirOrigin(t, files), Options{Output: filepath.Join(t.TempDir(), "site")})

	result, err := c.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StatusWarning, result.Status)

	var messages []string
	for _, d := range result.Diagnostics {
		assert.Equal(t, diagnostics.SeverityWarning, d.Severity)
		messages = append(messages, d.Message)
	}
	assert.ElementsMatch(t, []string{
		"anonymous reference has no target",
		"unresolved link",
		"unresolved link",
		"missing asset",
	}, messages)
}

// memOrigin serves documents from memory and may list a path twice.
type memOrigin struct {
	docs  []string
	files map[string]string
}

func (m *memOrigin) Documents(context.Context) ([]origin.Document, error) {
	out := make([]origin.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, origin.Document{LogicalPath: d, PhysicalPath: "mem:" + d})
	}
	return out, nil
}

func (m *memOrigin) ReadFile(logicalPath string) ([]byte, error) {
	content, ok := m.files[logicalPath]
	if !ok {
		return nil, origin.ErrNotFound.WithContext("path", logicalPath)
	}
	return []byte(content), nil
}

func (m *memOrigin) PhysicalPath(logicalPath string) string { return "mem:" + logicalPath }
func (m *memOrigin) String() string                         { return "memory" }

func TestRunWarnsOnDuplicateDocument(t *testing.T) {
	src := &memOrigin{
		docs:  []string{"a.md", "a.md"},
		files: map[string]string{"a.md": "# A\n"},
	}
	c := newCompiler(t, src, Options{Output: filepath.Join(t.TempDir(), "site"), Workers: 1})

	result, err := c.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Parsed)
	assert.Equal(t, 1, result.Registry.Len())
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "document compiled more than once in this run", result.Diagnostics[0].Message)
	assert.Equal(t, "same content", result.Diagnostics[0].Detail)
}

func TestRunReportsUnreadableDocument(t *testing.T) {
	src := &memOrigin{docs: []string{"ghost.md"}, files: map[string]string{}}
	c := newCompiler(t, src, Options{Output: filepath.Join(t.TempDir(), "site")})

	result, err := c.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, origin.ErrNotFound)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	src := &memOrigin{docs: []string{"a.md"}, files: map[string]string{"a.md": "# A\n"}}
	c := newCompiler(t, src, Options{Output: filepath.Join(t.TempDir(), "site")})

	result, err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, result.Status)
	assert.Zero(t, result.Rendered)
}

func TestRunPersistsRegistry(t *testing.T) {
	store, err := registry.NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	src := dirOrigin(t, guideTree)
	out := filepath.Join(t.TempDir(), "site")

	first, err := newCompiler(t, src, Options{Output: out}).WithStore(store).Run(t.Context())
	require.NoError(t, err)
	assert.Zero(t, first.Unchanged)

	entry, err := store.Load(t.Context(), "guide/intro.md")
	require.NoError(t, err)
	assert.Equal(t, "Introduction", entry.Title)
	assert.Equal(t, "install.md", entry.Links["setup"])

	second, err := newCompiler(t, src, Options{Output: out}).WithStore(store).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, second.Unchanged)
}

// flakyStore fails its first failures saves with a transient error.
type flakyStore struct {
	registry.Store
	mu       sync.Mutex
	failures int
	saves    int
}

func (s *flakyStore) Save(ctx context.Context, e *registry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failures > 0 {
		s.failures--
		return registry.ErrSaveFailed.WithContext("logical_path", e.LogicalPath)
	}
	return s.Store.Save(ctx, e)
}

func TestRunRetriesTransientStoreFailures(t *testing.T) {
	sqlite, err := registry.NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	policy := retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)

	store := &flakyStore{Store: sqlite, failures: 2}
	result, err := newCompiler(t, dirOrigin(t, guideTree), Options{Output: filepath.Join(t.TempDir(), "site")}).
		WithStore(store).WithRetryPolicy(policy).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 5, store.saves, "two retries plus one save per document")

	store = &flakyStore{Store: sqlite, failures: 10}
	result, err = newCompiler(t, dirOrigin(t, guideTree), Options{Output: filepath.Join(t.TempDir(), "site")}).
		WithStore(store).WithRetryPolicy(policy).Run(t.Context())
	require.ErrorIs(t, err, ErrPersistFailed)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 3, store.saves)
}

type recordingRecorder struct {
	metrics.NoopRecorder
	mu        sync.Mutex
	documents map[string]int
	outcomes  []metrics.OutcomeLabel
	size      int
	runs      int
}

func (r *recordingRecorder) IncDocument(phase string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[phase+"/"+string(result)]++
}

func (r *recordingRecorder) IncRunOutcome(o metrics.OutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingRecorder) ObserveRunDuration(time.Duration) { r.runs++ }
func (r *recordingRecorder) SetRegistrySize(n int)            { r.size = n }

func TestRunRecordsMetrics(t *testing.T) {
	rec := &recordingRecorder{documents: map[string]int{}}
	c := newCompiler(t, dirOrigin(t, guideTree), Options{Output: filepath.Join(t.TempDir(), "site")}).WithRecorder(rec)

	_, err := c.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 3, rec.documents["parse/success"])
	assert.Equal(t, 3, rec.documents["render/success"])
	assert.Equal(t, []metrics.OutcomeLabel{metrics.OutcomeSuccess}, rec.outcomes)
	assert.Equal(t, 3, rec.size)
	assert.Equal(t, 1, rec.runs)
}

func TestWithin(t *testing.T) {
	sep := string(filepath.Separator)
	assert.True(t, within(sep+"a"+sep+"b", sep+"a"))
	assert.True(t, within(sep+"a", sep+"a"))
	assert.False(t, within(sep+"a", sep+"a"+sep+"b"))
	assert.False(t, within(sep+"ab", sep+"a"))
	assert.False(t, within(sep+"a"+sep+"..b", sep+"b"))
}
