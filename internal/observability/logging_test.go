package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithPhase(ctx, "parse")
	ctx = WithDocument(ctx, "guide/intro.md")

	lc := GetContext(ctx)
	assert.Equal(t, "run-1", lc.RunID)
	assert.Equal(t, "parse", lc.Phase)
	assert.Equal(t, "guide/intro.md", lc.Document)

	// Overriding one field keeps the others.
	lc = GetContext(WithPhase(ctx, "render"))
	assert.Equal(t, "run-1", lc.RunID)
	assert.Equal(t, "render", lc.Phase)
}

func TestAttrsSkipEmptyFields(t *testing.T) {
	assert.Empty(t, Attrs(context.Background()))
	attrs := Attrs(WithPhase(context.Background(), "render"))
	assert.Len(t, attrs, 1)
	assert.Equal(t, "phase", attrs[0].Key)
}

func TestLogHelpersUseContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRunID(ctx, "run-7")
	ctx = WithPhase(ctx, "render")

	InfoContext(ctx, "rendered", slog.Int("count", 3))
	DebugContext(ctx, "detail")
	WarnContext(ctx, "careful")
	ErrorContext(ctx, "broken")

	out := buf.String()
	assert.Contains(t, out, "msg=rendered run_id=run-7 phase=render count=3")
	assert.Contains(t, out, "level=DEBUG msg=detail")
	assert.Contains(t, out, "level=WARN msg=careful")
	assert.Contains(t, out, "level=ERROR msg=broken")
}

func TestLoggerFallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), Logger(context.Background()))
}
