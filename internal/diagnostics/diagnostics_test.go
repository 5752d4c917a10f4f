package diagnostics

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorGroupsByDocumentInReportOrder(t *testing.T) {
	c := NewCollector()
	c.Add(Diagnostic{Document: "b.md", Severity: SeverityWarning, Message: "first b"})
	c.Add(Diagnostic{Document: "a.md", Severity: SeverityError, Message: "only a"})
	c.Add(Diagnostic{Document: "b.md", Severity: SeverityWarning, Message: "second b"})

	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "only a", items[0].Message)
	assert.Equal(t, "first b", items[1].Message)
	assert.Equal(t, "second b", items[2].Message)

	assert.Len(t, c.For("b.md"), 2)
	assert.Equal(t, 1, c.Count(SeverityError))
	assert.Equal(t, 2, c.Count(SeverityWarning))
	assert.True(t, c.HasErrors())

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.HasErrors())
}

func TestCollectorConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(Diagnostic{Document: fmt.Sprintf("doc-%d.md", i%5), Severity: SeverityWarning})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
	assert.Len(t, c.For("doc-0.md"), 10)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "WARNING", SeverityWarning.String())
	assert.Equal(t, "ERROR", SeverityError.String())
	assert.Equal(t, "UNKNOWN", Severity(9).String())
}

func TestTextFormatter(t *testing.T) {
	items := []Diagnostic{
		{Document: "", Severity: SeverityWarning, Message: "document compiled twice", Detail: "guide/a.md"},
		{Document: "guide/a.md", Phase: "render", Severity: SeverityWarning, Message: "unresolved link", Detail: "setup"},
		{Document: "guide/a.md", Phase: "parse", Severity: SeverityError, Message: "anonymous link target has no pending reference"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(true).Format(&buf, items))
	out := buf.String()

	assert.Contains(t, out, "(run)\n")
	assert.Contains(t, out, "guide/a.md\n")
	assert.Contains(t, out, "  WARNING unresolved link [render]: setup\n")
	assert.Contains(t, out, "  ERROR   anonymous link target has no pending reference [parse]\n")
	assert.Contains(t, out, "1 error, 2 warnings\n")
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "0 errors, 0 warnings", Summary(nil))
	assert.Equal(t, "2 errors, 1 warning", Summary([]Diagnostic{
		{Severity: SeverityError}, {Severity: SeverityError}, {Severity: SeverityWarning}, {Severity: SeverityInfo},
	}))
}
