package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)

func gather(t *testing.T, reg *prom.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func counterValue(mf *dto.MetricFamily, labels map[string]string) float64 {
	for _, m := range mf.GetMetric() {
		match := true
		for _, lp := range m.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
				match = false
			}
		}
		if match {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	assert.Same(t, reg, pr.Registry())

	pr.IncDocument("parse", ResultSuccess)
	pr.IncDocument("parse", ResultSuccess)
	pr.IncDocument("parse", ResultFailed)
	pr.ObservePhaseDuration("parse", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncRunOutcome(OutcomeWarning)
	pr.IncDiagnostic("WARNING")
	pr.SetRegistrySize(3)

	mfs := gather(t, reg)
	assert.InDelta(t, 2, counterValue(mfs["docweave_documents_total"], map[string]string{"phase": "parse", "result": "success"}), 0)
	assert.InDelta(t, 1, counterValue(mfs["docweave_documents_total"], map[string]string{"phase": "parse", "result": "failed"}), 0)
	assert.InDelta(t, 1, counterValue(mfs["docweave_run_outcomes_total"], map[string]string{"outcome": "warning"}), 0)
	assert.InDelta(t, 3, mfs["docweave_registry_documents"].GetMetric()[0].GetGauge().GetValue(), 0)
	assert.Equal(t, uint64(1), mfs["docweave_phase_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestPrometheusRecorderFreshRegistry(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	require.NotNil(t, pr.Registry())
	pr.IncDiagnostic("ERROR")
	assert.Contains(t, gather(t, pr.Registry()), "docweave_diagnostics_total")
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetRegistrySize(7)

	path := filepath.Join(t.TempDir(), "docweave.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "docweave_registry_documents 7")

	err = pr.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.ErrorIs(t, err, ErrTextfileWrite)
}

func TestHTTPHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncRunOutcome(OutcomeSuccess)

	rec := httptest.NewRecorder()
	pr.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `docweave_run_outcomes_total{outcome="success"} 1`)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncDocument("render", ResultCanceled)
	r.ObservePhaseDuration("render", time.Second)
	r.ObserveRunDuration(time.Second)
	r.IncRunOutcome(OutcomeCanceled)
	r.IncDiagnostic("INFO")
	r.SetRegistrySize(0)
}
