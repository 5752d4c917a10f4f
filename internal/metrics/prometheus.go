package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/docweave/internal/foundation/errors"
)

const namespace = "docweave"

// ErrTextfileWrite indicates metrics could not be written to a textfile.
var ErrTextfileWrite = errors.FileSystemError("failed to write metrics textfile").Build()

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	documents     *prom.CounterVec
	phaseDuration *prom.HistogramVec
	runDuration   prom.Histogram
	runOutcomes   *prom.CounterVec
	diagnostics   *prom.CounterVec
	registrySize  prom.Gauge
}

// NewPrometheusRecorder constructs the run metrics and registers them on reg,
// or on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		documents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by phase and result",
		}, []string{"phase", "result"}),
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of the parse and render phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total duration of a compilation run",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Runs by final status",
		}, []string{"outcome"}),
		diagnostics: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported by severity",
		}, []string{"severity"}),
		registrySize: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_documents",
			Help:      "Documents in the registry after the last run",
		}),
	}
	reg.MustRegister(pr.documents, pr.phaseDuration, pr.runDuration, pr.runOutcomes, pr.diagnostics, pr.registrySize)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) IncDocument(phase string, result ResultLabel) {
	p.documents.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncDiagnostic(severity string) {
	p.diagnostics.WithLabelValues(severity).Inc()
}

func (p *PrometheusRecorder) SetRegistrySize(n int) {
	p.registrySize.Set(float64(n))
}

// HTTPHandler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// WriteTextfile writes the current metrics to path for the node exporter
// textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return ErrTextfileWrite.WithCause(err).WithContext("path", path)
	}
	return nil
}
