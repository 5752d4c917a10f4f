// Package metrics records run metrics for docweave.
//
// Components receive a Recorder and never check for nil: NoopRecorder is the
// default, PrometheusRecorder is swapped in when metrics are enabled. The
// Prometheus registry can be scraped over HTTP (watch mode) or written to a
// node-exporter textfile after a one-shot build.
package metrics
