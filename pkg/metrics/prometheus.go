package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// PrometheusExporter renders a Collector in Prometheus text format. The
// library never opens a listener; callers mount WriteMetrics behind
// whatever surface they already run.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates an exporter. The namespace is prepended to
// every metric name (e.g. "asphaleia").
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// WriteMetrics writes every metric in Prometheus text format.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := e.formatLabels(snap.Labels)

	e.writeHelp(w, "handshakes_started_total", "Total handshake attempts")
	e.writeType(w, "handshakes_started_total", "counter")
	e.writeMetric(w, "handshakes_started_total", labels, float64(snap.HandshakesStarted))

	e.writeHelp(w, "handshakes_completed_total", "Total handshakes completed successfully")
	e.writeType(w, "handshakes_completed_total", "counter")
	e.writeMetric(w, "handshakes_completed_total", labels, float64(snap.HandshakesCompleted))

	e.writeHelp(w, "handshakes_failed_total", "Total handshakes that failed")
	e.writeType(w, "handshakes_failed_total", "counter")
	e.writeMetric(w, "handshakes_failed_total", labels, float64(snap.HandshakesFailed))

	e.writeHelp(w, "channels_active", "Number of currently open channels")
	e.writeType(w, "channels_active", "gauge")
	e.writeMetric(w, "channels_active", labels, float64(snap.ChannelsActive))

	e.writeHelp(w, "channels_total", "Total channels established")
	e.writeType(w, "channels_total", "counter")
	e.writeMetric(w, "channels_total", labels, float64(snap.ChannelsTotal))

	e.writeHelp(w, "records_sealed_total", "Total records protected")
	e.writeType(w, "records_sealed_total", "counter")
	e.writeMetric(w, "records_sealed_total", labels, float64(snap.RecordsSealed))

	e.writeHelp(w, "records_opened_total", "Total records authenticated and decrypted")
	e.writeType(w, "records_opened_total", "counter")
	e.writeMetric(w, "records_opened_total", labels, float64(snap.RecordsOpened))

	e.writeHelp(w, "bytes_sealed_total", "Total wire bytes produced")
	e.writeType(w, "bytes_sealed_total", "counter")
	e.writeMetric(w, "bytes_sealed_total", labels, float64(snap.BytesSealed))

	e.writeHelp(w, "bytes_opened_total", "Total plaintext bytes recovered")
	e.writeType(w, "bytes_opened_total", "counter")
	e.writeMetric(w, "bytes_opened_total", labels, float64(snap.BytesOpened))

	e.writeHelp(w, "replays_rejected_total", "Total records rejected by the replay window")
	e.writeType(w, "replays_rejected_total", "counter")
	e.writeMetric(w, "replays_rejected_total", labels, float64(snap.ReplaysRejected))

	e.writeHelp(w, "auth_failures_total", "Total record authentication failures")
	e.writeType(w, "auth_failures_total", "counter")
	e.writeMetric(w, "auth_failures_total", labels, float64(snap.AuthFailures))

	e.writeHelp(w, "cert_rejections_total", "Total peer certificates rejected")
	e.writeType(w, "cert_rejections_total", "counter")
	e.writeMetric(w, "cert_rejections_total", labels, float64(snap.CertRejections))

	e.writeHelp(w, "counters_exhausted_total", "Total channels closed by counter exhaustion")
	e.writeType(w, "counters_exhausted_total", "counter")
	e.writeMetric(w, "counters_exhausted_total", labels, float64(snap.CountersExhausted))

	e.writeHelp(w, "uptime_seconds", "Time since the collector was created")
	e.writeType(w, "uptime_seconds", "gauge")
	e.writeMetric(w, "uptime_seconds", labels, snap.Uptime.Seconds())

	e.writeHistogram(w, "handshake_duration_milliseconds", "Handshake duration in milliseconds", labels, snap.HandshakeLatency)
	e.writeHistogram(w, "seal_duration_microseconds", "Record seal duration in microseconds", labels, snap.SealLatency)
	e.writeHistogram(w, "open_duration_microseconds", "Record open duration in microseconds", labels, snap.OpenLatency)
}

func (e *PrometheusExporter) writeHelp(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", e.namespace, name, help)
}

func (e *PrometheusExporter) writeType(w io.Writer, name, typ string) {
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", e.namespace, name, typ)
}

func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	if labels != "" {
		fmt.Fprintf(w, "%s_%s{%s} %g\n", e.namespace, name, labels, value)
	} else {
		fmt.Fprintf(w, "%s_%s %g\n", e.namespace, name, value)
	}
}

func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h Summary) {
	e.writeHelp(w, name, help)
	e.writeType(w, name, "histogram")

	fullName := e.namespace + "_" + name

	for _, b := range h.Buckets {
		le := fmt.Sprintf("%g", b.UpperBound)
		if math.IsInf(b.UpperBound, 1) {
			le = "+Inf"
		}
		if labels != "" {
			fmt.Fprintf(w, "%s_bucket{%s,le=\"%s\"} %d\n", fullName, labels, le, b.Count)
		} else {
			fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", fullName, le, b.Count)
		}
	}

	if labels != "" {
		fmt.Fprintf(w, "%s_sum{%s} %g\n", fullName, labels, h.Sum)
		fmt.Fprintf(w, "%s_count{%s} %d\n", fullName, labels, h.Count)
	} else {
		fmt.Fprintf(w, "%s_sum %g\n", fullName, h.Sum)
		fmt.Fprintf(w, "%s_count %d\n", fullName, h.Count)
	}
}

func (e *PrometheusExporter) formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, escapePromValue(labels[k])))
	}
	return strings.Join(parts, ",")
}

// escapePromValue escapes a string for use as a Prometheus label value.
func escapePromValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
