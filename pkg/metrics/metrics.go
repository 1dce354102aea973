// Package metrics provides observability primitives for the asphaleia
// secure channel library: counters and histograms with Prometheus-format
// export, a pluggable tracing interface with optional OpenTelemetry
// support, and leveled structured logging. Nothing in this package ever
// receives key material; callers pass identifiers, sizes, and durations.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Labels are key-value pairs attached to exported metrics.
type Labels map[string]string

// Collector aggregates metrics across handshakes and channels.
type Collector struct {
	// Handshake metrics
	handshakesStarted   atomic.Uint64
	handshakesCompleted atomic.Uint64
	handshakesFailed    atomic.Uint64
	handshakeLatency    *Histogram

	// Channel metrics
	channelsActive atomic.Uint64
	channelsTotal  atomic.Uint64

	// Record metrics
	recordsSealed atomic.Uint64
	recordsOpened atomic.Uint64
	bytesSealed   atomic.Uint64
	bytesOpened   atomic.Uint64

	// Security metrics
	replaysRejected atomic.Uint64
	authFailures    atomic.Uint64
	certRejections  atomic.Uint64
	countersExpired atomic.Uint64

	// Performance histograms, microseconds
	sealLatency *Histogram
	openLatency *Histogram

	createdAt time.Time
	labels    Labels
}

// Histogram bucket boundaries.
var (
	// HandshakeLatencyBuckets in milliseconds.
	HandshakeLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500}

	// RecordLatencyBuckets for seal/open operations, in microseconds.
	RecordLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// NewCollector creates a collector carrying the given labels.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}
	return &Collector{
		handshakeLatency: NewHistogram(HandshakeLatencyBuckets),
		sealLatency:      NewHistogram(RecordLatencyBuckets),
		openLatency:      NewHistogram(RecordLatencyBuckets),
		createdAt:        time.Now(),
		labels:           labels,
	}
}

// HandshakeStarted increments the handshake attempt counter.
func (c *Collector) HandshakeStarted() {
	c.handshakesStarted.Add(1)
}

// HandshakeCompleted records a successful handshake and its duration.
func (c *Collector) HandshakeCompleted(d time.Duration) {
	c.handshakesCompleted.Add(1)
	c.handshakeLatency.Observe(float64(d.Milliseconds()))
}

// HandshakeFailed increments the failed handshake counter.
func (c *Collector) HandshakeFailed() {
	c.handshakesFailed.Add(1)
}

// ChannelOpened increments active and total channel counters.
func (c *Collector) ChannelOpened() {
	c.channelsActive.Add(1)
	c.channelsTotal.Add(1)
}

// ChannelClosed decrements the active channel counter, saturating at zero.
func (c *Collector) ChannelClosed() {
	for {
		current := c.channelsActive.Load()
		if current == 0 {
			return
		}
		if c.channelsActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// RecordSealed counts one protected record of n wire bytes.
func (c *Collector) RecordSealed(n int) {
	c.recordsSealed.Add(1)
	c.bytesSealed.Add(uint64(n))
}

// RecordOpened counts one authenticated record of n plaintext bytes.
func (c *Collector) RecordOpened(n int) {
	c.recordsOpened.Add(1)
	c.bytesOpened.Add(uint64(n))
}

// ReplayRejected increments the replay rejection counter.
func (c *Collector) ReplayRejected() {
	c.replaysRejected.Add(1)
}

// AuthFailure increments the record authentication failure counter.
func (c *Collector) AuthFailure() {
	c.authFailures.Add(1)
}

// CertRejected increments the certificate rejection counter.
func (c *Collector) CertRejected() {
	c.certRejections.Add(1)
}

// CounterExhausted counts a channel closed by counter exhaustion.
func (c *Collector) CounterExhausted() {
	c.countersExpired.Add(1)
}

// RecordSealLatency records one seal operation duration.
func (c *Collector) RecordSealLatency(d time.Duration) {
	c.sealLatency.Observe(float64(d.Microseconds()))
}

// RecordOpenLatency records one open operation duration.
func (c *Collector) RecordOpenLatency(d time.Duration) {
	c.openLatency.Observe(float64(d.Microseconds()))
}

// MetricsSnapshot is a point-in-time view of every collector metric.
type MetricsSnapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	HandshakesStarted   uint64
	HandshakesCompleted uint64
	HandshakesFailed    uint64

	ChannelsActive uint64
	ChannelsTotal  uint64

	RecordsSealed uint64
	RecordsOpened uint64
	BytesSealed   uint64
	BytesOpened   uint64

	ReplaysRejected   uint64
	AuthFailures      uint64
	CertRejections    uint64
	CountersExhausted uint64

	HandshakeLatency Summary
	SealLatency      Summary
	OpenLatency      Summary

	Labels Labels
}

// Snapshot returns the current value of every metric.
func (c *Collector) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Timestamp:           time.Now(),
		Uptime:              time.Since(c.createdAt),
		HandshakesStarted:   c.handshakesStarted.Load(),
		HandshakesCompleted: c.handshakesCompleted.Load(),
		HandshakesFailed:    c.handshakesFailed.Load(),
		ChannelsActive:      c.channelsActive.Load(),
		ChannelsTotal:       c.channelsTotal.Load(),
		RecordsSealed:       c.recordsSealed.Load(),
		RecordsOpened:       c.recordsOpened.Load(),
		BytesSealed:         c.bytesSealed.Load(),
		BytesOpened:         c.bytesOpened.Load(),
		ReplaysRejected:     c.replaysRejected.Load(),
		AuthFailures:        c.authFailures.Load(),
		CertRejections:      c.certRejections.Load(),
		CountersExhausted:   c.countersExpired.Load(),
		HandshakeLatency:    c.handshakeLatency.Summary(),
		SealLatency:         c.sealLatency.Summary(),
		OpenLatency:         c.openLatency.Summary(),
		Labels:              c.labels,
	}
}

// Reset clears every metric. Intended for tests.
func (c *Collector) Reset() {
	c.handshakesStarted.Store(0)
	c.handshakesCompleted.Store(0)
	c.handshakesFailed.Store(0)
	c.channelsActive.Store(0)
	c.channelsTotal.Store(0)
	c.recordsSealed.Store(0)
	c.recordsOpened.Store(0)
	c.bytesSealed.Store(0)
	c.bytesOpened.Store(0)
	c.replaysRejected.Store(0)
	c.authFailures.Store(0)
	c.certRejections.Store(0)
	c.countersExpired.Store(0)
	c.handshakeLatency.Reset()
	c.sealLatency.Reset()
	c.openLatency.Reset()
	c.createdAt = time.Now()
}

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the process-wide collector, creating it on first use.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal replaces the global collector. Call during initialization,
// before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollector = c
}
