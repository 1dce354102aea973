//go:build !otel
// +build !otel

package metrics

import "context"

// OTelTracer is inert unless the binary is built with the otel tag.
type OTelTracer struct{}

// NewOTelTracer returns an inert tracer. Build with -tags otel to emit
// real spans through the global OpenTelemetry provider.
func NewOTelTracer(name string) *OTelTracer {
	return &OTelTracer{}
}

// StartSpan returns the context unchanged and a no-op ender.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	return ctx, func(error) {}
}

// OTelEnabled reports whether OpenTelemetry support is compiled in.
func OTelEnabled() bool {
	return false
}
