//go:build otel
// +build otel

package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracer bridges the Tracer interface to an OpenTelemetry tracer so
// handshake and channel spans flow into whatever exporter the host process
// configured on the global provider.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer returns a tracer named after the instrumented component.
// An empty name falls back to the module name.
func NewOTelTracer(name string) *OTelTracer {
	if name == "" {
		name = "asphaleia-go"
	}
	return &OTelTracer{tracer: otel.Tracer(name)}
}

// StartSpan opens an OpenTelemetry span carrying the configured kind and
// attributes. The returned SpanEnder records the error, sets the span
// status, and ends the span.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	cfg := &spanConfig{
		kind:       SpanKindInternal,
		attributes: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	start := []trace.SpanStartOption{trace.WithSpanKind(toOTelKind(cfg.kind))}
	for k, v := range cfg.attributes {
		start = append(start, trace.WithAttributes(attr(k, v)))
	}

	ctx, span := t.tracer.Start(ctx, name, start...)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// OTelEnabled reports whether OpenTelemetry support is compiled in.
func OTelEnabled() bool {
	return true
}

func toOTelKind(kind SpanKind) trace.SpanKind {
	switch kind {
	case SpanKindServer:
		return trace.SpanKindServer
	case SpanKindClient:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

// attr maps the attribute value types the collector and observers emit.
// Anything unrecognized is stringified rather than dropped.
func attr(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case time.Duration:
		return attribute.Int64(key, v.Nanoseconds())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
