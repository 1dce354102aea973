package metrics

import (
	"context"
	"encoding/hex"
	"time"
)

// ChannelObserver bridges channel events into the collector, logger, and
// tracer. It satisfies the channel package's Observer interface.
type ChannelObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
}

// ChannelObserverConfig configures a channel observer. Nil fields fall
// back to the package globals.
type ChannelObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *Logger
}

// NewChannelObserver creates a channel observer.
func NewChannelObserver(cfg ChannelObserverConfig) *ChannelObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	return &ChannelObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger.Named("channel"),
	}
}

// RecordSealed counts one protected record.
func (o *ChannelObserver) RecordSealed(channelID []byte, wireBytes int) {
	o.collector.RecordSealed(wireBytes)
}

// RecordOpened counts one authenticated record.
func (o *ChannelObserver) RecordOpened(channelID []byte, plaintextBytes int) {
	o.collector.RecordOpened(plaintextBytes)
}

// ReplayRejected counts and logs a rejected replay.
func (o *ChannelObserver) ReplayRejected(channelID []byte, counter uint64) {
	o.collector.ReplayRejected()
	o.logger.Warn("replay rejected", Fields{
		"channel_id": shortID(channelID),
		"counter":    counter,
	})
}

// AuthFailed counts and logs a record authentication failure.
func (o *ChannelObserver) AuthFailed(channelID []byte) {
	o.collector.AuthFailure()
	o.logger.Warn("record authentication failed", Fields{
		"channel_id": shortID(channelID),
	})
}

// Closed counts and logs channel teardown.
func (o *ChannelObserver) Closed(channelID []byte, sent, received uint64) {
	o.collector.ChannelClosed()
	o.logger.Info("channel closed", Fields{
		"channel_id":       shortID(channelID),
		"records_sent":     sent,
		"records_received": received,
	})
}

// ObserveHandshake returns a completion function that records handshake
// outcome, latency, and a trace span. Role is "initiator" or "responder".
func (o *ChannelObserver) ObserveHandshake(ctx context.Context, role string) (context.Context, func(error)) {
	spanName := SpanHandshakeInitiator
	if role == "responder" {
		spanName = SpanHandshakeResponder
	}

	o.collector.HandshakeStarted()
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, spanName, WithSpanKind(SpanKindServer))

	log := o.logger.With(Fields{"role": role})
	log.Debug("handshake started")

	return ctx, func(err error) {
		duration := time.Since(start)
		if err != nil {
			o.collector.HandshakeFailed()
			log.Error("handshake failed", Fields{
				"error":    err.Error(),
				"duration": duration.String(),
			})
		} else {
			o.collector.HandshakeCompleted(duration)
			o.collector.ChannelOpened()
			log.Info("handshake completed", Fields{
				"duration": duration.String(),
			})
		}
		endSpan(err)
	}
}

// Logger returns the observer's logger for custom entries.
func (o *ChannelObserver) Logger() *Logger {
	return o.logger
}

// shortID renders the first eight bytes of a channel identifier. Channel
// identifiers are derived from public transcript data only, so logging a
// prefix reveals nothing secret.
func shortID(id []byte) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return hex.EncodeToString(id)
}
