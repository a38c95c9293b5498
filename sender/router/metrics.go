package router

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/Cogwheel-Validator/spectra-sender/sender/router"

type sendMetrics struct {
	sends        metric.Int64Counter
	duration     metric.Float64Histogram
	replacements metric.Int64Counter
	receipts     metric.Int64Counter
}

// newSendMetrics registers the sender instruments on mp.
// Instruments that fail to register are replaced by no-ops.
func newSendMetrics(mp metric.MeterProvider) *sendMetrics {
	meter := mp.Meter(instrumentationName)
	m := &sendMetrics{}
	var err error

	if m.sends, err = meter.Int64Counter(
		"sender_sends_total",
		metric.WithDescription("Send invocations by path and outcome"),
	); err != nil {
		senderLog.Warn().Err(err).Msg("Failed to create sends counter")
	}
	if m.duration, err = meter.Float64Histogram(
		"sender_send_duration_seconds",
		metric.WithDescription("Time from send invocation to submission or failure"),
		metric.WithUnit("s"),
	); err != nil {
		senderLog.Warn().Err(err).Msg("Failed to create duration histogram")
	}
	if m.replacements, err = meter.Int64Counter(
		"sender_replacements_total",
		metric.WithDescription("Source transactions replaced before confirming"),
	); err != nil {
		senderLog.Warn().Err(err).Msg("Failed to create replacements counter")
	}
	if m.receipts, err = meter.Int64Counter(
		"sender_destination_receipts_total",
		metric.WithDescription("Destination receipts written to history"),
	); err != nil {
		senderLog.Warn().Err(err).Msg("Failed to create receipts counter")
	}
	return m
}

func (m *sendMetrics) send(ctx context.Context, path string, kind ErrorKind, elapsed time.Duration) {
	outcome := string(kind)
	if kind == KindNone {
		outcome = "submitted"
	}
	attrs := metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("outcome", outcome),
	)
	if m.sends != nil {
		m.sends.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (m *sendMetrics) replacement(ctx context.Context, source string) {
	if m.replacements != nil {
		m.replacements.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}

func (m *sendMetrics) receipt(ctx context.Context, source, dest string) {
	if m.receipts != nil {
		m.receipts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("destination", dest),
		))
	}
}
