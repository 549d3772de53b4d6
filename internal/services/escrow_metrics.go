package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/doubtsolve/backend/internal/services"

type escrowMetrics struct {
	ordersCreated metric.Int64Counter
	holds         metric.Int64Counter
	releases      metric.Int64Counter
	releasedValue metric.Int64Counter
	rejections    metric.Int64Counter
}

// newEscrowMetrics uses the global meter provider, which is a no-op until
// telemetry.InitMetrics installs an exporter.
func newEscrowMetrics() *escrowMetrics {
	meter := otel.Meter(instrumentationName)

	m := &escrowMetrics{}
	m.ordersCreated, _ = meter.Int64Counter("escrow.orders.created",
		metric.WithDescription("Gateway orders created for doubts"))
	m.holds, _ = meter.Int64Counter("escrow.holds",
		metric.WithDescription("Payments moved from pending to held"))
	m.releases, _ = meter.Int64Counter("escrow.releases",
		metric.WithDescription("Payments released to tutors"))
	m.releasedValue, _ = meter.Int64Counter("escrow.released.amount",
		metric.WithDescription("Amount credited to tutor wallets"),
		metric.WithUnit("{INR}"))
	m.rejections, _ = meter.Int64Counter("escrow.rejections",
		metric.WithDescription("Escrow operations rejected, by operation and error kind"))
	return m
}

func (m *escrowMetrics) reject(ctx context.Context, operation string, err error) {
	kind := KindOf(err)
	if kind == "" {
		kind = "Unknown"
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", string(kind)),
	))
}
