package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the drift engine's OTel instruments. A nil *Metrics records nothing.
type Metrics struct {
	RunCount         metric.Int64Counter
	ResourcesAdded   metric.Int64Counter
	ResourcesRemoved metric.Int64Counter
	ResourcesChanged metric.Int64Counter
	WarningCount     metric.Int64Counter
	RunDuration      metric.Float64Histogram
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.Meter("snapdrift"))
}

// NewMetricsFrom creates the instruments on meter.
func NewMetricsFrom(meter metric.Meter) (*Metrics, error) {
	runCount, err := meter.Int64Counter("snapdrift.run.count",
		metric.WithDescription("Number of snapshot comparisons"),
	)
	if err != nil {
		return nil, err
	}

	added, err := meter.Int64Counter("snapdrift.resources.added",
		metric.WithDescription("Resources present only in the current snapshot"),
	)
	if err != nil {
		return nil, err
	}

	removed, err := meter.Int64Counter("snapdrift.resources.removed",
		metric.WithDescription("Resources present only in the baseline snapshot"),
	)
	if err != nil {
		return nil, err
	}

	changed, err := meter.Int64Counter("snapdrift.resources.changed",
		metric.WithDescription("Paired resources whose documents differ"),
	)
	if err != nil {
		return nil, err
	}

	warnings, err := meter.Int64Counter("snapdrift.warnings.count",
		metric.WithDescription("Recoverable conditions met while loading snapshots"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("snapdrift.run.duration_seconds",
		metric.WithDescription("Wall time of a snapshot comparison"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RunCount:         runCount,
		ResourcesAdded:   added,
		ResourcesRemoved: removed,
		ResourcesChanged: changed,
		WarningCount:     warnings,
		RunDuration:      duration,
	}, nil
}

// RecordRun records a finished comparison.
func (m *Metrics) RecordRun(ctx context.Context, drift bool, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("drift", drift))
	m.RunCount.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSection records the added/removed/changed counts of one category.
func (m *Metrics) RecordSection(ctx context.Context, category string, added, removed, changed int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("category", category))
	m.ResourcesAdded.Add(ctx, int64(added), attrs)
	m.ResourcesRemoved.Add(ctx, int64(removed), attrs)
	m.ResourcesChanged.Add(ctx, int64(changed), attrs)
}

// RecordWarning records one report warning.
func (m *Metrics) RecordWarning(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.WarningCount.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
