// Package observe provides observability primitives for the kiosk:
// OpenTelemetry metrics with a Prometheus exporter bridge so the admin
// endpoint can serve a standard /metrics page.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all kiosk metrics.
const meterName = "github.com/keithruezyl1/ResKiosk--sub000"

// Metrics holds all OpenTelemetry metric instruments for the kiosk.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// CaptureDuration tracks the length of finished captures.
	CaptureDuration metric.Float64Histogram

	// QueryDuration tracks hub query round-trip latency.
	QueryDuration metric.Float64Histogram

	// EmergencyDeliveryDuration tracks emergency POST latency.
	EmergencyDeliveryDuration metric.Float64Histogram

	// Queries counts query dispatches. Attributes:
	//   attribute.String("answer_type", ...), attribute.Bool("retry", ...)
	Queries metric.Int64Counter

	// CaptureErrors counts capture-side failures. Attribute:
	//   attribute.String("kind", ...) — too_short, silence, unintelligible
	CaptureErrors metric.Int64Counter

	// HubErrors counts classified hub transport failures. Attribute:
	//   attribute.String("kind", ...) — unreachable, timeout, generic
	HubErrors metric.Int64Counter

	// EmergencyTriggers counts emergency flow entries. Attributes:
	//   attribute.Int("tier", ...), attribute.String("origin", ...)
	EmergencyTriggers metric.Int64Counter

	// EmergencyRetries counts failed delivery attempts.
	EmergencyRetries metric.Int64Counter

	// Ratings counts like/dislike actions. Attribute:
	//   attribute.String("label", ...)
	Ratings metric.Int64Counter

	// StateTransitions counts interaction-state changes. Attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	StateTransitions metric.Int64Counter

	// ActiveSessions tracks whether a session is live (0 or 1 per kiosk).
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// interactive voice latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CaptureDuration, err = m.Float64Histogram("reskiosk.capture.duration",
		metric.WithDescription("Length of finished voice captures."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryDuration, err = m.Float64Histogram("reskiosk.query.duration",
		metric.WithDescription("Hub query round-trip latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmergencyDeliveryDuration, err = m.Float64Histogram("reskiosk.emergency.delivery.duration",
		metric.WithDescription("Emergency alert delivery latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Queries, err = m.Int64Counter("reskiosk.queries",
		metric.WithDescription("Total query dispatches by answer type and retry flag."),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("reskiosk.capture.errors",
		metric.WithDescription("Capture failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.HubErrors, err = m.Int64Counter("reskiosk.hub.errors",
		metric.WithDescription("Classified hub transport failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.EmergencyTriggers, err = m.Int64Counter("reskiosk.emergency.triggers",
		metric.WithDescription("Emergency flow entries by tier and origin."),
	); err != nil {
		return nil, err
	}
	if met.EmergencyRetries, err = m.Int64Counter("reskiosk.emergency.retries",
		metric.WithDescription("Failed emergency delivery attempts."),
	); err != nil {
		return nil, err
	}
	if met.Ratings, err = m.Int64Counter("reskiosk.ratings",
		metric.WithDescription("Like/dislike actions by label."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("reskiosk.state.transitions",
		metric.WithDescription("Interaction state changes by from/to state."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("reskiosk.active_sessions",
		metric.WithDescription("Number of live kiosk sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStateTransition records one interaction-state change.
func (m *Metrics) RecordStateTransition(ctx context.Context, from, to string) {
	m.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordHubError records one classified hub failure.
func (m *Metrics) RecordHubError(ctx context.Context, kind string) {
	m.HubErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordQuery records one query dispatch outcome.
func (m *Metrics) RecordQuery(ctx context.Context, answerType string, retry bool) {
	m.Queries.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("answer_type", answerType),
			attribute.Bool("retry", retry),
		),
	)
}
