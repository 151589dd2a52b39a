package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the service instruments. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequests     metric.Int64Counter
	HTTPDuration     metric.Float64Histogram
	SessionHits      metric.Int64Counter
	SessionMisses    metric.Int64Counter
	LoginAttempts    metric.Int64Counter
	ContentMutations metric.Int64Counter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := New(provider.Meter(serviceName))
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// New creates the instruments on meter
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequests, err = meter.Int64Counter(
		"cms_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"cms_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, err
	}

	m.SessionHits, err = meter.Int64Counter(
		"cms_session_hits_total",
		metric.WithDescription("Session lookups that found a live session"),
	)
	if err != nil {
		return nil, err
	}

	m.SessionMisses, err = meter.Int64Counter(
		"cms_session_misses_total",
		metric.WithDescription("Session lookups for unknown or expired sessions"),
	)
	if err != nil {
		return nil, err
	}

	m.LoginAttempts, err = meter.Int64Counter(
		"cms_login_attempts_total",
		metric.WithDescription("Login attempts by result"),
	)
	if err != nil {
		return nil, err
	}

	m.ContentMutations, err = meter.Int64Counter(
		"cms_content_mutations_total",
		metric.WithDescription("Committed create/update/delete operations by entity"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordSessionHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionHits.Add(ctx, 1)
}

func (m *Metrics) RecordSessionMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionMisses.Add(ctx, 1)
}

// RecordLogin counts a login attempt; result is "success", "failure" or "throttled"
func (m *Metrics) RecordLogin(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordMutation(ctx context.Context, entity, action string) {
	if m == nil {
		return
	}
	m.ContentMutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("action", action),
	))
}
