package introspect

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/joltmail/joltsync/internal/introspect"

// httpMetrics holds the introspection server's own request metrics,
// separate from the Connection-level metrics recorded by internal/connection.
type httpMetrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
}

func newHTTPMetrics(logger *zap.Logger) *httpMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &httpMetrics{meter: otel.Meter(instrumentationName), logger: logger}
	m.init()
	return m
}

func (m *httpMetrics) init() {
	var err error

	m.requestsTotal, err = m.meter.Int64Counter(
		"joltsync.introspect.requests_total",
		metric.WithDescription("Total requests to the introspection server, labeled by method, endpoint, and status."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = m.meter.Float64Histogram(
		"joltsync.introspect.request_duration_seconds",
		metric.WithDescription("Introspection server request duration in seconds."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"joltsync.introspect.active_requests",
		metric.WithDescription("Number of currently active introspection requests."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}
}

func (m *httpMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if m.activeRequests != nil {
				m.activeRequests.Add(c.Request().Context(), 1)
			}

			err := next(c)

			ctx := c.Request().Context()
			attrs := []attribute.KeyValue{
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", c.Path()),
				attribute.Int("status", c.Response().Status),
			}
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
			}
			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, -1)
			}

			return err
		}
	}
}
