package introspect

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joltmail/joltsync/internal/aggregate"
	"github.com/joltmail/joltsync/internal/redact"
)

// Config configures the introspection server.
type Config struct {
	Host string
	Port int
}

// Server exposes a debug HTTP surface over an aggregate.Source: health,
// per-data-group queue/in-flight status, and a Prometheus /metrics
// endpoint, following internal/http/server.go in the teacher.
type Server struct {
	echo      *echo.Echo
	source    *aggregate.Source
	logger    *zap.Logger
	config    Config
	metrics   *httpMetrics
	startedAt time.Time
}

// NewServer builds a Server over source. A nil logger gets zap.NewNop();
// a zero Config gets host "localhost" and port 9090.
func NewServer(source *aggregate.Source, logger *zap.Logger, cfg Config) (*Server, error) {
	if source == nil {
		return nil, fmt.Errorf("aggregate source cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 9090
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpMetrics := newHTTPMetrics(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(httpMetrics.middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("introspect request",
				zap.String("method", c.Request().Method),
				zap.String("uri", redact.Scrub(c.Request().RequestURI)),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})

	s := &Server{echo: e, source: source, logger: logger, config: cfg, metrics: httpMetrics, startedAt: time.Now()}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.POST("/flush", s.handleFlush)
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start blocks serving HTTP until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) Start(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.Addr()); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Dirty  bool   `json:"dirty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Dirty: s.source.IsDirty()})
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Dirty         bool               `json:"dirty"`
	DirtyGroups   []string           `json:"dirtyGroups"`
	Connections   map[string]Summary `json:"connections"`
	UptimeSeconds int64              `json:"uptimeSeconds"`
	MemoryBytes   uint64             `json:"memoryBytes"`
}

// Summary mirrors connection.Status in JSON form, decoupling the wire
// shape from the connection package's internals.
type Summary struct {
	Sending              bool `json:"sending"`
	SendQueueDepth       int  `json:"sendQueueDepth"`
	QueriesPending       int  `json:"queriesPending"`
	TypeFetchesPending   int  `json:"typeFetchesPending"`
	TypeRefreshesPending int  `json:"typeRefreshesPending"`
	RecordFetchesPending int  `json:"recordFetchesPending"`
	InFlightCalls        int  `json:"inFlightCalls"`
	Paginated            bool `json:"paginated"`
}

func (s *Server) handleStatus(c echo.Context) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatusResponse{
		Dirty:         s.source.IsDirty(),
		DirtyGroups:   s.source.DirtyGroups(),
		Connections:   make(map[string]Summary),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		MemoryBytes:   mem.Alloc,
	}
	for _, group := range s.source.DataGroups() {
		st := s.source.Connection(group).Status()
		resp.Connections[group] = Summary{
			Sending:              st.Sending,
			SendQueueDepth:       st.SendQueueDepth,
			QueriesPending:       st.QueriesPending,
			TypeFetchesPending:   st.TypeFetchesPending,
			TypeRefreshesPending: st.TypeRefreshesPending,
			RecordFetchesPending: st.RecordFetchesPending,
			InFlightCalls:        st.InFlightCalls,
			Paginated:            st.Paginated,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// FlushResponse is the response body for POST /api/v1/flush.
type FlushResponse struct {
	Flushed bool   `json:"flushed"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleFlush(c echo.Context) error {
	if err := s.source.Flush(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, FlushResponse{Flushed: false, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, FlushResponse{Flushed: true})
}
