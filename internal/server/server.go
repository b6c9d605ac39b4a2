// Package server exposes the engine over HTTP: create, insert, find
// and info per collection, plus health and stats surfaces.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	vectra "github.com/hupe1980/vectra"
	"github.com/hupe1980/vectra/internal/profile"
)

// maxConcurrentFinds caps the number of full scans running at once so a
// burst of expensive queries cannot exhaust memory or starve inserts.
const maxConcurrentFinds = 16

// Server wires the engine into an echo HTTP API.
type Server struct {
	echoServer *echo.Echo
	engine     *vectra.Vectra
	profile    *profile.Profile

	// findSemaphore limits concurrent scan work; waiting respects the
	// request context.
	findSemaphore *semaphore.Weighted
}

// New creates the HTTP server and registers all routes.
func New(engine *vectra.Vectra, prof *profile.Profile) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echoServer:    e,
		engine:        engine,
		profile:       prof,
		findSemaphore: semaphore.NewWeighted(maxConcurrentFinds),
	}

	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	// Recover maps panics in a handler (including a panic that escaped
	// a cache critical section) to a plain 500 for this request.
	e.Use(middleware.Recover())

	e.GET("/healthz", s.handleHealthz)
	e.GET("/stats", s.handleStats)
	e.POST("/create", s.handleCreate)
	e.POST("/db/:name/insert", s.handleInsert)
	e.POST("/db/:name/find", s.handleFind)
	e.GET("/db/:name/info", s.handleInfo)

	return s
}

// Start runs the server until ctx is canceled, then shuts it down
// gracefully and closes the engine (final flush).
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echoServer.Start(s.profile.Addr)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", slog.String("error", err.Error()))
	}
	if err := s.engine.Close(); err != nil {
		return errors.Wrap(err, "failed to close engine")
	}
	return nil
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}
