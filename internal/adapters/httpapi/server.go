package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bandScalper/internal/domain"
	"bandScalper/internal/ports"
)

// Controller is the operator surface of the trading service.
type Controller interface {
	Status() domain.BotStatus
	Stop()
	Resume() error
}

// Config holds configuration for the control server.
type Config struct {
	Addr            string
	Controller      Controller
	Gatherer        prometheus.Gatherer // Source for /metrics, defaults to the global registry
	Logger          ports.Logger
	ShutdownTimeout time.Duration
}

// Server wraps the Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger ports.Logger
	grace  time.Duration
}

// NewServer creates the control server and registers its routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Controller == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("controller and logger are required for the HTTP server")
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogging(cfg.Logger))

	h := &handler{ctrl: cfg.Controller, logger: cfg.Logger}
	h.RegisterRoutes(e)

	// Expose Prometheus metrics endpoint for scraping
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	return &Server{echo: e, addr: cfg.Addr, logger: cfg.Logger, grace: cfg.ShutdownTimeout}, nil
}

// Start serves in the background. Listener failures are logged.
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.addr})
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, err, "HTTP server error")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.grace)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info(ctx, "HTTP server stopped gracefully")
	return nil
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func requestLogging(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			logger.Debug(req.Context(), "HTTP request", map[string]interface{}{
				"method":   req.Method,
				"path":     c.Path(),
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
			})
			return nil
		}
	}
}
