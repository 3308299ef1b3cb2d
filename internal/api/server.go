// Package api exposes the catalog, the retention report, and manual sync
// control over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/JolanLar/lunager/internal/catalog"
	"github.com/JolanLar/lunager/internal/config"
	"github.com/JolanLar/lunager/internal/retention"
	"github.com/JolanLar/lunager/internal/scheduler"
	"github.com/JolanLar/lunager/internal/storage"
)

// Server handles HTTP requests for the lunager API.
type Server struct {
	echo       *echo.Echo
	cfg        *config.Config
	logger     zerolog.Logger
	store      *catalog.Store
	registry   *storage.Registry
	classifier *retention.Classifier
	sched      *scheduler.Scheduler
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, store *catalog.Store, registry *storage.Registry, classifier *retention.Classifier, sched *scheduler.Scheduler, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		cfg:        cfg,
		logger:     logger.With().Str("component", "api").Logger(),
		store:      store,
		registry:   registry,
		classifier: classifier,
		sched:      sched,
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())

	s.registerRoutes()
	return s
}

// Start begins listening on the configured address. Blocks until the
// server stops.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.cfg.Server.Address()).Msg("Starting HTTP server")
	err := s.echo.Start(s.cfg.Server.Address())
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/candidates", s.handleCandidates)
	v1.POST("/sync", s.handleSync)
	v1.GET("/tasks", s.handleTasks)
	v1.GET("/media/:kind", s.handleListMedia)
	v1.POST("/media/:kind/:id/protect", s.handleProtect)
	v1.DELETE("/media/:kind/:id/protect", s.handleUnprotect)
	v1.GET("/storage/pools", s.handlePools)
	v1.GET("/storage/bindings", s.handleBindings)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("Request")
			return nil
		},
	})
}
