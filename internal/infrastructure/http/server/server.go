// Package server provides the HTTP server wiring for the nutrition core API
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/internal/infrastructure/http/handlers"
	"github.com/platewise/v1/internal/infrastructure/http/middleware"
	"github.com/platewise/v1/internal/ports/inbound"
)

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	checkers map[string]HealthChecker
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	mealService inbound.MealService,
	suggestionService inbound.SuggestionService,
	registry *prometheus.Registry,
	checkers map[string]HealthChecker,
) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		checkers: checkers,
	}

	s.router = s.setupRouter(mealService, suggestionService, registry)

	s.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s
}

// setupRouter builds the route tree.
func (s *Server) setupRouter(
	mealService inbound.MealService,
	suggestionService inbound.SuggestionService,
	registry *prometheus.Registry,
) *gin.Engine {
	router := gin.New()
	if len(s.config.Server.TrustedProxies) > 0 {
		_ = router.SetTrustedProxies(s.config.Server.TrustedProxies)
	}

	mw := middleware.New(s.config, s.logger)
	router.Use(mw.RequestID(), mw.Logger(), mw.Recovery())

	router.GET(s.config.Monitoring.HealthCheckPath, s.handleHealth)
	router.GET(s.config.Monitoring.ReadinessPath, s.handleReady)

	if s.config.Monitoring.EnableMetrics && registry != nil {
		router.GET(s.config.Monitoring.MetricsPath, gin.WrapH(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	api.Use(mw.Identity())

	handlers.NewMealHandler(mealService).RegisterRoutes(api)
	handlers.NewSuggestHandler(suggestionService).RegisterRoutes(api)

	return router
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.config.App.Version,
	})
}

// handleReady reports readiness of every registered dependency.
func (s *Server) handleReady(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	deps := gin.H{}

	for name, checker := range s.checkers {
		if err := checker.HealthCheck(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
		} else {
			deps[name] = "ok"
		}
	}

	c.JSON(status, gin.H{"dependencies": deps})
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}
