package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpHandlers "github.com/weightwatch/core/internal/adapters/http"
	"github.com/weightwatch/core/internal/adapters/repository"
	"github.com/weightwatch/core/internal/application/services"
	"github.com/weightwatch/core/internal/infrastructure/config"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/infrastructure/plot"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	store  *repository.FileMeasurementRepository
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize the store
	store, err := repository.NewFileMeasurementRepository(cfg.Store.Path, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	// Initialize plotting
	renderer := plot.NewScriptRenderer()
	runner := plot.NewGnuplotRunner(cfg.Plot, appLogger)

	// Initialize services
	measurementService := services.NewMeasurementService(store, appLogger)
	chartService := services.NewChartService(measurementService, store, renderer, runner, cfg.Plot, appLogger)

	// Initialize handlers
	measurementHandler := httpHandlers.NewMeasurementHandler(measurementService, appLogger)
	chartHandler := httpHandlers.NewChartHandler(chartService, appLogger)
	pageHandler, err := httpHandlers.NewPageHandler(measurementService, chartService, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize page handler: %w", err)
	}

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		store:  store,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(pageHandler, measurementHandler, chartHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(pageHandler *httpHandlers.PageHandler, measurementHandler *httpHandlers.MeasurementHandler, chartHandler *httpHandlers.ChartHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Browser-facing pages
	s.echo.GET("/", pageHandler.Index)
	s.echo.POST("/weight", pageHandler.SubmitWeight)
	s.echo.GET("/chart.png", pageHandler.ChartImage)
	s.echo.GET("/favicon.ico", pageHandler.Favicon)
	s.echo.RouteNotFound("/*", pageHandler.NotFound)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	measurementGroup := v1.Group("/measurements")
	measurementGroup.GET("", measurementHandler.ListMeasurements)
	measurementGroup.POST("", measurementHandler.CreateMeasurement)
	measurementGroup.GET("/recent", measurementHandler.RecentMeasurements)

	chartGroup := v1.Group("/chart")
	chartGroup.POST("/render", chartHandler.RenderChart)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Store health check
	count, err := s.store.Count(c.Request().Context())
	if err != nil {
		status = "error"
		checks["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["store"] = map[string]interface{}{
			"status":       "ok",
			"path":         s.store.Path(),
			"measurements": count,
		}
	}

	// Plot tool check: a missing gnuplot degrades rendering but the app
	// still serves pages, so this is reported without failing health.
	if _, err := exec.LookPath(s.config.Plot.Binary); err != nil {
		checks["plot_tool"] = map[string]interface{}{
			"status": "missing",
			"binary": s.config.Plot.Binary,
		}
	} else {
		checks["plot_tool"] = map[string]interface{}{
			"status": "ok",
			"binary": s.config.Plot.Binary,
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	// The store directory must be writable before accepting submissions
	if _, err := os.Stat(s.store.Path()); err != nil && !os.IsNotExist(err) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "store_not_accessible",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Info("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": e.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Error("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Error("Error sending response", "error", err)
			}
		}
	}
}
