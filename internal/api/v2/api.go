// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/datastore"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/loader"
	"github.com/tphakala/birdobs/internal/logger"
	"github.com/tphakala/birdobs/internal/observability"
	"github.com/tphakala/birdobs/internal/views"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings
	Sessions *loader.Sessions
	Engine   *views.Engine

	metrics      *observability.Metrics
	apiLogger    logger.Logger
	version      string
	startTime    time.Time
	ownsSessions bool // Sessions was created here and is closed by Shutdown
}

// Option configures a Controller
type Option func(*Controller)

// WithMetrics enables request, loader and view metrics plus the /metrics endpoint
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger overrides the api module logger
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.apiLogger = l }
}

// WithVersion sets the version reported by the health endpoint
func WithVersion(version string) Option {
	return func(c *Controller) { c.version = version }
}

// WithSessions injects an existing session registry. The caller keeps ownership.
func WithSessions(s *loader.Sessions) Option {
	return func(c *Controller) { c.Sessions = s }
}

// New creates a new API controller and registers its routes
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, opts ...Option) (*Controller, error) {
	return NewWithOptions(e, ds, settings, true, opts...)
}

// NewWithOptions creates a new API controller. Tests pass initializeRoutes=false
// to call handlers directly.
func NewWithOptions(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, initializeRoutes bool, opts ...Option) (*Controller, error) {
	if ds == nil {
		return nil, errors.Newf("datastore is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:      e,
		DS:        ds,
		Settings:  settings,
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiLogger == nil {
		c.apiLogger = GetLogger()
	}

	var loaderOpts []loader.Option
	var viewOpts []views.Option
	if c.metrics != nil {
		loaderOpts = append(loaderOpts, loader.WithMetrics(c.metrics.Loader))
		viewOpts = append(viewOpts, views.WithMetrics(c.metrics.Views))
	}

	if c.Sessions == nil {
		c.Sessions = loader.NewSessions(ds, settings.Sessions.IdleTimeout, settings.Sessions.CleanupInterval, loaderOpts...)
		c.ownsSessions = true
	}
	if c.metrics != nil {
		c.Sessions.OnCountChange(c.metrics.Loader.SetActiveSessions)
	}
	c.Engine = views.NewEngine(settings.Views, viewOpts...)

	c.Group = e.Group("/api/v2")

	c.Group.Use(middleware.Recover())
	c.Group.Use(c.LoggingMiddleware())
	if c.metrics != nil {
		c.Group.Use(c.MetricsMiddleware())
	}

	if initializeRoutes {
		c.initRoutes()
	}

	return c, nil
}

// GetLogger returns the api module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"dataset routes", c.initDatasetRoutes},
		{"view routes", c.initViewRoutes},
		{"compare routes", c.initCompareRoutes},
		{"system routes", c.initSystemRoutes},
		{"metrics routes", c.initMetricsRoutes},
	}

	for _, initializer := range routeInitializers {
		c.apiLogger.Debug("initializing routes", logger.String("group", initializer.name))
		initializer.fn()
	}
}

// Shutdown releases the session caches created by the controller
func (c *Controller) Shutdown() {
	if c.ownsSessions && c.Sessions != nil {
		c.Sessions.Close()
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)

	response := map[string]any{
		"status":          "healthy",
		"version":         c.version,
		"timestamp":       time.Now().Format(time.RFC3339),
		"uptime":          uptime.String(),
		"uptime_seconds":  uptime.Seconds(),
		"datasets":        c.DS.Datasets(),
		"sessions":        c.Sessions.Count(),
		"database_status": "connected",
	}

	if err := c.DS.Ping(ctx.Request().Context()); err != nil {
		response["status"] = "degraded"
		response["database_status"] = "disconnected"
		response["database_error"] = err.Error()
		return ctx.JSON(http.StatusServiceUnavailable, response)
	}

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse represents a standardized error response for the API
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}

	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	if code >= http.StatusInternalServerError {
		c.apiLogger.Error("API error", fields...)
	} else {
		c.apiLogger.Warn("API error", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// statusForError maps an error category onto an HTTP status code
func statusForError(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryValidation),
		errors.IsCategory(err, errors.CategoryMissingColumn):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryTimeout):
		return http.StatusGatewayTimeout
	case errors.IsCategory(err, errors.CategoryCancellation),
		errors.IsCategory(err, errors.CategoryDatabase):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// LoggingMiddleware logs every API request with its status and latency
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("query", req.URL.RawQuery),
				logger.Int("status", res.Status),
				logger.String("ip", ctx.RealIP()),
				logger.String("user_agent", req.UserAgent()),
				logger.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if sid := res.Header().Get(HeaderSessionID); sid != "" {
				fields = append(fields, logger.String("session_id", sid))
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}

			c.apiLogger.Info("API request", fields...)
			return err
		}
	}
}

// MetricsMiddleware records request counts and durations per registered route
func (c *Controller) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			c.metrics.HTTP.RecordRequest(ctx.Request().Method, route, status, time.Since(start).Seconds())
			return err
		}
	}
}
