// Package middleware provides HTTP middleware components
// following the Chain of Responsibility pattern
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/infrastructure/config"
	"github.com/platewise/v1/pkg/errors"
)

// Middleware provides all middleware functions
type Middleware struct {
	config *config.Config
	logger *zap.Logger
}

// New creates a new middleware instance
func New(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		config: cfg,
		logger: logger,
	}
}

// RequestID adds a unique request ID to the context
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// Logger provides structured logging for requests
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		// Skip logging for health checks
		if path == m.config.Monitoring.HealthCheckPath || path == m.config.Monitoring.ReadinessPath {
			return
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
		}

		if ownerID, exists := c.Get("owner_id"); exists {
			fields = append(fields, zap.String("owner_id", ownerID.(uuid.UUID).String()))
		}

		switch {
		case statusCode >= 500:
			m.logger.Error("Server error", append(fields, zap.String("error", errorMessage))...)
		case statusCode >= 400:
			m.logger.Warn("Client error", append(fields, zap.String("error", errorMessage))...)
		default:
			m.logger.Info("Request", fields...)
		}
	}
}

// Recovery handles panics gracefully
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("request_id", c.GetString("request_id")),
					zap.ByteString("stack", debug.Stack()),
				)

				appErr := errors.NewInternalError("")
				c.AbortWithStatusJSON(appErr.StatusCode(),
					errors.ToErrorResponse(appErr, c.GetString("request_id")))
			}
		}()
		c.Next()
	}
}

// Identity resolves the calling user from the X-User-ID header. The identity
// layer upstream has already authenticated the caller; this subsystem only
// needs the owner id.
func (m *Middleware) Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			appErr := errors.NewAppError(errors.CodeUnauthorized, "Missing X-User-ID header", "")
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.ToErrorResponse(appErr, c.GetString("request_id")))
			return
		}

		ownerID, err := uuid.Parse(raw)
		if err != nil {
			appErr := errors.NewAppError(errors.CodeUnauthorized, "Malformed X-User-ID header", "")
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.ToErrorResponse(appErr, c.GetString("request_id")))
			return
		}

		c.Set("owner_id", ownerID)
		c.Next()
	}
}

// OwnerID returns the authenticated owner id set by Identity.
func OwnerID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get("owner_id"); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
