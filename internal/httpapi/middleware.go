package httpapi

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/eamcap/authcore"
	"github.com/eamcap/authcore/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recovery turns a panic into a 500 envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				Fail(c, msgInternal)
			}
		}()
		c.Next()
	}
}

// RequestLogger logs one line per request. Bodies and headers are never logged.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p, ok := authcore.PrincipalFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.Int64("account_id", p.AccountID))
		}

		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

// Session attaches a fresh authcore session and the client IP to every
// request context.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _ := authcore.WithSession(c.Request.Context())
		ctx = authcore.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth validates the Bearer access token and binds its principal.
func (h *handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			Error(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if _, err := h.auth.Authenticate(c.Request.Context(), token); err != nil {
			h.fail(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth binds the principal when a valid Bearer token is present and
// otherwise lets the request through untouched.
func (h *handler) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := middleware.BearerToken(c.GetHeader("Authorization")); ok {
			_, _ = h.auth.Authenticate(c.Request.Context(), token)
		}
		c.Next()
	}
}
