// Package httpapi exposes the authcore engine as a JSON REST API on gin.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures [NewRouter]. Auth is required.
type Options struct {
	Auth    AuthService
	Logger  *zap.Logger
	Mode    string       // gin mode; empty leaves the global mode alone
	Metrics http.Handler // served at GET /metrics when non-nil
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(opts Options) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(Session())

	r.GET("/health", func(c *gin.Context) {
		Success(c, gin.H{"status": "up"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	h := &handler{auth: opts.Auth, logger: logger}

	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.OptionalAuth(), h.Logout)
	}

	protected := r.Group("/auth")
	protected.Use(h.RequireAuth())
	{
		protected.GET("/me", h.Me)
		protected.POST("/change-password", h.ChangePassword)
	}

	r.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "not found")
	})

	return r
}
