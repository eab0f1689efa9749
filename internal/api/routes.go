// routes.go - Route and middleware registration
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/link-review/backend/internal/session"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Uploads  Ingester
	Reviews  Reviewer
	Sweeper  Sweeper
	Sessions *session.Manager
	Logger   *zap.Logger
	Version  string
}

// MiddlewareConfig holds the server settings the middleware chain needs.
type MiddlewareConfig struct {
	BodyLimit            string
	EnableRequestLogging bool
}

// RegisterRoutes registers all routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)
	e.GET("/cleanup", h.HandleCleanup)

	pages := e.Group("", h.sessions.Middleware())
	pages.GET("/", h.HandleIndex)
	pages.POST("/", h.HandleUpload)
	pages.GET("/viewer", h.HandleViewer)
	pages.POST("/viewer", h.HandleViewerAction)
	pages.GET("/view_sheet", h.HandleViewSheet)
	pages.GET("/download_results", h.HandleDownload)
	pages.GET("/reset", h.HandleReset)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig, logger *zap.Logger) {
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
				zap.ByteString("stack", stack))
			return err
		},
	}))

	reqLogger := logger.Named("http")
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !cfg.EnableRequestLogging || c.Request().URL.Path == "/health"
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				reqLogger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			reqLogger.Info("request", fields...)
			return nil
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "same-origin",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/download_results"
		},
	}))

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
}
