// Package http assembles the echo server: middleware, route groups and
// lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/wekeepgrowing/payment-processing/internal/adapter/handler/http"
	"github.com/wekeepgrowing/payment-processing/internal/config"
	"github.com/wekeepgrowing/payment-processing/internal/middleware/auth"
)

// Server wraps the echo instance
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger *zap.Logger
}

// Handlers bundles everything the server mounts
type Handlers struct {
	Payment      *handler.PaymentHandler
	Subscription *handler.SubscriptionHandler
	Webhook      *handler.WebhookHandler
}

// NewServer builds the echo server with middleware and routes
func NewServer(cfg config.ServerConfig, jwtCfg config.JWTConfig, handlers Handlers, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				logger.Error("request", fields...)
			} else {
				logger.Info("request", fields...)
			}
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.Use(auth.Middleware(auth.Config{
		Secret: jwtCfg.Secret,
		SkipPaths: []string{
			"/api/v1/webhooks",
		},
	}, logger))

	handlers.Payment.Register(api)
	handlers.Subscription.Register(api)
	handlers.Webhook.Register(api)

	return &Server{echo: e, cfg: cfg, logger: logger}
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.HTTP.Host, s.cfg.HTTP.Port)
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
