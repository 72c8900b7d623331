// Package auth provides the JWT admission middleware for the API
// surface. Webhook intake and health endpoints are exempted through
// skip paths since the gateway authenticates with its signature header.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ContextKeySubject is where the middleware stores the token subject
const ContextKeySubject = "auth_subject"

// Config controls the JWT middleware
type Config struct {
	Secret    string
	SkipPaths []string
}

// Middleware validates Bearer tokens signed with the shared HMAC secret
func Middleware(cfg Config, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skip := range cfg.SkipPaths {
				if strings.HasPrefix(path, skip) {
					return next(c)
				}
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(cfg.Secret), nil
			})
			if err != nil || !token.Valid {
				logger.Debug("token validation failed", zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if sub, err := claims.GetSubject(); err == nil {
				c.Set(ContextKeySubject, sub)
			}
			return next(c)
		}
	}
}
