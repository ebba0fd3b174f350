package api

import (
	"AttackDash/internal/service/ratelimit"
	xhttp "AttackDash/pkg/http"
	xlogger "AttackDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RateLimit rejects a client once its bucket is empty. Clients are keyed by
// the remote IP echo resolves.
func RateLimit(l *ratelimit.Limiter, logger *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if !l.Allow(ip) {
				logger.Debug("rate limited", xlogger.String("ip", ip), xlogger.String("path", c.Path()))
				return xhttp.TooManyRequestsResponse(c)
			}
			return next(c)
		}
	}
}
