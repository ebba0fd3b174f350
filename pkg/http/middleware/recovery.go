package middleware

import (
	"fmt"
	"runtime/debug"

	"AttackDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into an error for the router's error handler.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					l.Error("panic recovered",
						logger.Error(perr),
						logger.String("path", c.Path()),
						logger.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic recovered: %w", perr)
				}
			}()
			return next(c)
		}
	}
}
