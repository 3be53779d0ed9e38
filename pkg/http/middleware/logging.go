package middleware

import (
	"time"

	applogger "MarketWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs every HTTP request with method, path, status and latency.
func RequestLogging(log *applogger.Logger) echo.MiddlewareFunc {
	log = log.With("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("path", req.URL.Path),
				applogger.String("remote", req.RemoteAddr),
				applogger.Int("status", res.Status),
				applogger.Duration("latency", time.Since(start)),
			}
			if res.Status >= 500 {
				log.Error("request failed", fields...)
			} else {
				log.Info("request", fields...)
			}

			return err
		}
	}
}
