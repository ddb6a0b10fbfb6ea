package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/logging"
)

// RequestLogger tags each request with a correlation ID, taken from the
// X-Correlation-ID header or generated, puts a logger carrying it in the
// request context, echoes it back, and logs one line per request.
func RequestLogger(base *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(logging.CorrelationIDHeader)
			if id == "" {
				id = logging.NewCorrelationID()
			}
			c.Response().Header().Set(logging.CorrelationIDHeader, id)

			entry := base.WithFields(logrus.Fields{
				"correlation_id": id,
				"method":         req.Method,
				"path":           req.URL.Path,
			})
			ctx := logging.ContextWithCorrelationID(req.Context(), id)
			ctx = logging.ToContext(ctx, entry)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			line := logging.FromContext(c.Request().Context()).WithFields(logrus.Fields{
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"route":      c.Path(),
			})
			if status >= 500 {
				line.Error("request")
			} else {
				line.Info("request")
			}
			return nil
		}
	}
}
