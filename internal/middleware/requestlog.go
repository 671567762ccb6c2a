package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/screening-seat-booking/internal/log"
)

// CorrelationHeader is read from requests and echoed on responses.
const CorrelationHeader = "X-Correlation-ID"

// RequestLogger tags every request with a correlation id (taken from the
// request header or generated), stores a logrus entry carrying it in the
// request context, and logs one line per request when it completes.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(CorrelationHeader)
			if id == "" {
				id = shortuuid.New()
			}
			c.Response().Header().Set(CorrelationHeader, id)

			logger := logrus.WithField("correlation_id", id)
			c.SetRequest(req.WithContext(log.ToContext(req.Context(), logger)))

			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the error response so the status is known
				c.Error(err)
			}

			fields := logrus.Fields{
				"method":     req.Method,
				"path":       c.Path(),
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
			}
			entry := logger.WithFields(fields)
			switch status := c.Response().Status; {
			case status >= 500:
				entry.WithError(err).Error("request failed")
			case status >= 400:
				entry.Info("request rejected")
			default:
				entry.Debug("request served")
			}
			return nil
		}
	}
}
