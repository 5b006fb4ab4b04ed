package logger

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id between the browser, this service and the backend.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Middleware tags every request with an id, attaches a request-scoped logger to
// the user context and logs the outcome.
func Middleware(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)

		l := base.With(zap.String("request_id", id))
		ctx := context.WithValue(c.UserContext(), requestIDKey{}, id)
		c.SetUserContext(WithContext(ctx, l))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			l.Error("request failed", append(fields, zap.Error(err))...)
		case status >= 400:
			l.Warn("request rejected", fields...)
		default:
			l.Info("request", fields...)
		}
		return err
	}
}
