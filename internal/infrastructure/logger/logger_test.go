package logger

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)

	custom := zap.NewExample()
	assert.Same(t, custom, FromContext(WithContext(context.Background(), custom)))
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := fiber.New()
	app.Use(Middleware(zap.New(core)))
	app.Get("/ping", func(c *fiber.Ctx) error {
		assert.NotEmpty(t, RequestID(c.UserContext()))
		return c.SendString("pong")
	})

	res, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(RequestIDHeader))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "request", logs.All()[0].Message)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", res.Header.Get(RequestIDHeader))
}
