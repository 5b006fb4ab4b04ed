package backend

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/infrastructure/logger"
)

// Trace records whether any call made under a context was answered by mock data.
type Trace struct {
	mock atomic.Bool
}

func (t *Trace) Mock() bool { return t != nil && t.mock.Load() }

type traceKey struct{}

// WithTrace attaches a fresh Trace to ctx.
func WithTrace(ctx context.Context) (context.Context, *Trace) {
	t := &Trace{}
	return context.WithValue(ctx, traceKey{}, t), t
}

var fallbackObserver atomic.Pointer[func(op string)]

// ObserveFallbacks registers fn to be called with the operation name every time
// mock data answers in place of the backend. A nil fn stops observing.
func ObserveFallbacks(fn func(op string)) {
	if fn == nil {
		fallbackObserver.Store(nil)
		return
	}
	fallbackObserver.Store(&fn)
}

func traceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

// Fallback runs primary and, when the backend is unavailable and a fallback is
// configured, answers from fallback instead. Any other error from primary is
// returned unchanged.
func Fallback[T any](ctx context.Context, op string, primary, fallback func() (T, error)) (T, error) {
	v, err := primary()
	if err == nil || fallback == nil || !IsUnavailable(err) {
		return v, err
	}
	logger.FromContext(ctx).Warn("backend unavailable, serving mock data",
		zap.String("op", op), zap.Error(err))
	if t := traceFrom(ctx); t != nil {
		t.mock.Store(true)
	}
	if fn := fallbackObserver.Load(); fn != nil {
		(*fn)(op)
	}
	return fallback()
}

// FallbackErr is Fallback for operations without a result.
func FallbackErr(ctx context.Context, op string, primary, fallback func() error) error {
	var fb func() (struct{}, error)
	if fallback != nil {
		fb = func() (struct{}, error) { return struct{}{}, fallback() }
	}
	_, err := Fallback(ctx, op, func() (struct{}, error) { return struct{}{}, primary() }, fb)
	return err
}
