package middleware

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Retryable reports whether a failed request is worth another attempt.
type Retryable func(err error) bool

// DefaultRetryable retries timeouts only.
func DefaultRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// RetryMiddleware re-runs the handler up to maxRetries times with exponential
// backoff (baseDelay, 2*baseDelay, ...). The worker is busy for the whole
// sequence, so keep maxRetries and baseDelay small.
func RetryMiddleware[Req, Resp any](maxRetries int, baseDelay time.Duration, retryable Retryable, logger *zap.Logger) Middleware[Req, Resp] {
	if retryable == nil {
		retryable = DefaultRetryable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc[Req, Resp]) HandlerFunc[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			resp, err := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if err == nil || !retryable(err) {
					return resp, err
				}
				logger.Info("retrying request", zap.Int("attempt", i+1), zap.Error(err))
				select {
				case <-time.After(baseDelay * time.Duration(1<<i)):
				case <-ctx.Done():
					return resp, err
				}
				resp, err = next(ctx, req)
			}
			return resp, err
		}
	}
}
