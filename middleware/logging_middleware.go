package middleware

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LoggingMiddleware logs the request kind, how long the handler took, and the
// error if any.
func LoggingMiddleware[Req, Resp any](logger *zap.Logger) Middleware[Req, Resp] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc[Req, Resp]) HandlerFunc[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			fields := []zap.Field{
				zap.String("request", fmt.Sprintf("%T", req)),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("request failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("request handled", fields...)
			}
			return resp, err
		}
	}
}
