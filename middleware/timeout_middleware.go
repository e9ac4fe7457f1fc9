package middleware

import (
	"context"
	"errors"
	"time"
)

// TimeOutMiddleware puts a deadline on the handler's context.
//
// The handler still runs on the worker goroutine and must watch ctx itself;
// a handler that returns after the deadline has its result replaced with
// ErrTimeout.
func TimeOutMiddleware[Req, Resp any](timeout time.Duration) Middleware[Req, Resp] {
	return func(next HandlerFunc[Req, Resp]) HandlerFunc[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp, err := next(ctx, req)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				var zero Resp
				return zero, ErrTimeout
			}
			return resp, err
		}
	}
}
