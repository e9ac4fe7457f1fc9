package middleware

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware 创建一个基于令牌桶算法的限流中间件
//
// Requests over the limit are answered with ErrRateLimited without reaching
// the handler.
func RateLimitMiddleware[Req, Resp any](r float64, burst int) Middleware[Req, Resp] {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc[Req, Resp]) HandlerFunc[Req, Resp] {
		return func(ctx context.Context, req Req) (Resp, error) {
			if !limiter.Allow() {
				var zero Resp
				return zero, ErrRateLimited
			}
			return next(ctx, req)
		}
	}
}
