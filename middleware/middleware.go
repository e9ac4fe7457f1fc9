// Package middleware wraps a worker's compute step.
//
// Every middleware runs on the worker goroutine, inside the single consumer,
// so none of them may hand the request or worker state to another goroutine.
package middleware

import (
	"context"
	"errors"
)

var (
	ErrTimeout     = errors.New("request timed out")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// HandlerFunc computes the response for one request.
type HandlerFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

type Middleware[Req, Resp any] func(next HandlerFunc[Req, Resp]) HandlerFunc[Req, Resp]

// Chain 将多个中间件组合成一个中间件
//
//	Chain(A, B, C)(h) == A(B(C(h)))
func Chain[Req, Resp any](middlewares ...Middleware[Req, Resp]) Middleware[Req, Resp] {
	return func(next HandlerFunc[Req, Resp]) HandlerFunc[Req, Resp] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
