// Package service implements long-running workers that own their state
// exclusively and the handles callers use to talk to them.
//
// A caller never touches worker state. It takes a Handle from Sender and
// issues a synchronous Call; the call travels through the worker's inbox
// as an envelope carrying its own reply channel:
//
//	caller ──Call(h, req)──→ inbox ──→ worker loop ──handler(req)──→ reply ──→ caller
//	                                      ↑
//	                     Stop() ──quit────┘
//
// The worker serves one envelope at a time, so handlers can mutate the
// worker's state without locks.
package service

import (
	"context"
	"errors"
	"fmt"

	"mini-lpc/channel"
	"mini-lpc/message"
)

var (
	// ErrServiceUnavailable is returned when the worker is gone or stopped
	// before it handled the call.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrWorkerPanicked is returned to the caller whose request made the
	// handler panic. The worker keeps serving.
	ErrWorkerPanicked = errors.New("worker panicked")
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	// ErrUnknownRequest is what a handler returns for a request variant it
	// does not serve.
	ErrUnknownRequest = errors.New("unknown request")
)

// Service is a long-running worker serving Req with Resp.
type Service[Req, Resp any] interface {
	// Start spawns the worker loop. Call it exactly once.
	Start() error
	// Stop asks the worker loop to exit. It does not wait for the exit.
	Stop() error
	// Sender returns a new handle for issuing calls.
	Sender() *Handle[Req, Resp]
}

// Handle is a caller's reference to a worker's inbox. Handles are cheap to
// clone and safe for concurrent use; every clone is independent.
type Handle[Req, Resp any] struct {
	tx *channel.Sender[message.Envelope[Req, Resp]]
}

// Clone returns an independent handle to the same worker.
func (h *Handle[Req, Resp]) Clone() *Handle[Req, Resp] {
	return &Handle[Req, Resp]{tx: h.tx.Clone()}
}

// Close releases this handle. Calls through it fail with channel.ErrClosed.
func (h *Handle[Req, Resp]) Close() {
	h.tx.Close()
}

// Call is CallContext(ctx, h, req).
func (h *Handle[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	return CallContext(ctx, h, req)
}

// Call sends req through h and blocks until the worker replies.
func Call[Req, Resp any](h *Handle[Req, Resp], req Req) (Resp, error) {
	return CallContext(context.Background(), h, req)
}

// CallContext sends req through h and blocks until the worker replies or
// ctx is done. A call abandoned through ctx is still handled by the worker;
// its reply is discarded.
func CallContext[Req, Resp any](ctx context.Context, h *Handle[Req, Resp], req Req) (Resp, error) {
	var zero Resp
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	env, reply := message.New[Req, Resp](req)
	if err := h.tx.Send(env); err != nil {
		if errors.Is(err, channel.ErrDisconnected) {
			return zero, unavailable()
		}
		return zero, err
	}

	select {
	case r := <-reply:
		return r.Response, r.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func unavailable() error {
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, channel.ErrDisconnected)
}
