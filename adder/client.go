package adder

import (
	"context"
	"fmt"

	"mini-lpc/service"
)

// Client wraps a handle with one typed method per request variant.
type Client struct {
	h *service.Handle[Request, Response]
}

func NewClient(h *service.Handle[Request, Response]) *Client {
	return &Client{h: h}
}

// Close releases the underlying handle.
func (c *Client) Close() { c.h.Close() }

func call[T Response](ctx context.Context, h *service.Handle[Request, Response], req Request) (T, error) {
	var zero T
	resp, err := service.CallContext(ctx, h, req)
	if err != nil {
		return zero, err
	}
	out, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T for %T", ErrUnexpectedResponse, resp, req)
	}
	return out, nil
}

func (c *Client) Add(ctx context.Context, a, b int) (int, error) {
	r, err := call[AddResult](ctx, c.h, Add{A: a, B: b})
	return r.Total, err
}

func (c *Client) Mul(ctx context.Context, a, b int) (int, error) {
	r, err := call[MulResult](ctx, c.h, Mul{A: a, B: b})
	return r.Product, err
}

// Div returns the quotient and remainder of a / b.
func (c *Client) Div(ctx context.Context, a, b int) (int, int, error) {
	r, err := call[DivResult](ctx, c.h, Div{A: a, B: b})
	return r.Quotient, r.Remainder, err
}

// Accumulate adds n to the running total and returns the new total.
func (c *Client) Accumulate(ctx context.Context, n int) (int, error) {
	r, err := call[AccumulateResult](ctx, c.h, Accumulate{N: n})
	return r.Total, err
}

func (c *Client) Snapshot(ctx context.Context) (SnapshotResult, error) {
	return call[SnapshotResult](ctx, c.h, Snapshot{})
}
