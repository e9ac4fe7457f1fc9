// Package adder is a small arithmetic service built on service.Worker. It
// keeps a running total that only its worker goroutine ever touches.
package adder

import (
	"context"
	"errors"
	"fmt"

	"mini-lpc/service"
)

// Name is the service name the adder registers under.
const Name = "Adder"

var (
	ErrDivideByZero       = errors.New("adder: divide by zero")
	ErrUnexpectedResponse = errors.New("adder: unexpected response")
)

// Request is one of Add, Mul, Div, Accumulate or Snapshot.
type Request interface{ isRequest() }

// Response is one of AddResult, MulResult, DivResult, AccumulateResult or
// SnapshotResult, matching the Request variant.
type Response interface{ isResponse() }

type (
	Add        struct{ A, B int }
	Mul        struct{ A, B int }
	Div        struct{ A, B int }
	Accumulate struct{ N int } // Adds N to the running total
	Snapshot   struct{}
)

type (
	AddResult        struct{ Total int }
	MulResult        struct{ Product int }
	DivResult        struct{ Quotient, Remainder int }
	AccumulateResult struct{ Total int }
	SnapshotResult   struct {
		Total int // Running total
		Calls int // Requests served, including this one
	}
)

func (Add) isRequest()        {}
func (Mul) isRequest()        {}
func (Div) isRequest()        {}
func (Accumulate) isRequest() {}
func (Snapshot) isRequest()   {}

func (AddResult) isResponse()        {}
func (MulResult) isResponse()        {}
func (DivResult) isResponse()        {}
func (AccumulateResult) isResponse() {}
func (SnapshotResult) isResponse()   {}

// Service is the adder worker.
type Service struct {
	*service.Worker[Request, Response]

	// owned by the worker goroutine
	total int
	calls int
}

var _ service.Service[Request, Response] = (*Service)(nil)

func New(opts ...service.Option) *Service {
	s := &Service{}
	s.Worker = service.NewWorker[Request, Response](Name, s.handle, opts...)
	return s
}

func (s *Service) handle(ctx context.Context, req Request) (Response, error) {
	s.calls++
	switch r := req.(type) {
	case Add:
		return AddResult{Total: r.A + r.B}, nil
	case Mul:
		return MulResult{Product: r.A * r.B}, nil
	case Div:
		if r.B == 0 {
			return nil, ErrDivideByZero
		}
		return DivResult{Quotient: r.A / r.B, Remainder: r.A % r.B}, nil
	case Accumulate:
		s.total += r.N
		return AccumulateResult{Total: s.total}, nil
	case Snapshot:
		return SnapshotResult{Total: s.total, Calls: s.calls}, nil
	default:
		return nil, fmt.Errorf("%w: %T", service.ErrUnknownRequest, req)
	}
}

// Close stops the worker and waits for it, the way dropping the service
// would. Closing twice is fine.
func (s *Service) Close() error {
	return s.Shutdown(context.Background())
}
