// Package channel implements the two primitives a worker and its callers talk
// through: an inbox that any number of senders can enqueue into, and a
// zero-capacity quit signal.
//
// Go channels are bounded, so the inbox keeps its own queue and exposes a
// select-able readiness channel instead:
//
//	caller-1 ──Send──┐
//	caller-2 ──Send──┼──→ queue (FIFO, arrival order) ──Ready()/TryRecv()──→ worker
//	caller-3 ──Send──┘
//
// Senders are reference counted. Once every clone is closed and the queue is
// drained, the receiver observes ErrDisconnected. Once the receiver is
// closed, every Send fails with ErrDisconnected.
package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrDisconnected = errors.New("channel: disconnected")
	ErrClosed       = errors.New("channel: sender closed")
	ErrFull         = errors.New("channel: inbox full")
	ErrEmpty        = errors.New("channel: inbox empty")
)

// inbox is the state shared by all senders and the receiver.
type inbox[T any] struct {
	mu         sync.Mutex
	queue      []T
	head       int           // Index of the next item to pop; queue[:head] is garbage
	limit      int           // Max queued items, <= 0 means unbounded
	senders    int           // Live sender clones
	recvClosed bool          // Set by Receiver.Close
	ready      chan struct{} // Capacity 1, armed whenever the receiver should look again
}

// Sender is one clone of the sending half of an inbox.
type Sender[T any] struct {
	in     *inbox[T]
	closed atomic.Bool
}

// Receiver is the single consuming half of an inbox.
type Receiver[T any] struct {
	in *inbox[T]
}

// NewInbox creates an inbox and returns its first sender and its receiver.
// A limit <= 0 gives an unbounded inbox.
func NewInbox[T any](limit int) (*Sender[T], *Receiver[T]) {
	in := &inbox[T]{
		limit:   limit,
		senders: 1,
		ready:   make(chan struct{}, 1),
	}
	return &Sender[T]{in: in}, &Receiver[T]{in: in}
}

// arm wakes the receiver without blocking. Caller holds mu.
func (in *inbox[T]) arm() {
	select {
	case in.ready <- struct{}{}:
	default:
	}
}

func (in *inbox[T]) size() int {
	return len(in.queue) - in.head
}

// Send enqueues v. It never blocks.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return ErrClosed
	}
	in := s.in
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.recvClosed {
		return ErrDisconnected
	}
	if in.limit > 0 && in.size() >= in.limit {
		return ErrFull
	}
	in.queue = append(in.queue, v)
	in.arm()
	return nil
}

// Clone returns a new, independently closable sender for the same inbox.
// Cloning a closed sender still yields a live clone.
func (s *Sender[T]) Clone() *Sender[T] {
	s.in.mu.Lock()
	s.in.senders++
	s.in.mu.Unlock()
	return &Sender[T]{in: s.in}
}

// Close releases this clone. Only the first call has an effect.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	in := s.in
	in.mu.Lock()
	in.senders--
	if in.senders == 0 {
		// let a waiting receiver observe the disconnect
		in.arm()
	}
	in.mu.Unlock()
}

// Ready returns a channel that receives whenever TryRecv may succeed or
// report a disconnect. Spurious wake-ups are possible.
func (r *Receiver[T]) Ready() <-chan struct{} {
	return r.in.ready
}

// TryRecv pops the oldest item without blocking.
func (r *Receiver[T]) TryRecv() (T, error) {
	var zero T
	in := r.in
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.recvClosed {
		return zero, ErrDisconnected
	}
	if in.size() == 0 {
		if in.senders == 0 {
			return zero, ErrDisconnected
		}
		return zero, ErrEmpty
	}
	v := in.queue[in.head]
	in.queue[in.head] = zero
	in.head++
	switch {
	case in.head == len(in.queue):
		in.queue = in.queue[:0]
		in.head = 0
	case in.head > len(in.queue)/2:
		n := copy(in.queue, in.queue[in.head:])
		clear(in.queue[n:])
		in.queue = in.queue[:n]
		in.head = 0
	}
	if in.size() > 0 {
		in.arm()
	}
	return v, nil
}

// Recv blocks until an item is available, every sender is closed, or ctx is
// done.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, err := r.TryRecv()
		if !errors.Is(err, ErrEmpty) {
			return v, err
		}
		select {
		case <-r.in.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len reports the number of queued items.
func (r *Receiver[T]) Len() int {
	r.in.mu.Lock()
	defer r.in.mu.Unlock()
	return r.in.size()
}

// Close drops the receiving half. Subsequent sends fail with
// ErrDisconnected. The items still queued are returned so the owner can
// answer them.
func (r *Receiver[T]) Close() []T {
	in := r.in
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.recvClosed {
		return nil
	}
	in.recvClosed = true
	left := make([]T, in.size())
	copy(left, in.queue[in.head:])
	in.queue = nil
	in.head = 0
	return left
}
