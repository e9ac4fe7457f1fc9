package channel

import (
	"context"
	"sync"
)

// Signal is a zero-payload, zero-capacity rendezvous. Send blocks until the
// receiving side takes the signal from C, or fails once the receiving side
// has been closed.
type Signal struct {
	c         chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewSignal() *Signal {
	return &Signal{
		c:    make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Send hands one signal to the receiver.
func (s *Signal) Send() error {
	return s.SendContext(context.Background())
}

// SendContext is Send with a bound on how long to wait for the receiver.
func (s *Signal) SendContext(ctx context.Context) error {
	// a closed receiver wins over a pending rendezvous
	select {
	case <-s.done:
		return ErrDisconnected
	default:
	}
	select {
	case s.c <- struct{}{}:
		return nil
	case <-s.done:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the receiving half.
func (s *Signal) C() <-chan struct{} {
	return s.c
}

// Close drops the receiving half. Pending and future sends fail with
// ErrDisconnected.
func (s *Signal) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
