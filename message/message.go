// Package message defines what travels through a worker's inbox.
//
// Envelope is the "call" for every request: the request value plus the
// send-only half of a reply channel created fresh for that one call. The
// worker answers on Reply exactly once.
package message

// Envelope carries a single call into a worker's inbox.
//
//   - Request: the typed request value, owned by the worker once dequeued.
//   - Reply:   where the one and only Reply for this call goes.
type Envelope[Req, Resp any] struct {
	Request Req
	Reply   chan<- Reply[Resp]
}

// Reply is the single answer to an Envelope. Err is non-nil if the call
// failed, in which case Response is the zero value.
type Reply[Resp any] struct {
	Response Resp
	Err      error
}

// NewReplyChannel creates the reply channel for one call.
//
// It holds one slot so the worker never blocks on a caller that already gave
// up waiting.
func NewReplyChannel[Resp any]() chan Reply[Resp] {
	return make(chan Reply[Resp], 1)
}

// New builds an envelope around req and returns it with the receiving half of
// its reply channel.
func New[Req, Resp any](req Req) (Envelope[Req, Resp], <-chan Reply[Resp]) {
	ch := NewReplyChannel[Resp]()
	return Envelope[Req, Resp]{Request: req, Reply: ch}, ch
}

// Answer delivers r without blocking. It reports false when the slot is
// already taken, i.e. the envelope was answered twice.
func (e Envelope[Req, Resp]) Answer(r Reply[Resp]) bool {
	select {
	case e.Reply <- r:
		return true
	default:
		return false
	}
}
