package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mini-lpc/channel"
	"mini-lpc/message"
	"mini-lpc/middleware"
	"mini-lpc/registry"
)

// State is where a Worker is in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Worker is the reusable worker loop behind every concrete service. It owns
// the receiving halves of its inbox and quit signal; handler runs only on
// the worker goroutine.
type Worker[Req, Resp any] struct {
	name        string
	opts        options
	logger      *zap.Logger
	handler     middleware.HandlerFunc[Req, Resp]
	middlewares []middleware.Middleware[Req, Resp] // Applied in order, fixed at Start

	tx   *channel.Sender[message.Envelope[Req, Resp]] // Cloned into every Handle
	rx   *channel.Receiver[message.Envelope[Req, Resp]]
	quit *channel.Signal

	mu      sync.Mutex // Serializes Start against Use, Stop and Shutdown
	state   atomic.Int32
	ctx     context.Context // Passed to handler, canceled when the loop exits
	cancel  context.CancelFunc
	done    chan struct{}
	exitErr error // Set before done is closed
}

var _ Service[struct{}, struct{}] = (*Worker[struct{}, struct{}])(nil)

// NewWorker creates a worker for the service called name. handler computes
// the response for each request.
func NewWorker[Req, Resp any](name string, handler middleware.HandlerFunc[Req, Resp], opts ...Option) *Worker[Req, Resp] {
	o := newOptions(name, opts)
	tx, rx := channel.NewInbox[message.Envelope[Req, Resp]](o.inboxLimit)
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker[Req, Resp]{
		name:    name,
		opts:    o,
		logger:  o.logger.With(zap.String("service", name), zap.String("instance", o.id)),
		handler: handler,
		tx:      tx,
		rx:      rx,
		quit:    channel.NewSignal(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (w *Worker[Req, Resp]) Name() string { return w.name }

func (w *Worker[Req, Resp]) ID() string { return w.opts.id }

func (w *Worker[Req, Resp]) State() State { return State(w.state.Load()) }

// Pending reports how many calls are queued in the inbox.
func (w *Worker[Req, Resp]) Pending() int { return w.rx.Len() }

// Done is closed once the worker loop has exited and queued calls have been
// answered.
func (w *Worker[Req, Resp]) Done() <-chan struct{} { return w.done }

// Use registers middlewares around the handler. It has no effect once the
// worker is started.
func (w *Worker[Req, Resp]) Use(mws ...middleware.Middleware[Req, Resp]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.State() != StateIdle {
		w.logger.Warn("middleware registered after start ignored")
		return
	}
	w.middlewares = append(w.middlewares, mws...)
}

// Start registers the worker (when a registry is configured) and spawns the
// worker loop. A second Start returns ErrAlreadyStarted. The worker only
// becomes Running once registration has succeeded.
func (w *Worker[Req, Resp]) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.State() != StateIdle {
		return ErrAlreadyStarted
	}

	if reg := w.opts.registry; reg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.registryTimeout)
		err := reg.Register(ctx, w.name, w.instance(), w.opts.ttl)
		cancel()
		if err != nil {
			return fmt.Errorf("register %s: %w", w.opts.id, err)
		}
	}

	handler := middleware.Chain(w.middlewares...)(w.handler)
	w.state.Store(int32(StateRunning))
	go w.loop(handler)
	return nil
}

// started waits out a Start in progress and reports whether the loop was
// ever spawned.
func (w *Worker[Req, Resp]) started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.State() != StateIdle
}

// Stop hands the quit signal to the worker loop. It blocks until the loop
// takes the signal (after any request in progress), not until it exits.
// Stopping an exited worker fails with channel.ErrDisconnected.
func (w *Worker[Req, Resp]) Stop() error {
	if !w.started() {
		return ErrNotStarted
	}
	if err := w.quit.Send(); err != nil {
		return fmt.Errorf("stop %s: %w", w.opts.id, err)
	}
	return nil
}

// Shutdown stops the worker and waits for the loop to exit. Stopping an
// already stopped or never started worker is not an error.
func (w *Worker[Req, Resp]) Shutdown(ctx context.Context) error {
	if !w.started() {
		return nil
	}
	if err := w.quit.SendContext(ctx); err != nil && !errors.Is(err, channel.ErrDisconnected) {
		return fmt.Errorf("stop %s: %w", w.opts.id, err)
	}
	select {
	case <-w.done:
		return w.exitErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown %s: %w", w.opts.id, ctx.Err())
	}
}

// Sender returns a new handle to this worker's inbox.
func (w *Worker[Req, Resp]) Sender() *Handle[Req, Resp] {
	return &Handle[Req, Resp]{tx: w.tx.Clone()}
}

func (w *Worker[Req, Resp]) instance() registry.ServiceInstance {
	return registry.ServiceInstance{
		ID:      w.opts.id,
		Weight:  w.opts.weight,
		Version: w.opts.version,
	}
}

// loop waits on the inbox and the quit signal until quit arrives.
func (w *Worker[Req, Resp]) loop(handler middleware.HandlerFunc[Req, Resp]) {
	defer w.exit()
	w.logger.Info("worker started")

	for {
		select {
		case <-w.quit.C():
			w.logger.Info("quit signal received")
			return
		case <-w.rx.Ready():
			env, err := w.rx.TryRecv()
			if errors.Is(err, channel.ErrEmpty) {
				continue
			}
			if err != nil {
				w.logger.Info("inbox disconnected", zap.Error(err))
				return
			}
			w.process(handler, env)
		}
	}
}

func (w *Worker[Req, Resp]) process(handler middleware.HandlerFunc[Req, Resp], env message.Envelope[Req, Resp]) {
	resp, err := w.safeHandle(handler, env.Request)
	// the reply slot has room for one answer, so a caller that gave up never
	// blocks the loop
	env.Answer(message.Reply[Resp]{Response: resp, Err: err})
}

// safeHandle turns a handler panic into ErrWorkerPanicked for that one
// caller.
func (w *Worker[Req, Resp]) safeHandle(handler middleware.HandlerFunc[Req, Resp], req Req) (resp Resp, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			var zero Resp
			resp, err = zero, fmt.Errorf("%w: %v", ErrWorkerPanicked, r)
		}
	}()
	return handler(w.ctx, req)
}

// exit closes both receiving halves, answers whatever is still queued and
// deregisters the worker.
func (w *Worker[Req, Resp]) exit() {
	w.quit.Close()
	left := w.rx.Close()
	for _, env := range left {
		env.Answer(message.Reply[Resp]{Err: unavailable()})
	}
	if len(left) > 0 {
		w.logger.Warn("answered queued calls as unavailable", zap.Int("count", len(left)))
	}
	w.cancel()

	if reg := w.opts.registry; reg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.registryTimeout)
		if err := reg.Deregister(ctx, w.name, w.opts.id); err != nil {
			w.logger.Warn("deregister failed", zap.Error(err))
			w.exitErr = fmt.Errorf("deregister %s: %w", w.opts.id, err)
		}
		cancel()
	}

	w.state.Store(int32(StateStopped))
	w.logger.Info("worker stopped")
	close(w.done)
}

// Stopper is anything that can be shut down and waited for.
type Stopper interface {
	Shutdown(ctx context.Context) error
}

// ShutdownAll shuts down every stopper in order and combines their errors.
func ShutdownAll(ctx context.Context, stoppers ...Stopper) error {
	var err error
	for _, s := range stoppers {
		err = multierr.Append(err, s.Shutdown(ctx))
	}
	return err
}
