package service

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mini-lpc/registry"
)

const (
	defaultTTL             = 10 // seconds
	defaultRegistryTimeout = 5 * time.Second
)

var instanceSeq atomic.Uint64

// Option configures a Worker.
type Option func(*options)

type options struct {
	id              string
	version         string
	weight          int
	logger          *zap.Logger
	registry        registry.Registry
	ttl             int64
	registryTimeout time.Duration
	inboxLimit      int
}

func newOptions(name string, opts []Option) options {
	o := options{
		weight:          1,
		logger:          zap.NewNop(),
		ttl:             defaultTTL,
		registryTimeout: defaultRegistryTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = fmt.Sprintf("%s-%d", name, instanceSeq.Add(1))
	}
	return o
}

// WithID sets the instance ID. Defaults to "{name}-{n}".
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

func WithVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// WithWeight sets the load balancing weight published to the registry.
func WithWeight(weight int) Option {
	return func(o *options) { o.weight = weight }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry registers the worker on Start and deregisters it when the
// loop exits.
func WithRegistry(reg registry.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithTTL sets the registration lease in seconds.
func WithTTL(ttl int64) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithRegistryTimeout bounds each Register/Deregister call.
func WithRegistryTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.registryTimeout = d
		}
	}
}

// WithInboxLimit bounds the inbox. Calls beyond the limit fail with
// channel.ErrFull instead of queueing. The default is unbounded.
func WithInboxLimit(n int) Option {
	return func(o *options) { o.inboxLimit = n }
}
