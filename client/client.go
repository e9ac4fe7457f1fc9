// Package client routes calls for a named service across several running
// replicas of it.
//
//	Call(name, key, req) → Registry.Discover(name) → Balancer.Pick(key) → Handle → worker
//
// Only replicas bound with Bind are eligible: the registry says which
// instances exist, the bound handles say which ones this process can reach.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mini-lpc/loadbalance"
	"mini-lpc/registry"
	"mini-lpc/service"
)

var ErrNoInstances = errors.New("no reachable instances")

// Option configures a Client.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type Client[Req, Resp any] struct {
	registry registry.Registry
	balancer loadbalance.Balancer
	logger   *zap.Logger

	mu      sync.RWMutex
	handles map[string]*service.Handle[Req, Resp] // instance ID → handle
}

func NewClient[Req, Resp any](reg registry.Registry, bal loadbalance.Balancer, opts ...Option) *Client[Req, Resp] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if bal == nil {
		bal = &loadbalance.RoundRobinBalancer{}
	}
	return &Client[Req, Resp]{
		registry: reg,
		balancer: bal,
		logger:   o.logger,
		handles:  make(map[string]*service.Handle[Req, Resp]),
	}
}

// Bind makes the instance with the given ID reachable through h. The client
// takes ownership of h; a previous handle for id is closed.
func (c *Client[Req, Resp]) Bind(id string, h *service.Handle[Req, Resp]) {
	c.mu.Lock()
	old := c.handles[id]
	c.handles[id] = h
	c.mu.Unlock()
	if old != nil && old != h {
		old.Close()
	}
}

// Unbind closes and forgets the handle for id.
func (c *Client[Req, Resp]) Unbind(id string) {
	c.mu.Lock()
	h := c.handles[id]
	delete(c.handles, id)
	c.mu.Unlock()
	if h != nil {
		h.Close()
	}
}

// Call discovers the replicas of serviceName, picks one for key and calls it.
func (c *Client[Req, Resp]) Call(ctx context.Context, serviceName, key string, req Req) (Resp, error) {
	var zero Resp

	instances, err := c.registry.Discover(ctx, serviceName)
	if err != nil {
		return zero, err
	}

	c.mu.RLock()
	reachable := make([]registry.ServiceInstance, 0, len(instances))
	for _, inst := range instances {
		if _, ok := c.handles[inst.ID]; ok {
			reachable = append(reachable, inst)
		}
	}
	c.mu.RUnlock()
	if len(reachable) == 0 {
		return zero, fmt.Errorf("%w for %s", ErrNoInstances, serviceName)
	}

	instance, err := c.balancer.Pick(key, reachable)
	if err != nil {
		return zero, err
	}

	c.mu.RLock()
	h := c.handles[instance.ID]
	c.mu.RUnlock()
	if h == nil {
		// unbound between the filter and the pick
		return zero, fmt.Errorf("%w for %s", ErrNoInstances, serviceName)
	}

	c.logger.Debug("routing call",
		zap.String("service", serviceName),
		zap.String("instance", instance.ID),
		zap.String("balancer", c.balancer.Name()))
	return service.CallContext(ctx, h, req)
}

// Close releases every bound handle.
func (c *Client[Req, Resp]) Close() {
	c.mu.Lock()
	handles := c.handles
	c.handles = make(map[string]*service.Handle[Req, Resp])
	c.mu.Unlock()
	for _, h := range handles {
		h.Close()
	}
}
