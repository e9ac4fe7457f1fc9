// Package registry keeps a directory of running service instances, keyed by
// service name, so callers can discover which workers currently serve a
// name.
package registry

import (
	"context"
	"errors"
)

var ErrInvalidInstance = errors.New("registry: instance needs a service name and an ID")

type ServiceInstance struct {
	ID      string // Unique per running worker, e.g. "adder-3f2a"
	Weight  int    // Weight for load balancing
	Version string
}

type Registry interface {
	// Register announces instance under serviceName. ttl is in seconds; a
	// registry that supports expiry drops the entry if its owner stops
	// renewing it.
	Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(ctx context.Context, serviceName string, id string) error
	Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error)
	// Watch emits the full instance list after every change, until ctx is
	// done.
	Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance
}

func validate(serviceName string, instance ServiceInstance) error {
	if serviceName == "" || instance.ID == "" {
		return ErrInvalidInstance
	}
	return nil
}
