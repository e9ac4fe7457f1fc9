// Package loadbalance picks which replica of a service handles a call.
//
// Three strategies are implemented:
//   - RoundRobin:      stateless services, equal-capacity replicas
//   - WeightedRandom:  replicas with different weights
//   - ConsistentHash:  stateful services; the same key always reaches the
//     same replica, so that replica alone owns the key's state
package loadbalance

import (
	"errors"

	"mini-lpc/registry"
)

var ErrNoInstances = errors.New("no instances available")

// Balancer is the interface for load balancing strategies.
type Balancer interface {
	// Pick selects one instance from the available list. key is the
	// routing key of the call; strategies without affinity ignore it.
	// Must be goroutine-safe.
	Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}
