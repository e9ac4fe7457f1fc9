package registry

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryRegistry is a Registry for instances living in this process. TTLs
// are ignored: an instance stays until it is deregistered.
type MemoryRegistry struct {
	mu        sync.RWMutex
	instances map[string]map[string]ServiceInstance // service name → ID → instance
	watchers  map[string][]chan []ServiceInstance
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		instances: make(map[string]map[string]ServiceInstance),
		watchers:  make(map[string][]chan []ServiceInstance),
	}
}

func (m *MemoryRegistry) Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error {
	if err := validate(serviceName, instance); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.instances[serviceName]
	if !ok {
		byID = make(map[string]ServiceInstance)
		m.instances[serviceName] = byID
	}
	byID[instance.ID] = instance
	m.notify(serviceName)
	return nil
}

func (m *MemoryRegistry) Deregister(ctx context.Context, serviceName string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.instances[serviceName]
	if _, ok := byID[id]; !ok {
		return nil
	}
	delete(byID, id)
	if len(byID) == 0 {
		delete(m.instances, serviceName)
	}
	m.notify(serviceName)
	return nil
}

// Discover returns the instances sorted by ID.
func (m *MemoryRegistry) Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(serviceName), nil
}

// Watch emits the current list immediately, then after every change. A slow
// reader only ever sees the latest list.
func (m *MemoryRegistry) Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)
	m.mu.Lock()
	m.watchers[serviceName] = append(m.watchers[serviceName], ch)
	ch <- m.snapshot(serviceName)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		m.watchers[serviceName] = slices.DeleteFunc(m.watchers[serviceName], func(c chan []ServiceInstance) bool {
			return c == ch
		})
		if len(m.watchers[serviceName]) == 0 {
			delete(m.watchers, serviceName)
		}
		close(ch)
	}()
	return ch
}

// snapshot copies the instance list. Caller holds mu.
func (m *MemoryRegistry) snapshot(serviceName string) []ServiceInstance {
	byID := m.instances[serviceName]
	instances := make([]ServiceInstance, 0, len(byID))
	for _, inst := range byID {
		instances = append(instances, inst)
	}
	slices.SortFunc(instances, func(a, b ServiceInstance) int {
		return strings.Compare(a.ID, b.ID)
	})
	return instances
}

// notify replaces whatever each watcher has not read yet. Caller holds mu.
func (m *MemoryRegistry) notify(serviceName string) {
	for _, ch := range m.watchers[serviceName] {
		select {
		case <-ch:
		default:
		}
		ch <- m.snapshot(serviceName)
	}
}
