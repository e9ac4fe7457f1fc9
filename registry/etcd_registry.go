// EtcdRegistry publishes service instances to etcd so that other processes
// (dashboards, operators, a future cross-process router) can see which
// workers are alive.
//
//	Key:   /mini-lpc/{ServiceName}/{ID}
//	Value: JSON-encoded ServiceInstance
//
// Each key is attached to its own TTL lease that is kept alive in the
// background. If the process dies the lease expires and the entry goes away.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const keyPrefix = "/mini-lpc/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID // key → lease, so Deregister can revoke it
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string, logger *zap.Logger) (*EtcdRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
		Logger:      logger.Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect etcd: %w", err)
	}
	return &EtcdRegistry{
		client: c,
		logger: logger,
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

func instanceKey(serviceName, id string) string {
	return servicePrefix(serviceName) + id
}

func servicePrefix(serviceName string) string {
	return keyPrefix + serviceName + "/"
}

// Register grants a lease, puts the instance under it and keeps the lease
// alive until Deregister or Close.
func (r *EtcdRegistry) Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error {
	if err := validate(serviceName, instance); err != nil {
		return err
	}
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}

	val, err := json.Marshal(instance)
	if err != nil {
		r.revoke(lease.ID)
		return err
	}

	key := instanceKey(serviceName, instance.ID)
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		r.revoke(lease.ID)
		return fmt.Errorf("put %s: %w", key, err)
	}

	// KeepAlive must outlive the caller's ctx
	ch, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		r.revoke(lease.ID)
		return fmt.Errorf("keep alive %s: %w", key, err)
	}
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keep-alive ended", zap.String("key", key))
	}()

	r.mu.Lock()
	old, replaced := r.leases[key]
	r.leases[key] = lease.ID
	r.mu.Unlock()

	// the key now hangs off the new lease; the old one only holds nothing
	if replaced && old != lease.ID {
		r.revoke(old)
	}
	return nil
}

// revoke drops a lease this registry no longer needs. Revoking also stops its
// keep-alive stream.
func (r *EtcdRegistry) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.client.Revoke(ctx, id); err != nil {
		r.logger.Warn("revoke lease failed", zap.Int64("lease", int64(id)), zap.Error(err))
	}
}

// leaseOf reports the lease currently held for a key.
func (r *EtcdRegistry) leaseOf(serviceName, id string) (clientv3.LeaseID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[instanceKey(serviceName, id)]
	return l, ok
}

// Deregister removes the instance and revokes its lease.
func (r *EtcdRegistry) Deregister(ctx context.Context, serviceName string, id string) error {
	key := instanceKey(serviceName, id)

	r.mu.Lock()
	leaseID, ok := r.leases[key]
	delete(r.leases, key)
	r.mu.Unlock()

	if ok {
		// revoking also deletes every key attached to the lease
		if _, err := r.client.Revoke(ctx, leaseID); err == nil {
			return nil
		}
	}
	if _, err := r.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Discover returns all currently registered instances for a service.
func (r *EtcdRegistry) Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error) {
	resp, err := r.client.Get(ctx, servicePrefix(serviceName), clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", serviceName, err)
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn("skipping malformed instance", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Watch re-reads the instance list on every change under the service prefix.
func (r *EtcdRegistry) Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, servicePrefix(serviceName), clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(ctx, serviceName)
			if err != nil {
				r.logger.Warn("watch refresh failed", zap.String("service", serviceName), zap.Error(err))
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Close stops every keep-alive and closes the etcd client. Registered
// entries expire with their leases.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
