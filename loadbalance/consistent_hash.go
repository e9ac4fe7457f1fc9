package loadbalance

import (
	"fmt"
	"hash/crc32"
	"slices"
	"sort"
	"strings"
	"sync"

	"mini-lpc/registry"
)

const defaultReplicas = 100

// ConsistentHashBalancer maps keys to instances using a hash ring with
// virtual nodes. The ring is rebuilt only when the instance set changes.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	              ╲       ╱
//	                ╲   ╱
type ConsistentHashBalancer struct {
	replicas int // Virtual nodes per instance

	mu    sync.Mutex
	sig   string            // Instance IDs the current ring was built from
	ring  []uint32          // Sorted hash values on the ring
	nodes map[uint32]string // Hash value → instance ID
}

// NewConsistentHashBalancer creates a balancer with 100 virtual nodes per
// instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{replicas: defaultReplicas}
}

func (b *ConsistentHashBalancer) Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	b.mu.Lock()
	b.rebuild(instances)
	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	id := b.nodes[b.ring[idx]]
	b.mu.Unlock()

	for i := range instances {
		if instances[i].ID == id {
			return &instances[i], nil
		}
	}
	return nil, fmt.Errorf("consistent hash: instance %q vanished from ring", id)
}

// rebuild refreshes the ring if the instance set differs. Caller holds mu.
func (b *ConsistentHashBalancer) rebuild(instances []registry.ServiceInstance) {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	slices.Sort(ids)
	sig := strings.Join(ids, "\x00")
	if sig == b.sig && b.nodes != nil {
		return
	}

	b.sig = sig
	b.ring = make([]uint32, 0, len(ids)*b.replicas)
	b.nodes = make(map[uint32]string, len(ids)*b.replicas)
	for _, id := range ids {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", id, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = id
		}
	}
	slices.Sort(b.ring)
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
