package loadbalance

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-lpc/registry"
)

var testInstances = []registry.ServiceInstance{
	{ID: "adder-1", Weight: 10, Version: "1.0"},
	{ID: "adder-2", Weight: 5, Version: "1.0"},
	{ID: "adder-3", Weight: 10, Version: "1.0"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		inst, err := b.Pick("", testInstances)
		require.NoError(t, err)
		results[i] = inst.ID
	}
	assert.Equal(t, []string{"adder-1", "adder-2", "adder-3"}, results)

	// wraps around
	inst, err := b.Pick("", testInstances)
	require.NoError(t, err)
	assert.Equal(t, results[0], inst.ID)
}

func TestEmpty(t *testing.T) {
	for _, b := range []Balancer{&RoundRobinBalancer{}, &WeightedRandomBalancer{}, NewConsistentHashBalancer()} {
		_, err := b.Pick("k", nil)
		assert.ErrorIs(t, err, ErrNoInstances, b.Name())
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		inst, err := b.Pick("", testInstances)
		require.NoError(t, err)
		counts[inst.ID]++
	}

	// 10:5:10, so adder-1 should be picked about twice as often as adder-2
	ratio := float64(counts["adder-1"]) / float64(counts["adder-2"])
	assert.InDelta(t, 2.0, ratio, 0.5)
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	inst, err := b.Pick("", []registry.ServiceInstance{{ID: "only"}})
	require.NoError(t, err)
	assert.Equal(t, "only", inst.ID)
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer()

	inst1, err := b.Pick("user-123", testInstances)
	require.NoError(t, err)
	inst2, err := b.Pick("user-123", testInstances)
	require.NoError(t, err)
	assert.Equal(t, inst1.ID, inst2.ID)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		inst, err := b.Pick(fmt.Sprintf("key-%d", i), testInstances)
		require.NoError(t, err)
		seen[inst.ID] = true
	}
	assert.GreaterOrEqual(t, len(seen), 2)
}

func TestConsistentHashStableAcrossOrder(t *testing.T) {
	b := NewConsistentHashBalancer()
	reversed := []registry.ServiceInstance{testInstances[2], testInstances[1], testInstances[0]}

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		a, err := b.Pick(key, testInstances)
		require.NoError(t, err)
		c, err := b.Pick(key, reversed)
		require.NoError(t, err)
		assert.Equal(t, a.ID, c.ID, key)
	}
}

func TestConsistentHashMinimalRemap(t *testing.T) {
	b := NewConsistentHashBalancer()
	before := map[string]string{}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		inst, err := b.Pick(key, testInstances)
		require.NoError(t, err)
		before[key] = inst.ID
	}

	// dropping adder-2 only moves the keys adder-2 owned
	remaining := []registry.ServiceInstance{testInstances[0], testInstances[2]}
	for key, id := range before {
		inst, err := b.Pick(key, remaining)
		require.NoError(t, err)
		if id != "adder-2" {
			assert.Equal(t, id, inst.ID, key)
		}
	}
}

func TestConsistentHashConcurrent(t *testing.T) {
	b := NewConsistentHashBalancer()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			set := testInstances
			if g%2 == 1 {
				set = testInstances[:2]
			}
			for i := 0; i < 100; i++ {
				if _, err := b.Pick(fmt.Sprintf("k-%d", i), set); err != nil {
					t.Errorf("pick: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()
}
