package registry

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// etcdEndpoints skips the test unless MINI_LPC_ETCD_ENDPOINTS points at a
// running etcd, e.g. "localhost:2379".
func etcdEndpoints(t *testing.T) []string {
	t.Helper()
	v := os.Getenv("MINI_LPC_ETCD_ENDPOINTS")
	if v == "" {
		t.Skip("MINI_LPC_ETCD_ENDPOINTS not set")
	}
	return strings.Split(v, ",")
}

func TestEtcdRegisterAndDiscover(t *testing.T) {
	reg, err := NewEtcdRegistry(etcdEndpoints(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inst1 := ServiceInstance{ID: "adder-1", Weight: 10, Version: "1.0"}
	inst2 := ServiceInstance{ID: "adder-2", Weight: 5, Version: "1.0"}
	require.NoError(t, reg.Register(ctx, "Adder", inst1, 10))
	require.NoError(t, reg.Register(ctx, "Adder", inst2, 10))

	instances, err := reg.Discover(ctx, "Adder")
	require.NoError(t, err)
	assert.Equal(t, []ServiceInstance{inst1, inst2}, instances)

	require.NoError(t, reg.Deregister(ctx, "Adder", inst1.ID))

	instances, err = reg.Discover(ctx, "Adder")
	require.NoError(t, err)
	assert.Equal(t, []ServiceInstance{inst2}, instances)

	require.NoError(t, reg.Deregister(ctx, "Adder", inst2.ID))
}

func TestEtcdWatch(t *testing.T) {
	reg, err := NewEtcdRegistry(etcdEndpoints(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch := reg.Watch(ctx, "Watched")
	// give the watch time to be established
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, reg.Register(ctx, "Watched", ServiceInstance{ID: "w-1"}, 10))
	select {
	case instances := <-ch:
		require.Len(t, instances, 1)
		assert.Equal(t, "w-1", instances[0].ID)
	case <-ctx.Done():
		t.Fatal("no watch update")
	}

	require.NoError(t, reg.Deregister(ctx, "Watched", "w-1"))
}

func TestEtcdReRegisterRevokesOldLease(t *testing.T) {
	reg, err := NewEtcdRegistry(etcdEndpoints(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inst := ServiceInstance{ID: "re-1", Weight: 1}
	require.NoError(t, reg.Register(ctx, "Again", inst, 10))
	first, ok := reg.leaseOf("Again", inst.ID)
	require.True(t, ok)

	inst.Version = "2.0"
	require.NoError(t, reg.Register(ctx, "Again", inst, 10))
	second, ok := reg.leaseOf("Again", inst.ID)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	// a revoked lease reports TTL -1
	ttl, err := reg.client.TimeToLive(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), ttl.TTL)

	instances, err := reg.Discover(ctx, "Again")
	require.NoError(t, err)
	assert.Equal(t, []ServiceInstance{inst}, instances)

	require.NoError(t, reg.Deregister(ctx, "Again", inst.ID))
	ttl, err = reg.client.TimeToLive(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), ttl.TTL)
}
