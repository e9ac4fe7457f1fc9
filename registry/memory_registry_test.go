package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegisterAndDiscover(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	inst1 := ServiceInstance{ID: "adder-1", Weight: 10, Version: "1.0"}
	inst2 := ServiceInstance{ID: "adder-2", Weight: 5, Version: "1.0"}
	require.NoError(t, reg.Register(ctx, "Adder", inst2, 10))
	require.NoError(t, reg.Register(ctx, "Adder", inst1, 10))

	instances, err := reg.Discover(ctx, "Adder")
	require.NoError(t, err)
	assert.Equal(t, []ServiceInstance{inst1, inst2}, instances)

	require.NoError(t, reg.Deregister(ctx, "Adder", inst1.ID))
	require.NoError(t, reg.Deregister(ctx, "Adder", "missing"))

	instances, err = reg.Discover(ctx, "Adder")
	require.NoError(t, err)
	assert.Equal(t, []ServiceInstance{inst2}, instances)

	instances, err = reg.Discover(ctx, "Unknown")
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestMemoryRegisterInvalid(t *testing.T) {
	reg := NewMemoryRegistry()
	assert.ErrorIs(t, reg.Register(context.Background(), "", ServiceInstance{ID: "x"}, 10), ErrInvalidInstance)
	assert.ErrorIs(t, reg.Register(context.Background(), "Adder", ServiceInstance{}, 10), ErrInvalidInstance)
}

func TestMemoryWatch(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx, cancel := context.WithCancel(context.Background())

	ch := reg.Watch(ctx, "Adder")
	assert.Empty(t, <-ch)

	require.NoError(t, reg.Register(context.Background(), "Adder", ServiceInstance{ID: "adder-1"}, 10))
	select {
	case instances := <-ch:
		require.Len(t, instances, 1)
		assert.Equal(t, "adder-1", instances[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no update after Register")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
