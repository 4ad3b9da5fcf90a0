package occupancy

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateKeepsOrdinalOrder(t *testing.T) {
	src := newFakeSource(a100(), t4(), rtx3090())
	cache := NewDeviceCache(src)

	require.NoError(t, cache.Populate())
	require.Equal(t, 3, cache.Len())
	require.Equal(t, []int{0, 1, 2}, src.queried)

	for i, name := range []string{"NVIDIA A100-SXM4-40GB", "Tesla T4", "NVIDIA GeForce RTX 3090"} {
		prop, ok := cache.Device(uint32(i))
		require.True(t, ok)
		assert.Equal(t, name, prop.Name)
		assert.Equal(t, i, prop.Ordinal)
	}

	_, ok := cache.Device(3)
	assert.False(t, ok)
}

func TestPopulateEnumerationFailure(t *testing.T) {
	t.Run("count error", func(t *testing.T) {
		src := newFakeSource(a100())
		src.countErr = errors.New("driver not loaded")
		cache := NewDeviceCache(src)

		require.Error(t, cache.Populate())
		require.Zero(t, cache.Len())
		require.Empty(t, src.queried)
	})

	t.Run("zero devices", func(t *testing.T) {
		cache := NewDeviceCache(newFakeSource())
		require.ErrorIs(t, cache.Populate(), ErrNoDevices)
		require.Zero(t, cache.Len())
	})

	t.Run("negative count", func(t *testing.T) {
		src := newFakeSource()
		src.count = -1
		cache := NewDeviceCache(src)
		require.ErrorIs(t, cache.Populate(), ErrNoDevices)
		require.Zero(t, cache.Len())
	})

	t.Run("nil source", func(t *testing.T) {
		cache := NewDeviceCache(nil)
		require.Error(t, cache.Populate())
		require.Zero(t, cache.Len())
	})
}

func TestPopulateIsAllOrNothing(t *testing.T) {
	src := newFakeSource(a100(), t4(), rtx3090())
	src.failAt = 1
	cache := NewDeviceCache(src)

	require.Error(t, cache.Populate())
	require.Zero(t, cache.Len())
	// Stops at the first failing device.
	require.Equal(t, []int{0, 1}, src.queried)

	_, ok := cache.Device(0)
	require.False(t, ok)
}

func TestFailedRefreshEmptiesCache(t *testing.T) {
	src := newFakeSource(a100(), t4())
	cache := NewDeviceCache(src)
	require.NoError(t, cache.Populate())
	require.Equal(t, 2, cache.Len())

	src.failAt = 1
	require.Error(t, cache.Populate())
	require.Zero(t, cache.Len())

	src.failAt = -1
	require.NoError(t, cache.Populate())
	require.Equal(t, 2, cache.Len())
}

func TestDevicesReturnsCopy(t *testing.T) {
	cache := NewDeviceCache(newFakeSource(a100()))
	require.NoError(t, cache.Populate())

	devs := cache.Devices()
	devs[0].Name = "mutated"

	prop, ok := cache.Device(0)
	require.True(t, ok)
	require.Equal(t, "NVIDIA A100-SXM4-40GB", prop.Name)
}

func TestConcurrentReadersDuringRefresh(t *testing.T) {
	cache := NewDeviceCache(newFakeSource(a100(), t4()))
	require.NoError(t, cache.Populate())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				n := cache.Len()
				assert.True(t, n == 0 || n == 2, "partial table of %d devices", n)
				cache.Device(1)
			}
		}()
	}
	for j := 0; j < 20; j++ {
		require.NoError(t, cache.Populate())
	}
	wg.Wait()
}
