package loaders

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEYI17/InfraSight_occupancy/internal/devices"
	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

func sampleLaunch() types.KernelLaunchEvent {
	e := types.KernelLaunchEvent{
		Flag:               types.EVENT_GPU_KERNEL_LAUNCH,
		Pid:                4242,
		Tid:                4243,
		DeviceId:           0,
		RegistersPerThread: 32,
		Blockx:             256,
		Blocky:             1,
		Blockz:             1,
		Gridx:              1024,
		Gridy:              1,
		Gridz:              1,
		TimestampNs:        1_000_000,
		DurationNs:         50_000,
	}
	copy(e.Comm[:], "trainer")
	return e
}

func encode(t *testing.T, e types.KernelLaunchEvent) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, e))
	return buf.Bytes()
}

func a100Estimator(t *testing.T) *occupancy.Estimator {
	t.Helper()
	src, err := devices.NewStaticSource([]string{"8.0"})
	require.NoError(t, err)
	cache := occupancy.NewDeviceCache(src)
	require.NoError(t, cache.Populate())
	return occupancy.NewEstimator(cache)
}

func TestKernelLaunchEventLayout(t *testing.T) {
	require.Equal(t, 88, types.KernelLaunchEventSize)
}

func TestDecodeKernelLaunch(t *testing.T) {
	want := sampleLaunch()
	want.DynamicSharedMemory = 4096

	got, err := decodeKernelLaunch(encode(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "trainer", got.CommString())
	assert.EqualValues(t, 256, got.ThreadsPerBlock())
}

func TestDecodeKernelLaunchShortRecord(t *testing.T) {
	raw := encode(t, sampleLaunch())
	_, err := decodeKernelLaunch(raw[:40])
	require.ErrorIs(t, err, ErrShortRecord)
}

func TestAnnotate(t *testing.T) {
	est := a100Estimator(t)

	a := annotate(est, sampleLaunch())
	require.True(t, a.Known)
	assert.InDelta(t, 1.0, a.Occupancy, 1e-9)
	assert.Equal(t, 8, a.ActiveBlocks)
	assert.Contains(t, a.Limiter, "warps")
	assert.EqualValues(t, 4242, a.Pid)

	unknownDevice := sampleLaunch()
	unknownDevice.DeviceId = 3
	a = annotate(est, unknownDevice)
	assert.False(t, a.Known)
	assert.Equal(t, occupancy.Unknown, a.Occupancy)
	assert.Empty(t, a.Limiter)

	emptyBlock := sampleLaunch()
	emptyBlock.Blockz = 0
	a = annotate(est, emptyBlock)
	assert.False(t, a.Known)
	assert.Equal(t, occupancy.Unknown, a.Occupancy)
}
