package timeserie

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

func launch(device uint32, startNs, durationNs uint64, occ float64) types.AnnotatedKernelLaunch {
	e := types.AnnotatedKernelLaunch{
		KernelLaunchEvent: types.KernelLaunchEvent{
			Pid:         11,
			DeviceId:    device,
			TimestampNs: startNs,
			DurationNs:  durationNs,
		},
		Occupancy: occ,
		Known:     occ >= 0,
	}
	copy(e.Comm[:], "bench")
	return e
}

func tokens(b *types.Batch) []types.OccupancyToken {
	var out []types.OccupancyToken
	for _, ev := range b.Batch {
		out = append(out, *ev.Token)
	}
	return out
}

func TestLaunchToTokens(t *testing.T) {
	begin, end := LaunchToTokens(launch(2, 1000, 500, 0.625))
	require.NotNil(t, begin)
	assert.Equal(t, types.OccupancyToken{Device: 2, Timestamp: 1000, Value: 0.625}, *begin)
	assert.Equal(t, types.OccupancyToken{Device: 2, Timestamp: 1500, Value: 0}, *end)

	begin, end = LaunchToTokens(launch(2, 1000, 500, occupancy.Unknown))
	assert.Nil(t, begin)
	assert.Nil(t, end)
}

func TestCollectorSkipsOverlappingLaunches(t *testing.T) {
	tc := NewTimeSeriesCollector(time.Second)

	tc.Update(launch(0, 1000, 500, 0.5))
	tc.Update(launch(0, 1200, 100, 0.25)) // starts inside the previous kernel
	tc.Update(launch(0, 1500, 100, 1.0))  // starts exactly at the previous end
	tc.Update(launch(1, 1200, 100, 0.75)) // other device, independent track
	tc.Update(launch(0, 1700, 100, occupancy.Unknown))
	tc.Update(42)

	batch := tc.Flush()
	require.NotNil(t, batch)
	assert.Equal(t, types.BATCH_OCCUPANCY_SERIES, batch.Type)
	assert.Equal(t, []types.OccupancyToken{
		{Device: 0, Timestamp: 1000, Value: 0.5},
		{Device: 0, Timestamp: 1500, Value: 0},
		{Device: 0, Timestamp: 1500, Value: 1.0},
		{Device: 0, Timestamp: 1600, Value: 0},
		{Device: 1, Timestamp: 1200, Value: 0.75},
		{Device: 1, Timestamp: 1300, Value: 0},
	}, tokens(batch))

	for _, ev := range batch.Batch {
		assert.EqualValues(t, 11, ev.Pid)
		assert.Equal(t, "bench", ev.Comm)
		assert.Equal(t, types.EVENT_TYPE_TOKEN, ev.EventType)
	}
}

func TestFlushDrains(t *testing.T) {
	tc := NewTimeSeriesCollector(time.Second)
	require.Nil(t, tc.Flush())

	tc.Update(launch(0, 10, 10, 0.5))
	require.NotNil(t, tc.Flush())
	require.Nil(t, tc.Flush())

	// Overlap tracking survives a flush.
	tc.Update(launch(0, 15, 10, 0.5))
	require.Nil(t, tc.Flush())
}

func TestRunFlushesPeriodically(t *testing.T) {
	tc := NewTimeSeriesCollector(10 * time.Millisecond)
	tc.Update(launch(3, 100, 50, 0.375))

	ctx, cancel := context.WithCancel(context.Background())
	out := tc.Run(ctx)

	select {
	case batch := <-out:
		require.Len(t, batch.Batch, 2)
		assert.EqualValues(t, 3, batch.Batch[0].Token.Device)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch emitted")
	}

	cancel()
	for range out {
	}
}

func TestRunEmitsBufferedTokensOnCancel(t *testing.T) {
	tc := NewTimeSeriesCollector(time.Hour)
	tc.Update(launch(1, 500, 100, 0.5))

	ctx, cancel := context.WithCancel(context.Background())
	out := tc.Run(ctx)
	cancel()

	var got []types.OccupancyToken
	for batch := range out {
		got = append(got, tokens(batch)...)
	}
	assert.Equal(t, []types.OccupancyToken{
		{Device: 1, Timestamp: 500, Value: 0.5},
		{Device: 1, Timestamp: 600, Value: 0},
	}, got)
	assert.Nil(t, tc.Flush())
}
