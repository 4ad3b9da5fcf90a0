package timeserie

import (
	"sort"
	"sync"
	"time"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

// TimeSeriesCollector builds a per device occupancy counter track.
// Overlapping kernels on one device are collapsed: a launch starting before
// the previous emitted launch ended is dropped.
type TimeSeriesCollector struct {
	mu            sync.Mutex
	buffers       map[uint32][]*types.GpuEvent
	lastEnd       map[uint32]int64
	flushInterval time.Duration
}

func NewTimeSeriesCollector(flushInterval time.Duration) *TimeSeriesCollector {
	return &TimeSeriesCollector{
		buffers:       make(map[uint32][]*types.GpuEvent),
		lastEnd:       make(map[uint32]int64),
		flushInterval: flushInterval,
	}
}

func (tc *TimeSeriesCollector) Update(ev any) {
	e, ok := ev.(types.AnnotatedKernelLaunch)
	if !ok {
		return
	}
	begin, end := LaunchToTokens(e)
	if begin == nil {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if last, seen := tc.lastEnd[e.DeviceId]; seen && begin.Timestamp < last {
		return
	}
	tc.lastEnd[e.DeviceId] = end.Timestamp

	comm := e.CommString()
	for _, tk := range []*types.OccupancyToken{begin, end} {
		tc.buffers[e.DeviceId] = append(tc.buffers[e.DeviceId], &types.GpuEvent{
			Pid:       e.Pid,
			Comm:      comm,
			EventType: types.EVENT_TYPE_TOKEN,
			Token:     tk,
		})
	}
}

// Flush drains the buffered tokens, ordered by device. It returns nil when
// nothing is buffered.
func (tc *TimeSeriesCollector) Flush() *types.Batch {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if len(tc.buffers) == 0 {
		return nil
	}

	devices := make([]uint32, 0, len(tc.buffers))
	for d := range tc.buffers {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i] < devices[j] })

	var events []*types.GpuEvent
	for _, d := range devices {
		events = append(events, tc.buffers[d]...)
	}
	tc.buffers = make(map[uint32][]*types.GpuEvent)

	return &types.Batch{Batch: events, Type: types.BATCH_OCCUPANCY_SERIES}
}
