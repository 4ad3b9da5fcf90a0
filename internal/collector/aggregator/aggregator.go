package aggregator

import (
	"sort"
	"sync"
	"time"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

const DefaultLowOccupancyThreshold = 0.5

type GPUAggregator struct {
	windows        map[windowKey]*OccupancyFingerprint
	mu             sync.Mutex
	windowDuration time.Duration
	lowThreshold   float64
	now            func() time.Time
}

// NewGPUAggregator groups launches into per process, per device windows.
// A window whose average occupancy falls below lowThreshold is flagged.
func NewGPUAggregator(window time.Duration, lowThreshold float64) *GPUAggregator {
	if lowThreshold <= 0 {
		lowThreshold = DefaultLowOccupancyThreshold
	}
	return &GPUAggregator{
		windows:        make(map[windowKey]*OccupancyFingerprint),
		windowDuration: window,
		lowThreshold:   lowThreshold,
		now:            time.Now,
	}
}

func (ga *GPUAggregator) ensureWindow(e types.AnnotatedKernelLaunch) *OccupancyFingerprint {
	key := windowKey{pid: e.Pid, device: e.DeviceId}
	win, ok := ga.windows[key]
	if !ok {
		now := ga.now()
		win = &OccupancyFingerprint{
			PID:         e.Pid,
			Comm:        e.CommString(),
			Device:      e.DeviceId,
			WindowStart: now,
			WindowEnd:   now.Add(ga.windowDuration),
		}
		ga.windows[key] = win
	}
	return win
}

func (ga *GPUAggregator) Update(ev any) {
	e, ok := ev.(types.AnnotatedKernelLaunch)
	if !ok {
		return
	}

	ga.mu.Lock()
	defer ga.mu.Unlock()
	ga.ensureWindow(e).add(e)
}

// Flush emits the windows that have ended and forgets them. It returns nil
// when nothing is due.
func (ga *GPUAggregator) Flush() *types.Batch {
	return ga.flush(false)
}

// FlushAll emits every open window, closing unfinished ones at the current
// time.
func (ga *GPUAggregator) FlushAll() *types.Batch {
	return ga.flush(true)
}

func (ga *GPUAggregator) flush(all bool) *types.Batch {
	ga.mu.Lock()
	defer ga.mu.Unlock()

	now := ga.now()
	var due []windowKey
	for key, w := range ga.windows {
		if now.After(w.WindowEnd) {
			due = append(due, key)
		} else if all {
			w.WindowEnd = now
			due = append(due, key)
		}
	}
	if len(due) == 0 {
		return nil
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].pid != due[j].pid {
			return due[i].pid < due[j].pid
		}
		return due[i].device < due[j].device
	})

	events := make([]*types.GpuEvent, 0, len(due))
	for _, key := range due {
		w := ga.windows[key]
		delete(ga.windows, key)

		avg := w.AvgOccupancy()
		ow := &types.OccupancyWindow{
			Device:             w.Device,
			WindowStartNs:      w.WindowStart.UnixNano(),
			WindowEndNs:        w.WindowEnd.UnixNano(),
			KernelLaunchCount:  w.KernelLaunchCount,
			UnknownCount:       w.UnknownCount,
			AvgOccupancy:       avg,
			MinOccupancy:       w.MinOccupancy,
			MaxOccupancy:       w.MaxOccupancy,
			AvgThreadsPerBlock: w.AvgThreadsPerBlock,
			DominantLimiter:    w.DominantLimiter(),
		}
		if avg > 0 && avg < ga.lowThreshold {
			ow.LowOccupancy = true
			ow.Recommendation = recommendation(ow.DominantLimiter)
		}

		events = append(events, &types.GpuEvent{
			Pid:       w.PID,
			Comm:      w.Comm,
			EventType: types.EVENT_TYPE_WINDOW,
			Window:    ow,
		})
	}

	return &types.Batch{Type: types.BATCH_OCCUPANCY_WINDOW, Batch: events}
}
