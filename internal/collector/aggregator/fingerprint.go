package aggregator

import (
	"sort"
	"time"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

type windowKey struct {
	pid    uint32
	device uint32
}

// OccupancyFingerprint accumulates the launches of one process on one
// device during a window.
type OccupancyFingerprint struct {
	PID         uint32
	Comm        string
	Device      uint32
	WindowStart time.Time
	WindowEnd   time.Time

	// Counts
	KernelLaunchCount uint64
	UnknownCount      uint64

	// Occupancy, known launches only
	weightedOccupancy float64
	totalWeight       float64
	MinOccupancy      float64
	MaxOccupancy      float64

	AvgThreadsPerBlock float64
	limiters           map[string]uint64
}

func (w *OccupancyFingerprint) add(e types.AnnotatedKernelLaunch) {
	w.KernelLaunchCount++
	threads := float64(e.ThreadsPerBlock())
	w.AvgThreadsPerBlock = ((w.AvgThreadsPerBlock * float64(w.KernelLaunchCount-1)) + threads) / float64(w.KernelLaunchCount)

	if !e.Known {
		w.UnknownCount++
		return
	}

	// Launches without a measured duration count once.
	weight := float64(e.DurationNs)
	if weight <= 0 {
		weight = 1
	}
	if w.totalWeight == 0 {
		w.MinOccupancy = e.Occupancy
		w.MaxOccupancy = e.Occupancy
	}
	w.weightedOccupancy += e.Occupancy * weight
	w.totalWeight += weight
	w.MinOccupancy = min(w.MinOccupancy, e.Occupancy)
	w.MaxOccupancy = max(w.MaxOccupancy, e.Occupancy)

	if e.Limiter != "" {
		if w.limiters == nil {
			w.limiters = make(map[string]uint64)
		}
		w.limiters[e.Limiter]++
	}
}

// AvgOccupancy is the duration weighted mean, or occupancy.Unknown when no
// launch in the window had a known value.
func (w *OccupancyFingerprint) AvgOccupancy() float64 {
	if w.totalWeight == 0 {
		return occupancy.Unknown
	}
	return w.weightedOccupancy / w.totalWeight
}

// DominantLimiter is the most frequent limiter. Ties go to the
// lexicographically smaller name.
func (w *OccupancyFingerprint) DominantLimiter() string {
	names := make([]string, 0, len(w.limiters))
	for name := range w.limiters {
		names = append(names, name)
	}
	sort.Strings(names)

	var best string
	var bestCount uint64
	for _, name := range names {
		if c := w.limiters[name]; c > bestCount {
			best, bestCount = name, c
		}
	}
	return best
}

func recommendation(limiter string) string {
	switch limiter {
	case "registers":
		return "register usage limits resident blocks; lower registers per thread with __launch_bounds__ or -maxrregcount"
	case "shared_memory":
		return "shared memory per block limits resident blocks; reduce static or dynamic shared memory"
	case "blocks":
		return "the per-SM block limit is reached before the thread limit; launch fewer, larger blocks"
	case "warps":
		return "block size leaves warp slots unused; use a block size that is a multiple of the warp size"
	default:
		return "occupancy is limited by several resources; review block size, registers and shared memory together"
	}
}
