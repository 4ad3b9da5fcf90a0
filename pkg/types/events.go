package types

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// KernelLaunchEvent mirrors the record the tracer writes into the ring
// buffer. Layout is little endian with explicit padding.
type KernelLaunchEvent struct {
	Flag                uint8
	_                   [3]uint8
	Pid                 uint32
	Tid                 uint32
	DeviceId            uint32
	Comm                [16]uint8
	RegistersPerThread  uint16
	_                   [2]uint8
	StaticSharedMemory  int32
	DynamicSharedMemory int32
	Blockx              int32
	Blocky              int32
	Blockz              int32
	Gridx               int32
	Gridy               int32
	Gridz               int32
	_                   [4]uint8
	TimestampNs         uint64
	DurationNs          uint64
}

var KernelLaunchEventSize = binary.Size(KernelLaunchEvent{})

func (e KernelLaunchEvent) CommString() string {
	return unix.ByteSliceToString(e.Comm[:])
}

func (e KernelLaunchEvent) ThreadsPerBlock() int64 {
	return int64(e.Blockx) * int64(e.Blocky) * int64(e.Blockz)
}

// AnnotatedKernelLaunch is a launch record plus its theoretical occupancy.
// Known is false when no occupancy could be computed, in which case
// Occupancy holds -1.
type AnnotatedKernelLaunch struct {
	KernelLaunchEvent
	Occupancy    float64
	Known        bool
	ActiveBlocks int
	Limiter      string
}

// OccupancyWindow summarizes the launches of one process on one device over
// a time window.
type OccupancyWindow struct {
	Device        uint32
	WindowStartNs int64
	WindowEndNs   int64

	KernelLaunchCount uint64
	UnknownCount      uint64

	AvgOccupancy       float64
	MinOccupancy       float64
	MaxOccupancy       float64
	AvgThreadsPerBlock float64
	DominantLimiter    string
	LowOccupancy       bool
	Recommendation     string
}

// OccupancyToken is one point of the per-device occupancy counter track.
type OccupancyToken struct {
	Device    uint32
	Timestamp int64
	Value     float64
}

type GpuEvent struct {
	Pid       uint32
	Comm      string
	EventType string
	Window    *OccupancyWindow
	Token     *OccupancyToken
}

type Batch struct {
	Type  string
	Batch []*GpuEvent
}
