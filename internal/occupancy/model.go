package occupancy

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput  = errors.New("occupancy: invalid input")
	ErrUnknownDevice = errors.New("occupancy: unknown device architecture")
)

type PartitionedGCConfig int

const (
	PartitionedGCOff PartitionedGCConfig = iota
	PartitionedGCOn
	PartitionedGCOnStrict
)

type ShmemLimitConfig int

const (
	ShmemLimitDefault ShmemLimitConfig = iota
	ShmemLimitOptin
)

// FuncAttributes describes the resource footprint of one kernel function.
type FuncAttributes struct {
	MaxThreadsPerBlock int
	NumRegs            int
	SharedSizeBytes    int

	PartitionedGC PartitionedGCConfig
	ShmemLimit    ShmemLimitConfig

	// Only consulted with ShmemLimitOptin; zero means no extra cap.
	MaxDynamicSharedSizeBytes int
}

// DeviceState is the runtime configuration of the device. The zero value is
// the driver default.
type DeviceState struct {
	// SharedMemCarveout caps the shared memory configured per multiprocessor
	// when positive.
	SharedMemCarveout int
}

type LimitingFactor uint8

const (
	LimitWarps LimitingFactor = 1 << iota
	LimitRegisters
	LimitSharedMemory
	LimitBlocks
)

func (f LimitingFactor) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f&LimitWarps != 0 {
		parts = append(parts, "warps")
	}
	if f&LimitRegisters != 0 {
		parts = append(parts, "registers")
	}
	if f&LimitSharedMemory != 0 {
		parts = append(parts, "shared_memory")
	}
	if f&LimitBlocks != 0 {
		parts = append(parts, "blocks")
	}
	return strings.Join(parts, "|")
}

// Result is the outcome of one occupancy model evaluation.
type Result struct {
	ActiveBlocksPerMultiprocessor int
	LimitingFactors               LimitingFactor

	BlockLimitWarps     int
	BlockLimitRegs      int
	BlockLimitSharedMem int
	BlockLimitBlocks    int

	AllocatedRegistersPerBlock int
	AllocatedSharedMemPerBlock int
}

// Model computes how many blocks of a kernel can be resident on one
// multiprocessor of a device.
type Model interface {
	MaxActiveBlocksPerMultiprocessor(prop *DeviceProp, attr *FuncAttributes, state *DeviceState, blockSize int, dynamicSmemBytes uint64) (Result, error)
}
