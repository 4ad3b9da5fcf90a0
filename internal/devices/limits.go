package devices

import (
	"fmt"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
)

type computeCapability struct {
	major, minor int
}

type archLimits struct {
	maxThreadsPerSM  int
	regsPerSM        int
	smemPerSM        int
	smemPerBlockOpt  int
	reservedPerBlock int
}

const (
	maxThreadsPerBlock = 1024
	warpSize           = 32
	regsPerBlock       = 64 * 1024
	smemPerBlock       = 48 * 1024
)

// Per-architecture limits as reported by cudaGetDeviceProperties.
var archTable = map[computeCapability]archLimits{
	{3, 0}:  {2048, 64 * 1024, 48 * 1024, 48 * 1024, 0},
	{3, 2}:  {2048, 64 * 1024, 48 * 1024, 48 * 1024, 0},
	{3, 5}:  {2048, 64 * 1024, 48 * 1024, 48 * 1024, 0},
	{3, 7}:  {2048, 128 * 1024, 112 * 1024, 48 * 1024, 0},
	{5, 0}:  {2048, 64 * 1024, 64 * 1024, 48 * 1024, 0},
	{5, 2}:  {2048, 64 * 1024, 96 * 1024, 48 * 1024, 0},
	{5, 3}:  {2048, 64 * 1024, 64 * 1024, 48 * 1024, 0},
	{6, 0}:  {2048, 64 * 1024, 64 * 1024, 48 * 1024, 0},
	{6, 1}:  {2048, 64 * 1024, 96 * 1024, 48 * 1024, 0},
	{6, 2}:  {2048, 64 * 1024, 64 * 1024, 48 * 1024, 0},
	{7, 0}:  {2048, 64 * 1024, 96 * 1024, 96 * 1024, 0},
	{7, 2}:  {2048, 64 * 1024, 96 * 1024, 96 * 1024, 0},
	{7, 5}:  {1024, 64 * 1024, 64 * 1024, 64 * 1024, 0},
	{8, 0}:  {2048, 64 * 1024, 164 * 1024, 163 * 1024, 1024},
	{8, 6}:  {1536, 64 * 1024, 100 * 1024, 99 * 1024, 1024},
	{8, 7}:  {1536, 64 * 1024, 164 * 1024, 163 * 1024, 1024},
	{8, 9}:  {1536, 64 * 1024, 100 * 1024, 99 * 1024, 1024},
	{9, 0}:  {2048, 64 * 1024, 228 * 1024, 227 * 1024, 1024},
	{10, 0}: {2048, 64 * 1024, 228 * 1024, 227 * 1024, 1024},
	{12, 0}: {1536, 64 * 1024, 100 * 1024, 99 * 1024, 1024},
}

// PropsForComputeCapability returns the hardware limits of an architecture.
// Identity fields (ordinal, name, UUID, SM count) are left for the caller.
func PropsForComputeCapability(major, minor int) (occupancy.DeviceProp, error) {
	limits, ok := archTable[computeCapability{major, minor}]
	if !ok {
		return occupancy.DeviceProp{}, fmt.Errorf("%w: compute capability %d.%d", ErrUnsupportedArch, major, minor)
	}
	return occupancy.DeviceProp{
		ComputeMajor:                major,
		ComputeMinor:                minor,
		MaxThreadsPerBlock:          maxThreadsPerBlock,
		MaxThreadsPerMultiprocessor: limits.maxThreadsPerSM,
		RegsPerBlock:                regsPerBlock,
		RegsPerMultiprocessor:       limits.regsPerSM,
		WarpSize:                    warpSize,
		SharedMemPerBlock:           smemPerBlock,
		SharedMemPerMultiprocessor:  limits.smemPerSM,
		SharedMemPerBlockOptin:      limits.smemPerBlockOpt,
		ReservedSharedMemPerBlock:   limits.reservedPerBlock,
	}, nil
}
