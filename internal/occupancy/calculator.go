package occupancy

import (
	"fmt"
	"math"
)

// Calculator is the built-in Model. It follows the vendor occupancy
// calculator: the resident block count is the minimum of the warp, register,
// shared memory and hardware block limits of one multiprocessor.
type Calculator struct{}

var _ Model = Calculator{}

func (Calculator) MaxActiveBlocksPerMultiprocessor(prop *DeviceProp, attr *FuncAttributes, state *DeviceState, blockSize int, dynamicSmemBytes uint64) (Result, error) {
	if err := checkInput(prop, attr, state, blockSize, dynamicSmemBytes); err != nil {
		return Result{}, err
	}

	blockLimit, err := maxBlocksPerMultiprocessor(prop)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.BlockLimitBlocks = blockLimit
	res.BlockLimitWarps = warpLimit(prop, attr, blockSize)

	if res.BlockLimitWarps == 0 {
		// Launch is rejected outright; the remaining limits are meaningless
		// for an oversized block.
		res.BlockLimitRegs = math.MaxInt32
		res.BlockLimitSharedMem = math.MaxInt32
	} else {
		res.BlockLimitRegs, res.AllocatedRegistersPerBlock = registerLimit(prop, attr, blockSize)
		res.BlockLimitSharedMem, res.AllocatedSharedMemPerBlock = sharedMemLimit(prop, attr, state, int(dynamicSmemBytes))
	}

	active := min(res.BlockLimitWarps, res.BlockLimitRegs, res.BlockLimitSharedMem, res.BlockLimitBlocks)
	res.ActiveBlocksPerMultiprocessor = active

	if res.BlockLimitWarps == active {
		res.LimitingFactors |= LimitWarps
	}
	if res.BlockLimitRegs == active {
		res.LimitingFactors |= LimitRegisters
	}
	if res.BlockLimitSharedMem == active {
		res.LimitingFactors |= LimitSharedMemory
	}
	if res.BlockLimitBlocks == active {
		res.LimitingFactors |= LimitBlocks
	}
	return res, nil
}

func checkInput(prop *DeviceProp, attr *FuncAttributes, state *DeviceState, blockSize int, dynamicSmemBytes uint64) error {
	if prop == nil || attr == nil || state == nil {
		return fmt.Errorf("%w: missing descriptor", ErrInvalidInput)
	}
	if blockSize <= 0 {
		return fmt.Errorf("%w: block size %d", ErrInvalidInput, blockSize)
	}
	if prop.WarpSize <= 0 || prop.MaxThreadsPerBlock <= 0 || prop.MaxThreadsPerMultiprocessor <= 0 ||
		prop.RegsPerBlock <= 0 || prop.RegsPerMultiprocessor <= 0 ||
		prop.SharedMemPerBlock < 0 || prop.SharedMemPerMultiprocessor < 0 || prop.ReservedSharedMemPerBlock < 0 {
		return fmt.Errorf("%w: device %d has non-positive limits", ErrInvalidInput, prop.Ordinal)
	}
	if attr.MaxThreadsPerBlock <= 0 || attr.NumRegs < 0 || attr.SharedSizeBytes < 0 || attr.MaxDynamicSharedSizeBytes < 0 {
		return fmt.Errorf("%w: function attributes", ErrInvalidInput)
	}
	if state.SharedMemCarveout < 0 {
		return fmt.Errorf("%w: carveout %d", ErrInvalidInput, state.SharedMemCarveout)
	}
	if dynamicSmemBytes > math.MaxInt32 {
		return fmt.Errorf("%w: dynamic shared memory %d", ErrInvalidInput, dynamicSmemBytes)
	}
	return nil
}

func warpLimit(prop *DeviceProp, attr *FuncAttributes, blockSize int) int {
	maxThreadsPerBlock := min(prop.MaxThreadsPerBlock, attr.MaxThreadsPerBlock)
	if blockSize > maxThreadsPerBlock {
		return 0
	}
	maxWarpsPerSM := prop.MaxThreadsPerMultiprocessor / prop.WarpSize
	warpsPerBlock := divideRoundUp(blockSize, prop.WarpSize)
	return maxWarpsPerSM / warpsPerBlock
}

func registerLimit(prop *DeviceProp, attr *FuncAttributes, blockSize int) (limit, allocated int) {
	regsPerThread := attr.NumRegs
	if regsPerThread == 0 {
		return math.MaxInt32, 0
	}
	if regsPerThread > regAllocationMaxPerThread(prop) {
		return 0, 0
	}

	numSubPartitions := subPartitionsPerMultiprocessor(prop)
	regsPerWarp := roundUp(regsPerThread*prop.WarpSize, regAllocationGranularity(prop))
	warpsPerBlock := divideRoundUp(blockSize, prop.WarpSize)

	// The per-block check assumes the allocation is spread over every
	// sub-partition at once.
	allocated = regsPerWarp * roundUp(warpsPerBlock, numSubPartitions)
	if allocated > prop.RegsPerBlock {
		return 0, allocated
	}

	regsPerSubPartition := prop.RegsPerMultiprocessor / numSubPartitions
	warpsPerSubPartition := regsPerSubPartition / regsPerWarp
	return (warpsPerSubPartition * numSubPartitions) / warpsPerBlock, allocated
}

func sharedMemLimit(prop *DeviceProp, attr *FuncAttributes, state *DeviceState, dynamicSmem int) (limit, allocated int) {
	smemPerSM := prop.SharedMemPerMultiprocessor
	if state.SharedMemCarveout > 0 && state.SharedMemCarveout < smemPerSM {
		smemPerSM = state.SharedMemCarveout
	}

	maxSmemPerBlock := prop.SharedMemPerBlock
	if attr.ShmemLimit == ShmemLimitOptin && prop.SharedMemPerBlockOptin > 0 {
		maxSmemPerBlock = prop.SharedMemPerBlockOptin
		if attr.MaxDynamicSharedSizeBytes > 0 && dynamicSmem > attr.MaxDynamicSharedSizeBytes {
			return 0, 0
		}
	}

	requested := attr.SharedSizeBytes + dynamicSmem
	if requested > maxSmemPerBlock {
		return 0, 0
	}

	allocated = roundUp(requested+prop.ReservedSharedMemPerBlock, smemAllocationGranularity(prop))
	if allocated == 0 {
		return math.MaxInt32, 0
	}
	return smemPerSM / allocated, allocated
}
