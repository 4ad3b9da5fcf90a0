package occupancy

import "math"

// Unknown is returned by Estimator.Occupancy when no value can be computed.
const Unknown = -1.0

// LaunchParams is the resource usage and launch shape of one captured kernel
// launch.
type LaunchParams struct {
	DeviceOrdinal       uint32
	RegistersPerThread  uint16
	StaticSharedMemory  int32
	DynamicSharedMemory int32
	BlockX              int32
	BlockY              int32
	BlockZ              int32
}

// BlockSize is the thread count of one block. The product is computed in 64
// bits and saturates instead of wrapping; malformed dimensions may yield
// zero or a negative value.
func (p LaunchParams) BlockSize() int {
	xy := int64(p.BlockX) * int64(p.BlockY)
	z := int64(p.BlockZ)
	if xy == 0 || z == 0 {
		return 0
	}
	if abs64(xy) > math.MaxInt64/abs64(z) {
		if (xy < 0) != (z < 0) {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return int(xy * z)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Estimate is a successful occupancy evaluation.
type Estimate struct {
	Occupancy    float64
	BlockSize    int
	ActiveBlocks int
	Limiters     LimitingFactor
	Device       DeviceProp
}

type Option func(e *Estimator)

// WithModel replaces the built-in Calculator.
func WithModel(m Model) Option {
	return func(e *Estimator) {
		if m != nil {
			e.model = m
		}
	}
}

// WithBlockSizeValidation makes the estimator treat a non-positive block
// size as unknown without consulting the model. When disabled the value is
// handed to the model unchanged.
func WithBlockSizeValidation(enabled bool) Option {
	return func(e *Estimator) {
		e.validateBlockSize = enabled
	}
}

// Estimator computes theoretical occupancy of kernel launches against a
// populated DeviceCache. It only reads the cache.
type Estimator struct {
	cache             *DeviceCache
	model             Model
	validateBlockSize bool
}

func NewEstimator(cache *DeviceCache, opts ...Option) *Estimator {
	e := &Estimator{
		cache:             cache,
		model:             Calculator{},
		validateBlockSize: true,
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Estimate returns the occupancy of p, or false when the device is not in
// the cache, the block size is rejected, or the model fails.
func (e *Estimator) Estimate(p LaunchParams) (Estimate, bool) {
	if e == nil || e.cache == nil {
		return Estimate{}, false
	}
	prop, ok := e.cache.Device(p.DeviceOrdinal)
	if !ok {
		return Estimate{}, false
	}

	attr := FuncAttributes{
		MaxThreadsPerBlock:        math.MaxInt32,
		NumRegs:                   int(p.RegistersPerThread),
		SharedSizeBytes:           int(p.StaticSharedMemory),
		PartitionedGC:             PartitionedGCOff,
		ShmemLimit:                ShmemLimitDefault,
		MaxDynamicSharedSizeBytes: 0,
	}
	state := DeviceState{}

	blockSize := p.BlockSize()
	if e.validateBlockSize && blockSize <= 0 {
		return Estimate{}, false
	}

	// Negative sizes wrap, matching a size_t conversion.
	dynamicSmem := uint64(int64(p.DynamicSharedMemory))

	res, err := e.model.MaxActiveBlocksPerMultiprocessor(&prop, &attr, &state, blockSize, dynamicSmem)
	if err != nil {
		return Estimate{}, false
	}
	if prop.MaxThreadsPerMultiprocessor == 0 {
		return Estimate{}, false
	}

	return Estimate{
		Occupancy:    float64(res.ActiveBlocksPerMultiprocessor) * float64(blockSize) / float64(prop.MaxThreadsPerMultiprocessor),
		BlockSize:    blockSize,
		ActiveBlocks: res.ActiveBlocksPerMultiprocessor,
		Limiters:     res.LimitingFactors,
		Device:       prop,
	}, true
}

// Occupancy is Estimate collapsed to a single value, with Unknown standing
// in for a missing result.
func (e *Estimator) Occupancy(p LaunchParams) float64 {
	est, ok := e.Estimate(p)
	if !ok {
		return Unknown
	}
	return est.Occupancy
}
