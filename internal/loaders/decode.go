package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

var ErrShortRecord = errors.New("record shorter than event layout")

func decodeKernelLaunch(raw []byte) (types.KernelLaunchEvent, error) {
	var e types.KernelLaunchEvent
	if len(raw) < types.KernelLaunchEventSize {
		return e, fmt.Errorf("%w: %d < %d bytes", ErrShortRecord, len(raw), types.KernelLaunchEventSize)
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &e); err != nil {
		return e, err
	}
	return e, nil
}

func launchParams(e types.KernelLaunchEvent) occupancy.LaunchParams {
	return occupancy.LaunchParams{
		DeviceOrdinal:       e.DeviceId,
		RegistersPerThread:  e.RegistersPerThread,
		StaticSharedMemory:  e.StaticSharedMemory,
		DynamicSharedMemory: e.DynamicSharedMemory,
		BlockX:              e.Blockx,
		BlockY:              e.Blocky,
		BlockZ:              e.Blockz,
	}
}

// annotate attaches the theoretical occupancy to a launch. A missing value
// never drops the event.
func annotate(est *occupancy.Estimator, e types.KernelLaunchEvent) types.AnnotatedKernelLaunch {
	a := types.AnnotatedKernelLaunch{
		KernelLaunchEvent: e,
		Occupancy:         occupancy.Unknown,
	}
	res, ok := est.Estimate(launchParams(e))
	if !ok {
		return a
	}
	a.Occupancy = res.Occupancy
	a.Known = true
	a.ActiveBlocks = res.ActiveBlocks
	a.Limiter = res.Limiters.String()
	return a
}
