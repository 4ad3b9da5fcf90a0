package loaders

import (
	"errors"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

type Options struct {
	RingbufPinPath string
	Estimator      *occupancy.Estimator
}

func NewEbpfGpuLoaders(program string, opts Options, collectors ...types.Gpu_collectors) (types.Gpu_loaders, error) {

	switch program {
	case types.LoaderKernelLaunch:
		kl, err := NewKernelLaunchLoader(opts.RingbufPinPath, opts.Estimator, collectors...)
		if err != nil {
			return nil, err
		}
		return kl, nil
	default:
		return nil, errors.New("Unsuported or unknow program")
	}
}
