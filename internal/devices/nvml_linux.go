//go:build linux && cgo

package devices

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"go.uber.org/zap"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/logutil"
)

// NVMLSource reads device descriptors through NVML. Hardware limits are
// derived from the compute capability NVML reports.
//
// NVML indexes devices in PCI bus order; traced processes should run with
// CUDA_DEVICE_ORDER=PCI_BUS_ID so that their ordinals agree.
type NVMLSource struct {
	lib nvml.Interface
}

// Open loads and initializes the system NVML library.
func Open() (Source, error) {
	s := NewNVMLSource(nvml.New())
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

func NewNVMLSource(lib nvml.Interface) *NVMLSource {
	return &NVMLSource{lib: lib}
}

func (s *NVMLSource) Init() error {
	if ret := s.lib.Init(); ret != nvml.SUCCESS {
		return fmt.Errorf("initialize NVML: %w", ret)
	}
	return nil
}

func (s *NVMLSource) Close() error {
	if ret := s.lib.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("shutdown NVML: %w", ret)
	}
	return nil
}

func (s *NVMLSource) DeviceCount() (int, error) {
	count, ret := s.lib.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return 0, fmt.Errorf("get GPU count: %w", ret)
	}
	return count, nil
}

func (s *NVMLSource) DeviceProperties(ordinal int) (occupancy.DeviceProp, error) {
	logger := logutil.GetLogger()

	dev, ret := s.lib.DeviceGetHandleByIndex(ordinal)
	if ret != nvml.SUCCESS {
		return occupancy.DeviceProp{}, fmt.Errorf("gpu %d: get handle: %w", ordinal, ret)
	}

	major, minor, ret := dev.GetCudaComputeCapability()
	if ret != nvml.SUCCESS {
		return occupancy.DeviceProp{}, fmt.Errorf("gpu %d: get compute capability: %w", ordinal, ret)
	}

	prop, err := PropsForComputeCapability(major, minor)
	if err != nil {
		return occupancy.DeviceProp{}, fmt.Errorf("gpu %d: %w", ordinal, err)
	}
	prop.Ordinal = ordinal

	if prop.Name, ret = dev.GetName(); ret != nvml.SUCCESS {
		return occupancy.DeviceProp{}, fmt.Errorf("gpu %d: get name: %w", ordinal, ret)
	}
	if prop.UUID, ret = dev.GetUUID(); ret != nvml.SUCCESS {
		return occupancy.DeviceProp{}, fmt.Errorf("gpu %d: get uuid: %w", ordinal, ret)
	}

	// Attributes are informational only; many boards do not report them
	// outside MIG mode.
	if attrs, ret := dev.GetAttributes(); ret == nvml.SUCCESS {
		prop.MultiprocessorCount = int(attrs.MultiprocessorCount)
	} else {
		logger.Debug("device attributes unavailable",
			zap.Int("device", ordinal),
			zap.String("reason", ret.Error()))
	}

	return prop, nil
}
