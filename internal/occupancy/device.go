package occupancy

import "fmt"

// DeviceProp holds the hardware limits of one accelerator that the occupancy
// model needs. Values are captured once and never updated.
type DeviceProp struct {
	Ordinal int
	Name    string
	UUID    string

	ComputeMajor        int
	ComputeMinor        int
	MultiprocessorCount int

	MaxThreadsPerBlock          int
	MaxThreadsPerMultiprocessor int
	RegsPerBlock                int
	RegsPerMultiprocessor       int
	WarpSize                    int

	SharedMemPerBlock          int
	SharedMemPerMultiprocessor int
	SharedMemPerBlockOptin     int
	ReservedSharedMemPerBlock  int
}

// ComputeCapability returns the "major.minor" form, e.g. "8.6".
func (p DeviceProp) ComputeCapability() string {
	return fmt.Sprintf("%d.%d", p.ComputeMajor, p.ComputeMinor)
}

// PropertySource enumerates visible devices and reads their descriptors.
type PropertySource interface {
	DeviceCount() (int, error)
	DeviceProperties(ordinal int) (DeviceProp, error)
}
