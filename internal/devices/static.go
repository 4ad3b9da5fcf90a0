package devices

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
)

// StaticSource serves a fixed device list, for hosts without NVML or for
// replaying captured traces offline.
type StaticSource struct {
	props []occupancy.DeviceProp
}

func NewStaticSource(capabilities []string) (*StaticSource, error) {
	s := &StaticSource{}
	for i, raw := range capabilities {
		major, minor, err := parseComputeCapability(raw)
		if err != nil {
			return nil, fmt.Errorf("static device %d: %w", i, err)
		}
		prop, err := PropsForComputeCapability(major, minor)
		if err != nil {
			return nil, fmt.Errorf("static device %d: %w", i, err)
		}
		prop.Ordinal = i
		prop.Name = fmt.Sprintf("static-sm_%d%d", major, minor)
		s.props = append(s.props, prop)
	}
	return s, nil
}

func parseComputeCapability(raw string) (int, int, error) {
	majorStr, minorStr, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok {
		return 0, 0, fmt.Errorf("malformed compute capability %q", raw)
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed compute capability %q: %w", raw, err)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed compute capability %q: %w", raw, err)
	}
	return major, minor, nil
}

func (s *StaticSource) DeviceCount() (int, error) {
	return len(s.props), nil
}

func (s *StaticSource) DeviceProperties(ordinal int) (occupancy.DeviceProp, error) {
	if ordinal < 0 || ordinal >= len(s.props) {
		return occupancy.DeviceProp{}, fmt.Errorf("device %d out of range", ordinal)
	}
	return s.props[ordinal], nil
}

func (s *StaticSource) Close() error { return nil }
