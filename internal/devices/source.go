// Package devices provides occupancy.PropertySource implementations: NVML on
// Linux hosts with the NVIDIA driver, and a static list for everything else.
package devices

import (
	"errors"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
)

var (
	ErrUnsupported     = errors.New("NVML is not available on this platform")
	ErrUnsupportedArch = errors.New("unsupported GPU architecture")
)

const (
	KindNVML   = "nvml"
	KindStatic = "static"
)

// Source is a PropertySource that holds resources until closed.
type Source interface {
	occupancy.PropertySource
	Close() error
}

// New opens the source named by kind. Static sources are described by
// compute capabilities such as "8.0".
func New(kind string, static []string) (Source, error) {
	switch kind {
	case KindNVML:
		return Open()
	case KindStatic:
		s, err := NewStaticSource(static)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New("unknown device source: " + kind)
	}
}
