//go:build !linux || !cgo

package devices

// Open reports that NVML cannot be used without cgo on Linux.
func Open() (Source, error) {
	return nil, ErrUnsupported
}
