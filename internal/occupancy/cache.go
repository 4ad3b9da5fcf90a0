package occupancy

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNoDevices = errors.New("no accelerator devices visible")

// DeviceCache is the per-process table of device descriptors indexed by
// ordinal. It is either complete or empty.
type DeviceCache struct {
	src PropertySource

	mu    sync.RWMutex
	props []DeviceProp
}

func NewDeviceCache(src PropertySource) *DeviceCache {
	return &DeviceCache{src: src}
}

// Populate replaces the table with a fresh read of every visible device.
// Any failure leaves the cache empty; the returned error is only meant for
// logging.
func (c *DeviceCache) Populate() error {
	props, err := c.query()

	c.mu.Lock()
	c.props = props
	c.mu.Unlock()

	return err
}

func (c *DeviceCache) query() ([]DeviceProp, error) {
	if c.src == nil {
		return nil, errors.New("no property source configured")
	}

	count, err := c.src.DeviceCount()
	if err != nil {
		return nil, fmt.Errorf("get device count: %w", err)
	}
	if count <= 0 {
		return nil, ErrNoDevices
	}

	props := make([]DeviceProp, 0, count)
	for i := 0; i < count; i++ {
		prop, err := c.src.DeviceProperties(i)
		if err != nil {
			return nil, fmt.Errorf("get properties of device %d: %w", i, err)
		}
		prop.Ordinal = i
		props = append(props, prop)
	}
	return props, nil
}

func (c *DeviceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.props)
}

// Device returns a copy of the descriptor for ordinal, or false if the
// ordinal is outside the table.
func (c *DeviceCache) Device(ordinal uint32) (DeviceProp, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if uint64(ordinal) >= uint64(len(c.props)) {
		return DeviceProp{}, false
	}
	return c.props[ordinal], true
}

func (c *DeviceCache) Devices() []DeviceProp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DeviceProp, len(c.props))
	copy(out, c.props)
	return out
}
