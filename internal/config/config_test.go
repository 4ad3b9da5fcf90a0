package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEYI17/InfraSight_occupancy/internal/devices"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{types.LoaderKernelLaunch}, cfg.EnableProbes)
	assert.Equal(t, defaultPinPath, cfg.RingbufPinPath)
	assert.Equal(t, devices.KindNVML, cfg.DeviceSource)
	assert.Equal(t, 10*time.Second, cfg.AggregationWindow)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
	assert.Equal(t, 0.5, cfg.LowThreshold)
	assert.True(t, cfg.RejectInvalidSize)
	assert.False(t, cfg.LogEvents)
	assert.Empty(t, cfg.TraceFile)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("NODE_NAME", "gpu-node-7")
	t.Setenv("DEVICE_SOURCE", "static")
	t.Setenv("STATIC_DEVICES", "8.0,8.6")
	t.Setenv("AGGREGATION_WINDOW", "30s")
	t.Setenv("LOW_OCCUPANCY_THRESHOLD", "0.25")
	t.Setenv("REJECT_INVALID_BLOCK_SIZE", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_EVENTS", "true")
	t.Setenv("TRACE_FILE", "/tmp/occupancy.json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gpu-node-7", cfg.Nodename)
	assert.Equal(t, devices.KindStatic, cfg.DeviceSource)
	assert.Equal(t, []string{"8.0", "8.6"}, cfg.StaticDevices)
	assert.Equal(t, 30*time.Second, cfg.AggregationWindow)
	assert.Equal(t, 0.25, cfg.LowThreshold)
	assert.False(t, cfg.RejectInvalidSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogEvents)
	assert.Equal(t, "/tmp/occupancy.json", cfg.TraceFile)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]func(*Config){
		"no probes":          func(c *Config) { c.EnableProbes = nil },
		"no pin path":        func(c *Config) { c.RingbufPinPath = "" },
		"unknown source":     func(c *Config) { c.DeviceSource = "dcgm" },
		"static without set": func(c *Config) { c.DeviceSource = devices.KindStatic },
		"zero window":        func(c *Config) { c.AggregationWindow = 0 },
		"zero flush":         func(c *Config) { c.FlushInterval = -time.Second },
		"threshold too high": func(c *Config) { c.LowThreshold = 1.5 },
		"bad log level":      func(c *Config) { c.LogLevel = "verbose" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(func(target interface{}) error {
				mutate(target.(*Config))
				return nil
			})
			require.Error(t, err)
		})
	}
}

func TestLoadReaderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := load(func(interface{}) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestLoadFillsOptionalDefaults(t *testing.T) {
	cfg, err := load(func(target interface{}) error {
		c := target.(*Config)
		c.ShutdownTimeout = 0
		c.LogLevel = ""
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadDeduplicatesProbes(t *testing.T) {
	t.Setenv("ENABLE_PROBES", "kernel_launch, kernel_launch,,kernel_launch")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{types.LoaderKernelLaunch}, cfg.EnableProbes)

	_, err = load(func(target interface{}) error {
		target.(*Config).EnableProbes = []string{" ", ""}
		return nil
	})
	require.Error(t, err)
}
