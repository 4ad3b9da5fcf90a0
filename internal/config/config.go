package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ALEYI17/InfraSight_occupancy/internal/devices"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/logutil"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

const (
	defaultPinPath            = "/sys/fs/bpf/infrasight/gpu_kernel_launches"
	defaultAggregationWindow  = 10 * time.Second
	defaultFlushInterval      = 5 * time.Second
	defaultLowThreshold       = 0.5
	defaultMetricsAddr        = "0.0.0.0:9464"
	defaultLogLevel           = "info"
	defaultDeviceSource       = devices.KindNVML
	defaultShutdownTimeout    = 5 * time.Second
	defaultRejectInvalidBlock = true
)

type Config struct {
	Nodename          string        `env:"NODE_NAME"`
	EnableProbes      []string      `env:"ENABLE_PROBES" env-separator:","`
	RingbufPinPath    string        `env:"RINGBUF_PIN_PATH"`
	DeviceSource      string        `env:"DEVICE_SOURCE"`
	StaticDevices     []string      `env:"STATIC_DEVICES" env-separator:","`
	AggregationWindow time.Duration `env:"AGGREGATION_WINDOW"`
	FlushInterval     time.Duration `env:"TIMESERIES_FLUSH_INTERVAL"`
	LowThreshold      float64       `env:"LOW_OCCUPANCY_THRESHOLD"`
	RejectInvalidSize bool          `env:"REJECT_INVALID_BLOCK_SIZE"`
	MetricsAddr       string        `env:"METRICS_ADDR"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"`
	TraceFile         string        `env:"TRACE_FILE"`
	LogLevel          string        `env:"LOG_LEVEL"`
	LogEvents         bool          `env:"LOG_EVENTS"`
}

type configLoader func(interface{}) error

func readEnv(target interface{}) error {
	return cleanenv.ReadEnv(target)
}

// LoadConfig reads the agent configuration from the environment.
func LoadConfig() (*Config, error) {
	return load(readEnv)
}

func defaults() Config {
	hostname, _ := os.Hostname()
	return Config{
		Nodename:          hostname,
		EnableProbes:      []string{types.LoaderKernelLaunch},
		RingbufPinPath:    defaultPinPath,
		DeviceSource:      defaultDeviceSource,
		AggregationWindow: defaultAggregationWindow,
		FlushInterval:     defaultFlushInterval,
		LowThreshold:      defaultLowThreshold,
		RejectInvalidSize: defaultRejectInvalidBlock,
		MetricsAddr:       defaultMetricsAddr,
		ShutdownTimeout:   defaultShutdownTimeout,
		LogLevel:          defaultLogLevel,
	}
}

func load(loader configLoader) (*Config, error) {
	cfg := defaults()
	if loader == nil {
		loader = func(interface{}) error { return nil }
	}
	if err := loader(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.EnableProbes = uniqueProbes(c.EnableProbes)
	if len(c.EnableProbes) == 0 {
		return errors.New("at least one probe must be enabled")
	}
	if c.RingbufPinPath == "" {
		return errors.New("ring buffer pin path must be set")
	}
	switch c.DeviceSource {
	case devices.KindNVML:
	case devices.KindStatic:
		if len(c.StaticDevices) == 0 {
			return errors.New("static device source needs STATIC_DEVICES")
		}
	default:
		return fmt.Errorf("unknown device source %q", c.DeviceSource)
	}
	if c.AggregationWindow <= 0 {
		return fmt.Errorf("aggregation window must be positive, got %s", c.AggregationWindow)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("time series flush interval must be positive, got %s", c.FlushInterval)
	}
	if c.LowThreshold <= 0 || c.LowThreshold > 1 {
		return fmt.Errorf("low occupancy threshold must be in (0, 1], got %v", c.LowThreshold)
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if _, err := logutil.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// uniqueProbes drops blanks and repeats. Each probe owns the pinned ring
// buffer it reads, so it must be started once.
func uniqueProbes(probes []string) []string {
	seen := make(map[string]struct{}, len(probes))
	out := probes[:0]
	for _, p := range probes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
