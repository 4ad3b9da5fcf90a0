package exporter

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

const namespace = "infrasight_gpu"

// Metrics exposes occupancy as Prometheus metrics. It is both a collector,
// observing every annotated launch, and a Sink for aggregated windows.
type Metrics struct {
	registry *prometheus.Registry

	kernelLaunches     *prometheus.CounterVec
	unknownOccupancy   *prometheus.CounterVec
	kernelOccupancy    *prometheus.HistogramVec
	lowOccupancyWindow *prometheus.CounterVec
	windowOccupancy    *prometheus.GaugeVec
	deviceInfo         *prometheus.GaugeVec
	deviceCount        prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		kernelLaunches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kernel_launches_total",
			Help:      "Kernel launches observed per device.",
		}, []string{"device"}),
		unknownOccupancy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "occupancy_unknown_total",
			Help:      "Kernel launches whose theoretical occupancy could not be computed.",
		}, []string{"device"}),
		kernelOccupancy: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kernel_occupancy_ratio",
			Help:      "Theoretical occupancy of launched kernels.",
			Buckets:   prometheus.LinearBuckets(0.125, 0.125, 8),
		}, []string{"device"}),
		lowOccupancyWindow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_occupancy_windows_total",
			Help:      "Aggregation windows flagged for low average occupancy.",
		}, []string{"device", "limiter"}),
		windowOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_avg_occupancy_ratio",
			Help:      "Duration weighted average occupancy of the most recent window of any process with this comm on the device. Removed when that window had no known launch.",
		}, []string{"device", "comm"}),
		deviceInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_info",
			Help:      "Devices known to the occupancy estimator.",
		}, []string{"device", "name", "uuid", "compute_capability"}),
		deviceCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Number of devices in the property cache.",
		}),
	}
	m.registry.MustRegister(
		m.kernelLaunches,
		m.unknownOccupancy,
		m.kernelOccupancy,
		m.lowOccupancyWindow,
		m.windowOccupancy,
		m.deviceInfo,
		m.deviceCount,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordDevices(devs []occupancy.DeviceProp) {
	m.deviceInfo.Reset()
	for _, d := range devs {
		m.deviceInfo.WithLabelValues(strconv.Itoa(d.Ordinal), d.Name, d.UUID, d.ComputeCapability()).Set(1)
	}
	m.deviceCount.Set(float64(len(devs)))
}

func (m *Metrics) Update(ev any) {
	e, ok := ev.(types.AnnotatedKernelLaunch)
	if !ok {
		return
	}
	device := deviceLabel(e.DeviceId)
	m.kernelLaunches.WithLabelValues(device).Inc()
	if !e.Known {
		m.unknownOccupancy.WithLabelValues(device).Inc()
		return
	}
	m.kernelOccupancy.WithLabelValues(device).Observe(e.Occupancy)
}

func (m *Metrics) Flush() *types.Batch { return nil }

func (m *Metrics) Run(ctx context.Context) <-chan *types.Batch {
	out := make(chan *types.Batch)
	go func() {
		defer close(out)
		<-ctx.Done()
	}()
	return out
}

func (m *Metrics) Send(_ context.Context, batch *types.Batch) error {
	if batch.Type != types.BATCH_OCCUPANCY_WINDOW {
		return nil
	}
	for _, ev := range batch.Batch {
		w := ev.Window
		if w == nil {
			continue
		}
		device := deviceLabel(w.Device)
		if w.AvgOccupancy >= 0 {
			m.windowOccupancy.WithLabelValues(device, ev.Comm).Set(w.AvgOccupancy)
		} else {
			m.windowOccupancy.DeleteLabelValues(device, ev.Comm)
		}
		if w.LowOccupancy {
			m.lowOccupancyWindow.WithLabelValues(device, w.DominantLimiter).Inc()
		}
	}
	return nil
}

func (m *Metrics) Close() error { return nil }

func deviceLabel(d uint32) string {
	return strconv.FormatUint(uint64(d), 10)
}
