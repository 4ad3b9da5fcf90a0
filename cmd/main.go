package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ALEYI17/InfraSight_occupancy/internal/collector"
	"github.com/ALEYI17/InfraSight_occupancy/internal/collector/aggregator"
	"github.com/ALEYI17/InfraSight_occupancy/internal/collector/timeserie"
	"github.com/ALEYI17/InfraSight_occupancy/internal/config"
	"github.com/ALEYI17/InfraSight_occupancy/internal/devices"
	"github.com/ALEYI17/InfraSight_occupancy/internal/exporter"
	"github.com/ALEYI17/InfraSight_occupancy/internal/loaders"
	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/logutil"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logutil.InitLogger()

	logger := logutil.GetLogger()
	defer logger.Sync()

	go func() {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigch
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := logutil.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("Ignoring log level", zap.Error(err))
	}

	// The cache stays empty when the device source fails; every launch is
	// then reported with an unknown occupancy.
	var src occupancy.PropertySource
	if s, err := devices.New(cfg.DeviceSource, cfg.StaticDevices); err != nil {
		logger.Warn("Device source unavailable", zap.String("source", cfg.DeviceSource), zap.Error(err))
	} else {
		defer s.Close()
		src = s
	}

	cache := occupancy.NewDeviceCache(src)
	if err := cache.Populate(); err != nil {
		logger.Warn("Device property cache is empty", zap.Error(err))
	}
	for _, d := range cache.Devices() {
		logger.Info("Device properties cached",
			zap.Int("ordinal", d.Ordinal),
			zap.String("name", d.Name),
			zap.String("compute_capability", d.ComputeCapability()),
			zap.Int("sms", d.MultiprocessorCount))
	}

	estimator := occupancy.NewEstimator(cache, occupancy.WithBlockSizeValidation(cfg.RejectInvalidSize))

	metrics := exporter.NewMetrics()
	metrics.RecordDevices(cache.Devices())

	collectors := []types.Gpu_collectors{
		aggregator.NewGPUAggregator(cfg.AggregationWindow, cfg.LowThreshold),
		timeserie.NewTimeSeriesCollector(cfg.FlushInterval),
		metrics,
	}
	if cfg.LogEvents {
		collectors = append(collectors, collector.NewEventLogger())
	}

	var lds []types.Gpu_loaders

	for _, program := range cfg.EnableProbes {
		opts := loaders.Options{RingbufPinPath: cfg.RingbufPinPath, Estimator: estimator}
		if loaderInstance, err := loaders.NewEbpfGpuLoaders(program, opts, collectors...); err == nil {
			defer loaderInstance.Close()
			lds = append(lds, loaderInstance)
			logger.Info("Load successfully loader:", zap.String("Loader", program))
			continue
		} else {
			logger.Error("error to load tracer", zap.String("program", program), zap.Error(err))
		}
	}

	if len(lds) == 0 {
		logger.Fatal("No loader could be started")
	}

	sinks := []exporter.Sink{metrics}
	if cfg.TraceFile != "" {
		trace, err := exporter.NewTraceFileSink(cfg.TraceFile)
		if err != nil {
			logger.Fatal("Error opening trace file", zap.String("path", cfg.TraceFile), zap.Error(err))
		}
		sinks = append(sinks, trace)
	}

	client := exporter.NewClient(lds, sinks...)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("Error closing sinks", zap.Error(err))
		}
	}()

	server := exporter.NewMetricsServer(exporter.ServerConfig{
		ListenAddr:      cfg.MetricsAddr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, metrics.Registry())
	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	if err := client.Run(ctx, cfg.Nodename); err != nil {
		logger.Error("Error running client", zap.Error(err))
		return
	}
	logger.Info("Client finished running")
}
