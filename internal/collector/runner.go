package collector

import (
	"context"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/logutil"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
	"go.uber.org/zap"
)

// EventLogger logs every annotated launch. It never emits batches.
type EventLogger struct {
	logger *zap.Logger
}

func NewEventLogger() *EventLogger {
	return &EventLogger{logger: logutil.GetLogger()}
}

func (el *EventLogger) Update(ev any) {
	e, ok := ev.(types.AnnotatedKernelLaunch)
	if !ok {
		return
	}

	fields := []zap.Field{
		zap.Uint32("pid", e.Pid),
		zap.Uint32("tid", e.Tid),
		zap.String("comm", e.CommString()),
		zap.Uint32("device", e.DeviceId),
		zap.Int32("blockx", e.Blockx),
		zap.Int32("blocky", e.Blocky),
		zap.Int32("blockz", e.Blockz),
		zap.Int32("gridx", e.Gridx),
		zap.Int32("gridy", e.Gridy),
		zap.Int32("gridz", e.Gridz),
		zap.Uint16("regs", e.RegistersPerThread),
		zap.Int32("static_smem", e.StaticSharedMemory),
		zap.Int32("dynamic_smem", e.DynamicSharedMemory),
	}

	if !e.Known {
		el.logger.Warn("Occupancy unavailable for kernel launch", fields...)
		return
	}

	fields = append(fields,
		zap.Float64("occupancy", e.Occupancy),
		zap.Int("active_blocks", e.ActiveBlocks),
		zap.String("limiter", e.Limiter))
	el.logger.Debug("GPU kernel launch", fields...)
}

func (el *EventLogger) Flush() *types.Batch { return nil }

func (el *EventLogger) Run(ctx context.Context) <-chan *types.Batch {
	out := make(chan *types.Batch)
	go func() {
		defer close(out)
		<-ctx.Done()
		el.logger.Info("Context cancelled, stopping event logger...")
	}()
	return out
}
