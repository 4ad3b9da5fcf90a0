package loaders

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ALEYI17/InfraSight_occupancy/internal/occupancy"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/logutil"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultPollTimeout = 200 * time.Millisecond

// recordReader is the subset of *ringbuf.Reader the loader uses.
type recordReader interface {
	Read() (ringbuf.Record, error)
	SetDeadline(time.Time)
	Close() error
}

// KernelLaunchLoader reads kernel launch records from a ring buffer pinned
// by the tracer, annotates them with occupancy and hands them to the
// collectors.
type KernelLaunchLoader struct {
	Ringbuf     *ebpf.Map
	Rb          recordReader
	estimator   *occupancy.Estimator
	collectors  []types.Gpu_collectors
	pollTimeout time.Duration
}

func NewKernelLaunchLoader(pinPath string, estimator *occupancy.Estimator, collectors ...types.Gpu_collectors) (*KernelLaunchLoader, error) {
	logger := logutil.GetLogger()

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, err
	}

	m, err := ebpf.LoadPinnedMap(pinPath, nil)
	if err != nil {
		logger.Error("error opening pinned ring buffer", zap.String("path", pinPath), zap.Error(err))
		return nil, fmt.Errorf("open pinned map %s: %w", pinPath, err)
	}
	if m.Type() != ebpf.RingBuf {
		m.Close()
		return nil, fmt.Errorf("pinned map %s is %s, want %s", pinPath, m.Type(), ebpf.RingBuf)
	}

	rb, err := ringbuf.NewReader(m)
	if err != nil {
		logger.Error("error creating ring buffer reader", zap.Error(err))
		m.Close()
		return nil, err
	}

	kl := newKernelLaunchLoader(rb, estimator, collectors...)
	kl.Ringbuf = m
	return kl, nil
}

func newKernelLaunchLoader(rb recordReader, estimator *occupancy.Estimator, collectors ...types.Gpu_collectors) *KernelLaunchLoader {
	return &KernelLaunchLoader{
		Rb:          rb,
		estimator:   estimator,
		collectors:  append([]types.Gpu_collectors(nil), collectors...),
		pollTimeout: defaultPollTimeout,
	}
}

func (kl *KernelLaunchLoader) Close() error {
	var err error
	if kl.Rb != nil {
		err = multierr.Append(err, kl.Rb.Close())
	}
	if kl.Ringbuf != nil {
		err = multierr.Append(err, kl.Ringbuf.Close())
	}
	return err
}

// Run starts the read loop and the collectors. The returned channel carries
// the collectors' batches, including their final flush after cancellation,
// and is closed once everything has stopped.
func (kl *KernelLaunchLoader) Run(ctx context.Context, nodeName string) <-chan *types.Batch {
	out := make(chan *types.Batch)
	logger := logutil.GetLogger().With(zap.String("node", nodeName))

	// Collectors stop only after the read loop, so their last flush sees
	// every record that was read.
	colCtx, stopCollectors := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for _, c := range kl.collectors {
		wg.Add(1)
		go func(col types.Gpu_collectors) {
			defer wg.Done()
			for batch := range col.Run(colCtx) {
				out <- batch
			}
		}(c)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stopCollectors()
		kl.readLoop(ctx, logger)
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (kl *KernelLaunchLoader) readLoop(ctx context.Context, logger *zap.Logger) {
	for {
		if ctx.Err() != nil {
			logger.Info("Context cancelled, stopping loader...")
			return
		}

		kl.Rb.SetDeadline(time.Now().Add(kl.pollTimeout))
		record, err := kl.Rb.Read()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, ringbuf.ErrClosed) {
				logger.Info("Ring buffer closed, exiting...")
				return
			}
			logger.Error("Reading error", zap.Error(err))
			continue
		}

		kl.handleRecord(record.RawSample, logger)
	}
}

func (kl *KernelLaunchLoader) handleRecord(raw []byte, logger *zap.Logger) {
	if len(raw) < 1 {
		logger.Warn("Empty record")
		return
	}

	switch flag := raw[0]; flag {
	case types.EVENT_GPU_KERNEL_LAUNCH:
		e, err := decodeKernelLaunch(raw)
		if err != nil {
			logger.Error("Parsing kernel launch event", zap.Error(err))
			return
		}
		kl.sendToCollectors(annotate(kl.estimator, e))
	default:
		logger.Warn("Unknown event flag", zap.Uint8("flag", flag))
	}
}

func (kl *KernelLaunchLoader) sendToCollectors(e any) {
	for _, c := range kl.collectors {
		c.Update(e)
	}
}
