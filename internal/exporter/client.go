package exporter

import (
	"context"
	"sync"
	"time"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/logutil"
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sink receives every batch produced by the loaders.
type Sink interface {
	Send(ctx context.Context, batch *types.Batch) error
	Close() error
}

type Client struct {
	sinks   []Sink
	loaders []types.Gpu_loaders
}

const (
	eventBufferSize  = 500
	drainSendTimeout = 2 * time.Second
)

func NewClient(loaders []types.Gpu_loaders, sinks ...Sink) *Client {
	return &Client{sinks: sinks, loaders: loaders}
}

func (c *Client) Close() error {
	var err error
	for _, s := range c.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// SendGpuBatch hands the batch to every sink. A failing sink does not keep
// the others from receiving it.
func (c *Client) SendGpuBatch(ctx context.Context, in *types.Batch) error {
	logger := logutil.GetLogger()

	logger.Debug("Batch size", zap.String("type", in.Type), zap.Int("size", len(in.Batch)))

	var err error
	for _, s := range c.sinks {
		err = multierr.Append(err, s.Send(ctx, in))
	}
	return err
}

// sendContext is ctx while it is live. Once cancelled, batches still in
// flight get a short background deadline instead.
func sendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.Background(), drainSendTimeout)
}

// Run forwards loader batches to the sinks until every loader has closed its
// channel. After cancellation it keeps draining, so the batches flushed on
// shutdown still reach the sinks.
func (c *Client) Run(ctx context.Context, nodeName string) error {
	logger := logutil.GetLogger()

	eventCh := make(chan *types.Batch, eventBufferSize)

	var wg sync.WaitGroup
	for _, loader := range c.loaders {
		wg.Add(1)
		go func(l types.Gpu_loaders) {
			defer wg.Done()
			for batch := range l.Run(ctx, nodeName) {
				eventCh <- batch
			}
		}(loader)
	}

	go func() {
		wg.Wait()
		close(eventCh)
	}()

	draining := false
	for batch := range eventCh {
		if ctx.Err() != nil && !draining {
			draining = true
			logger.Info("Client received cancellation signal, draining loaders")
		}
		if batch == nil {
			continue
		}
		sendCtx, cancel := sendContext(ctx)
		if err := c.SendGpuBatch(sendCtx, batch); err != nil {
			logger.Error("Error from sending", zap.Error(err))
		}
		cancel()
	}

	logger.Info("All loaders stopped")
	return nil
}
