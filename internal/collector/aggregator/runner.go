package aggregator

import (
	"context"
	"time"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

// Run flushes expired windows on every tick. On cancellation it emits every
// open window before closing, so the channel must be drained until closed.
func (ga *GPUAggregator) Run(ctx context.Context) <-chan *types.Batch {
	out := make(chan *types.Batch)

	go func() {
		defer close(out)
		ticker := time.NewTicker(ga.windowDuration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if batch := ga.FlushAll(); batch != nil {
					out <- batch
				}
				return
			case <-ticker.C:
				if batch := ga.Flush(); batch != nil {
					out <- batch
				}
			}
		}
	}()

	return out
}
