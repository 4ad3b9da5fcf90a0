package timeserie

import (
	"context"
	"time"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

// Run flushes on every tick. On cancellation it emits the remaining tokens
// before closing, so the channel must be drained until closed.
func (tc *TimeSeriesCollector) Run(ctx context.Context) <-chan *types.Batch {
	out := make(chan *types.Batch)

	go func() {
		defer close(out)
		ticker := time.NewTicker(tc.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if batch := tc.Flush(); batch != nil {
					out <- batch
				}
				return
			case <-ticker.C:
				if batch := tc.Flush(); batch != nil {
					out <- batch
				}
			}
		}
	}()

	return out
}
