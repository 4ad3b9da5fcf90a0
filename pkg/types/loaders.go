package types

import (
	"context"
)

type Gpu_loaders interface {
	Close() error
	Run(context.Context, string) <-chan *Batch
}
