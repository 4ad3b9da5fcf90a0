package types

import (
	"context"
)

type Gpu_collectors interface {
	Update(ev any)
	Flush() *Batch
	Run(context.Context) <-chan *Batch
}
