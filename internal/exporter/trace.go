package exporter

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/multierr"

	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const counterName = "Occupancy"

// counterEvent is a Chrome trace counter sample.
type counterEvent struct {
	Phase string             `json:"ph"`
	Name  string             `json:"name"`
	Pid   uint32             `json:"pid"`
	Tid   string             `json:"tid"`
	Ts    float64            `json:"ts"`
	Args  map[string]float64 `json:"args"`
}

// TraceFileSink appends occupancy counter samples as JSON lines that can be
// merged into a Chrome trace. One track is written per device.
type TraceFileSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

func NewTraceFileSink(path string) (*TraceFileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s := NewTraceWriterSink(f)
	s.closer = f
	return s, nil
}

func NewTraceWriterSink(w io.Writer) *TraceFileSink {
	return &TraceFileSink{w: bufio.NewWriter(w)}
}

func (s *TraceFileSink) Send(_ context.Context, batch *types.Batch) error {
	if batch.Type != types.BATCH_OCCUPANCY_SERIES {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	for _, ev := range batch.Batch {
		if ev.Token == nil {
			continue
		}
		if err := enc.Encode(tokenToCounter(ev)); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func tokenToCounter(ev *types.GpuEvent) counterEvent {
	return counterEvent{
		Phase: "C",
		Name:  counterName,
		Pid:   ev.Token.Device,
		Tid:   ev.Comm,
		Ts:    float64(ev.Token.Timestamp) / 1e3,
		Args:  map[string]float64{counterName: ev.Token.Value},
	}
}

func (s *TraceFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	if s.closer != nil {
		err = multierr.Append(err, s.closer.Close())
	}
	return err
}
