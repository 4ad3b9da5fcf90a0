package occupancy

import (
	"errors"
	"fmt"
)

type fakeSource struct {
	count    int
	countErr error
	props    []DeviceProp
	failAt   int
	queried  []int
}

func newFakeSource(props ...DeviceProp) *fakeSource {
	return &fakeSource{count: len(props), props: props, failAt: -1}
}

func (f *fakeSource) DeviceCount() (int, error) {
	return f.count, f.countErr
}

func (f *fakeSource) DeviceProperties(ordinal int) (DeviceProp, error) {
	f.queried = append(f.queried, ordinal)
	if ordinal == f.failAt {
		return DeviceProp{}, errors.New("device query failed")
	}
	if ordinal >= len(f.props) {
		return DeviceProp{}, fmt.Errorf("no device %d", ordinal)
	}
	return f.props[ordinal], nil
}

type stubModel struct {
	blocks int
	err    error

	calls     int
	lastProp  DeviceProp
	lastAttr  FuncAttributes
	lastState DeviceState
	lastBlock int
	lastDyn   uint64
}

func (m *stubModel) MaxActiveBlocksPerMultiprocessor(prop *DeviceProp, attr *FuncAttributes, state *DeviceState, blockSize int, dynamicSmemBytes uint64) (Result, error) {
	m.calls++
	m.lastProp = *prop
	m.lastAttr = *attr
	m.lastState = *state
	m.lastBlock = blockSize
	m.lastDyn = dynamicSmemBytes
	if m.err != nil {
		return Result{}, m.err
	}
	return Result{ActiveBlocksPerMultiprocessor: m.blocks}, nil
}

func a100() DeviceProp {
	return DeviceProp{
		Name:                        "NVIDIA A100-SXM4-40GB",
		ComputeMajor:                8,
		ComputeMinor:                0,
		MultiprocessorCount:         108,
		MaxThreadsPerBlock:          1024,
		MaxThreadsPerMultiprocessor: 2048,
		RegsPerBlock:                65536,
		RegsPerMultiprocessor:       65536,
		WarpSize:                    32,
		SharedMemPerBlock:           49152,
		SharedMemPerMultiprocessor:  167936,
		SharedMemPerBlockOptin:      166912,
		ReservedSharedMemPerBlock:   1024,
	}
}

func rtx3090() DeviceProp {
	p := a100()
	p.Name = "NVIDIA GeForce RTX 3090"
	p.ComputeMinor = 6
	p.MultiprocessorCount = 82
	p.MaxThreadsPerMultiprocessor = 1536
	p.SharedMemPerMultiprocessor = 102400
	p.SharedMemPerBlockOptin = 101376
	return p
}

func t4() DeviceProp {
	return DeviceProp{
		Name:                        "Tesla T4",
		ComputeMajor:                7,
		ComputeMinor:                5,
		MultiprocessorCount:         40,
		MaxThreadsPerBlock:          1024,
		MaxThreadsPerMultiprocessor: 1024,
		RegsPerBlock:                65536,
		RegsPerMultiprocessor:       65536,
		WarpSize:                    32,
		SharedMemPerBlock:           49152,
		SharedMemPerMultiprocessor:  65536,
		SharedMemPerBlockOptin:      65536,
	}
}
