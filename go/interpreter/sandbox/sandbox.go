// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.
package sandbox

import (
	"fmt"
	"math"
	"os"

	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
)

// Registers the sandbox as a possible interpreter implementation.
func init() {
	mustRegister("sandbox", Config{})
}

// RegisterExperimentalInterpreterConfigurations registers the tracing and
// profiling configurations of the sandbox in the interpreter registry. They
// are intended for debugging and benchmarking, not for production use.
func RegisterExperimentalInterpreterConfigurations() {
	mustRegister("sandbox-logging", Config{runner: newLogger(os.Stderr)})
	mustRegister("sandbox-stats", Config{runner: &statisticRunner{stats: newStatistics()}})
}

func mustRegister(name string, config Config) {
	err := vm.RegisterInterpreterFactory(name, func(any) (vm.Interpreter, error) {
		return NewInterpreter(config), nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register interpreter %s: %v", name, err))
	}
}

type Config struct {
	runner runner
}

type sandbox struct {
	config Config
}

func NewInterpreter(config Config) *sandbox {
	if config.runner == nil {
		config.runner = vanillaRunner{}
	}
	return &sandbox{config: config}
}

func (s *sandbox) Instantiate(params vm.Parameters) (vm.Instance, error) {
	module := params.Module
	if module == nil || params.Meter == nil || params.Schedule == nil || params.Host == nil {
		return nil, fmt.Errorf("incomplete parameters")
	}
	entry := module.Deploy
	if params.Entry == vm.EntryCall {
		entry = module.Call
	}
	if int(entry) >= len(module.Functions) {
		return nil, fmt.Errorf("%w: %v function %d out of range", errInvalidEntry, params.Entry, entry)
	}
	if signature := module.Signature(entry); len(signature.Params) != 0 || len(signature.Results) != 0 {
		return nil, fmt.Errorf("%w: %v function has type %v", errInvalidEntry, params.Entry, signature)
	}

	memory := NewMemory(module.Memory.Initial, module.Memory.Maximum)
	heapStart := uint32(0)
	for _, segment := range module.Data {
		if err := memory.write(segment.Offset, segment.Data); err != nil {
			return nil, fmt.Errorf("invalid data segment at %d: %w", segment.Offset, err)
		}
		heapStart = max(heapStart, segment.Offset+uint32(len(segment.Data)))
	}
	heapEnd := uint32(min(memory.length(), math.MaxUint32))

	globals := make([]uint64, len(module.Globals))
	for i, global := range module.Globals {
		globals[i] = global.Init
	}

	return &instance{
		ctxt: context{
			params:   params,
			module:   module,
			schedule: params.Schedule,
			meter:    params.Meter,
			host:     params.Host,
			stack:    NewStack(),
			memory:   memory,
			globals:  globals,
			heap:     newHeap(heapStart, heapEnd),
		},
		runner: s.config.runner,
		entry:  entry,
	}, nil
}

func (s *sandbox) Profile() string {
	if statsRunner, ok := s.config.runner.(*statisticRunner); ok {
		return statsRunner.getSummary()
	}
	return ""
}

func (s *sandbox) ResetProfile() {
	if statsRunner, ok := s.config.runner.(*statisticRunner); ok {
		statsRunner.reset()
	}
}

// instance is a single, resumable execution of an entry point.
type instance struct {
	ctxt    context
	runner  runner
	entry   uint32
	started bool
	done    bool
}

func (i *instance) Execute() (vm.Yield, error) {
	if i.done {
		return vm.Yield{}, fmt.Errorf("instance has already finished")
	}
	if i.ctxt.request != nil {
		return vm.Yield{}, fmt.Errorf("missing result of %v request", i.ctxt.request.Kind)
	}
	if !i.started {
		i.started = true
		if err := i.ctxt.enter(i.entry); err != nil {
			return i.finish(statusFailed, err)
		}
	}
	status, err := i.runner.run(&i.ctxt)
	if err == nil && status == statusSuspended {
		return vm.Yield{Request: i.ctxt.request}, nil
	}
	return i.finish(status, err)
}

func (i *instance) Resume(result vm.CallResult) error {
	if i.done || i.ctxt.request == nil {
		return fmt.Errorf("no nested invocation pending")
	}
	i.ctxt.resume(result)
	return nil
}

func (i *instance) finish(status status, err error) (vm.Yield, error) {
	i.done = true
	ReturnStack(i.ctxt.stack)
	i.ctxt.stack = nil

	if err != nil {
		kind, isTrap := trapOf(err)
		if !isTrap {
			return vm.Yield{}, err
		}
		return vm.Yield{Outcome: tessera.TrappedWith(kind)}, nil
	}
	switch status {
	case statusReturned:
		return vm.Yield{Outcome: tessera.ReturnedWith(i.ctxt.returnData)}, nil
	case statusReverted:
		return vm.Yield{Outcome: tessera.RevertedWith(i.ctxt.returnData)}, nil
	}
	return vm.Yield{}, fmt.Errorf("unexpected error in interpreter, unknown status: %v", status)
}

var _ vm.ProfilingInterpreter = (*sandbox)(nil)
