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
	"math"
	"math/bits"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/Fantom-foundation/Tessera/go/wasm"
)

// status is enumeration of the execution state of an instance.
type status byte

const (
	statusRunning   status = iota // < all fine, instructions are processed
	statusSuspended               // < waiting for the result of a nested invocation
	statusReturned                // < the entry function returned
	statusReverted                // < execution stopped by ext_revert
	statusFailed                  // < execution stopped by a trap
)

// frame is the saved state of a calling function.
type frame struct {
	function uint32
	pc       int32
	base     int
}

// context is the execution environment of an instance. It contains the
// input parameters, the module, and the internal execution state such as
// the program counter, the stack of function frames and the memory.
type context struct {
	// Inputs
	params   vm.Parameters
	module   *wasm.Module
	schedule *gas.Schedule
	meter    *gas.Meter
	host     vm.Host

	// Execution state
	function uint32
	code     wasm.Code
	pc       int32
	base     int // < stack index of the first local of the running function
	frames   []frame
	stack    *stack
	memory   *Memory
	globals  []uint64
	heap     *heap

	// Intermediate data
	scratch    []byte          // < result of the last host function
	returnData []byte          // < set by ext_return
	request    *vm.CallRequest // < the pending nested invocation, if any
}

// useGas charges the given amount. Running out of gas is a trap.
func (c *context) useGas(amount tessera.Gas) error {
	return c.meter.Charge(amount)
}

// useGasPerByte charges price for each of the given number of bytes.
func (c *context) useGasPerByte(price tessera.Gas, size uint64) error {
	hi, lo := bits.Mul64(uint64(price), size)
	if hi != 0 {
		lo = math.MaxUint64
	}
	return c.meter.Charge(tessera.Gas(lo))
}

// enter starts the execution of the given defined function. Its parameters
// have to be on top of the stack.
func (c *context) enter(function uint32) error {
	limits := &c.schedule.Limits
	if len(c.frames) >= int(limits.MaxCallDepth) {
		return errCallDepth
	}
	f := &c.module.Functions[function]
	params := len(c.module.Types[f.Type].Params)
	base := c.stack.len() - params
	needed := uint64(params) + uint64(f.NumLocals) + uint64(f.MaxStackHeight)
	if uint64(base)+needed > uint64(limits.MaxStackHeight) {
		return errStackOverflow
	}
	c.stack.reserve(int(needed))
	for i := uint32(0); i < f.NumLocals; i++ {
		c.stack.push(0)
	}
	if c.code != nil {
		c.frames = append(c.frames, frame{function: c.function, pc: c.pc, base: c.base})
	}
	c.function = function
	c.code = f.Code
	c.pc = 0
	c.base = base
	return nil
}

// leave ends the running function, moving its results to the place of its
// locals. It returns true if the entry function has been left.
func (c *context) leave() bool {
	results := len(c.module.Types[c.module.Functions[c.function].Type].Results)
	s := c.stack
	copy(s.data[c.base:], s.data[s.stackPointer-results:s.stackPointer])
	s.stackPointer = c.base + results
	if len(c.frames) == 0 {
		return true
	}
	last := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	c.function = last.function
	c.code = c.module.Functions[last.function].Code
	c.pc = last.pc
	c.base = last.base
	return false
}

// --- Runners ---

type runner interface {
	// run executes the instance's code until it finishes or suspends.
	// Traps are reported as statusFailed and the error causing them. Errors
	// with no trap kind are runtime errors not caused by the contract.
	run(*context) (status, error)
}

// vanillaRunner executes the code without any additional features.
type vanillaRunner struct{}

func (vanillaRunner) run(c *context) (status, error) {
	return steps(c, false)
}

// step executes the single instruction pointed to by the program counter.
func step(c *context) (status, error) {
	return steps(c, true)
}

// --- Execution ---

// steps runs the code of the context. If oneStepOnly is true, only the
// instruction pointed to by the program counter is executed.
func steps(c *context, oneStepOnly bool) (status, error) {
	s := c.stack
	status := statusRunning
	for status == statusRunning {
		instruction := c.code[c.pc]
		c.pc++

		var err error
		switch instruction.Opcode {
		case wasm.GAS:
			err = c.useGas(tessera.Gas(instruction.Value))
		case wasm.GROW_GAS:
			if pages := uint32(*s.peek()); c.memory.canGrow(pages) {
				err = c.useGasPerByte(tessera.Gas(instruction.Value), uint64(pages))
			}
		case wasm.UNREACHABLE:
			err = errUnreachable

		case wasm.JUMP:
			if err = c.useGas(c.schedule.Branch); err == nil {
				c.pc = int32(instruction.Arg)
			}
		case wasm.JUMP_UNLESS:
			if err = c.useGas(c.schedule.Branch); err == nil && uint32(s.pop()) == 0 {
				c.pc = int32(instruction.Arg)
			}
		case wasm.BR:
			if err = c.useGas(c.schedule.Branch); err == nil {
				s.unwind(instruction.Unwind())
				c.pc = int32(instruction.Arg)
			}
		case wasm.BR_IF:
			if err = c.useGas(c.schedule.Branch); err == nil && uint32(s.pop()) != 0 {
				s.unwind(instruction.Unwind())
				c.pc = int32(instruction.Arg)
			}
		case wasm.BR_TABLE:
			if err = c.useGas(c.schedule.Branch); err == nil {
				index := uint32(s.pop())
				if index > instruction.Arg {
					index = instruction.Arg
				}
				target := c.code[c.pc+int32(index)]
				s.unwind(target.Unwind())
				c.pc = int32(target.Arg)
			}
		case wasm.RETURN:
			if err = c.useGas(c.schedule.Branch); err == nil && c.leave() {
				status = statusReturned
			}

		case wasm.CALL:
			if err = c.useGas(c.schedule.Call); err == nil {
				err = c.enter(instruction.Arg)
			}
		case wasm.CALL_INDIRECT:
			if err = c.useGas(c.schedule.CallIndirect); err == nil {
				err = c.callIndirect(instruction.Arg)
			}
		case wasm.CALL_HOST:
			status, err = c.callHost(wasm.HostFunction(instruction.Arg))

		case wasm.DROP:
			s.pop()
		case wasm.SELECT:
			condition := uint32(s.pop())
			second := s.pop()
			if condition == 0 {
				*s.peek() = second
			}

		case wasm.LOCAL_GET:
			s.push(s.data[c.base+int(instruction.Arg)])
		case wasm.LOCAL_SET:
			s.data[c.base+int(instruction.Arg)] = s.pop()
		case wasm.LOCAL_TEE:
			s.data[c.base+int(instruction.Arg)] = *s.peek()
		case wasm.GLOBAL_GET:
			s.push(c.globals[instruction.Arg])
		case wasm.GLOBAL_SET:
			c.globals[instruction.Arg] = s.pop()

		case wasm.MEMORY_SIZE:
			s.push(uint64(c.memory.pages()))
		case wasm.MEMORY_GROW:
			top := s.peek()
			*top = uint64(c.memory.grow(uint32(*top)))

		case wasm.I32_CONST, wasm.I64_CONST:
			s.push(instruction.Value)

		default:
			switch op := instruction.Opcode; {
			case op.IsLoad():
				err = opLoad(c, instruction)
			case op.IsStore():
				err = opStore(c, instruction)
			default:
				err = numeric(s, op)
			}
		}

		if err != nil {
			return statusFailed, err
		}
		if oneStepOnly {
			return status, nil
		}
	}
	return status, nil
}

// callIndirect calls the function stored in the table at the index on top
// of the stack, checking it against the expected type.
func (c *context) callIndirect(typ uint32) error {
	index := uint32(c.stack.pop())
	table := &c.module.Table
	if index >= uint32(len(table.Elements)) {
		return errInvalidCall
	}
	element := table.Elements[index]
	if element == 0 {
		return errInvalidCall
	}
	function := element - 1
	if int(function) >= len(c.module.Functions) || c.module.Functions[function].Type != typ {
		return errInvalidCall
	}
	return c.enter(function)
}
