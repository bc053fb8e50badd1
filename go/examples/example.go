// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package examples provides programs for tests and benchmarks. Each Example
// computes an (int)->int function whose result can be checked against a
// reference implementation.
package examples

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/Fantom-foundation/Tessera/go/wasm/asm"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
	"github.com/ethereum/go-ethereum/log"
)

// Example is an executable description of a program with a (int)->int
// signature.
type Example struct {
	Name      string
	Code      tessera.Code
	CodeHash  tessera.Hash
	module    *wasm.Module
	reference func(int) int
}

type Result struct {
	Result  int
	UsedGas tessera.Gas
}

// GetAllExamples returns all examples in a fixed order.
func GetAllExamples() []Example {
	return []Example{
		GetStaticOverheadExample(),
		GetArithmeticExample(),
		GetFibExample(),
		GetMemoryExample(),
		GetGasBurnerExample(),
	}
}

// Imports of every example program, in this order.
const (
	inputCopyFunction uint32 = iota
	returnFunction
	gasLeftFunction
	firstDefinedFunction
)

// newProgram creates a module builder with the imports of example programs.
// Helper functions defined on the result are numbered starting at
// firstDefinedFunction.
func newProgram() *contract {
	return newContract(wasm.ExtInputCopy, wasm.ExtReturn, wasm.ExtGasLeft)
}

// exampleSpec specifies a program by the code computing its result. The
// code finds the argument in local 0 and leaves the i32 result on the stack.
type exampleSpec struct {
	name      string
	program   *contract
	locals    []op.ValueType
	compute   *asm.Code
	reference func(int) int
}

func (s exampleSpec) build() Example {
	program := s.program
	if program == nil {
		program = newProgram()
	}
	body := asm.NewCode().
		// Load the argument into local 0.
		I32Const(0).I32Const(0).I32Const(4).Call(inputCopyFunction).
		I32Const(0).Load(op.I32_LOAD, 0).LocalSet(0).
		// Store and return the result.
		I32Const(0).Raw(s.compute.Bytes()...).Store(op.I32_STORE, 0).
		I32Const(0).I32Const(4).Call(returnFunction)

	code := program.build(body, append([]op.ValueType{op.I32}, s.locals...)...)
	schedule := gas.DefaultSchedule()
	module, err := wasm.Convert(code, &schedule)
	if err != nil {
		log.Crit("Unable to build example", "name", s.name, "err", err)
	}
	return Example{
		Name:      s.name,
		Code:      code,
		CodeHash:  tessera.CodeHash(code),
		module:    module,
		reference: s.reference,
	}
}

// RunOn runs this example on the given interpreter, using the given argument.
func (e *Example) RunOn(interpreter vm.Interpreter, argument int) (Result, error) {
	const initialGas = tessera.Gas(math.MaxInt64)
	schedule := gas.DefaultSchedule()
	meter := gas.NewMeter(initialGas)
	instance, err := interpreter.Instantiate(vm.Parameters{
		Host:     noOpHost{},
		Module:   e.module,
		Entry:    vm.EntryCall,
		Meter:    meter,
		Schedule: &schedule,
		Input:    encodeArgument(argument),
	})
	if err != nil {
		return Result{}, err
	}

	yield, err := instance.Execute()
	if err != nil {
		return Result{}, err
	}
	if yield.Request != nil {
		return Result{}, fmt.Errorf("unexpected %v request", yield.Request.Kind)
	}
	if !yield.Outcome.Success() {
		return Result{}, fmt.Errorf("execution failed: %v", yield.Outcome)
	}

	result, err := decodeOutput(yield.Outcome.Data)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Result:  result,
		UsedGas: meter.Consumed(),
	}, nil
}

// RunReference runs the reference function of this example to produce the
// expected result.
func (e *Example) RunReference(argument int) int {
	return e.reference(argument)
}

func encodeArgument(arg int) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(arg))
}

func decodeOutput(output []byte) (int, error) {
	if len(output) != 4 {
		return 0, fmt.Errorf("unexpected length of output; wanted 4, got %d", len(output))
	}
	return int(binary.LittleEndian.Uint32(output)), nil
}

// noOpHost is a vm.Host for programs not depending on any state. No
// operation has any effect.
type noOpHost struct{}

func (noOpHost) GetStorage(tessera.Key) (tessera.Data, bool) {
	return nil, false
}

func (noOpHost) SetStorage(tessera.Key, tessera.Data) {}

func (noOpHost) ClearStorage(tessera.Key) {}

func (noOpHost) Transfer(tessera.Address, tessera.Value) error {
	return tessera.ErrInsufficientFunds
}

func (noOpHost) Balance() tessera.Value {
	return tessera.Value{}
}

func (noOpHost) DepositEvent([]tessera.Hash, tessera.Data) {}
