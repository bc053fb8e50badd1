// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package contracts implements the entry points of the engine: uploading
// code, instantiating contracts and calling them. Nested invocations are
// executed on an explicit stack of frames; a call tree never recurses on
// the Go stack.
package contracts

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// CodeStore provides the modules of uploaded code.
type CodeStore interface {
	// Put validates, instruments and stores the given code. Rejected code
	// produces a *wasm.ValidationError.
	Put(tessera.Code) (tessera.Hash, *wasm.Module, error)
	// Get fails with tessera.ErrUnknownCode for unknown hashes.
	Get(tessera.Hash) (*wasm.Module, error)
	// Schedule is the cost schedule used for instrumentation.
	Schedule() *gas.Schedule
}

// Config contains the options of a Processor.
type Config struct {
	// Interpreter is the name of the registered interpreter to use. If
	// empty, "sandbox" is used.
	Interpreter string
	// InterpreterConfig is passed to the interpreter factory.
	InterpreterConfig any
}

const defaultInterpreter = "sandbox"

// Processor executes contract invocations against a world state. It holds
// no per-invocation state; concurrent invocations are supported as far as
// the world state permits.
type Processor struct {
	interpreter vm.Interpreter
	store       CodeStore
	state       tessera.WorldState
}

// New creates a processor using a registered interpreter.
func New(config Config, store CodeStore, state tessera.WorldState) (*Processor, error) {
	name := config.Interpreter
	if name == "" {
		name = defaultInterpreter
	}
	var interpreter vm.Interpreter
	var err error
	if config.InterpreterConfig == nil {
		interpreter, err = vm.NewInterpreter(name)
	} else {
		interpreter, err = vm.NewInterpreter(name, config.InterpreterConfig)
	}
	if err != nil {
		return nil, err
	}
	return NewWithInterpreter(interpreter, store, state), nil
}

// NewWithInterpreter creates a processor using the given interpreter.
func NewWithInterpreter(interpreter vm.Interpreter, store CodeStore, state tessera.WorldState) *Processor {
	return &Processor{
		interpreter: interpreter,
		store:       store,
		state:       state,
	}
}

// UploadReceipt summarizes the result of a PutCode operation.
type UploadReceipt struct {
	CodeHash tessera.Hash
	GasUsed  tessera.Gas
	// Err is nil if the code was stored. It is a *wasm.ValidationError for
	// rejected code and gas.ErrOutOfGas if the gas limit does not cover the
	// upload fee.
	Err error
}

func (r UploadReceipt) Success() bool {
	return r.Err == nil
}

// Receipt summarizes the result of a top-level invocation.
type Receipt struct {
	Outcome tessera.Outcome
	GasUsed tessera.Gas
	// Address is the new contract of a successful instantiation.
	Address tessera.Address
	// Events is the event log committed by a successful invocation.
	Events []tessera.Event
}

type CallParameters struct {
	Caller   tessera.Address
	Callee   tessera.Address
	Value    tessera.Value
	Input    tessera.Data
	GasLimit tessera.Gas
}

type InstantiateParameters struct {
	Deployer  tessera.Address
	CodeHash  tessera.Hash
	Endowment tessera.Value
	Input     tessera.Data
	GasLimit  tessera.Gas
}

// PutCode validates and stores the given code. A flat fee depending on the
// code size is charged before validation; no other gas is consumed.
func (p *Processor) PutCode(code tessera.Code, gasLimit tessera.Gas) (UploadReceipt, error) {
	meter := gas.NewMeter(gasLimit)
	if err := meter.Charge(p.store.Schedule().UploadFee(len(code))); err != nil {
		return UploadReceipt{GasUsed: meter.Consumed(), Err: err}, nil
	}
	hash, _, err := p.store.Put(code)
	if err != nil {
		var validationErr *wasm.ValidationError
		if errors.As(err, &validationErr) {
			log.Debug("Rejected code", "size", len(code), "rule", validationErr.Rule, "detail", validationErr.Detail)
			return UploadReceipt{GasUsed: meter.Consumed(), Err: validationErr}, nil
		}
		return UploadReceipt{}, fmt.Errorf("failed to store code: %w", err)
	}
	log.Debug("Uploaded code", "hash", hash, "size", len(code), "gasUsed", meter.Consumed())
	return UploadReceipt{CodeHash: hash, GasUsed: meter.Consumed()}, nil
}

// Instantiate creates a new contract from uploaded code and runs its deploy
// function. The address of the contract is derived from the deployer, the
// code hash and the input.
func (p *Processor) Instantiate(params InstantiateParameters) (Receipt, error) {
	return p.run(params.GasLimit, vm.CallRequest{
		Kind:     vm.Instantiate,
		CodeHash: params.CodeHash,
		Value:    params.Endowment,
		Input:    params.Input,
	}, params.Deployer)
}

// Call runs the call function of an existing contract.
func (p *Processor) Call(params CallParameters) (Receipt, error) {
	return p.run(params.GasLimit, vm.CallRequest{
		Kind:   vm.Call,
		Callee: params.Callee,
		Value:  params.Value,
		Input:  params.Input,
	}, params.Caller)
}

// ContractAddress computes the address of the contract instantiated by the
// given deployer from the given code and input.
func ContractAddress(deployer tessera.Address, codeHash tessera.Hash, input tessera.Data) tessera.Address {
	var res tessera.Address
	copy(res[:], crypto.Keccak256(deployer[:], codeHash[:], input)[12:])
	return res
}

func (p *Processor) run(gasLimit tessera.Gas, request vm.CallRequest, caller tessera.Address) (Receipt, error) {
	root := newOverlay(p.state)
	meter := gas.NewMeter(gasLimit)

	outcome, address, err := p.execute(root, meter, caller, request)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		Outcome: outcome,
		GasUsed: meter.Consumed(),
	}
	if outcome.Success() {
		if err := root.commit(); err != nil {
			return Receipt{}, fmt.Errorf("failed to commit: %w", err)
		}
		receipt.Events = root.events
		if request.Kind == vm.Instantiate {
			receipt.Address = address
		}
	}
	log.Debug("Invocation finished", "kind", request.Kind, "caller", caller, "outcome", outcome, "gasUsed", receipt.GasUsed)
	return receipt, nil
}

// execute runs a call tree. Frames are kept in an arena indexed by their
// depth; nested requests of the top frame push a new frame, finished frames
// are popped and their result is delivered to the frame below.
func (p *Processor) execute(
	root *overlay,
	meter *gas.Meter,
	caller tessera.Address,
	request vm.CallRequest,
) (tessera.Outcome, tessera.Address, error) {
	first, refused, err := p.open(root, meter, 0, caller, request)
	if err != nil {
		return tessera.Outcome{}, tessera.Address{}, err
	}
	if refused != nil {
		return refused.Outcome, tessera.Address{}, nil
	}

	frames := []*frame{first}
	for {
		top := frames[len(frames)-1]
		yield, err := top.instance.Execute()
		if err != nil {
			return tessera.Outcome{}, tessera.Address{}, fmt.Errorf("execution failed at depth %d: %w", top.depth, err)
		}

		if yield.Request != nil {
			child, refused, err := p.open(top.overlay, top.meter.SpawnChild(yield.Request.Gas), top.depth+1, top.address, *yield.Request)
			if err != nil {
				return tessera.Outcome{}, tessera.Address{}, err
			}
			if refused != nil {
				if err := top.instance.Resume(*refused); err != nil {
					return tessera.Outcome{}, tessera.Address{}, err
				}
				continue
			}
			frames = append(frames, child)
			continue
		}

		// The top frame has finished.
		frames[len(frames)-1] = nil
		frames = frames[:len(frames)-1]
		outcome := yield.Outcome
		parent := root
		if len(frames) > 0 {
			parent = frames[len(frames)-1].overlay
		}
		if outcome.Success() {
			top.overlay.mergeInto(parent)
		}
		log.Trace("Frame finished", "depth", top.depth, "address", top.address, "outcome", outcome, "gas", top.meter)

		if len(frames) == 0 {
			return outcome, top.address, nil
		}
		below := frames[len(frames)-1]
		below.meter.Settle(top.meter)
		result := vm.CallResult{Outcome: outcome}
		if top.kind == vm.Instantiate && outcome.Success() {
			result.Address = top.address
		}
		if err := below.instance.Resume(result); err != nil {
			return tessera.Outcome{}, tessera.Address{}, err
		}
	}
}

// open creates the frame for the given request. If the frame can not be
// started, the result to be handed to the caller is returned instead. Gas
// is only consumed by frames that start.
func (p *Processor) open(
	parent *overlay,
	meter *gas.Meter,
	depth int,
	caller tessera.Address,
	request vm.CallRequest,
) (*frame, *vm.CallResult, error) {
	refuse := func(kind tessera.TrapKind) (*frame, *vm.CallResult, error) {
		log.Trace("Frame refused", "depth", depth, "kind", request.Kind, "trap", kind)
		return nil, &vm.CallResult{Outcome: tessera.TrappedWith(kind)}, nil
	}

	schedule := p.store.Schedule()
	if depth >= int(schedule.Limits.MaxRecursionDepth) {
		return refuse(tessera.TrapRecursionLimit)
	}

	var address tessera.Address
	var codeHash tessera.Hash
	entry := vm.EntryCall
	switch request.Kind {
	case vm.Call:
		var found bool
		address = request.Callee
		if codeHash, found = parent.getContract(address); !found {
			return refuse(tessera.TrapHostFunctionError)
		}
	case vm.Instantiate:
		codeHash = request.CodeHash
		address = ContractAddress(caller, codeHash, request.Input)
		if _, found := parent.getContract(address); found {
			return refuse(tessera.TrapHostFunctionError)
		}
		entry = vm.EntryDeploy
	default:
		return nil, nil, fmt.Errorf("unknown call kind: %v", request.Kind)
	}

	module, err := p.store.Get(codeHash)
	if errors.Is(err, tessera.ErrUnknownCode) {
		return refuse(tessera.TrapHostFunctionError)
	}
	if err != nil {
		return nil, nil, err
	}

	effects := parent.child()
	if err := effects.transfer(caller, address, request.Value); err != nil {
		if errors.Is(err, tessera.ErrInsufficientFunds) {
			return refuse(tessera.TrapInsufficientFunds)
		}
		return refuse(tessera.TrapHostFunctionError)
	}
	if request.Kind == vm.Instantiate {
		effects.setContract(address, codeHash)
	}

	res := &frame{
		kind:    request.Kind,
		address: address,
		depth:   depth,
		overlay: effects,
		meter:   meter,
	}
	res.instance, err = p.interpreter.Instantiate(vm.Parameters{
		Host:     res,
		Module:   module,
		Entry:    entry,
		Meter:    meter,
		Schedule: schedule,
		Depth:    depth,
		Caller:   caller,
		Callee:   address,
		Value:    request.Value,
		Input:    request.Input,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to instantiate %v: %w", codeHash, err)
	}
	log.Trace("Frame opened", "depth", depth, "kind", request.Kind, "address", address, "gas", meter)
	return res, nil, nil
}
