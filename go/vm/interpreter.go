// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/wasm"
)

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package vm

// Interpreter is a component capable of executing instrumented modules.
// To obtain an Interpreter, client code should use NewInterpreter() provided
// by the registry file in this package.
type Interpreter interface {
	// Instantiate prepares the execution of one entry point of a module. The
	// resulting instance is owned by a single call frame. Interpreters are
	// required to be thread-safe, instances are not.
	Instantiate(Parameters) (Instance, error)
}

// Instance is a resumable execution of a module. Nested contract
// invocations are not performed by the instance itself: Execute returns
// with a request, and the execution continues after the result has been
// provided through Resume. This way the depth of nested invocations is not
// bound to the depth of the Go call stack.
type Instance interface {
	// Execute runs the instance until it finishes or requests a nested
	// invocation. The resulting error is nil whenever the code was correctly
	// executed, even if the execution was aborted due to a trap.
	Execute() (Yield, error)
	// Resume delivers the result of the invocation requested by the last
	// Yield. It must be called before Execute is called again.
	Resume(CallResult) error
}

// Parameters summarizes the input required for executing an entry point.
type Parameters struct {
	Host     Host
	Module   *wasm.Module
	Entry    Entry
	Meter    *gas.Meter
	Schedule *gas.Schedule
	Depth    int
	Caller   tessera.Address
	Callee   tessera.Address
	Value    tessera.Value
	Input    tessera.Data
}

// Entry selects the exported function an instance runs.
type Entry byte

const (
	EntryDeploy Entry = iota
	EntryCall
)

func (e Entry) String() string {
	switch e {
	case EntryDeploy:
		return "deploy"
	case EntryCall:
		return "call"
	}
	return fmt.Sprintf("Entry(%d)", e)
}

// Yield is the result of a single Execute step. Exactly one of Request and
// Outcome is meaningful: if Request is nil, the instance has finished.
type Yield struct {
	Request *CallRequest
	Outcome tessera.Outcome
}

// CallKind distinguishes the nested invocations a contract may request.
type CallKind byte

const (
	Call CallKind = iota
	Instantiate
)

func (k CallKind) String() string {
	switch k {
	case Call:
		return "call"
	case Instantiate:
		return "instantiate"
	}
	return fmt.Sprintf("CallKind(%d)", k)
}

// CallRequest describes a nested invocation requested by a contract.
type CallRequest struct {
	Kind     CallKind
	Callee   tessera.Address // < target of a Call
	CodeHash tessera.Hash    // < code to Instantiate
	Gas      tessera.Gas     // < upper limit for the child's budget
	Value    tessera.Value
	Input    tessera.Data
}

// CallResult is the result of a nested invocation.
type CallResult struct {
	Outcome tessera.Outcome
	Address tessera.Address // < the new contract of a successful Instantiate
}

// Host provides the state access of the frame an instance is running in.
// All operations act on the frame's private overlay.
type Host interface {
	GetStorage(tessera.Key) (tessera.Data, bool)
	SetStorage(tessera.Key, tessera.Data)
	ClearStorage(tessera.Key)

	// Transfer moves value from the running contract to the given account.
	// It fails with tessera.ErrInsufficientFunds without any effect.
	Transfer(to tessera.Address, value tessera.Value) error
	// Balance is the balance of the running contract.
	Balance() tessera.Value

	DepositEvent(topics []tessera.Hash, data tessera.Data)
}

// ProfilingInterpreter is an optional extension of the Interpreter interface
// implemented by interpreters collecting statistics on their executions.
type ProfilingInterpreter interface {
	Interpreter

	// ResetProfile drops the statistics collected so far. It should not be
	// called while instances are executed in parallel.
	ResetProfile()

	// Profile returns a human readable summary of the statistics collected
	// since the last reset.
	Profile() string
}
