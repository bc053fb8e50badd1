// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tessera

import "fmt"

// OutcomeKind enumerates the terminal states of a call frame.
type OutcomeKind byte

const (
	Returned OutcomeKind = iota // < the code finished normally
	Reverted                    // < the code explicitly aborted its execution
	Trapped                     // < a sandbox rule was violated
)

func (k OutcomeKind) String() string {
	switch k {
	case Returned:
		return "returned"
	case Reverted:
		return "reverted"
	case Trapped:
		return "trapped"
	}
	return fmt.Sprintf("OutcomeKind(%d)", k)
}

// TrapKind classifies the sandbox rule violation causing a trap.
type TrapKind byte

const (
	TrapNone TrapKind = iota
	TrapOutOfGas
	TrapMemoryAccess
	TrapInvalidCall
	TrapRecursionLimit
	TrapLengthExceeded
	TrapHostFunctionError
	TrapUnreachable
	TrapArithmetic
	TrapStackOverflow
	TrapInsufficientFunds
	numTrapKinds
)

func (k TrapKind) String() string {
	switch k {
	case TrapNone:
		return "none"
	case TrapOutOfGas:
		return "OutOfGas"
	case TrapMemoryAccess:
		return "MemoryAccess"
	case TrapInvalidCall:
		return "InvalidCall"
	case TrapRecursionLimit:
		return "RecursionLimit"
	case TrapLengthExceeded:
		return "LengthExceeded"
	case TrapHostFunctionError:
		return "HostFunctionError"
	case TrapUnreachable:
		return "Unreachable"
	case TrapArithmetic:
		return "Arithmetic"
	case TrapStackOverflow:
		return "StackOverflow"
	case TrapInsufficientFunds:
		return "InsufficientFunds"
	}
	return fmt.Sprintf("TrapKind(%d)", k)
}

// GetAllTrapKinds returns all trap kinds a frame may end with.
func GetAllTrapKinds() []TrapKind {
	res := make([]TrapKind, 0, numTrapKinds-1)
	for k := TrapOutOfGas; k < numTrapKinds; k++ {
		res = append(res, k)
	}
	return res
}

// Outcome is the terminal result of a single call frame. Traps and reverts
// are values handed to the caller, never unwound across frame boundaries.
type Outcome struct {
	Kind OutcomeKind
	Data Data     // < the return data for Returned, the reason for Reverted
	Trap TrapKind // < only set for Trapped
}

func ReturnedWith(data Data) Outcome {
	return Outcome{Kind: Returned, Data: data}
}

func RevertedWith(reason Data) Outcome {
	return Outcome{Kind: Reverted, Data: reason}
}

func TrappedWith(kind TrapKind) Outcome {
	return Outcome{Kind: Trapped, Trap: kind}
}

// Success is true if the frame's effects are to be kept.
func (o Outcome) Success() bool {
	return o.Kind == Returned
}

// Code is the status code reported to contracts inspecting the outcome of
// a nested invocation: 0 for Returned, 1 for Reverted, and 2 plus the trap
// kind for traps.
func (o Outcome) Code() uint32 {
	switch o.Kind {
	case Returned:
		return 0
	case Reverted:
		return 1
	}
	return 2 + uint32(o.Trap)
}

func (o Outcome) String() string {
	switch o.Kind {
	case Returned:
		return fmt.Sprintf("returned(0x%x)", []byte(o.Data))
	case Reverted:
		return fmt.Sprintf("reverted(0x%x)", []byte(o.Data))
	}
	return fmt.Sprintf("trapped(%v)", o.Trap)
}
