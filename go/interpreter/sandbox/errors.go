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
	"errors"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
)

const (
	errMemoryAccess    = tessera.ConstError("memory access out of bounds")
	errInvalidCall     = tessera.ConstError("invalid indirect call")
	errLengthExceeded  = tessera.ConstError("length exceeds limit")
	errHostFunction    = tessera.ConstError("host function failed")
	errUnreachable     = tessera.ConstError("unreachable executed")
	errDivisionByZero  = tessera.ConstError("integer division by zero")
	errIntegerOverflow = tessera.ConstError("integer overflow")
	errStackOverflow   = tessera.ConstError("stack overflow")
	errCallDepth       = tessera.ConstError("call depth exceeded")
	errUnknownHostCall = tessera.ConstError("unknown host function")
	errInvalidEntry    = tessera.ConstError("invalid entry point")
)

// trapKinds maps the errors of failed executions to the trap they cause.
var trapKinds = []struct {
	err  error
	kind tessera.TrapKind
}{
	{gas.ErrOutOfGas, tessera.TrapOutOfGas},
	{errMemoryAccess, tessera.TrapMemoryAccess},
	{errInvalidCall, tessera.TrapInvalidCall},
	{errLengthExceeded, tessera.TrapLengthExceeded},
	{errHostFunction, tessera.TrapHostFunctionError},
	{errUnknownHostCall, tessera.TrapHostFunctionError},
	{errUnreachable, tessera.TrapUnreachable},
	{errDivisionByZero, tessera.TrapArithmetic},
	{errIntegerOverflow, tessera.TrapArithmetic},
	{errStackOverflow, tessera.TrapStackOverflow},
	{errCallDepth, tessera.TrapStackOverflow},
	{tessera.ErrInsufficientFunds, tessera.TrapInsufficientFunds},
}

// trapOf returns the trap caused by the given execution error. The result
// is false for errors that are not the contract's fault.
func trapOf(err error) (tessera.TrapKind, bool) {
	for _, cur := range trapKinds {
		if errors.Is(err, cur.err) {
			return cur.kind, true
		}
	}
	return tessera.TrapNone, false
}
