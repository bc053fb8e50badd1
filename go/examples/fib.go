// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"github.com/Fantom-foundation/Tessera/go/wasm/asm"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// GetFibExample computes Fibonacci numbers recursively. It is dominated by
// function calls.
func GetFibExample() Example {
	program := newProgram()
	fibFunction := program.Function([]op.ValueType{op.I32}, []op.ValueType{op.I32}, nil, asm.NewCode().
		LocalGet(0).I32Const(2).Op(op.I32_LT_U).
		If(op.I32).
		LocalGet(0).
		Else().
		LocalGet(0).I32Const(1).Op(op.I32_SUB).Call(firstDefinedFunction).
		LocalGet(0).I32Const(2).Op(op.I32_SUB).Call(firstDefinedFunction).
		Op(op.I32_ADD).
		End(),
	)
	if fibFunction != firstDefinedFunction {
		panic("unexpected function index")
	}

	return exampleSpec{
		name:      "fib",
		program:   program,
		compute:   asm.NewCode().LocalGet(0).Call(fibFunction),
		reference: fib,
	}.build()
}

func fib(n int) int {
	if n < 2 {
		return n
	}
	return fib(n-1) + fib(n-2)
}
