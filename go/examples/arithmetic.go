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
	"math"

	"github.com/Fantom-foundation/Tessera/go/wasm/asm"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// GetArithmeticExample provides a loop of 64-bit integer operations
// equivalent to the following code:
//
//	result := 0
//	for i := 1; i <= n; i++ {
//		result += i
//		result *= i
//		result += i * i
//		result -= i
//		result /= i
//		result *= (i % 3) + 1
//		result += i * i * i
//	}
//	return result % math.MaxInt32
func GetArithmeticExample() Example {
	const (
		result = 1
		i      = 2
		n      = 3
	)
	compute := asm.NewCode().
		LocalGet(0).Op(op.I64_EXTEND_I32_U).LocalSet(n).
		I64Const(1).LocalSet(i).
		Block().Loop().
		LocalGet(i).LocalGet(n).Op(op.I64_GT_U).BrIf(1).
		LocalGet(result).LocalGet(i).Op(op.I64_ADD).LocalSet(result).
		LocalGet(result).LocalGet(i).Op(op.I64_MUL).LocalSet(result).
		LocalGet(result).LocalGet(i).LocalGet(i).Op(op.I64_MUL, op.I64_ADD).LocalSet(result).
		LocalGet(result).LocalGet(i).Op(op.I64_SUB).LocalSet(result).
		LocalGet(result).LocalGet(i).Op(op.I64_DIV_U).LocalSet(result).
		LocalGet(result).LocalGet(i).I64Const(3).Op(op.I64_REM_U).I64Const(1).Op(op.I64_ADD, op.I64_MUL).LocalSet(result).
		LocalGet(result).LocalGet(i).LocalGet(i).Op(op.I64_MUL).LocalGet(i).Op(op.I64_MUL, op.I64_ADD).LocalSet(result).
		LocalGet(i).I64Const(1).Op(op.I64_ADD).LocalSet(i).
		Br(0).
		End().End().
		LocalGet(result).I64Const(math.MaxInt32).Op(op.I64_REM_U, op.I32_WRAP_I64)

	return exampleSpec{
		name:      "arithmetic",
		locals:    []op.ValueType{op.I64, op.I64, op.I64},
		compute:   compute,
		reference: arithmetic,
	}.build()
}

func arithmetic(arg int) int {
	n := uint64(uint32(arg))
	result := uint64(0)
	for i := uint64(1); i <= n; i++ {
		result += i
		result *= i
		result += i * i
		result -= i
		result /= i
		result *= (i % 3) + 1
		result += i * i * i
	}
	return int(result % math.MaxInt32)
}
