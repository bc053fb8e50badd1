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

// GetGasBurnerExample provides a program running a loop until at least the
// given amount of gas has been consumed. It is equivalent to:
//
//	want := gasLeft() - x
//	for gasLeft() > want {}
//	return x
func GetGasBurnerExample() Example {
	const want = 1
	compute := asm.NewCode().
		Call(gasLeftFunction).LocalGet(0).Op(op.I64_EXTEND_I32_U, op.I64_SUB).LocalSet(want).
		Block().Loop().
		Call(gasLeftFunction).LocalGet(want).Op(op.I64_LE_U).BrIf(1).
		Br(0).
		End().End().
		LocalGet(0)

	return exampleSpec{
		name:      "gas_burner",
		locals:    []op.ValueType{op.I64},
		compute:   compute,
		reference: burnGas,
	}.build()
}

func burnGas(x int) int {
	return x
}
