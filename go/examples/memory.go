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

const (
	memorySlots  = 1024
	memoryOffset = 64
)

// GetMemoryExample writes the squares of 0..n-1 into a ring of 1024 slots
// of linear memory and returns the wrapped sum of all slots. It is
// dominated by loads and stores.
func GetMemoryExample() Example {
	const (
		i   = 1
		sum = 2
	)
	slotAddress := func(code *asm.Code) *asm.Code {
		return code.I32Const(2).Op(op.I32_SHL).I32Const(memoryOffset).Op(op.I32_ADD)
	}

	compute := asm.NewCode().
		Block().Loop().
		LocalGet(i).LocalGet(0).Op(op.I32_GE_U).BrIf(1)
	compute = slotAddress(compute.LocalGet(i).I32Const(memorySlots-1).Op(op.I32_AND)).
		LocalGet(i).LocalGet(i).Op(op.I32_MUL).
		Store(op.I32_STORE, 0).
		LocalGet(i).I32Const(1).Op(op.I32_ADD).LocalSet(i).
		Br(0).
		End().End().
		I32Const(0).LocalSet(i).
		Block().Loop().
		LocalGet(i).I32Const(memorySlots).Op(op.I32_GE_U).BrIf(1).
		LocalGet(sum)
	compute = slotAddress(compute.LocalGet(i)).
		Load(op.I32_LOAD, 0).
		Op(op.I32_ADD).LocalSet(sum).
		LocalGet(i).I32Const(1).Op(op.I32_ADD).LocalSet(i).
		Br(0).
		End().End().
		LocalGet(sum)

	return exampleSpec{
		name:      "memory",
		locals:    []op.ValueType{op.I32, op.I32},
		compute:   compute,
		reference: memorySum,
	}.build()
}

func memorySum(n int) int {
	var slots [memorySlots]uint32
	for i := uint32(0); i < uint32(n); i++ {
		slots[i&(memorySlots-1)] = i * i
	}
	sum := uint32(0)
	for _, v := range slots {
		sum += v
	}
	return int(sum)
}
