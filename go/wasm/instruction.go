// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package wasm

import (
	"bytes"
	"fmt"
)

// Instruction is a single step of an instrumented function.
//
// The meaning of the operands depends on the op code:
//   - BR, BR_IF and DATA: Arg is the target, Value is drop<<32|keep, the
//     number of operands to drop below the kept branch results
//   - BR_TABLE: Arg is the number of labels, followed by Arg+1 DATA entries
//   - JUMP, JUMP_UNLESS: Arg is the target
//   - CALL: Arg is the index of the defined function
//   - CALL_INDIRECT: Arg is the expected type index
//   - CALL_HOST: Arg is the HostFunction
//   - loads and stores: Arg is the static offset
//   - locals and globals: Arg is the index
//   - I32_CONST, I64_CONST: Value is the constant
//   - GAS, GROW_GAS: Value is the price
type Instruction struct {
	Opcode OpCode
	Arg    uint32
	Value  uint64
}

// Code is the instrumented instruction stream of a function.
type Code []Instruction

// branchOperands packs the stack unwinding information of a branch.
func branchOperands(drop, keep uint32) uint64 {
	return uint64(drop)<<32 | uint64(keep)
}

// Unwind returns the stack unwinding information of a branch instruction.
func (i Instruction) Unwind() (drop, keep uint32) {
	return uint32(i.Value >> 32), uint32(i.Value)
}

func (i Instruction) String() string {
	switch {
	case i.Opcode == BR || i.Opcode == BR_IF || i.Opcode == DATA:
		drop, keep := i.Unwind()
		return fmt.Sprintf("%v 0x%04x drop=%d keep=%d", i.Opcode, i.Arg, drop, keep)
	case i.Opcode.HasArgument():
		return fmt.Sprintf("%v 0x%04x", i.Opcode, i.Arg)
	case i.Opcode.HasValue():
		return fmt.Sprintf("%v %d", i.Opcode, i.Value)
	}
	return i.Opcode.String()
}

func (c Code) String() string {
	var buffer bytes.Buffer
	for i, instruction := range c {
		buffer.WriteString(fmt.Sprintf("0x%04x: %v\n", i, instruction))
	}
	return buffer.String()
}
