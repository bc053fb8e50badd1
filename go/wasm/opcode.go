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
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// OpCode is the operation code of an instrumented instruction. Operations
// taken over from the binary format keep their byte value, operations only
// introduced by the instrumentation are numbered from 0x100 on.
type OpCode uint16

const (
	UNREACHABLE      = OpCode(op.UNREACHABLE)
	BR               = OpCode(op.BR)
	BR_IF            = OpCode(op.BR_IF)
	BR_TABLE         = OpCode(op.BR_TABLE)
	RETURN           = OpCode(op.RETURN)
	CALL             = OpCode(op.CALL)
	CALL_INDIRECT    = OpCode(op.CALL_INDIRECT)
	DROP             = OpCode(op.DROP)
	SELECT           = OpCode(op.SELECT)
	LOCAL_GET        = OpCode(op.LOCAL_GET)
	LOCAL_SET        = OpCode(op.LOCAL_SET)
	LOCAL_TEE        = OpCode(op.LOCAL_TEE)
	GLOBAL_GET       = OpCode(op.GLOBAL_GET)
	GLOBAL_SET       = OpCode(op.GLOBAL_SET)
	I32_LOAD         = OpCode(op.I32_LOAD)
	I64_LOAD         = OpCode(op.I64_LOAD)
	I32_LOAD8_S      = OpCode(op.I32_LOAD8_S)
	I32_LOAD8_U      = OpCode(op.I32_LOAD8_U)
	I32_LOAD16_S     = OpCode(op.I32_LOAD16_S)
	I32_LOAD16_U     = OpCode(op.I32_LOAD16_U)
	I64_LOAD8_S      = OpCode(op.I64_LOAD8_S)
	I64_LOAD8_U      = OpCode(op.I64_LOAD8_U)
	I64_LOAD16_S     = OpCode(op.I64_LOAD16_S)
	I64_LOAD16_U     = OpCode(op.I64_LOAD16_U)
	I64_LOAD32_S     = OpCode(op.I64_LOAD32_S)
	I64_LOAD32_U     = OpCode(op.I64_LOAD32_U)
	I32_STORE        = OpCode(op.I32_STORE)
	I64_STORE        = OpCode(op.I64_STORE)
	I32_STORE8       = OpCode(op.I32_STORE8)
	I32_STORE16      = OpCode(op.I32_STORE16)
	I64_STORE8       = OpCode(op.I64_STORE8)
	I64_STORE16      = OpCode(op.I64_STORE16)
	I64_STORE32      = OpCode(op.I64_STORE32)
	MEMORY_SIZE      = OpCode(op.MEMORY_SIZE)
	MEMORY_GROW      = OpCode(op.MEMORY_GROW)
	I32_CONST        = OpCode(op.I32_CONST)
	I64_CONST        = OpCode(op.I64_CONST)
	I32_EQZ          = OpCode(op.I32_EQZ)
	I32_EQ           = OpCode(op.I32_EQ)
	I32_NE           = OpCode(op.I32_NE)
	I32_LT_S         = OpCode(op.I32_LT_S)
	I32_LT_U         = OpCode(op.I32_LT_U)
	I32_GT_S         = OpCode(op.I32_GT_S)
	I32_GT_U         = OpCode(op.I32_GT_U)
	I32_LE_S         = OpCode(op.I32_LE_S)
	I32_LE_U         = OpCode(op.I32_LE_U)
	I32_GE_S         = OpCode(op.I32_GE_S)
	I32_GE_U         = OpCode(op.I32_GE_U)
	I64_EQZ          = OpCode(op.I64_EQZ)
	I64_EQ           = OpCode(op.I64_EQ)
	I64_NE           = OpCode(op.I64_NE)
	I64_LT_S         = OpCode(op.I64_LT_S)
	I64_LT_U         = OpCode(op.I64_LT_U)
	I64_GT_S         = OpCode(op.I64_GT_S)
	I64_GT_U         = OpCode(op.I64_GT_U)
	I64_LE_S         = OpCode(op.I64_LE_S)
	I64_LE_U         = OpCode(op.I64_LE_U)
	I64_GE_S         = OpCode(op.I64_GE_S)
	I64_GE_U         = OpCode(op.I64_GE_U)
	I32_CLZ          = OpCode(op.I32_CLZ)
	I32_CTZ          = OpCode(op.I32_CTZ)
	I32_POPCNT       = OpCode(op.I32_POPCNT)
	I32_ADD          = OpCode(op.I32_ADD)
	I32_SUB          = OpCode(op.I32_SUB)
	I32_MUL          = OpCode(op.I32_MUL)
	I32_DIV_S        = OpCode(op.I32_DIV_S)
	I32_DIV_U        = OpCode(op.I32_DIV_U)
	I32_REM_S        = OpCode(op.I32_REM_S)
	I32_REM_U        = OpCode(op.I32_REM_U)
	I32_AND          = OpCode(op.I32_AND)
	I32_OR           = OpCode(op.I32_OR)
	I32_XOR          = OpCode(op.I32_XOR)
	I32_SHL          = OpCode(op.I32_SHL)
	I32_SHR_S        = OpCode(op.I32_SHR_S)
	I32_SHR_U        = OpCode(op.I32_SHR_U)
	I32_ROTL         = OpCode(op.I32_ROTL)
	I32_ROTR         = OpCode(op.I32_ROTR)
	I64_CLZ          = OpCode(op.I64_CLZ)
	I64_CTZ          = OpCode(op.I64_CTZ)
	I64_POPCNT       = OpCode(op.I64_POPCNT)
	I64_ADD          = OpCode(op.I64_ADD)
	I64_SUB          = OpCode(op.I64_SUB)
	I64_MUL          = OpCode(op.I64_MUL)
	I64_DIV_S        = OpCode(op.I64_DIV_S)
	I64_DIV_U        = OpCode(op.I64_DIV_U)
	I64_REM_S        = OpCode(op.I64_REM_S)
	I64_REM_U        = OpCode(op.I64_REM_U)
	I64_AND          = OpCode(op.I64_AND)
	I64_OR           = OpCode(op.I64_OR)
	I64_XOR          = OpCode(op.I64_XOR)
	I64_SHL          = OpCode(op.I64_SHL)
	I64_SHR_S        = OpCode(op.I64_SHR_S)
	I64_SHR_U        = OpCode(op.I64_SHR_U)
	I64_ROTL         = OpCode(op.I64_ROTL)
	I64_ROTR         = OpCode(op.I64_ROTR)
	I32_WRAP_I64     = OpCode(op.I32_WRAP_I64)
	I64_EXTEND_I32_S = OpCode(op.I64_EXTEND_I32_S)
	I64_EXTEND_I32_U = OpCode(op.I64_EXTEND_I32_U)
	I32_EXTEND8_S    = OpCode(op.I32_EXTEND8_S)
	I32_EXTEND16_S   = OpCode(op.I32_EXTEND16_S)
	I64_EXTEND8_S    = OpCode(op.I64_EXTEND8_S)
	I64_EXTEND16_S   = OpCode(op.I64_EXTEND16_S)
	I64_EXTEND32_S   = OpCode(op.I64_EXTEND32_S)
)

const (
	// GAS charges the static price of the basic block it starts.
	GAS OpCode = 0x100 + iota
	// GROW_GAS charges the per page price of the following memory.grow.
	GROW_GAS
	// JUMP continues at the instruction given by the argument.
	JUMP
	// JUMP_UNLESS pops a condition and jumps if it is zero.
	JUMP_UNLESS
	// DATA carries the targets of a preceding BR_TABLE.
	DATA
	// CALL_HOST invokes the host function identified by the argument.
	CALL_HOST

	numExtendedOpCodes
)

var extendedOpCodeNames = [...]string{
	GAS - GAS:         "gas",
	GROW_GAS - GAS:    "grow_gas",
	JUMP - GAS:        "jump",
	JUMP_UNLESS - GAS: "jump_unless",
	DATA - GAS:        "data",
	CALL_HOST - GAS:   "call_host",
}

func (o OpCode) String() string {
	if o < GAS {
		return op.OpCode(o).String()
	}
	if o < numExtendedOpCodes {
		return extendedOpCodeNames[o-GAS]
	}
	return fmt.Sprintf("op(0x%04X)", uint16(o))
}

// HasArgument is true for all instructions using the argument field.
func (o OpCode) HasArgument() bool {
	switch o {
	case BR, BR_IF, BR_TABLE, CALL, CALL_INDIRECT, CALL_HOST, JUMP, JUMP_UNLESS, DATA,
		LOCAL_GET, LOCAL_SET, LOCAL_TEE, GLOBAL_GET, GLOBAL_SET:
		return true
	}
	return o.IsLoad() || o.IsStore()
}

// HasValue is true for all instructions using the value field.
func (o OpCode) HasValue() bool {
	switch o {
	case GAS, GROW_GAS, I32_CONST, I64_CONST, BR, BR_IF, DATA:
		return true
	}
	return false
}

func (o OpCode) IsLoad() bool {
	return I32_LOAD <= o && o <= I64_LOAD32_U
}

func (o OpCode) IsStore() bool {
	return I32_STORE <= o && o <= I64_STORE32
}
