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
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/Fantom-foundation/Tessera/go/wasm"
)

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// accessSize is the number of bytes touched by a load or store.
func accessSize(op wasm.OpCode) uint64 {
	switch op {
	case wasm.I32_LOAD8_S, wasm.I32_LOAD8_U, wasm.I64_LOAD8_S, wasm.I64_LOAD8_U,
		wasm.I32_STORE8, wasm.I64_STORE8:
		return 1
	case wasm.I32_LOAD16_S, wasm.I32_LOAD16_U, wasm.I64_LOAD16_S, wasm.I64_LOAD16_U,
		wasm.I32_STORE16, wasm.I64_STORE16:
		return 2
	case wasm.I64_LOAD, wasm.I64_STORE:
		return 8
	}
	return 4
}

func opLoad(c *context, instruction wasm.Instruction) error {
	top := c.stack.peek()
	address := uint64(uint32(*top)) + uint64(instruction.Arg)
	data, err := c.memory.slice(address, accessSize(instruction.Opcode))
	if err != nil {
		return err
	}
	le := binary.LittleEndian
	switch instruction.Opcode {
	case wasm.I32_LOAD, wasm.I64_LOAD32_U:
		*top = uint64(le.Uint32(data))
	case wasm.I64_LOAD:
		*top = le.Uint64(data)
	case wasm.I32_LOAD8_S:
		*top = uint64(uint32(int8(data[0])))
	case wasm.I32_LOAD8_U, wasm.I64_LOAD8_U:
		*top = uint64(data[0])
	case wasm.I32_LOAD16_S:
		*top = uint64(uint32(int16(le.Uint16(data))))
	case wasm.I32_LOAD16_U, wasm.I64_LOAD16_U:
		*top = uint64(le.Uint16(data))
	case wasm.I64_LOAD8_S:
		*top = uint64(int8(data[0]))
	case wasm.I64_LOAD16_S:
		*top = uint64(int16(le.Uint16(data)))
	case wasm.I64_LOAD32_S:
		*top = uint64(int32(le.Uint32(data)))
	default:
		return fmt.Errorf("unsupported load %v", instruction.Opcode)
	}
	return nil
}

func opStore(c *context, instruction wasm.Instruction) error {
	value := c.stack.pop()
	address := uint64(uint32(c.stack.pop())) + uint64(instruction.Arg)
	data, err := c.memory.slice(address, accessSize(instruction.Opcode))
	if err != nil {
		return err
	}
	le := binary.LittleEndian
	switch len(data) {
	case 1:
		data[0] = byte(value)
	case 2:
		le.PutUint16(data, uint16(value))
	case 4:
		le.PutUint32(data, uint32(value))
	default:
		le.PutUint64(data, value)
	}
	return nil
}

// numeric executes an integer instruction operating on the stack only.
func numeric(s *stack, op wasm.OpCode) error {
	// unary operations
	top := s.peek()
	a32, a64 := uint32(*top), *top
	switch op {
	case wasm.I32_EQZ:
		*top = b2u(a32 == 0)
		return nil
	case wasm.I64_EQZ:
		*top = b2u(a64 == 0)
		return nil
	case wasm.I32_CLZ:
		*top = uint64(bits.LeadingZeros32(a32))
		return nil
	case wasm.I32_CTZ:
		*top = uint64(bits.TrailingZeros32(a32))
		return nil
	case wasm.I32_POPCNT:
		*top = uint64(bits.OnesCount32(a32))
		return nil
	case wasm.I64_CLZ:
		*top = uint64(bits.LeadingZeros64(a64))
		return nil
	case wasm.I64_CTZ:
		*top = uint64(bits.TrailingZeros64(a64))
		return nil
	case wasm.I64_POPCNT:
		*top = uint64(bits.OnesCount64(a64))
		return nil
	case wasm.I32_WRAP_I64:
		*top = uint64(a32)
		return nil
	case wasm.I64_EXTEND_I32_S:
		*top = uint64(int32(a32))
		return nil
	case wasm.I64_EXTEND_I32_U:
		*top = uint64(a32)
		return nil
	case wasm.I32_EXTEND8_S:
		*top = uint64(uint32(int8(a32)))
		return nil
	case wasm.I32_EXTEND16_S:
		*top = uint64(uint32(int16(a32)))
		return nil
	case wasm.I64_EXTEND8_S:
		*top = uint64(int8(a64))
		return nil
	case wasm.I64_EXTEND16_S:
		*top = uint64(int16(a64))
		return nil
	case wasm.I64_EXTEND32_S:
		*top = uint64(int32(a64))
		return nil
	}

	// binary operations
	b64 := s.pop()
	b32 := uint32(b64)
	top = s.peek()
	a32, a64 = uint32(*top), *top
	if wasm.I32_EQ <= op && op <= wasm.I32_GE_U || wasm.I32_ADD <= op && op <= wasm.I32_ROTR {
		res, err := binary32(op, a32, b32)
		*top = uint64(res)
		return err
	}
	res, err := binary64(op, a64, b64)
	*top = res
	return err
}

func binary32(op wasm.OpCode, a, b uint32) (uint32, error) {
	switch op {
	case wasm.I32_EQ:
		return uint32(b2u(a == b)), nil
	case wasm.I32_NE:
		return uint32(b2u(a != b)), nil
	case wasm.I32_LT_S:
		return uint32(b2u(int32(a) < int32(b))), nil
	case wasm.I32_LT_U:
		return uint32(b2u(a < b)), nil
	case wasm.I32_GT_S:
		return uint32(b2u(int32(a) > int32(b))), nil
	case wasm.I32_GT_U:
		return uint32(b2u(a > b)), nil
	case wasm.I32_LE_S:
		return uint32(b2u(int32(a) <= int32(b))), nil
	case wasm.I32_LE_U:
		return uint32(b2u(a <= b)), nil
	case wasm.I32_GE_S:
		return uint32(b2u(int32(a) >= int32(b))), nil
	case wasm.I32_GE_U:
		return uint32(b2u(a >= b)), nil
	case wasm.I32_ADD:
		return a + b, nil
	case wasm.I32_SUB:
		return a - b, nil
	case wasm.I32_MUL:
		return a * b, nil
	case wasm.I32_DIV_S:
		if b == 0 {
			return 0, errDivisionByZero
		}
		if int32(a) == math.MinInt32 && int32(b) == -1 {
			return 0, errIntegerOverflow
		}
		return uint32(int32(a) / int32(b)), nil
	case wasm.I32_DIV_U:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a / b, nil
	case wasm.I32_REM_S:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return uint32(int32(a) % int32(b)), nil
	case wasm.I32_REM_U:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a % b, nil
	case wasm.I32_AND:
		return a & b, nil
	case wasm.I32_OR:
		return a | b, nil
	case wasm.I32_XOR:
		return a ^ b, nil
	case wasm.I32_SHL:
		return a << (b & 31), nil
	case wasm.I32_SHR_S:
		return uint32(int32(a) >> (b & 31)), nil
	case wasm.I32_SHR_U:
		return a >> (b & 31), nil
	case wasm.I32_ROTL:
		return bits.RotateLeft32(a, int(b&31)), nil
	case wasm.I32_ROTR:
		return bits.RotateLeft32(a, -int(b&31)), nil
	}
	return 0, fmt.Errorf("unsupported instruction %v", op)
}

func binary64(op wasm.OpCode, a, b uint64) (uint64, error) {
	switch op {
	case wasm.I64_EQ:
		return b2u(a == b), nil
	case wasm.I64_NE:
		return b2u(a != b), nil
	case wasm.I64_LT_S:
		return b2u(int64(a) < int64(b)), nil
	case wasm.I64_LT_U:
		return b2u(a < b), nil
	case wasm.I64_GT_S:
		return b2u(int64(a) > int64(b)), nil
	case wasm.I64_GT_U:
		return b2u(a > b), nil
	case wasm.I64_LE_S:
		return b2u(int64(a) <= int64(b)), nil
	case wasm.I64_LE_U:
		return b2u(a <= b), nil
	case wasm.I64_GE_S:
		return b2u(int64(a) >= int64(b)), nil
	case wasm.I64_GE_U:
		return b2u(a >= b), nil
	case wasm.I64_ADD:
		return a + b, nil
	case wasm.I64_SUB:
		return a - b, nil
	case wasm.I64_MUL:
		return a * b, nil
	case wasm.I64_DIV_S:
		if b == 0 {
			return 0, errDivisionByZero
		}
		if int64(a) == math.MinInt64 && int64(b) == -1 {
			return 0, errIntegerOverflow
		}
		return uint64(int64(a) / int64(b)), nil
	case wasm.I64_DIV_U:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a / b, nil
	case wasm.I64_REM_S:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return uint64(int64(a) % int64(b)), nil
	case wasm.I64_REM_U:
		if b == 0 {
			return 0, errDivisionByZero
		}
		return a % b, nil
	case wasm.I64_AND:
		return a & b, nil
	case wasm.I64_OR:
		return a | b, nil
	case wasm.I64_XOR:
		return a ^ b, nil
	case wasm.I64_SHL:
		return a << (b & 63), nil
	case wasm.I64_SHR_S:
		return uint64(int64(a) >> (b & 63)), nil
	case wasm.I64_SHR_U:
		return a >> (b & 63), nil
	case wasm.I64_ROTL:
		return bits.RotateLeft64(a, int(b&63)), nil
	case wasm.I64_ROTR:
		return bits.RotateLeft64(a, -int(b&63)), nil
	}
	return 0, fmt.Errorf("unsupported instruction %v", op)
}
