// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package asm

import (
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// Code assembles the instruction sequence of a function body. All methods
// return the receiver to allow chaining.
type Code struct {
	buf []byte
}

// NewCode creates an empty instruction sequence.
func NewCode() *Code {
	return &Code{}
}

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte {
	return c.buf
}

// Op appends an instruction without immediates.
func (c *Code) Op(ops ...op.OpCode) *Code {
	for _, o := range ops {
		c.buf = append(c.buf, byte(o))
	}
	return c
}

// Raw appends the given bytes as they are.
func (c *Code) Raw(data ...byte) *Code {
	c.buf = append(c.buf, data...)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf = append(c.buf, byte(op.I32_CONST))
	c.buf = appendSigned(c.buf, int64(v))
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.buf = append(c.buf, byte(op.I64_CONST))
	c.buf = appendSigned(c.buf, v)
	return c
}

func (c *Code) LocalGet(index uint32) *Code {
	return c.withIndex(op.LOCAL_GET, index)
}

func (c *Code) LocalSet(index uint32) *Code {
	return c.withIndex(op.LOCAL_SET, index)
}

func (c *Code) LocalTee(index uint32) *Code {
	return c.withIndex(op.LOCAL_TEE, index)
}

func (c *Code) GlobalGet(index uint32) *Code {
	return c.withIndex(op.GLOBAL_GET, index)
}

func (c *Code) GlobalSet(index uint32) *Code {
	return c.withIndex(op.GLOBAL_SET, index)
}

func (c *Code) Call(function uint32) *Code {
	return c.withIndex(op.CALL, function)
}

func (c *Code) CallIndirect(typeIndex uint32) *Code {
	c.withIndex(op.CALL_INDIRECT, typeIndex)
	c.buf = append(c.buf, 0x00)
	return c
}

// Block opens a block with an optional result type.
func (c *Code) Block(result ...op.ValueType) *Code {
	return c.withBlockType(op.BLOCK, result)
}

func (c *Code) Loop(result ...op.ValueType) *Code {
	return c.withBlockType(op.LOOP, result)
}

func (c *Code) If(result ...op.ValueType) *Code {
	return c.withBlockType(op.IF, result)
}

func (c *Code) Else() *Code {
	return c.Op(op.ELSE)
}

func (c *Code) End() *Code {
	return c.Op(op.END)
}

func (c *Code) Br(label uint32) *Code {
	return c.withIndex(op.BR, label)
}

func (c *Code) BrIf(label uint32) *Code {
	return c.withIndex(op.BR_IF, label)
}

func (c *Code) BrTable(labels []uint32, defaultLabel uint32) *Code {
	c.buf = append(c.buf, byte(op.BR_TABLE))
	c.buf = appendUnsigned(c.buf, uint64(len(labels)))
	for _, l := range labels {
		c.buf = appendUnsigned(c.buf, uint64(l))
	}
	c.buf = appendUnsigned(c.buf, uint64(defaultLabel))
	return c
}

// Load appends a load or store instruction with natural alignment.
func (c *Code) Load(o op.OpCode, offset uint32) *Code {
	c.buf = append(c.buf, byte(o))
	c.buf = appendUnsigned(c.buf, uint64(naturalAlignment(o)))
	c.buf = appendUnsigned(c.buf, uint64(offset))
	return c
}

func (c *Code) Store(o op.OpCode, offset uint32) *Code {
	return c.Load(o, offset)
}

func (c *Code) MemorySize() *Code {
	return c.Raw(byte(op.MEMORY_SIZE), 0x00)
}

func (c *Code) MemoryGrow() *Code {
	return c.Raw(byte(op.MEMORY_GROW), 0x00)
}

func (c *Code) withIndex(o op.OpCode, index uint32) *Code {
	c.buf = append(c.buf, byte(o))
	c.buf = appendUnsigned(c.buf, uint64(index))
	return c
}

func (c *Code) withBlockType(o op.OpCode, result []op.ValueType) *Code {
	c.buf = append(c.buf, byte(o))
	if len(result) == 0 {
		c.buf = append(c.buf, op.BlockTypeEmpty)
	} else {
		c.buf = append(c.buf, byte(result[0]))
	}
	return c
}

func naturalAlignment(o op.OpCode) uint32 {
	switch o {
	case op.I32_LOAD8_S, op.I32_LOAD8_U, op.I64_LOAD8_S, op.I64_LOAD8_U,
		op.I32_STORE8, op.I64_STORE8:
		return 0
	case op.I32_LOAD16_S, op.I32_LOAD16_U, op.I64_LOAD16_S, op.I64_LOAD16_U,
		op.I32_STORE16, op.I64_STORE16:
		return 1
	case op.I32_LOAD, op.F32_LOAD, op.I64_LOAD32_S, op.I64_LOAD32_U,
		op.I32_STORE, op.F32_STORE, op.I64_STORE32:
		return 2
	}
	return 3
}

func appendUnsigned(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

func appendSigned(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
