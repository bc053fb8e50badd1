// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package op

import "fmt"

// OpCode is a single-byte instruction code of the WebAssembly binary format.
type OpCode byte

const (
	UNREACHABLE         OpCode = 0x00
	NOP                 OpCode = 0x01
	BLOCK               OpCode = 0x02
	LOOP                OpCode = 0x03
	IF                  OpCode = 0x04
	ELSE                OpCode = 0x05
	END                 OpCode = 0x0B
	BR                  OpCode = 0x0C
	BR_IF               OpCode = 0x0D
	BR_TABLE            OpCode = 0x0E
	RETURN              OpCode = 0x0F
	CALL                OpCode = 0x10
	CALL_INDIRECT       OpCode = 0x11
	DROP                OpCode = 0x1A
	SELECT              OpCode = 0x1B
	LOCAL_GET           OpCode = 0x20
	LOCAL_SET           OpCode = 0x21
	LOCAL_TEE           OpCode = 0x22
	GLOBAL_GET          OpCode = 0x23
	GLOBAL_SET          OpCode = 0x24
	I32_LOAD            OpCode = 0x28
	I64_LOAD            OpCode = 0x29
	F32_LOAD            OpCode = 0x2A
	F64_LOAD            OpCode = 0x2B
	I32_LOAD8_S         OpCode = 0x2C
	I32_LOAD8_U         OpCode = 0x2D
	I32_LOAD16_S        OpCode = 0x2E
	I32_LOAD16_U        OpCode = 0x2F
	I64_LOAD8_S         OpCode = 0x30
	I64_LOAD8_U         OpCode = 0x31
	I64_LOAD16_S        OpCode = 0x32
	I64_LOAD16_U        OpCode = 0x33
	I64_LOAD32_S        OpCode = 0x34
	I64_LOAD32_U        OpCode = 0x35
	I32_STORE           OpCode = 0x36
	I64_STORE           OpCode = 0x37
	F32_STORE           OpCode = 0x38
	F64_STORE           OpCode = 0x39
	I32_STORE8          OpCode = 0x3A
	I32_STORE16         OpCode = 0x3B
	I64_STORE8          OpCode = 0x3C
	I64_STORE16         OpCode = 0x3D
	I64_STORE32         OpCode = 0x3E
	MEMORY_SIZE         OpCode = 0x3F
	MEMORY_GROW         OpCode = 0x40
	I32_CONST           OpCode = 0x41
	I64_CONST           OpCode = 0x42
	F32_CONST           OpCode = 0x43
	F64_CONST           OpCode = 0x44
	I32_EQZ             OpCode = 0x45
	I32_EQ              OpCode = 0x46
	I32_NE              OpCode = 0x47
	I32_LT_S            OpCode = 0x48
	I32_LT_U            OpCode = 0x49
	I32_GT_S            OpCode = 0x4A
	I32_GT_U            OpCode = 0x4B
	I32_LE_S            OpCode = 0x4C
	I32_LE_U            OpCode = 0x4D
	I32_GE_S            OpCode = 0x4E
	I32_GE_U            OpCode = 0x4F
	I64_EQZ             OpCode = 0x50
	I64_EQ              OpCode = 0x51
	I64_NE              OpCode = 0x52
	I64_LT_S            OpCode = 0x53
	I64_LT_U            OpCode = 0x54
	I64_GT_S            OpCode = 0x55
	I64_GT_U            OpCode = 0x56
	I64_LE_S            OpCode = 0x57
	I64_LE_U            OpCode = 0x58
	I64_GE_S            OpCode = 0x59
	I64_GE_U            OpCode = 0x5A
	F32_EQ              OpCode = 0x5B
	F32_NE              OpCode = 0x5C
	F32_LT              OpCode = 0x5D
	F32_GT              OpCode = 0x5E
	F32_LE              OpCode = 0x5F
	F32_GE              OpCode = 0x60
	F64_EQ              OpCode = 0x61
	F64_NE              OpCode = 0x62
	F64_LT              OpCode = 0x63
	F64_GT              OpCode = 0x64
	F64_LE              OpCode = 0x65
	F64_GE              OpCode = 0x66
	I32_CLZ             OpCode = 0x67
	I32_CTZ             OpCode = 0x68
	I32_POPCNT          OpCode = 0x69
	I32_ADD             OpCode = 0x6A
	I32_SUB             OpCode = 0x6B
	I32_MUL             OpCode = 0x6C
	I32_DIV_S           OpCode = 0x6D
	I32_DIV_U           OpCode = 0x6E
	I32_REM_S           OpCode = 0x6F
	I32_REM_U           OpCode = 0x70
	I32_AND             OpCode = 0x71
	I32_OR              OpCode = 0x72
	I32_XOR             OpCode = 0x73
	I32_SHL             OpCode = 0x74
	I32_SHR_S           OpCode = 0x75
	I32_SHR_U           OpCode = 0x76
	I32_ROTL            OpCode = 0x77
	I32_ROTR            OpCode = 0x78
	I64_CLZ             OpCode = 0x79
	I64_CTZ             OpCode = 0x7A
	I64_POPCNT          OpCode = 0x7B
	I64_ADD             OpCode = 0x7C
	I64_SUB             OpCode = 0x7D
	I64_MUL             OpCode = 0x7E
	I64_DIV_S           OpCode = 0x7F
	I64_DIV_U           OpCode = 0x80
	I64_REM_S           OpCode = 0x81
	I64_REM_U           OpCode = 0x82
	I64_AND             OpCode = 0x83
	I64_OR              OpCode = 0x84
	I64_XOR             OpCode = 0x85
	I64_SHL             OpCode = 0x86
	I64_SHR_S           OpCode = 0x87
	I64_SHR_U           OpCode = 0x88
	I64_ROTL            OpCode = 0x89
	I64_ROTR            OpCode = 0x8A
	F32_ABS             OpCode = 0x8B
	F32_NEG             OpCode = 0x8C
	F32_CEIL            OpCode = 0x8D
	F32_FLOOR           OpCode = 0x8E
	F32_TRUNC           OpCode = 0x8F
	F32_NEAREST         OpCode = 0x90
	F32_SQRT            OpCode = 0x91
	F32_ADD             OpCode = 0x92
	F32_SUB             OpCode = 0x93
	F32_MUL             OpCode = 0x94
	F32_DIV             OpCode = 0x95
	F32_MIN             OpCode = 0x96
	F32_MAX             OpCode = 0x97
	F32_COPYSIGN        OpCode = 0x98
	F64_ABS             OpCode = 0x99
	F64_NEG             OpCode = 0x9A
	F64_CEIL            OpCode = 0x9B
	F64_FLOOR           OpCode = 0x9C
	F64_TRUNC           OpCode = 0x9D
	F64_NEAREST         OpCode = 0x9E
	F64_SQRT            OpCode = 0x9F
	F64_ADD             OpCode = 0xA0
	F64_SUB             OpCode = 0xA1
	F64_MUL             OpCode = 0xA2
	F64_DIV             OpCode = 0xA3
	F64_MIN             OpCode = 0xA4
	F64_MAX             OpCode = 0xA5
	F64_COPYSIGN        OpCode = 0xA6
	I32_WRAP_I64        OpCode = 0xA7
	I32_TRUNC_F32_S     OpCode = 0xA8
	I32_TRUNC_F32_U     OpCode = 0xA9
	I32_TRUNC_F64_S     OpCode = 0xAA
	I32_TRUNC_F64_U     OpCode = 0xAB
	I64_EXTEND_I32_S    OpCode = 0xAC
	I64_EXTEND_I32_U    OpCode = 0xAD
	I64_TRUNC_F32_S     OpCode = 0xAE
	I64_TRUNC_F32_U     OpCode = 0xAF
	I64_TRUNC_F64_S     OpCode = 0xB0
	I64_TRUNC_F64_U     OpCode = 0xB1
	F32_CONVERT_I32_S   OpCode = 0xB2
	F32_CONVERT_I32_U   OpCode = 0xB3
	F32_CONVERT_I64_S   OpCode = 0xB4
	F32_CONVERT_I64_U   OpCode = 0xB5
	F32_DEMOTE_F64      OpCode = 0xB6
	F64_CONVERT_I32_S   OpCode = 0xB7
	F64_CONVERT_I32_U   OpCode = 0xB8
	F64_CONVERT_I64_S   OpCode = 0xB9
	F64_CONVERT_I64_U   OpCode = 0xBA
	F64_PROMOTE_F32     OpCode = 0xBB
	I32_REINTERPRET_F32 OpCode = 0xBC
	I64_REINTERPRET_F64 OpCode = 0xBD
	F32_REINTERPRET_I32 OpCode = 0xBE
	F64_REINTERPRET_I64 OpCode = 0xBF
	I32_EXTEND8_S       OpCode = 0xC0
	I32_EXTEND16_S      OpCode = 0xC1
	I64_EXTEND8_S       OpCode = 0xC2
	I64_EXTEND16_S      OpCode = 0xC3
	I64_EXTEND32_S      OpCode = 0xC4
	PREFIX_MISC         OpCode = 0xFC
	PREFIX_SIMD         OpCode = 0xFD
)

var opCodeNames = [256]string{
	UNREACHABLE:         "unreachable",
	NOP:                 "nop",
	BLOCK:               "block",
	LOOP:                "loop",
	IF:                  "if",
	ELSE:                "else",
	END:                 "end",
	BR:                  "br",
	BR_IF:               "br_if",
	BR_TABLE:            "br_table",
	RETURN:              "return",
	CALL:                "call",
	CALL_INDIRECT:       "call_indirect",
	DROP:                "drop",
	SELECT:              "select",
	LOCAL_GET:           "local.get",
	LOCAL_SET:           "local.set",
	LOCAL_TEE:           "local.tee",
	GLOBAL_GET:          "global.get",
	GLOBAL_SET:          "global.set",
	I32_LOAD:            "i32.load",
	I64_LOAD:            "i64.load",
	F32_LOAD:            "f32.load",
	F64_LOAD:            "f64.load",
	I32_LOAD8_S:         "i32.load8_s",
	I32_LOAD8_U:         "i32.load8_u",
	I32_LOAD16_S:        "i32.load16_s",
	I32_LOAD16_U:        "i32.load16_u",
	I64_LOAD8_S:         "i64.load8_s",
	I64_LOAD8_U:         "i64.load8_u",
	I64_LOAD16_S:        "i64.load16_s",
	I64_LOAD16_U:        "i64.load16_u",
	I64_LOAD32_S:        "i64.load32_s",
	I64_LOAD32_U:        "i64.load32_u",
	I32_STORE:           "i32.store",
	I64_STORE:           "i64.store",
	F32_STORE:           "f32.store",
	F64_STORE:           "f64.store",
	I32_STORE8:          "i32.store8",
	I32_STORE16:         "i32.store16",
	I64_STORE8:          "i64.store8",
	I64_STORE16:         "i64.store16",
	I64_STORE32:         "i64.store32",
	MEMORY_SIZE:         "memory.size",
	MEMORY_GROW:         "memory.grow",
	I32_CONST:           "i32.const",
	I64_CONST:           "i64.const",
	F32_CONST:           "f32.const",
	F64_CONST:           "f64.const",
	I32_EQZ:             "i32.eqz",
	I32_EQ:              "i32.eq",
	I32_NE:              "i32.ne",
	I32_LT_S:            "i32.lt_s",
	I32_LT_U:            "i32.lt_u",
	I32_GT_S:            "i32.gt_s",
	I32_GT_U:            "i32.gt_u",
	I32_LE_S:            "i32.le_s",
	I32_LE_U:            "i32.le_u",
	I32_GE_S:            "i32.ge_s",
	I32_GE_U:            "i32.ge_u",
	I64_EQZ:             "i64.eqz",
	I64_EQ:              "i64.eq",
	I64_NE:              "i64.ne",
	I64_LT_S:            "i64.lt_s",
	I64_LT_U:            "i64.lt_u",
	I64_GT_S:            "i64.gt_s",
	I64_GT_U:            "i64.gt_u",
	I64_LE_S:            "i64.le_s",
	I64_LE_U:            "i64.le_u",
	I64_GE_S:            "i64.ge_s",
	I64_GE_U:            "i64.ge_u",
	F32_EQ:              "f32.eq",
	F32_NE:              "f32.ne",
	F32_LT:              "f32.lt",
	F32_GT:              "f32.gt",
	F32_LE:              "f32.le",
	F32_GE:              "f32.ge",
	F64_EQ:              "f64.eq",
	F64_NE:              "f64.ne",
	F64_LT:              "f64.lt",
	F64_GT:              "f64.gt",
	F64_LE:              "f64.le",
	F64_GE:              "f64.ge",
	I32_CLZ:             "i32.clz",
	I32_CTZ:             "i32.ctz",
	I32_POPCNT:          "i32.popcnt",
	I32_ADD:             "i32.add",
	I32_SUB:             "i32.sub",
	I32_MUL:             "i32.mul",
	I32_DIV_S:           "i32.div_s",
	I32_DIV_U:           "i32.div_u",
	I32_REM_S:           "i32.rem_s",
	I32_REM_U:           "i32.rem_u",
	I32_AND:             "i32.and",
	I32_OR:              "i32.or",
	I32_XOR:             "i32.xor",
	I32_SHL:             "i32.shl",
	I32_SHR_S:           "i32.shr_s",
	I32_SHR_U:           "i32.shr_u",
	I32_ROTL:            "i32.rotl",
	I32_ROTR:            "i32.rotr",
	I64_CLZ:             "i64.clz",
	I64_CTZ:             "i64.ctz",
	I64_POPCNT:          "i64.popcnt",
	I64_ADD:             "i64.add",
	I64_SUB:             "i64.sub",
	I64_MUL:             "i64.mul",
	I64_DIV_S:           "i64.div_s",
	I64_DIV_U:           "i64.div_u",
	I64_REM_S:           "i64.rem_s",
	I64_REM_U:           "i64.rem_u",
	I64_AND:             "i64.and",
	I64_OR:              "i64.or",
	I64_XOR:             "i64.xor",
	I64_SHL:             "i64.shl",
	I64_SHR_S:           "i64.shr_s",
	I64_SHR_U:           "i64.shr_u",
	I64_ROTL:            "i64.rotl",
	I64_ROTR:            "i64.rotr",
	F32_ABS:             "f32.abs",
	F32_NEG:             "f32.neg",
	F32_CEIL:            "f32.ceil",
	F32_FLOOR:           "f32.floor",
	F32_TRUNC:           "f32.trunc",
	F32_NEAREST:         "f32.nearest",
	F32_SQRT:            "f32.sqrt",
	F32_ADD:             "f32.add",
	F32_SUB:             "f32.sub",
	F32_MUL:             "f32.mul",
	F32_DIV:             "f32.div",
	F32_MIN:             "f32.min",
	F32_MAX:             "f32.max",
	F32_COPYSIGN:        "f32.copysign",
	F64_ABS:             "f64.abs",
	F64_NEG:             "f64.neg",
	F64_CEIL:            "f64.ceil",
	F64_FLOOR:           "f64.floor",
	F64_TRUNC:           "f64.trunc",
	F64_NEAREST:         "f64.nearest",
	F64_SQRT:            "f64.sqrt",
	F64_ADD:             "f64.add",
	F64_SUB:             "f64.sub",
	F64_MUL:             "f64.mul",
	F64_DIV:             "f64.div",
	F64_MIN:             "f64.min",
	F64_MAX:             "f64.max",
	F64_COPYSIGN:        "f64.copysign",
	I32_WRAP_I64:        "i32.wrap_i64",
	I32_TRUNC_F32_S:     "i32.trunc_f32_s",
	I32_TRUNC_F32_U:     "i32.trunc_f32_u",
	I32_TRUNC_F64_S:     "i32.trunc_f64_s",
	I32_TRUNC_F64_U:     "i32.trunc_f64_u",
	I64_EXTEND_I32_S:    "i64.extend_i32_s",
	I64_EXTEND_I32_U:    "i64.extend_i32_u",
	I64_TRUNC_F32_S:     "i64.trunc_f32_s",
	I64_TRUNC_F32_U:     "i64.trunc_f32_u",
	I64_TRUNC_F64_S:     "i64.trunc_f64_s",
	I64_TRUNC_F64_U:     "i64.trunc_f64_u",
	F32_CONVERT_I32_S:   "f32.convert_i32_s",
	F32_CONVERT_I32_U:   "f32.convert_i32_u",
	F32_CONVERT_I64_S:   "f32.convert_i64_s",
	F32_CONVERT_I64_U:   "f32.convert_i64_u",
	F32_DEMOTE_F64:      "f32.demote_f64",
	F64_CONVERT_I32_S:   "f64.convert_i32_s",
	F64_CONVERT_I32_U:   "f64.convert_i32_u",
	F64_CONVERT_I64_S:   "f64.convert_i64_s",
	F64_CONVERT_I64_U:   "f64.convert_i64_u",
	F64_PROMOTE_F32:     "f64.promote_f32",
	I32_REINTERPRET_F32: "i32.reinterpret_f32",
	I64_REINTERPRET_F64: "i64.reinterpret_f64",
	F32_REINTERPRET_I32: "f32.reinterpret_i32",
	F64_REINTERPRET_I64: "f64.reinterpret_i64",
	I32_EXTEND8_S:       "i32.extend8_s",
	I32_EXTEND16_S:      "i32.extend16_s",
	I64_EXTEND8_S:       "i64.extend8_s",
	I64_EXTEND16_S:      "i64.extend16_s",
	I64_EXTEND32_S:      "i64.extend32_s",
	PREFIX_MISC:         "misc",
	PREFIX_SIMD:         "simd",
}

func (o OpCode) String() string {
	if name := opCodeNames[o]; name != "" {
		return name
	}
	return fmt.Sprintf("op(0x%02X)", byte(o))
}

// IsDefined is true for all op codes of the binary format, including those
// rejected by the validator.
func (o OpCode) IsDefined() bool {
	return opCodeNames[o] != ""
}

// IsFloat is true for all instructions consuming or producing floating-point
// values. Prefixed instructions are classified by the validator.
func (o OpCode) IsFloat() bool {
	switch {
	case o == F32_LOAD || o == F64_LOAD || o == F32_STORE || o == F64_STORE:
		return true
	case o == F32_CONST || o == F64_CONST:
		return true
	case F32_EQ <= o && o <= F64_COPYSIGN:
		return true
	case I32_TRUNC_F32_S <= o && o <= I32_TRUNC_F64_U:
		return true
	case I64_TRUNC_F32_S <= o && o <= F64_REINTERPRET_I64:
		return true
	}
	return false
}

// The sub-opcodes of the PREFIX_MISC instruction converting floats with
// saturation. All other sub-opcodes belong to the bulk memory and reference
// type proposals.
const (
	MiscTruncSatFirst uint32 = 0x00
	MiscTruncSatLast  uint32 = 0x07
)
