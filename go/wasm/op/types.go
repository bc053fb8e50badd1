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

// Magic and Version are the first eight bytes of every module.
var (
	Magic   = [4]byte{0x00, 0x61, 0x73, 0x6D}
	Version = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// ValueType is the binary encoding of a value type.
type ValueType byte

const (
	I32       ValueType = 0x7F
	I64       ValueType = 0x7E
	F32       ValueType = 0x7D
	F64       ValueType = 0x7C
	V128      ValueType = 0x7B
	FuncRef   ValueType = 0x70
	ExternRef ValueType = 0x6F
)

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	}
	return fmt.Sprintf("type(0x%02X)", byte(t))
}

// IsFloat is true for the floating-point value types.
func (t ValueType) IsFloat() bool {
	return t == F32 || t == F64
}

const (
	// BlockTypeEmpty marks a block without results.
	BlockTypeEmpty byte = 0x40
	// FuncTypeForm precedes every function type in the type section.
	FuncTypeForm byte = 0x60
	// LimitsMinOnly and LimitsMinMax flag the encoding of a limits pair.
	LimitsMinOnly byte = 0x00
	LimitsMinMax  byte = 0x01
)

// SectionID identifies the sections of a module.
type SectionID byte

const (
	SectionCustom    SectionID = 0
	SectionType      SectionID = 1
	SectionImport    SectionID = 2
	SectionFunction  SectionID = 3
	SectionTable     SectionID = 4
	SectionMemory    SectionID = 5
	SectionGlobal    SectionID = 6
	SectionExport    SectionID = 7
	SectionStart     SectionID = 8
	SectionElement   SectionID = 9
	SectionCode      SectionID = 10
	SectionData      SectionID = 11
	SectionDataCount SectionID = 12
)

func (s SectionID) String() string {
	switch s {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionDataCount:
		return "datacount"
	}
	return fmt.Sprintf("section(%d)", byte(s))
}

// ExternalKind is the kind of an imported or exported entity.
type ExternalKind byte

const (
	ExternalFunction ExternalKind = 0
	ExternalTable    ExternalKind = 1
	ExternalMemory   ExternalKind = 2
	ExternalGlobal   ExternalKind = 3
)

func (k ExternalKind) String() string {
	switch k {
	case ExternalFunction:
		return "function"
	case ExternalTable:
		return "table"
	case ExternalMemory:
		return "memory"
	case ExternalGlobal:
		return "global"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}
