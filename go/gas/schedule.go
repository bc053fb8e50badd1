// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gas

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/tessera"
)

// Schedule is the table of resource prices shared by all frames of all
// invocations. It is read-only after initialization.
type Schedule struct {
	// Version identifies the price table. Modules record the version they
	// were instrumented with and are instrumented again if it changes.
	Version uint32

	// --- Instruction classes ---

	Regular      tessera.Gas // constants, locals, globals, comparisons, simple integer operations
	Load         tessera.Gas
	Store        tessera.Gas
	Multiply     tessera.Gas
	Divide       tessera.Gas // division and remainder
	Branch       tessera.Gas // br, br_if, br_table, if, else, return
	Call         tessera.Gas
	CallIndirect tessera.Gas

	MemoryGrow        tessera.Gas // the memory.grow instruction itself
	MemoryGrowPerPage tessera.Gas // charged per requested page before growing

	// --- Host functions ---

	HostCall          tessera.Gas // base price of entering any host function
	GetStorage        tessera.Gas
	GetStoragePerByte tessera.Gas
	SetStorage        tessera.Gas
	SetStoragePerByte tessera.Gas
	ClearStorage      tessera.Gas
	Transfer          tessera.Gas
	NestedCall        tessera.Gas
	Instantiate       tessera.Gas
	CallDataPerByte   tessera.Gas // input forwarded to nested calls
	DepositEvent      tessera.Gas
	EventTopic        tessera.Gas
	EventDataPerByte  tessera.Gas
	ReturnDataPerByte tessera.Gas
	CopyPerByte       tessera.Gas // data copied between sandbox memory and host buffers
	Malloc            tessera.Gas
	Free              tessera.Gas

	// --- Upload ---

	PutCode        tessera.Gas
	PutCodePerByte tessera.Gas

	Limits Limits
}

// Limits are the global caps enforced at upload and execution time.
type Limits struct {
	MaxStackHeight    uint32 // in values, across all function frames of one instance
	MaxCallDepth      uint32 // function frames within one instance
	MaxRecursionDepth uint32 // nested contract frames
	MaxCodeSize       uint32 // raw code bytes
	MaxCallDataSize   uint32
	MaxMemoryPages    uint32
	MaxTableSize      uint32
	MaxTypes          uint32
	MaxFunctions      uint32
	MaxGlobals        uint32
	MaxLocals         uint32 // per function, including parameters
	MaxValueSize      uint32 // storage values
	MaxEventTopics    uint32
	MaxEventDataSize  uint32
	MaxReturnDataSize uint32
}

// PageSize is the size of a linear memory page in bytes.
const PageSize = 64 * 1024

// maxPages is the number of pages addressable with 32-bit pointers.
const maxPages = 1 << 16

// DefaultSchedule returns the schedule used if no other is configured.
func DefaultSchedule() Schedule {
	return Schedule{
		Version: 1,

		Regular:      1,
		Load:         3,
		Store:        3,
		Multiply:     3,
		Divide:       5,
		Branch:       2,
		Call:         10,
		CallIndirect: 15,

		MemoryGrow:        10,
		MemoryGrowPerPage: 1000,

		HostCall:          20,
		GetStorage:        200,
		GetStoragePerByte: 2,
		SetStorage:        5000,
		SetStoragePerByte: 20,
		ClearStorage:      2500,
		Transfer:          2000,
		NestedCall:        700,
		Instantiate:       3200,
		CallDataPerByte:   2,
		DepositEvent:      375,
		EventTopic:        375,
		EventDataPerByte:  8,
		ReturnDataPerByte: 1,
		CopyPerByte:       1,
		Malloc:            50,
		Free:              50,

		PutCode:        10000,
		PutCodePerByte: 10,

		Limits: Limits{
			MaxStackHeight:    64 * 1024,
			MaxCallDepth:      256,
			MaxRecursionDepth: 100,
			MaxCodeSize:       256 * 1024,
			MaxCallDataSize:   64 * 1024,
			MaxMemoryPages:    16,
			MaxTableSize:      16 * 1024,
			MaxTypes:          1024,
			MaxFunctions:      4096,
			MaxGlobals:        256,
			MaxLocals:         1024,
			MaxValueSize:      16 * 1024,
			MaxEventTopics:    4,
			MaxEventDataSize:  16 * 1024,
			MaxReturnDataSize: 16 * 1024,
		},
	}
}

// Validate checks the consistency of the schedule and reports all issues.
func (s *Schedule) Validate() error {
	var errs []error
	check := func(name string, value uint32) {
		if value == 0 {
			errs = append(errs, fmt.Errorf("limit %s must not be zero", name))
		}
	}
	l := &s.Limits
	check("MaxStackHeight", l.MaxStackHeight)
	check("MaxCallDepth", l.MaxCallDepth)
	check("MaxRecursionDepth", l.MaxRecursionDepth)
	check("MaxCodeSize", l.MaxCodeSize)
	check("MaxMemoryPages", l.MaxMemoryPages)
	check("MaxTypes", l.MaxTypes)
	check("MaxFunctions", l.MaxFunctions)
	check("MaxLocals", l.MaxLocals)
	if l.MaxMemoryPages > maxPages {
		errs = append(errs, fmt.Errorf("limit MaxMemoryPages exceeds addressable memory: %d > %d", l.MaxMemoryPages, maxPages))
	}
	if s.Version == 0 {
		errs = append(errs, fmt.Errorf("schedule version must not be zero"))
	}
	// Loops and recursion are only bounded by the gas charged at run time.
	for _, price := range []struct {
		name  string
		value tessera.Gas
	}{
		{"Branch", s.Branch},
		{"Call", s.Call},
		{"CallIndirect", s.CallIndirect},
	} {
		if price.value == 0 {
			errs = append(errs, fmt.Errorf("price %s must not be zero", price.name))
		}
	}
	return errors.Join(errs...)
}

// UploadFee is the flat fee charged for validating and storing code.
func (s *Schedule) UploadFee(codeSize int) tessera.Gas {
	return s.PutCode + s.PutCodePerByte*tessera.Gas(codeSize)
}
