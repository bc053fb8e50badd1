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

	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/exp/slices"
)

// Module is a validated and instrumented program. Modules are immutable
// once created and may be shared by any number of concurrent executions.
type Module struct {
	// ScheduleVersion is the version of the cost schedule whose prices
	// were used for instrumentation.
	ScheduleVersion uint32

	Types     []FuncType
	Imports   []HostFunction // < function index i < len(Imports) is host function Imports[i]
	Functions []Function     // < defined functions, indexed without the imports
	Globals   []Global
	Table     Table
	Memory    Memory
	Data      []DataSegment

	// Deploy and Call are indices into Functions.
	Deploy uint32
	Call   uint32
}

type FuncType struct {
	Params  []op.ValueType
	Results []op.ValueType
}

func (t FuncType) Equal(o FuncType) bool {
	return slices.Equal(t.Params, o.Params) && slices.Equal(t.Results, o.Results)
}

func (t FuncType) String() string {
	return fmt.Sprintf("%v -> %v", t.Params, t.Results)
}

type Function struct {
	Type           uint32
	NumLocals      uint32 // < declared locals, not including the parameters
	MaxStackHeight uint32 // < operand stack values needed beyond the locals
	Code           Code
}

type Global struct {
	Type    op.ValueType
	Mutable bool
	Init    uint64
}

// Table is the function table used by call_indirect. Elements has one
// entry per slot: 0 for an empty slot and f+1 for defined function f.
type Table struct {
	Size     uint32
	Elements []uint32
}

// Memory holds the page bounds of the linear memory.
type Memory struct {
	Initial uint32
	Maximum uint32
}

type DataSegment struct {
	Offset uint32
	Data   []byte
}

// Signature returns the type of the given defined function.
func (m *Module) Signature(function uint32) FuncType {
	return m.Types[m.Functions[function].Type]
}

// Encode produces the canonical serialization of the module.
func (m *Module) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(m)
}

// Hash is the Keccak-256 hash of the canonical serialization.
func (m *Module) Hash() (tessera.Hash, error) {
	data, err := m.Encode()
	if err != nil {
		return tessera.Hash{}, err
	}
	return tessera.Keccak256(data), nil
}

// DecodeModule restores a module produced by Encode.
func DecodeModule(data []byte) (*Module, error) {
	res := &Module{}
	if err := rlp.DecodeBytes(data, res); err != nil {
		return nil, fmt.Errorf("failed to decode module: %w", err)
	}
	if err := res.checkIndices(); err != nil {
		return nil, fmt.Errorf("failed to decode module: %w", err)
	}
	return res, nil
}

// checkIndices verifies the cross references of a decoded module the
// runtime relies on without checking them again.
func (m *Module) checkIndices() error {
	numFunctions := uint32(len(m.Functions))
	if m.Deploy >= numFunctions || m.Call >= numFunctions {
		return fmt.Errorf("export index out of range")
	}
	for _, f := range m.Imports {
		if !f.IsValid() {
			return fmt.Errorf("unknown host function %d", f)
		}
	}
	for _, f := range m.Functions {
		if int(f.Type) >= len(m.Types) {
			return fmt.Errorf("function type out of range")
		}
	}
	if len(m.Table.Elements) != int(m.Table.Size) {
		return fmt.Errorf("table size mismatch")
	}
	for _, e := range m.Table.Elements {
		if e > numFunctions {
			return fmt.Errorf("table element out of range")
		}
	}
	return nil
}
