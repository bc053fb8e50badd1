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

// HostModule is the module name all host functions are imported from.
const HostModule = "env"

// HostFunction enumerates the functions a module may import. The list is
// closed; imports are resolved to these ids during validation.
type HostFunction uint32

const (
	ExtGetStorage HostFunction = iota
	ExtSetStorage
	ExtClearStorage
	ExtTransfer
	ExtCall
	ExtInstantiate
	ExtDepositEvent
	ExtReturn
	ExtRevert
	ExtInputSize
	ExtInputCopy
	ExtScratchSize
	ExtScratchCopy
	ExtCaller
	ExtAddress
	ExtValueTransferred
	ExtBalance
	ExtGasLeft
	ExtMalloc
	ExtFree
	numHostFunctions
)

type hostFunctionInfo struct {
	name      string
	signature FuncType
}

func hostType(params []op.ValueType, results ...op.ValueType) FuncType {
	return FuncType{Params: params, Results: results}
}

var hostFunctions = [numHostFunctions]hostFunctionInfo{
	ExtGetStorage:       {"ext_get_storage", hostType([]op.ValueType{op.I32}, op.I32)},
	ExtSetStorage:       {"ext_set_storage", hostType([]op.ValueType{op.I32, op.I32, op.I32})},
	ExtClearStorage:     {"ext_clear_storage", hostType([]op.ValueType{op.I32})},
	ExtTransfer:         {"ext_transfer", hostType([]op.ValueType{op.I32, op.I32})},
	ExtCall:             {"ext_call", hostType([]op.ValueType{op.I32, op.I64, op.I32, op.I32, op.I32}, op.I32)},
	ExtInstantiate:      {"ext_instantiate", hostType([]op.ValueType{op.I32, op.I64, op.I32, op.I32, op.I32}, op.I32)},
	ExtDepositEvent:     {"ext_deposit_event", hostType([]op.ValueType{op.I32, op.I32, op.I32, op.I32})},
	ExtReturn:           {"ext_return", hostType([]op.ValueType{op.I32, op.I32})},
	ExtRevert:           {"ext_revert", hostType([]op.ValueType{op.I32, op.I32})},
	ExtInputSize:        {"ext_input_size", hostType(nil, op.I32)},
	ExtInputCopy:        {"ext_input_copy", hostType([]op.ValueType{op.I32, op.I32, op.I32})},
	ExtScratchSize:      {"ext_scratch_size", hostType(nil, op.I32)},
	ExtScratchCopy:      {"ext_scratch_copy", hostType([]op.ValueType{op.I32, op.I32, op.I32})},
	ExtCaller:           {"ext_caller", hostType([]op.ValueType{op.I32})},
	ExtAddress:          {"ext_address", hostType([]op.ValueType{op.I32})},
	ExtValueTransferred: {"ext_value_transferred", hostType([]op.ValueType{op.I32})},
	ExtBalance:          {"ext_balance", hostType([]op.ValueType{op.I32})},
	ExtGasLeft:          {"ext_gas_left", hostType(nil, op.I64)},
	ExtMalloc:           {"ext_malloc", hostType([]op.ValueType{op.I32}, op.I32)},
	ExtFree:             {"ext_free", hostType([]op.ValueType{op.I32})},
}

// LookupHostFunction resolves an import name to a host function.
func LookupHostFunction(name string) (HostFunction, bool) {
	for i := range hostFunctions {
		if hostFunctions[i].name == name {
			return HostFunction(i), true
		}
	}
	return 0, false
}

// GetAllHostFunctions returns all functions of the allow-list.
func GetAllHostFunctions() []HostFunction {
	res := make([]HostFunction, 0, numHostFunctions)
	for f := HostFunction(0); f < numHostFunctions; f++ {
		res = append(res, f)
	}
	return res
}

func (f HostFunction) IsValid() bool {
	return f < numHostFunctions
}

func (f HostFunction) Name() string {
	if !f.IsValid() {
		return fmt.Sprintf("host(%d)", uint32(f))
	}
	return hostFunctions[f].name
}

func (f HostFunction) String() string {
	return f.Name()
}

// Signature returns the type a module must import the function with.
func (f HostFunction) Signature() FuncType {
	if !f.IsValid() {
		return FuncType{}
	}
	return hostFunctions[f].signature
}
