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
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/Fantom-foundation/Tessera/go/wasm/asm"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// contract is a module builder with a single page of memory importing the
// given host functions in order.
type contract struct {
	*asm.ModuleBuilder
	hosts map[wasm.HostFunction]uint32
}

func newContract(imports ...wasm.HostFunction) *contract {
	res := &contract{
		ModuleBuilder: asm.NewModule().Memory(1, 1),
		hosts:         map[wasm.HostFunction]uint32{},
	}
	for _, f := range imports {
		signature := f.Signature()
		res.hosts[f] = res.ImportFunction(wasm.HostModule, f.Name(), signature.Params, signature.Results)
	}
	return res
}

// host returns the function index of an imported host function.
func (c *contract) host(f wasm.HostFunction) uint32 {
	index, found := c.hosts[f]
	if !found {
		panic("host function " + f.Name() + " not imported")
	}
	return index
}

// build adds an empty deploy function and a call function with the given
// body and locals and returns the encoded module.
func (c *contract) build(call *asm.Code, locals ...op.ValueType) tessera.Code {
	deploy := c.Function(nil, nil, nil, asm.NewCode())
	entry := c.Function(nil, nil, locals, call)
	c.ExportFunction("deploy", deploy).ExportFunction("call", entry)
	return c.Bytes()
}
