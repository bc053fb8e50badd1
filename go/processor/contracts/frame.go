// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package contracts

import (
	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"golang.org/x/exp/slices"
)

// frame is a single contract invocation of a call tree. It provides the
// state access of its instance through its private overlay.
type frame struct {
	kind     vm.CallKind
	address  tessera.Address
	depth    int
	overlay  *overlay
	meter    *gas.Meter
	instance vm.Instance
}

func (f *frame) GetStorage(key tessera.Key) (tessera.Data, bool) {
	return f.overlay.getStorage(f.address, key)
}

func (f *frame) SetStorage(key tessera.Key, data tessera.Data) {
	f.overlay.setStorage(f.address, key, data)
}

func (f *frame) ClearStorage(key tessera.Key) {
	f.overlay.clearStorage(f.address, key)
}

func (f *frame) Transfer(to tessera.Address, value tessera.Value) error {
	return f.overlay.transfer(f.address, to, value)
}

func (f *frame) Balance() tessera.Value {
	return f.overlay.balance(f.address)
}

func (f *frame) DepositEvent(topics []tessera.Hash, data tessera.Data) {
	f.overlay.depositEvent(tessera.Event{
		Address: f.address,
		Topics:  slices.Clone(topics),
		Data:    slices.Clone(data),
	})
}

var _ vm.Host = (*frame)(nil)
