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
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/tessera"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// slot identifies a storage entry of a contract.
type slot struct {
	address tessera.Address
	key     tessera.Key
}

// entry is a pending storage update. A deleted entry hides any value of
// the enclosing overlays and the world state.
type entry struct {
	data    tessera.Data
	deleted bool
}

// overlay collects the effects of a single call frame. Reads fall through
// to the parent overlay and finally to the world state. Effects become
// visible to the parent only when the overlay is merged into it.
type overlay struct {
	parent *overlay
	state  tessera.WorldState

	storage   map[slot]entry
	contracts map[tessera.Address]tessera.Hash
	debits    map[tessera.Address]tessera.Value // < total value paid by an account in this frame
	credits   map[tessera.Address]tessera.Value // < total value received by an account in this frame
	events    []tessera.Event
}

func newOverlay(state tessera.WorldState) *overlay {
	return &overlay{
		state:     state,
		storage:   map[slot]entry{},
		contracts: map[tessera.Address]tessera.Hash{},
		debits:    map[tessera.Address]tessera.Value{},
		credits:   map[tessera.Address]tessera.Value{},
	}
}

// child creates an overlay for a nested frame.
func (o *overlay) child() *overlay {
	res := newOverlay(o.state)
	res.parent = o
	return res
}

func (o *overlay) getStorage(address tessera.Address, key tessera.Key) (tessera.Data, bool) {
	s := slot{address, key}
	for cur := o; cur != nil; cur = cur.parent {
		if e, found := cur.storage[s]; found {
			if e.deleted {
				return nil, false
			}
			return e.data, true
		}
	}
	return o.state.GetStorage(address, key)
}

func (o *overlay) setStorage(address tessera.Address, key tessera.Key, data tessera.Data) {
	o.storage[slot{address, key}] = entry{data: slices.Clone(data)}
}

func (o *overlay) clearStorage(address tessera.Address, key tessera.Key) {
	o.storage[slot{address, key}] = entry{deleted: true}
}

func (o *overlay) getContract(address tessera.Address) (tessera.Hash, bool) {
	for cur := o; cur != nil; cur = cur.parent {
		if hash, found := cur.contracts[address]; found {
			return hash, true
		}
	}
	return o.state.GetContract(address)
}

func (o *overlay) setContract(address tessera.Address, hash tessera.Hash) {
	o.contracts[address] = hash
}

// balance is the world state balance adjusted by the transfers of this
// frame and all enclosing frames.
func (o *overlay) balance(address tessera.Address) tessera.Value {
	res := o.state.GetBalance(address)
	for cur := o; cur != nil; cur = cur.parent {
		res, _ = tessera.Add(res, cur.credits[address])
	}
	for cur := o; cur != nil; cur = cur.parent {
		var underflow bool
		if res, underflow = tessera.Sub(res, cur.debits[address]); underflow {
			return tessera.Value{}
		}
	}
	return res
}

// transfer moves value between two accounts. It fails with
// tessera.ErrInsufficientFunds without any effect.
func (o *overlay) transfer(from, to tessera.Address, value tessera.Value) error {
	if value.IsZero() {
		return nil
	}
	if _, underflow := tessera.Sub(o.balance(from), value); underflow {
		return fmt.Errorf("%w: %v can not pay %v", tessera.ErrInsufficientFunds, from, value)
	}
	if from != to {
		// Only reachable with a world state holding more than the maximum
		// value in total.
		if _, overflow := tessera.Add(o.balance(to), value); overflow {
			return fmt.Errorf("balance overflow of %v", to)
		}
	}
	addTo(o.debits, from, value)
	addTo(o.credits, to, value)
	return nil
}

func addTo(amounts map[tessera.Address]tessera.Value, address tessera.Address, value tessera.Value) {
	amounts[address], _ = tessera.Add(amounts[address], value)
}

func (o *overlay) depositEvent(event tessera.Event) {
	o.events = append(o.events, event)
}

// mergeInto moves all effects of this overlay into its parent. Entries of
// this overlay replace those of the parent.
func (o *overlay) mergeInto(parent *overlay) {
	for k, v := range o.storage {
		parent.storage[k] = v
	}
	for k, v := range o.contracts {
		parent.contracts[k] = v
	}
	for k, v := range o.debits {
		addTo(parent.debits, k, v)
	}
	for k, v := range o.credits {
		addTo(parent.credits, k, v)
	}
	parent.events = append(parent.events, o.events...)
}

// commit writes the effects of a top-level overlay to the world state in
// ascending key order. The net debits of all accounts are applied first; if
// any of them fails, the debits applied so far are reverted and nothing else
// is written. Balances are changed by the net amounts transferred, never
// overwritten.
func (o *overlay) commit() error {
	if o.parent != nil {
		return fmt.Errorf("only top-level overlays can be committed")
	}

	debits, credits := o.netTransfers()
	addresses := sortedAddresses(debits)
	for i, address := range addresses {
		if err := o.state.Debit(address, debits[address]); err != nil {
			for _, applied := range addresses[:i] {
				o.state.Credit(applied, debits[applied])
			}
			return fmt.Errorf("failed to debit %v: %w", address, err)
		}
	}

	slots := maps.Keys(o.storage)
	slices.SortFunc(slots, func(a, b slot) int {
		if c := bytes.Compare(a.address[:], b.address[:]); c != 0 {
			return c
		}
		return bytes.Compare(a.key[:], b.key[:])
	})
	for _, s := range slots {
		if e := o.storage[s]; e.deleted {
			o.state.RemoveStorage(s.address, s.key)
		} else {
			o.state.InsertStorage(s.address, s.key, e.data)
		}
	}

	for _, address := range sortedAddresses(o.contracts) {
		o.state.SetContract(address, o.contracts[address])
	}

	for _, address := range sortedAddresses(credits) {
		o.state.Credit(address, credits[address])
	}
	return nil
}

// netTransfers offsets the debits and credits of every account against each
// other. Accounts with a zero balance change appear in neither result.
func (o *overlay) netTransfers() (debits, credits map[tessera.Address]tessera.Value) {
	debits = map[tessera.Address]tessera.Value{}
	credits = map[tessera.Address]tessera.Value{}
	for address, debit := range o.debits {
		credit := o.credits[address]
		if net, lower := tessera.Sub(debit, credit); !lower && !net.IsZero() {
			debits[address] = net
		}
	}
	for address, credit := range o.credits {
		debit := o.debits[address]
		if net, lower := tessera.Sub(credit, debit); !lower && !net.IsZero() {
			credits[address] = net
		}
	}
	return debits, credits
}

func sortedAddresses[V any](m map[tessera.Address]V) []tessera.Address {
	res := maps.Keys(m)
	slices.SortFunc(res, func(a, b tessera.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return res
}
