// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package processor

import (
	"testing"

	"github.com/Fantom-foundation/Tessera/go/codestore"
	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/processor/contracts"
	"github.com/Fantom-foundation/Tessera/go/state"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/wasm"
)

// Scenario is a single top-level call against a set of contracts together
// with its expected result and effects.
type Scenario struct {
	Before state.Accounts
	// Contracts are deployed before the call without running their deploy
	// function. Their code is part of both the Before and After state.
	Contracts map[tessera.Address]tessera.Code
	Call      contracts.CallParameters
	Outcome   tessera.Outcome
	// GasUsed is only checked if it is not zero.
	GasUsed tessera.Gas
	After   state.Accounts
}

// Run executes the scenario on the given interpreter variant and checks its
// expectations. The receipt is returned for further checks.
func (s *Scenario) Run(t *testing.T, variant string) contracts.Receipt {
	t.Helper()
	store := newStore(t, gas.DefaultSchedule())

	before := withContracts(t, store, s.Before, s.Contracts)
	after := withContracts(t, store, s.After, s.Contracts)

	world := state.New(before)
	processor, err := contracts.New(contracts.Config{Interpreter: variant}, store, world)
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}

	receipt, err := processor.Call(s.Call)
	if err != nil {
		t.Fatalf("failed to run call: %v", err)
	}
	if want, got := s.Outcome, receipt.Outcome; want.String() != got.String() {
		t.Errorf("unexpected outcome, wanted %v, got %v", want, got)
	}
	if s.GasUsed != 0 && s.GasUsed != receipt.GasUsed {
		t.Errorf("unexpected gas usage, wanted %d, got %d", s.GasUsed, receipt.GasUsed)
	}
	if got := world.Accounts(); !after.Equal(got) {
		t.Errorf("unexpected state after call:")
		for _, diff := range after.Diff(got) {
			t.Errorf("  %s", diff)
		}
	}
	return receipt
}

func withContracts(t *testing.T, store *codestore.Store, accounts state.Accounts, contracts map[tessera.Address]tessera.Code) state.Accounts {
	t.Helper()
	res := state.Accounts{}
	for address, account := range accounts {
		res[address] = account.Clone()
	}
	for address, code := range contracts {
		hash, _, err := store.Put(code)
		if err != nil {
			t.Fatalf("failed to store code of %v: %v", address, err)
		}
		account := res[address]
		account.Code = &hash
		res[address] = account
	}
	return res
}

func newStore(t *testing.T, schedule gas.Schedule) *codestore.Store {
	t.Helper()
	converter, err := wasm.NewConverter(wasm.ConversionConfig{}, schedule)
	if err != nil {
		t.Fatalf("failed to create converter: %v", err)
	}
	store, err := codestore.NewInMemory(converter)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
