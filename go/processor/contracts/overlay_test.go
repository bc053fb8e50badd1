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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Tessera/go/state"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"go.uber.org/mock/gomock"
	"pgregory.net/rand"
)

func TestOverlay_StoredValuesCanBeReadBack(t *testing.T) {
	o := newOverlay(state.New(nil))
	address, key := tessera.Address{1}, tessera.Key{2}

	o.setStorage(address, key, tessera.Data("abc"))
	if got, found := o.getStorage(address, key); !found || string(got) != "abc" {
		t.Errorf("unexpected value: %q, %t", got, found)
	}
	o.clearStorage(address, key)
	if _, found := o.getStorage(address, key); found {
		t.Errorf("cleared value still present")
	}
}

func TestOverlay_ReadsFallThroughToParentAndState(t *testing.T) {
	world := state.New(state.Accounts{
		{1}: {Storage: state.Storage{{1}: tessera.Data("state")}},
	})
	parent := newOverlay(world)
	parent.setStorage(tessera.Address{1}, tessera.Key{2}, tessera.Data("parent"))
	child := parent.child()

	if got, _ := child.getStorage(tessera.Address{1}, tessera.Key{1}); string(got) != "state" {
		t.Errorf("state value not visible: %q", got)
	}
	if got, _ := child.getStorage(tessera.Address{1}, tessera.Key{2}); string(got) != "parent" {
		t.Errorf("parent value not visible: %q", got)
	}

	child.clearStorage(tessera.Address{1}, tessera.Key{1})
	if _, found := child.getStorage(tessera.Address{1}, tessera.Key{1}); found {
		t.Errorf("deleted state value still visible in child")
	}
	if _, found := parent.getStorage(tessera.Address{1}, tessera.Key{1}); !found {
		t.Errorf("child deletion visible in parent before merge")
	}
}

func TestOverlay_MergeResolvesConflicts(t *testing.T) {
	address := tessera.Address{1}
	tests := map[string]struct {
		parent func(*overlay)
		child  func(*overlay)
		want   tessera.Data // < nil if the key is expected to be absent
	}{
		"later write wins": {
			parent: func(o *overlay) { o.setStorage(address, tessera.Key{}, tessera.Data("a")) },
			child:  func(o *overlay) { o.setStorage(address, tessera.Key{}, tessera.Data("b")) },
			want:   tessera.Data("b"),
		},
		"delete after write removes the key": {
			parent: func(o *overlay) { o.setStorage(address, tessera.Key{}, tessera.Data("a")) },
			child:  func(o *overlay) { o.clearStorage(address, tessera.Key{}) },
		},
		"write after delete restores the key": {
			parent: func(o *overlay) { o.clearStorage(address, tessera.Key{}) },
			child:  func(o *overlay) { o.setStorage(address, tessera.Key{}, tessera.Data("c")) },
			want:   tessera.Data("c"),
		},
		"last operation of the child wins": {
			parent: func(o *overlay) {},
			child: func(o *overlay) {
				o.setStorage(address, tessera.Key{}, tessera.Data("a"))
				o.clearStorage(address, tessera.Key{})
				o.setStorage(address, tessera.Key{}, tessera.Data("d"))
			},
			want: tessera.Data("d"),
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			parent := newOverlay(state.New(nil))
			test.parent(parent)
			child := parent.child()
			test.child(child)
			child.mergeInto(parent)

			got, found := parent.getStorage(address, tessera.Key{})
			if test.want == nil && found {
				t.Errorf("key should be absent, got %q", got)
			}
			if test.want != nil && string(got) != string(test.want) {
				t.Errorf("unexpected value, wanted %q, got %q", test.want, got)
			}
		})
	}
}

func TestOverlay_DroppedChildLeavesNoTrace(t *testing.T) {
	parent := newOverlay(state.New(state.Accounts{{1}: {Balance: tessera.NewValue(10)}}))
	child := parent.child()
	child.setStorage(tessera.Address{1}, tessera.Key{1}, tessera.Data("x"))
	child.setContract(tessera.Address{2}, tessera.Hash{2})
	if err := child.transfer(tessera.Address{1}, tessera.Address{3}, tessera.NewValue(4)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}
	child.depositEvent(tessera.Event{Address: tessera.Address{1}})

	if _, found := parent.getStorage(tessera.Address{1}, tessera.Key{1}); found {
		t.Errorf("storage of child visible")
	}
	if _, found := parent.getContract(tessera.Address{2}); found {
		t.Errorf("contract of child visible")
	}
	if got := parent.balance(tessera.Address{1}); got != tessera.NewValue(10) {
		t.Errorf("transfer of child visible: %v", got)
	}
	if len(parent.events) != 0 {
		t.Errorf("events of child visible")
	}
}

func TestOverlay_Transfer(t *testing.T) {
	tests := map[string]struct {
		from, to tessera.Address
		value    uint64
		err      error
		balances map[tessera.Address]uint64
	}{
		"partial": {
			from: tessera.Address{1}, to: tessera.Address{2}, value: 4,
			balances: map[tessera.Address]uint64{{1}: 6, {2}: 4},
		},
		"everything": {
			from: tessera.Address{1}, to: tessera.Address{2}, value: 10,
			balances: map[tessera.Address]uint64{{1}: 0, {2}: 10},
		},
		"insufficient": {
			from: tessera.Address{1}, to: tessera.Address{2}, value: 11,
			err:      tessera.ErrInsufficientFunds,
			balances: map[tessera.Address]uint64{{1}: 10, {2}: 0},
		},
		"to self": {
			from: tessera.Address{1}, to: tessera.Address{1}, value: 7,
			balances: map[tessera.Address]uint64{{1}: 10},
		},
		"zero from empty account": {
			from: tessera.Address{3}, to: tessera.Address{2}, value: 0,
			balances: map[tessera.Address]uint64{{3}: 0, {2}: 0},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			o := newOverlay(state.New(state.Accounts{{1}: {Balance: tessera.NewValue(10)}}))
			err := o.transfer(test.from, test.to, tessera.NewValue(test.value))
			if !errors.Is(err, test.err) {
				t.Errorf("unexpected error, wanted %v, got %v", test.err, err)
			}
			for address, want := range test.balances {
				if got := o.balance(address); got != tessera.NewValue(want) {
					t.Errorf("unexpected balance of %v, wanted %d, got %v", address, want, got)
				}
			}
		})
	}
}

func TestOverlay_MergedTransfersAccumulate(t *testing.T) {
	world := state.New(state.Accounts{{1}: {Balance: tessera.NewValue(10)}})
	parent := newOverlay(world)
	if err := parent.transfer(tessera.Address{1}, tessera.Address{2}, tessera.NewValue(4)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}
	child := parent.child()
	if err := child.transfer(tessera.Address{2}, tessera.Address{3}, tessera.NewValue(3)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}
	if err := child.transfer(tessera.Address{1}, tessera.Address{3}, tessera.NewValue(7)); !errors.Is(err, tessera.ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
	child.mergeInto(parent)

	for address, want := range map[tessera.Address]uint64{{1}: 6, {2}: 1, {3}: 3} {
		if got := parent.balance(address); got != tessera.NewValue(want) {
			t.Errorf("unexpected balance of %v, wanted %d, got %v", address, want, got)
		}
	}
	if err := parent.commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	for address, want := range map[tessera.Address]uint64{{1}: 6, {2}: 1, {3}: 3} {
		if got := world.GetBalance(address); got != tessera.NewValue(want) {
			t.Errorf("unexpected committed balance of %v, wanted %d, got %v", address, want, got)
		}
	}
}

func TestOverlay_CommitAppliesOnlyBalanceChanges(t *testing.T) {
	payer, receiver := tessera.Address{1}, tessera.Address{2}
	world := state.New(state.Accounts{payer: {Balance: tessera.NewValue(50)}})
	o := newOverlay(world)
	if err := o.transfer(payer, receiver, tessera.NewValue(20)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}

	// Another transaction credits the receiver before this one commits.
	world.Credit(receiver, tessera.NewValue(1000))

	if err := o.commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if want, got := tessera.NewValue(1020), world.GetBalance(receiver); want != got {
		t.Errorf("unexpected balance of receiver, wanted %v, got %v", want, got)
	}
	if want, got := tessera.NewValue(30), world.GetBalance(payer); want != got {
		t.Errorf("unexpected balance of payer, wanted %v, got %v", want, got)
	}
}

func TestOverlay_CommitIsOrdered(t *testing.T) {
	ctrl := gomock.NewController(t)
	world := tessera.NewMockWorldState(ctrl)

	world.EXPECT().GetBalance(gomock.Any()).Return(tessera.NewValue(5)).AnyTimes()
	o := newOverlay(world)
	o.setStorage(tessera.Address{2}, tessera.Key{1}, tessera.Data("c"))
	o.clearStorage(tessera.Address{1}, tessera.Key{2})
	o.setStorage(tessera.Address{1}, tessera.Key{1}, tessera.Data("a"))
	o.setContract(tessera.Address{4}, tessera.Hash{4})
	o.setContract(tessera.Address{3}, tessera.Hash{3})
	if err := o.transfer(tessera.Address{6}, tessera.Address{5}, tessera.NewValue(1)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}
	if err := o.transfer(tessera.Address{5}, tessera.Address{6}, tessera.NewValue(4)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}
	if err := o.transfer(tessera.Address{7}, tessera.Address{8}, tessera.NewValue(2)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}

	gomock.InOrder(
		world.EXPECT().Debit(tessera.Address{5}, tessera.NewValue(3)),
		world.EXPECT().Debit(tessera.Address{7}, tessera.NewValue(2)),
		world.EXPECT().InsertStorage(tessera.Address{1}, tessera.Key{1}, tessera.Data("a")),
		world.EXPECT().RemoveStorage(tessera.Address{1}, tessera.Key{2}),
		world.EXPECT().InsertStorage(tessera.Address{2}, tessera.Key{1}, tessera.Data("c")),
		world.EXPECT().SetContract(tessera.Address{3}, tessera.Hash{3}),
		world.EXPECT().SetContract(tessera.Address{4}, tessera.Hash{4}),
		world.EXPECT().Credit(tessera.Address{6}, tessera.NewValue(3)),
		world.EXPECT().Credit(tessera.Address{8}, tessera.NewValue(2)),
	)

	if err := o.commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func TestOverlay_FailedDebitWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	world := tessera.NewMockWorldState(ctrl)
	world.EXPECT().GetBalance(gomock.Any()).Return(tessera.NewValue(5)).AnyTimes()

	o := newOverlay(world)
	o.setStorage(tessera.Address{1}, tessera.Key{1}, tessera.Data("a"))
	o.setContract(tessera.Address{3}, tessera.Hash{3})
	if err := o.transfer(tessera.Address{1}, tessera.Address{3}, tessera.NewValue(5)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}
	if err := o.transfer(tessera.Address{2}, tessera.Address{3}, tessera.NewValue(4)); err != nil {
		t.Fatalf("failed to transfer: %v", err)
	}

	// Storage, contracts and credits must not be written.
	gomock.InOrder(
		world.EXPECT().Debit(tessera.Address{1}, tessera.NewValue(5)),
		world.EXPECT().Debit(tessera.Address{2}, tessera.NewValue(4)).Return(tessera.ErrInsufficientFunds),
		world.EXPECT().Credit(tessera.Address{1}, tessera.NewValue(5)),
	)

	if err := o.commit(); !errors.Is(err, tessera.ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
}

func TestOverlay_ChildOverlaysCanNotBeCommitted(t *testing.T) {
	o := newOverlay(state.New(nil)).child()
	if err := o.commit(); err == nil {
		t.Errorf("expected an error")
	}
}

// TestOverlay_RandomOperationsMatchModel applies random operations to a
// stack of overlays and compares the visible content with a map based model
// of the same operations.
func TestOverlay_RandomOperationsMatchModel(t *testing.T) {
	rnd := rand.New(0)
	address := tessera.Address{1}
	type model map[tessera.Key]string

	clone := func(m model) model {
		res := model{}
		for k, v := range m {
			res[k] = v
		}
		return res
	}

	for round := 0; round < 20; round++ {
		world := state.New(nil)
		overlays := []*overlay{newOverlay(world)}
		models := []model{{}}

		for step := 0; step < 200; step++ {
			top := len(overlays) - 1
			key := tessera.Key{byte(rnd.Intn(8))}
			switch rnd.Intn(6) {
			case 0, 1:
				value := string([]byte{byte(rnd.Intn(256))})
				overlays[top].setStorage(address, key, tessera.Data(value))
				models[top][key] = value
			case 2:
				overlays[top].clearStorage(address, key)
				delete(models[top], key)
			case 3:
				overlays = append(overlays, overlays[top].child())
				models = append(models, clone(models[top]))
			case 4:
				if top > 0 {
					overlays[top].mergeInto(overlays[top-1])
					models[top-1] = models[top]
					overlays, models = overlays[:top], models[:top]
				}
			case 5:
				if top > 0 {
					overlays, models = overlays[:top], models[:top]
				}
			}

			top = len(overlays) - 1
			for k := byte(0); k < 8; k++ {
				key := tessera.Key{k}
				want, inModel := models[top][key]
				got, found := overlays[top].getStorage(address, key)
				if inModel != found || want != string(got) {
					t.Fatalf("round %d, step %d: mismatch for key %d, wanted %q/%t, got %q/%t", round, step, k, want, inModel, got, found)
				}
			}
		}

		for len(overlays) > 1 {
			top := len(overlays) - 1
			overlays[top].mergeInto(overlays[top-1])
			models[top-1] = models[top]
			overlays, models = overlays[:top], models[:top]
		}
		if err := overlays[0].commit(); err != nil {
			t.Fatalf("failed to commit: %v", err)
		}
		for k := byte(0); k < 8; k++ {
			want, inModel := models[0][tessera.Key{k}]
			got, found := world.GetStorage(address, tessera.Key{k})
			if inModel != found || want != string(got) {
				t.Fatalf("round %d: committed state differs for key %d", round, k)
			}
		}
	}
}
