// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tessera

//go:generate mockgen -source world_state.go -destination world_state_mock.go -package tessera

// Storage is the persistent key-value collaborator. Contract storage is
// addressed by the owning contract and a key. Implementations are backed by
// an authenticated structure producing a root hash; the engine only writes to
// it when a top-level invocation commits.
type Storage interface {
	GetStorage(Address, Key) (Data, bool)
	InsertStorage(Address, Key, Data)
	RemoveStorage(Address, Key)

	// GetContract returns the hash of the code a contract was instantiated
	// from, or false if there is no contract at the given address.
	GetContract(Address) (Hash, bool)
	SetContract(Address, Hash)

	Root() Hash
}

// Balances is the collaborator keeping account balances.
type Balances interface {
	GetBalance(Address) Value
	// Debit reduces the balance of the given account or fails with
	// ErrInsufficientFunds without any effect.
	Debit(Address, Value) error
	Credit(Address, Value)
}

// WorldState combines the collaborators required by a processor.
type WorldState interface {
	Storage
	Balances
}
