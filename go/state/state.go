// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state provides an in-memory world state for tests and tools.
package state

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ----------------------------------------------------------------------------
// State
// ----------------------------------------------------------------------------

// State is a tessera.WorldState kept in memory. It is safe for concurrent
// use; each operation is atomic.
type State struct {
	mutex    sync.RWMutex
	accounts Accounts
}

// New creates a state initialized with a copy of the given accounts.
func New(accounts Accounts) *State {
	res := &State{accounts: accounts.Clone()}
	if res.accounts == nil {
		res.accounts = Accounts{}
	}
	return res
}

func (s *State) GetStorage(address tessera.Address, key tessera.Key) (tessera.Data, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	data, found := s.accounts[address].Storage[key]
	return slices.Clone(data), found
}

func (s *State) InsertStorage(address tessera.Address, key tessera.Key, data tessera.Data) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	account := s.accounts[address]
	if account.Storage == nil {
		account.Storage = Storage{}
	}
	account.Storage[key] = slices.Clone(data)
	s.accounts[address] = account
}

func (s *State) RemoveStorage(address tessera.Address, key tessera.Key) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	account, found := s.accounts[address]
	if !found {
		return
	}
	delete(account.Storage, key)
	s.update(address, account)
}

func (s *State) GetContract(address tessera.Address) (tessera.Hash, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	account := s.accounts[address]
	if account.Code == nil {
		return tessera.Hash{}, false
	}
	return *account.Code, true
}

func (s *State) SetContract(address tessera.Address, hash tessera.Hash) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	account := s.accounts[address]
	account.Code = &hash
	s.accounts[address] = account
}

func (s *State) GetBalance(address tessera.Address) tessera.Value {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.accounts[address].Balance
}

func (s *State) Debit(address tessera.Address, value tessera.Value) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	account := s.accounts[address]
	balance, underflow := tessera.Sub(account.Balance, value)
	if underflow {
		return fmt.Errorf("%w: %v has %v, needs %v", tessera.ErrInsufficientFunds, address, account.Balance, value)
	}
	account.Balance = balance
	s.update(address, account)
	return nil
}

// Credit increases the balance of the given account. Balances saturate at
// the maximum value.
func (s *State) Credit(address tessera.Address, value tessera.Value) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	account := s.accounts[address]
	balance, overflow := tessera.Add(account.Balance, value)
	if overflow {
		for i := range balance {
			balance[i] = 0xff
		}
	}
	account.Balance = balance
	s.update(address, account)
}

// Root computes a Keccak-256 commitment to the full content of the state.
// Equal states have equal roots.
func (s *State) Root() tessera.Hash {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.accounts.Root()
}

// Accounts returns a copy of the current content.
func (s *State) Accounts() Accounts {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.accounts.Clone()
}

// update stores the given account and drops it if it became empty.
func (s *State) update(address tessera.Address, account Account) {
	if account.IsEmpty() {
		delete(s.accounts, address)
	} else {
		s.accounts[address] = account
	}
}

// ----------------------------------------------------------------------------
// Accounts
// ----------------------------------------------------------------------------

// Accounts is a plain snapshot of a world state. Empty accounts are ignored.
type Accounts map[tessera.Address]Account

func (a Accounts) Equal(other Accounts) bool {
	return a.Root() == other.Root()
}

func (a Accounts) Clone() Accounts {
	if a == nil {
		return nil
	}
	res := make(Accounts, len(a))
	for k, v := range a {
		res[k] = v.Clone()
	}
	return res
}

// Diff lists the differences between two snapshots in address order.
func (a Accounts) Diff(other Accounts) []string {
	var res []string
	for _, address := range sortedKeys(mergeKeys(a, other), compareAddresses) {
		left, right := a[address], other[address]
		res = append(res, left.Diff(fmt.Sprintf("%v/", address), &right)...)
	}
	return res
}

type accountEntry struct {
	Address tessera.Address
	Balance tessera.Value
	Code    []byte
	Storage []storageEntry
}

type storageEntry struct {
	Key  tessera.Key
	Data []byte
}

// Root computes the commitment to the content of the snapshot. Entries are
// RLP encoded in key order and hashed.
func (a Accounts) Root() tessera.Hash {
	entries := make([]accountEntry, 0, len(a))
	for _, address := range sortedKeys(a, compareAddresses) {
		account := a[address]
		if account.IsEmpty() {
			continue
		}
		entry := accountEntry{
			Address: address,
			Balance: account.Balance,
		}
		if account.Code != nil {
			entry.Code = account.Code[:]
		}
		for _, key := range sortedKeys(account.Storage, compareKeys) {
			entry.Storage = append(entry.Storage, storageEntry{Key: key, Data: account.Storage[key]})
		}
		entries = append(entries, entry)
	}
	data, err := rlp.EncodeToBytes(entries)
	if err != nil {
		panic(fmt.Sprintf("failed to encode state: %v", err))
	}
	return tessera.Keccak256(data)
}

// ----------------------------------------------------------------------------
// Account
// ----------------------------------------------------------------------------

// Account is the content of a single address. Code is nil for accounts
// without a contract.
type Account struct {
	Balance tessera.Value
	Code    *tessera.Hash
	Storage Storage
}

func (a *Account) IsEmpty() bool {
	return a.Balance.IsZero() && a.Code == nil && len(a.Storage) == 0
}

func (a *Account) Clone() Account {
	res := Account{
		Balance: a.Balance,
		Storage: a.Storage.Clone(),
	}
	if a.Code != nil {
		code := *a.Code
		res.Code = &code
	}
	return res
}

func (a *Account) Diff(prefix string, other *Account) []string {
	var res []string
	if a.Balance != other.Balance {
		res = append(res, fmt.Sprintf("%sdifferent balance: %v != %v", prefix, a.Balance, other.Balance))
	}
	if !equalCode(a.Code, other.Code) {
		res = append(res, fmt.Sprintf("%sdifferent code: %v != %v", prefix, a.Code, other.Code))
	}
	return append(res, a.Storage.Diff(prefix+"Storage/", other.Storage)...)
}

func equalCode(a, b *tessera.Hash) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ----------------------------------------------------------------------------
// Storage
// ----------------------------------------------------------------------------

// Storage is the content of the storage of a single contract.
type Storage map[tessera.Key]tessera.Data

func (s Storage) Clone() Storage {
	if s == nil {
		return nil
	}
	res := make(Storage, len(s))
	for k, v := range s {
		res[k] = slices.Clone(v)
	}
	return res
}

func (s Storage) Diff(prefix string, other Storage) []string {
	var res []string
	for _, key := range sortedKeys(mergeKeys(s, other), compareKeys) {
		a, inA := s[key]
		b, inB := other[key]
		if inA != inB || !bytes.Equal(a, b) {
			res = append(res, fmt.Sprintf("%sdifferent value for key %v: 0x%x != 0x%x", prefix, key, a, b))
		}
	}
	return res
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func sortedKeys[K comparable, V any](m map[K]V, compare func(a, b K) int) []K {
	keys := maps.Keys(m)
	slices.SortFunc(keys, compare)
	return keys
}

func compareAddresses(a, b tessera.Address) int {
	return bytes.Compare(a[:], b[:])
}

func compareKeys(a, b tessera.Key) int {
	return bytes.Compare(a[:], b[:])
}

func mergeKeys[K comparable, V any](a, b map[K]V) map[K]struct{} {
	res := make(map[K]struct{}, len(a)+len(b))
	for k := range a {
		res[k] = struct{}{}
	}
	for k := range b {
		res[k] = struct{}{}
	}
	return res
}
