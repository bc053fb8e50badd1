// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package codestore keeps uploaded code together with its instrumented
// module. Entries are keyed by the Keccak-256 hash of the code.
package codestore

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains the options of a Store.
type Config struct {
	// Path is the directory of the database. If empty, the store is kept in
	// memory only.
	Path string
	// CacheSize is the number of decoded modules kept in memory. If set to
	// 0, a default size is used. If negative, no cache is used.
	CacheSize int
}

const defaultCacheSize = 1 << 10

var codePrefix = []byte("c")

// record is the persisted form of an entry. The original code is kept so
// that the module can be rebuilt under a different cost schedule.
type record struct {
	Code   []byte
	Module []byte
}

// Store is a persistent mapping from code hashes to instrumented modules.
// It is safe for concurrent use.
type Store struct {
	db        *levelDB
	converter *wasm.Converter
	cache     *lru.Cache[tessera.Hash, *wasm.Module]
}

// Open creates a store instrumenting code with the given converter.
func Open(config Config, converter *wasm.Converter) (*Store, error) {
	if converter == nil {
		return nil, fmt.Errorf("no converter provided")
	}
	if config.CacheSize == 0 {
		config.CacheSize = defaultCacheSize
	}
	var cache *lru.Cache[tessera.Hash, *wasm.Module]
	if config.CacheSize > 0 {
		var err error
		cache, err = lru.New[tessera.Hash, *wasm.Module](config.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	db, err := openLevelDB(config.Path)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:        db,
		converter: converter,
		cache:     cache,
	}, nil
}

// NewInMemory creates a store without persistence.
func NewInMemory(converter *wasm.Converter) (*Store, error) {
	return Open(Config{}, converter)
}

// Put validates and instruments the given code and stores the result. The
// returned error is a *wasm.ValidationError if the code is rejected, in which
// case nothing is stored. Storing the same code twice is a no-op.
func (s *Store) Put(code tessera.Code) (tessera.Hash, *wasm.Module, error) {
	hash := tessera.CodeHash(code)
	if module, err := s.Get(hash); err == nil {
		return hash, module, nil
	} else if !errors.Is(err, tessera.ErrUnknownCode) {
		return tessera.Hash{}, nil, err
	}

	module, err := s.converter.Convert(code, &hash)
	if err != nil {
		return tessera.Hash{}, nil, err
	}
	if err := s.write(hash, code, module); err != nil {
		return tessera.Hash{}, nil, err
	}
	log.Debug("Stored code", "hash", hash, "size", len(code))
	s.addToCache(hash, module)
	return hash, module, nil
}

// Get returns the module stored for the given hash or ErrUnknownCode. Modules
// instrumented under a different schedule version are rebuilt and stored
// again before they are returned.
func (s *Store) Get(hash tessera.Hash) (*wasm.Module, error) {
	if s.cache != nil {
		if module, found := s.cache.Get(hash); found {
			return module, nil
		}
	}

	data, found, err := s.db.get(key(hash))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, tessera.ErrUnknownCode
	}
	var entry record
	if err := rlp.DecodeBytes(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupted entry %v: %w", hash, err)
	}
	module, err := wasm.DecodeModule(entry.Module)
	if err != nil {
		return nil, fmt.Errorf("corrupted entry %v: %w", hash, err)
	}

	if version := s.converter.Schedule().Version; module.ScheduleVersion != version {
		log.Info("Re-instrumenting code", "hash", hash, "from", module.ScheduleVersion, "to", version)
		module, err = s.converter.Convert(entry.Code, &hash)
		if err != nil {
			return nil, fmt.Errorf("failed to re-instrument %v: %w", hash, err)
		}
		if err := s.write(hash, entry.Code, module); err != nil {
			return nil, err
		}
	}
	s.addToCache(hash, module)
	return module, nil
}

// Schedule returns the cost schedule modules are instrumented with.
func (s *Store) Schedule() *gas.Schedule {
	return s.converter.Schedule()
}

// Contains reports whether code with the given hash is stored.
func (s *Store) Contains(hash tessera.Hash) (bool, error) {
	if s.cache != nil && s.cache.Contains(hash) {
		return true, nil
	}
	return s.db.has(key(hash))
}

// Hashes lists the hashes of all stored code in ascending order.
func (s *Store) Hashes() ([]tessera.Hash, error) {
	keys, err := s.db.keys(codePrefix)
	if err != nil {
		return nil, err
	}
	res := make([]tessera.Hash, 0, len(keys))
	for _, k := range keys {
		var hash tessera.Hash
		if len(k) != len(codePrefix)+len(hash) {
			return nil, fmt.Errorf("invalid key %x", k)
		}
		copy(hash[:], k[len(codePrefix):])
		res = append(res, hash)
	}
	return res, nil
}

func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Purge()
	}
	return s.db.close()
}

func (s *Store) write(hash tessera.Hash, code tessera.Code, module *wasm.Module) error {
	encoded, err := module.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode module: %w", err)
	}
	data, err := rlp.EncodeToBytes(&record{Code: code, Module: encoded})
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	return s.db.put(key(hash), data)
}

func (s *Store) addToCache(hash tessera.Hash, module *wasm.Module) {
	if s.cache != nil {
		s.cache.Add(hash, module)
	}
}

func key(hash tessera.Hash) []byte {
	return append(append(make([]byte, 0, len(codePrefix)+len(hash)), codePrefix...), hash[:]...)
}
