// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package codestore

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDB is the raw key-value layer below a Store. LevelDB handles its own
// synchronization.
type levelDB struct {
	db *leveldb.DB
}

// openLevelDB opens or creates a database at the given path. An empty path
// selects a volatile in-memory database.
func openLevelDB(path string) (*levelDB, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	return &levelDB{db: db}, nil
}

// get returns (nil, false, nil) if the key is not present.
func (l *levelDB) get(key []byte) ([]byte, bool, error) {
	data, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %x: %w", key, err)
	}
	return data, true, nil
}

func (l *levelDB) has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *levelDB) put(key, value []byte) error {
	if err := l.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("put %x: %w", key, err)
	}
	return nil
}

// keys lists all keys starting with the given prefix in key order.
func (l *levelDB) keys(prefix []byte) ([][]byte, error) {
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var res [][]byte
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		res = append(res, key)
	}
	return res, iter.Error()
}

func (l *levelDB) close() error {
	return l.db.Close()
}
