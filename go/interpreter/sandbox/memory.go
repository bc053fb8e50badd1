// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.
package sandbox

import (
	"github.com/Fantom-foundation/Tessera/go/gas"
)

// growFailed is the result of a memory.grow exceeding the maximum.
const growFailed = ^uint32(0)

// Memory is the linear memory of an instance. Its size is always a
// multiple of gas.PageSize and never exceeds the declared maximum.
type Memory struct {
	data    []byte
	maximum uint32 // < in pages
}

func NewMemory(initial, maximum uint32) *Memory {
	return &Memory{
		data:    make([]byte, uint64(initial)*gas.PageSize),
		maximum: maximum,
	}
}

func (m *Memory) length() uint64 {
	return uint64(len(m.data))
}

// pages returns the current size in pages.
func (m *Memory) pages() uint32 {
	return uint32(m.length() / gas.PageSize)
}

// canGrow tells whether delta pages may be added.
func (m *Memory) canGrow(delta uint32) bool {
	return uint64(m.pages())+uint64(delta) <= uint64(m.maximum)
}

// grow adds delta zeroed pages and returns the previous size in pages. If
// the maximum would be exceeded the memory is left untouched and growFailed
// is returned.
func (m *Memory) grow(delta uint32) uint32 {
	if !m.canGrow(delta) {
		return growFailed
	}
	old := m.pages()
	if delta > 0 {
		m.data = append(m.data, make([]byte, uint64(delta)*gas.PageSize)...)
	}
	return old
}

// slice returns a view on the given range.
func (m *Memory) slice(offset, size uint64) ([]byte, error) {
	if offset+size < offset || offset+size > m.length() {
		return nil, errMemoryAccess
	}
	return m.data[offset : offset+size : offset+size], nil
}

// read returns a copy of the given range.
func (m *Memory) read(offset, size uint32) ([]byte, error) {
	data, err := m.slice(uint64(offset), uint64(size))
	if err != nil {
		return nil, err
	}
	return append([]byte{}, data...), nil
}

// readInto fills the given buffer from the memory starting at offset.
func (m *Memory) readInto(offset uint32, trg []byte) error {
	data, err := m.slice(uint64(offset), uint64(len(trg)))
	if err != nil {
		return err
	}
	copy(trg, data)
	return nil
}

func (m *Memory) write(offset uint32, data []byte) error {
	trg, err := m.slice(uint64(offset), uint64(len(data)))
	if err != nil {
		return err
	}
	copy(trg, data)
	return nil
}
