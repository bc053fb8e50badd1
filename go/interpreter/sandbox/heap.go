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
	"math/bits"
)

// heapBlockSize is the granularity of heap allocations in bytes.
const heapBlockSize = 8

type heapNode byte

const (
	nodeFree  heapNode = iota // < node and all its descendants are unused
	nodeSplit                 // < some descendants are in use
	nodeFull                  // < node is allocated or both children are full
)

// heap is a buddy allocator managing a range of an instance's linear
// memory. The range is covered by a complete binary tree whose leaves are
// blocks of heapBlockSize bytes; a node at level l spans 2^l leaves. Zero
// is never a valid heap address and reports a failed allocation.
type heap struct {
	base      uint32
	levels    uint32
	tree      []heapNode
	allocated map[uint32]uint32 // < address to level
}

// newHeap creates an allocator for the memory range [start, end).
func newHeap(start, end uint32) *heap {
	base := alignUp(max(start, heapBlockSize))
	res := &heap{base: base, allocated: map[uint32]uint32{}}
	if base >= end {
		return res
	}
	leaves := (end - base) / heapBlockSize
	if leaves == 0 {
		return res
	}
	res.levels = uint32(bits.Len32(leaves) - 1)
	res.tree = make([]heapNode, (2<<res.levels)-1)
	return res
}

func alignUp(v uint32) uint32 {
	return (v + heapBlockSize - 1) &^ (heapBlockSize - 1)
}

// levelFor returns the lowest level with nodes large enough for size bytes.
func levelFor(size uint32) uint32 {
	blocks := (uint64(size) + heapBlockSize - 1) / heapBlockSize
	if blocks <= 1 {
		return 0
	}
	return uint32(bits.Len64(blocks - 1))
}

// allocate reserves size bytes and returns their address, or 0 if no
// sufficiently large range is available.
func (h *heap) allocate(size uint32) uint32 {
	if h.tree == nil {
		return 0
	}
	level := levelFor(size)
	if level > h.levels {
		return 0
	}
	index, found := h.find(0, h.levels, level)
	if !found {
		return 0
	}
	first := uint32(1)<<(h.levels-level) - 1
	address := h.base + (uint32(index)-first)<<level*heapBlockSize
	h.allocated[address] = level
	return address
}

// find locates a free node at the wanted level below the given node and
// marks it as full, updating the state of all nodes on the way.
func (h *heap) find(index int, level, want uint32) (int, bool) {
	if level == want {
		if h.tree[index] != nodeFree {
			return 0, false
		}
		h.tree[index] = nodeFull
		return index, true
	}
	if h.tree[index] == nodeFull {
		return 0, false
	}
	h.tree[index] = nodeSplit
	left, right := 2*index+1, 2*index+2
	res, found := h.find(left, level-1, want)
	if !found {
		res, found = h.find(right, level-1, want)
	}
	h.update(index)
	return res, found
}

// update derives the state of an inner node from its children.
func (h *heap) update(index int) {
	left, right := h.tree[2*index+1], h.tree[2*index+2]
	switch {
	case left == nodeFree && right == nodeFree:
		h.tree[index] = nodeFree
	case left == nodeFull && right == nodeFull:
		h.tree[index] = nodeFull
	default:
		h.tree[index] = nodeSplit
	}
}

// free releases the allocation starting at the given address.
func (h *heap) free(address uint32) error {
	level, found := h.allocated[address]
	if !found {
		return errHostFunction
	}
	delete(h.allocated, address)
	first := 1<<(h.levels-level) - 1
	index := first + int((address-h.base)/heapBlockSize>>level)
	h.tree[index] = nodeFree
	for index > 0 {
		index = (index - 1) / 2
		h.update(index)
	}
	return nil
}
