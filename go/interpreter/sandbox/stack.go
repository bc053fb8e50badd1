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
	"fmt"
	"strings"
	"sync"
)

const initialStackSize = 1024

// stack is the operand stack shared by all function activations of an
// instance. Each activation owns a window starting at its locals. Values are
// stored as 64-bit words; 32-bit values are kept zero-extended.
//
// Bounds are not checked on individual operations. Before a function is
// entered, reserve has to be called with the maximum number of values the
// function may hold.
//
// Stacks are recycled through a pool. To obtain an empty stack use
// NewStack(), to return it use ReturnStack(s).
type stack struct {
	data         []uint64
	stackPointer int
}

func (s *stack) push(v uint64) {
	s.data[s.stackPointer] = v
	s.stackPointer++
}

func (s *stack) pop() uint64 {
	s.stackPointer--
	return s.data[s.stackPointer]
}

// peek returns a pointer to the top element. It is valid until the next
// push or reserve.
func (s *stack) peek() *uint64 {
	return &s.data[s.stackPointer-1]
}

func (s *stack) len() int {
	return s.stackPointer
}

// reserve makes sure n more values can be pushed.
func (s *stack) reserve(n int) {
	if need := s.stackPointer + n; need > len(s.data) {
		size := 2 * len(s.data)
		if size < need {
			size = need
		}
		data := make([]uint64, size)
		copy(data, s.data[:s.stackPointer])
		s.data = data
	}
}

// unwind removes drop values located below the top keep values.
func (s *stack) unwind(drop, keep uint32) {
	if drop == 0 {
		return
	}
	top := s.stackPointer - int(keep)
	copy(s.data[top-int(drop):], s.data[top:s.stackPointer])
	s.stackPointer -= int(drop)
}

func (s *stack) String() string {
	b := strings.Builder{}
	for i := s.len() - 1; i >= 0; i-- {
		b.WriteString(fmt.Sprintf("    [%4d] 0x%016x\n", i, s.data[i]))
	}
	return b.String()
}

var stackPool = sync.Pool{
	New: func() interface{} {
		return &stack{data: make([]uint64, initialStackSize)}
	},
}

// NewStack returns an empty stack from the reuse pool. It is thread-safe.
func NewStack() *stack {
	return stackPool.Get().(*stack)
}

// ReturnStack returns the stack to the reuse pool. Any stack may only be
// returned once. It is thread-safe.
func ReturnStack(s *stack) {
	s.stackPointer = 0
	stackPool.Put(s)
}
