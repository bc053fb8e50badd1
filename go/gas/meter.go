// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gas

import (
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/tessera"
)

const ErrOutOfGas = tessera.ConstError("out of gas")

// Meter tracks the gas available to a single call frame. Gas is never
// created: a meter starts with an allotment, which is only reduced by
// charges. Child meters receive a share of their parent's remaining gas and
// hand back what they did not use when they are settled.
//
// A Meter is not thread-safe.
type Meter struct {
	allotted  tessera.Gas
	remaining tessera.Gas
	exhausted bool
}

// NewMeter creates a meter for a top-level invocation with the given limit.
func NewMeter(limit tessera.Gas) *Meter {
	return &Meter{allotted: limit, remaining: limit}
}

// Charge deducts the given amount. If the amount exceeds the remaining gas,
// the remaining gas drops to zero, the meter becomes exhausted, and
// ErrOutOfGas is returned. Once exhausted, every charge fails.
func (m *Meter) Charge(amount tessera.Gas) error {
	if m.exhausted || amount > m.remaining {
		m.remaining = 0
		m.exhausted = true
		return ErrOutOfGas
	}
	m.remaining -= amount
	return nil
}

// SpawnChild creates a meter for a nested frame holding the smaller of the
// given limit and the gas remaining in this meter. The parent is not
// charged until the child is settled.
func (m *Meter) SpawnChild(limit tessera.Gas) *Meter {
	return &Meter{
		allotted:  min(limit, m.remaining),
		remaining: min(limit, m.remaining),
	}
}

// Settle charges this meter with the gas consumed by the given child. Gas
// the child did not use stays with the parent. Each child must be settled
// at most once.
func (m *Meter) Settle(child *Meter) {
	consumed := child.Consumed()
	if consumed > m.remaining {
		panic(fmt.Sprintf("child meter consumed more than its parent holds: %d > %d", consumed, m.remaining))
	}
	m.remaining -= consumed
}

// Allotted returns the gas this meter started with.
func (m *Meter) Allotted() tessera.Gas {
	return m.allotted
}

// Remaining returns the gas still available.
func (m *Meter) Remaining() tessera.Gas {
	return m.remaining
}

// Consumed returns the gas charged so far.
func (m *Meter) Consumed() tessera.Gas {
	return m.allotted - m.remaining
}

// Exhausted reports whether a charge has failed.
func (m *Meter) Exhausted() bool {
	return m.exhausted
}

func (m *Meter) String() string {
	return fmt.Sprintf("%d/%d", m.remaining, m.allotted)
}
