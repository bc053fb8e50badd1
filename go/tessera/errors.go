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

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const (
	// ErrInsufficientFunds is reported by balance collaborators when a debit
	// exceeds the available balance.
	ErrInsufficientFunds = ConstError("insufficient funds")

	// ErrUnknownCode is reported if a code hash is not present in a store.
	ErrUnknownCode = ConstError("unknown code hash")
)
