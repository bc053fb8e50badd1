// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import "github.com/Fantom-foundation/Tessera/go/wasm/asm"

// GetStaticOverheadExample returns the argument unchanged. It represents
// the worst case for very short programs, where the costs of setting up an
// instance dominate.
func GetStaticOverheadExample() Example {
	return exampleSpec{
		name:      "static_overhead",
		compute:   asm.NewCode().LocalGet(0),
		reference: StaticOverheadRef,
	}.build()
}

func StaticOverheadRef(x int) int {
	return x
}
