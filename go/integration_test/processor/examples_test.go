// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package processor

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/Fantom-foundation/Tessera/go/examples"
	"github.com/Fantom-foundation/Tessera/go/processor/contracts"
	"github.com/Fantom-foundation/Tessera/go/tessera"
)

func TestExamples_ComputesCorrectResultThroughProcessor(t *testing.T) {
	address := tessera.Address{0x42}
	for _, example := range examples.GetAllExamples() {
		for _, variant := range getAllInterpreterVariantsForTests() {
			for i := 0; i < 10; i++ {
				t.Run(fmt.Sprintf("%s-%s-%d", example.Name, variant, i), func(t *testing.T) {
					want := binary.LittleEndian.AppendUint32(nil, uint32(example.RunReference(i)))
					scenario := Scenario{
						Contracts: map[tessera.Address]tessera.Code{address: example.Code},
						Call: contracts.CallParameters{
							Caller:   caller,
							Callee:   address,
							Input:    binary.LittleEndian.AppendUint32(nil, uint32(i)),
							GasLimit: gasLimit,
						},
						Outcome: tessera.ReturnedWith(want),
					}
					scenario.Run(t, variant)
				})
			}
		}
	}
}
