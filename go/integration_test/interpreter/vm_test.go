// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interpreter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Tessera/go/examples"
	"github.com/Fantom-foundation/Tessera/go/vm"
)

func getInterpreter(t testing.TB, variant string) vm.Interpreter {
	t.Helper()
	interpreter, err := vm.NewInterpreter(variant)
	if err != nil {
		t.Fatalf("failed to create interpreter %s: %v", variant, err)
	}
	return interpreter
}

func TestExamples_ComputesCorrectResult(t *testing.T) {
	for _, example := range examples.GetAllExamples() {
		for _, variant := range getAllInterpreterVariantsForTests() {
			interpreter := getInterpreter(t, variant)
			for i := 0; i < 10; i++ {
				t.Run(fmt.Sprintf("%s-%s-%d", example.Name, variant, i), func(t *testing.T) {
					want := example.RunReference(i)
					got, err := example.RunOn(interpreter, i)
					if err != nil {
						t.Fatalf("error processing contract: %v", err)
					}
					if want != got.Result {
						t.Fatalf("incorrect result, wanted %d, got %d", want, got.Result)
					}
				})
			}
		}
	}
}

func TestExamples_GasUsageIsIndependentOfVariant(t *testing.T) {
	reference := getInterpreter(t, "sandbox")
	for _, example := range examples.GetAllExamples() {
		for _, variant := range getAllInterpreterVariantsForTests() {
			interpreter := getInterpreter(t, variant)
			t.Run(fmt.Sprintf("%s-%s", example.Name, variant), func(t *testing.T) {
				want, err := example.RunOn(reference, 7)
				if err != nil {
					t.Fatalf("error processing contract: %v", err)
				}
				got, err := example.RunOn(interpreter, 7)
				if err != nil {
					t.Fatalf("error processing contract: %v", err)
				}
				if want.UsedGas != got.UsedGas {
					t.Errorf("unexpected gas usage, wanted %d, got %d", want.UsedGas, got.UsedGas)
				}
			})
		}
	}
}

func TestInterpreter_ProfilingVariantsCollectStatistics(t *testing.T) {
	example := examples.GetFibExample()
	for _, variant := range getAllInterpreterVariantsForTests() {
		if !strings.Contains(variant, "stats") {
			continue
		}
		t.Run(variant, func(t *testing.T) {
			interpreter, ok := getInterpreter(t, variant).(vm.ProfilingInterpreter)
			if !ok {
				t.Fatalf("%s does not support profiling", variant)
			}
			interpreter.ResetProfile()
			if !strings.Contains(interpreter.Profile(), "Steps: 0\n") {
				t.Errorf("profile not reset:%s", interpreter.Profile())
			}
			if _, err := example.RunOn(interpreter, 5); err != nil {
				t.Fatalf("error processing contract: %v", err)
			}
			if strings.Contains(interpreter.Profile(), "Steps: 0\n") {
				t.Errorf("no steps recorded:%s", interpreter.Profile())
			}
		})
	}
}

func BenchmarkExamples(b *testing.B) {
	for _, example := range examples.GetAllExamples() {
		for _, variant := range getAllInterpreterVariantsForTests() {
			interpreter := getInterpreter(b, variant)
			b.Run(fmt.Sprintf("%s-%s", example.Name, variant), func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if _, err := example.RunOn(interpreter, 10); err != nil {
						b.Fatalf("error processing contract: %v", err)
					}
				}
			})
		}
	}
}
