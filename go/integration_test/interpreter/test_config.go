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
	"slices"
	"strings"

	"github.com/Fantom-foundation/Tessera/go/interpreter/sandbox"
	"github.com/Fantom-foundation/Tessera/go/vm"
)

func init() {
	// Experimental sandbox configurations should be covered by integration
	// tests as they are used by the command line tool.
	sandbox.RegisterExperimentalInterpreterConfigurations()
}

// getAllInterpreterVariantsForTests returns all registered interpreter variants
// that should be covered in integration tests.
func getAllInterpreterVariantsForTests() []string {
	// Logging variants trace every instruction to stderr.
	return slices.DeleteFunc(
		vm.RegisteredInterpreterNames(),
		func(s string) bool { return strings.Contains(s, "logging") },
	)
}
