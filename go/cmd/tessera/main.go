// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Fantom-foundation/Tessera/go/interpreter/sandbox"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

func main() {
	sandbox.RegisterExperimentalInterpreterConfigurations()

	app := &cli.App{
		Name:      "tessera",
		Usage:     "Tools for the Tessera contract engine",
		Copyright: "(c) 2024 Fantom Foundation",
		Commands: []*cli.Command{
			&ValidateCmd,
			&RunCmd,
			&ExamplesCmd,
			&ScheduleCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readCode interprets the given argument as hex encoded code if it starts
// with 0x and as the name of a file containing the code otherwise.
func readCode(arg string) (tessera.Code, error) {
	if strings.HasPrefix(arg, "0x") {
		return common.FromHex(arg), nil
	}
	code, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read code: %w", err)
	}
	return code, nil
}
