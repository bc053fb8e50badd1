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

	cliUtils "github.com/Fantom-foundation/Tessera/go/cmd/tessera/cli"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
)

var ValidateCmd = cliUtils.AddCommonFlags(cli.Command{
	Action:    doValidate,
	Name:      "validate",
	Usage:     "Validates and instruments code without storing it",
	ArgsUsage: "<file|0x-hex>...",
	Flags: []cli.Flag{
		cliUtils.ScheduleFlag,
	},
})

func doValidate(context *cli.Context) error {
	schedule, err := cliUtils.ScheduleFlag.Fetch(context)
	if err != nil {
		return err
	}
	if context.Args().Len() == 0 {
		return fmt.Errorf("no code given")
	}

	rejected := 0
	for _, arg := range context.Args().Slice() {
		code, err := readCode(arg)
		if err != nil {
			return err
		}
		module, err := wasm.Convert(code, &schedule)
		if err != nil {
			fmt.Printf("%s: rejected: %v\n", arg, err)
			rejected++
			continue
		}
		hash, err := module.Hash()
		if err != nil {
			return err
		}
		fmt.Printf("%s: valid\n", arg)
		fmt.Printf("\tsize:        %sB\n", unitconv.FormatPrefix(float64(len(code)), unitconv.IEC, 1))
		fmt.Printf("\tfunctions:   %d\n", len(module.Functions))
		fmt.Printf("\timports:     %v\n", module.Imports)
		fmt.Printf("\tmemory:      %d-%d pages\n", module.Memory.Initial, module.Memory.Maximum)
		fmt.Printf("\tupload fee:  %d\n", schedule.UploadFee(len(code)))
		fmt.Printf("\tmodule hash: %v\n", hash)
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d codes rejected", rejected, context.Args().Len())
	}
	return nil
}
