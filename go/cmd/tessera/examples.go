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
	"regexp"
	"time"

	cliUtils "github.com/Fantom-foundation/Tessera/go/cmd/tessera/cli"
	"github.com/Fantom-foundation/Tessera/go/examples"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
)

var ExamplesCmd = cliUtils.AddCommonFlags(cli.Command{
	Action:    doExamples,
	Name:      "examples",
	Usage:     "Measures the throughput of an interpreter on the example programs",
	ArgsUsage: "[<regex>]",
	Flags: []cli.Flag{
		cliUtils.InterpreterFlag,
		&cli.IntFlag{
			Name:  "rounds",
			Usage: "number of executions of each example",
			Value: 1000,
		},
		&cli.IntFlag{
			Name:  "argument",
			Usage: "argument passed to each example",
			Value: 20,
		},
	},
})

func doExamples(context *cli.Context) error {
	filter, err := regexp.Compile(context.Args().First())
	if err != nil {
		return err
	}
	name := cliUtils.InterpreterFlag.Fetch(context)
	interpreter, err := vm.NewInterpreter(name)
	if err != nil {
		return err
	}
	rounds := max(context.Int("rounds"), 1)
	argument := context.Int("argument")

	fmt.Printf("Running examples on %s with argument %d ...\n", name, argument)
	for _, example := range examples.GetAllExamples() {
		if !filter.MatchString(example.Name) {
			continue
		}
		var gasUsed tessera.Gas
		start := time.Now()
		for i := 0; i < rounds; i++ {
			result, err := example.RunOn(interpreter, argument)
			if err != nil {
				return fmt.Errorf("%s failed: %w", example.Name, err)
			}
			if want := example.RunReference(argument); result.Result != want {
				return fmt.Errorf("%s produced %d, wanted %d", example.Name, result.Result, want)
			}
			gasUsed += result.UsedGas
		}
		seconds := time.Since(start).Seconds()
		fmt.Printf(
			"%-16s %s runs/s, %s gas/s, %d gas per run\n",
			example.Name,
			unitconv.FormatPrefix(float64(rounds)/seconds, unitconv.SI, 1),
			unitconv.FormatPrefix(float64(gasUsed)/seconds, unitconv.SI, 1),
			gasUsed/tessera.Gas(rounds),
		)
	}
	if profiling, ok := interpreter.(vm.ProfilingInterpreter); ok {
		fmt.Print(profiling.Profile())
	}
	return nil
}
