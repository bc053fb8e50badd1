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
	"github.com/Fantom-foundation/Tessera/go/codestore"
	"github.com/Fantom-foundation/Tessera/go/processor/contracts"
	"github.com/Fantom-foundation/Tessera/go/state"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var RunCmd = cliUtils.AddCommonFlags(cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Uploads and instantiates code and calls the resulting contract",
	ArgsUsage: "<file|0x-hex>",
	Flags: []cli.Flag{
		cliUtils.ScheduleFlag,
		cliUtils.InterpreterFlag,
		cliUtils.DbFlag,
		cliUtils.GasFlag,
		&cli.StringFlag{
			Name:  "deploy-input",
			Usage: "hex encoded input of the deploy function",
		},
		&cli.StringFlag{
			Name:  "input",
			Usage: "hex encoded input of the call function",
		},
		&cli.IntFlag{
			Name:  "calls",
			Usage: "number of times the contract is called",
			Value: 1,
		},
	},
})

var cliAccount = tessera.Address{0x01}

func doRun(context *cli.Context) error {
	schedule, err := cliUtils.ScheduleFlag.Fetch(context)
	if err != nil {
		return err
	}
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one code argument")
	}
	code, err := readCode(context.Args().Get(0))
	if err != nil {
		return err
	}

	interpreter, err := vm.NewInterpreter(cliUtils.InterpreterFlag.Fetch(context))
	if err != nil {
		return err
	}
	converter, err := wasm.NewConverter(wasm.ConversionConfig{}, schedule)
	if err != nil {
		return err
	}
	store, err := codestore.Open(codestore.Config{Path: cliUtils.DbFlag.Fetch(context)}, converter)
	if err != nil {
		return err
	}
	defer store.Close()

	world := state.New(nil)
	processor := contracts.NewWithInterpreter(interpreter, store, world)
	limit := tessera.Gas(cliUtils.GasFlag.Fetch(context))

	upload, err := processor.PutCode(code, limit)
	if err != nil {
		return err
	}
	if !upload.Success() {
		return fmt.Errorf("upload failed after consuming %d gas: %w", upload.GasUsed, upload.Err)
	}
	fmt.Printf("Uploaded code %v using %d gas\n", upload.CodeHash, upload.GasUsed)

	created, err := processor.Instantiate(contracts.InstantiateParameters{
		Deployer: cliAccount,
		CodeHash: upload.CodeHash,
		Input:    common.FromHex(context.String("deploy-input")),
		GasLimit: limit,
	})
	if err != nil {
		return err
	}
	printReceipt("Deploy", created)
	if !created.Outcome.Success() {
		return fmt.Errorf("instantiation failed: %v", created.Outcome)
	}
	fmt.Printf("Contract address: %v\n", created.Address)

	input := common.FromHex(context.String("input"))
	for i := 0; i < context.Int("calls"); i++ {
		receipt, err := processor.Call(contracts.CallParameters{
			Caller:   cliAccount,
			Callee:   created.Address,
			Input:    input,
			GasLimit: limit,
		})
		if err != nil {
			return err
		}
		printReceipt(fmt.Sprintf("Call %d", i), receipt)
	}

	log.Info("State after execution", "root", world.Root())
	if profiling, ok := interpreter.(vm.ProfilingInterpreter); ok {
		fmt.Print(profiling.Profile())
	}
	return nil
}

func printReceipt(name string, receipt contracts.Receipt) {
	fmt.Printf("%s: %v, gas used %d\n", name, receipt.Outcome, receipt.GasUsed)
	for _, event := range receipt.Events {
		fmt.Printf("\tevent of %v, topics %v, data 0x%x\n", event.Address, event.Topics, []byte(event.Data))
	}
}
