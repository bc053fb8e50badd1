// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

type scheduleFlagType struct {
	cli.PathFlag
}

var ScheduleFlag = &scheduleFlagType{
	cli.PathFlag{
		Name:      "schedule",
		Usage:     "TOML file overriding prices and limits of the default cost schedule",
		TakesFile: true,
	},
}

// Fetch loads the selected schedule, or the default schedule if no file
// is given.
func (f *scheduleFlagType) Fetch(context *cli.Context) (gas.Schedule, error) {
	path := context.Path(f.Name)
	if path == "" {
		return gas.DefaultSchedule(), nil
	}
	return gas.LoadSchedule(path)
}

type verbosityFlagType struct {
	cli.IntFlag
}

var VerbosityFlag = &verbosityFlagType{
	cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	},
}

func (f *verbosityFlagType) Fetch(context *cli.Context) slog.Level {
	return log.FromLegacyLevel(context.Int(f.Name))
}

type interpreterFlagType struct {
	cli.StringFlag
}

var InterpreterFlag = &interpreterFlagType{
	cli.StringFlag{
		Name:    "interpreter",
		Aliases: []string{"i"},
		Usage:   "name of the registered interpreter configuration to use",
		Value:   "sandbox",
	},
}

func (f *interpreterFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type dbFlagType struct {
	cli.PathFlag
}

var DbFlag = &dbFlagType{
	cli.PathFlag{
		Name:  "db",
		Usage: "directory of the code store, kept in memory if not set",
	},
}

func (f *dbFlagType) Fetch(context *cli.Context) string {
	return context.Path(f.Name)
}

type gasFlagType struct {
	cli.Uint64Flag
}

var GasFlag = &gasFlagType{
	cli.Uint64Flag{
		Name:  "gas",
		Usage: "gas limit of each invocation",
		Value: 10_000_000,
	},
}

func (f *gasFlagType) Fetch(context *cli.Context) uint64 {
	return context.Uint64(f.Name)
}

var commonFlags = []cli.Flag{
	cpuProfileFlag,
	VerbosityFlag,
}

var cpuProfileFlag = &cli.StringFlag{
	Name:  "cpuprofile",
	Usage: "store CPU profile in the provided filename",
}

// AddCommonFlags adds the profiling and logging flags to the given command
// and sets up both before the command runs.
func AddCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, commonFlags...)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {
		log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, VerbosityFlag.Fetch(ctx), true)))

		if cpuprofileFilename := ctx.String(cpuProfileFlag.Name); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return action(ctx)
	}
	return command
}
