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
	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/urfave/cli/v2"
)

var ScheduleCmd = cliUtils.AddCommonFlags(cli.Command{
	Action: doSchedule,
	Name:   "schedule",
	Usage:  "Prints the effective cost schedule as TOML",
	Flags: []cli.Flag{
		cliUtils.ScheduleFlag,
	},
})

func doSchedule(context *cli.Context) error {
	schedule, err := cliUtils.ScheduleFlag.Fetch(context)
	if err != nil {
		return err
	}
	data, err := gas.EncodeSchedule(schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	fmt.Printf("%s", data)
	return nil
}
