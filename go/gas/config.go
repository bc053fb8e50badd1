// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gas

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// LoadSchedule reads a schedule from a TOML file. Keys missing in the file
// retain the value of the default schedule. Keys are matched to fields
// ignoring case and underscores, so both MemoryGrowPerPage and
// memory_grow_per_page are accepted.
func LoadSchedule(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, err
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes a TOML encoded schedule on top of the default
// schedule and validates the result.
func ParseSchedule(data []byte) (Schedule, error) {
	schedule := DefaultSchedule()
	if err := toml.Unmarshal(data, &schedule); err != nil {
		return Schedule{}, fmt.Errorf("invalid schedule: %w", err)
	}
	if err := schedule.Validate(); err != nil {
		return Schedule{}, fmt.Errorf("invalid schedule: %w", err)
	}
	return schedule, nil
}

// EncodeSchedule produces the TOML encoding of the given schedule.
func EncodeSchedule(schedule Schedule) ([]byte, error) {
	return toml.Marshal(schedule)
}
