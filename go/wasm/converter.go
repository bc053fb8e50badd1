// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package wasm

import (
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ConversionConfig contains a set of configuration options for the code conversion.
type ConversionConfig struct {
	// CacheSize is the maximum number of modules retained in the cache.
	// If set to 0, a default size is used. If negative, no cache is used.
	CacheSize int
}

const defaultCacheSize = 1 << 12

// Converter validates and instruments code for a fixed cost schedule.
type Converter struct {
	config   ConversionConfig
	schedule gas.Schedule
	cache    *lru.Cache[tessera.Hash, *Module]
}

// NewConverter creates a new code converter with the provided configuration.
func NewConverter(config ConversionConfig, schedule gas.Schedule) (*Converter, error) {
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}
	if config.CacheSize == 0 {
		config.CacheSize = defaultCacheSize
	}

	var cache *lru.Cache[tessera.Hash, *Module]
	if config.CacheSize > 0 {
		var err error
		cache, err = lru.New[tessera.Hash, *Module](config.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	return &Converter{
		config:   config,
		schedule: schedule,
		cache:    cache,
	}, nil
}

func (c *Converter) Schedule() *gas.Schedule {
	return &c.schedule
}

// Convert validates and instruments the given code. If the provided code hash
// is not nil, it is assumed to be a valid hash of the code and is used to
// cache the conversion result. Rejected code is never cached.
func (c *Converter) Convert(code []byte, codeHash *tessera.Hash) (*Module, error) {
	if c.cache == nil || codeHash == nil {
		return Convert(code, &c.schedule)
	}

	res, exists := c.cache.Get(*codeHash)
	if exists {
		return res, nil
	}

	res, err := Convert(code, &c.schedule)
	if err != nil {
		return nil, err
	}
	log.Debug("Instrumented code", "hash", *codeHash, "size", len(code), "functions", len(res.Functions))
	c.cache.Add(*codeHash, res)
	return res, nil
}

// Convert validates the given code and instruments it with the prices of the
// given schedule. The result is a pure function of its inputs. On failure a
// *ValidationError is returned and no module is produced.
func Convert(code []byte, schedule *gas.Schedule) (*Module, error) {
	return newDecoder(schedule).decode(code)
}
