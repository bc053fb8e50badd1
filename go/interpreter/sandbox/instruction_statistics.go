// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.
package sandbox

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Fantom-foundation/Tessera/go/wasm"
)

// maxSequenceLength is the longest instruction sequence counted.
const maxSequenceLength = 4

// statisticRunner is a runner that collects statistics about the instruction
// sequences of the executed code. Results are accumulated over all
// instances run by the same interpreter.
type statisticRunner struct {
	mutex sync.Mutex
	stats *statistics
}

func (s *statisticRunner) run(c *context) (status, error) {
	collector := statsCollector{stats: newStatistics()}
	status := statusRunning
	var err error
	for status == statusRunning {
		collector.nextOp(c.code[c.pc].Opcode)
		status, err = step(c)
		if err != nil {
			break
		}
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stats == nil {
		s.stats = newStatistics()
	}
	s.stats.insert(collector.stats)
	return status, err
}

func (s *statisticRunner) getSummary() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.stats == nil {
		s.stats = newStatistics()
	}
	return s.stats.print()
}

func (s *statisticRunner) reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats = newStatistics()
}

// statistics counts how often instructions and sequences of up to
// maxSequenceLength instructions got executed. Op codes fit into 16 bits;
// a sequence is packed into one key, the latest instruction in the lowest
// bits. counts[i] holds the sequences of length i+1.
type statistics struct {
	steps  uint64
	counts [maxSequenceLength]map[uint64]uint64
}

func newStatistics() *statistics {
	res := &statistics{}
	for i := range res.counts {
		res.counts[i] = map[uint64]uint64{}
	}
	return res
}

func (s *statistics) insert(src *statistics) {
	s.steps += src.steps
	for i, counts := range src.counts {
		for k, v := range counts {
			s.counts[i][k] += v
		}
	}
}

// print returns the top entries of each sequence length.
func (s *statistics) print() string {
	type entry struct {
		key   uint64
		count uint64
	}

	builder := strings.Builder{}
	builder.WriteString("\n----- Statistics ------\n")
	builder.WriteString(fmt.Sprintf("\nSteps: %d\n", s.steps))
	titles := [maxSequenceLength]string{"Singles", "Pairs", "Triples", "Quads"}
	for length, counts := range s.counts {
		list := make([]entry, 0, len(counts))
		for k, c := range counts {
			list = append(list, entry{k, c})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].count != list[j].count {
				return list[i].count > list[j].count
			}
			return list[i].key < list[j].key
		})
		if len(list) > 5 {
			list = list[:5]
		}
		builder.WriteString(fmt.Sprintf("\n%s:\n", titles[length]))
		for _, e := range list {
			builder.WriteString("\t")
			for i := length; i >= 0; i-- {
				builder.WriteString(fmt.Sprintf("%-20v", wasm.OpCode(e.key>>(16*i))))
			}
			builder.WriteString(fmt.Sprintf(": %d (%.2f%%)\n", e.count, float32(e.count*100)/float32(s.steps)))
		}
	}
	builder.WriteString("\n")
	return builder.String()
}

// statsCollector keeps track of the recent history of executed instructions.
type statsCollector struct {
	stats   *statistics
	history uint64 // < the last executed op codes, packed like keys
}

func (s *statsCollector) nextOp(op wasm.OpCode) {
	s.history = s.history<<16 | uint64(op)
	s.stats.steps++
	for i := 0; i < maxSequenceLength && uint64(i) < s.stats.steps; i++ {
		mask := ^uint64(0)
		if i < maxSequenceLength-1 {
			mask = 1<<(16*(i+1)) - 1
		}
		s.stats.counts[i][s.history&mask]++
	}
}
