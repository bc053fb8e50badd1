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
	"io"
)

// loggingRunner traces every executed instruction to an io.Writer, one
// line per instruction in the format
//
//	<function>:<pc> <op> left=<gas> height=<stack height> top=<top of stack>
//
// The state is printed before the instruction is executed.
type loggingRunner struct {
	out io.Writer
}

func newLogger(writer io.Writer) loggingRunner {
	return loggingRunner{out: writer}
}

func (l loggingRunner) run(c *context) (status, error) {
	status := statusRunning
	var err error
	for status == statusRunning {
		if l.out != nil {
			if err := l.trace(c); err != nil {
				return statusFailed, err
			}
		}
		if status, err = step(c); err != nil {
			return status, err
		}
	}
	return status, nil
}

func (l loggingRunner) trace(c *context) error {
	height := c.stack.len() - c.base
	top := "-"
	if height > 0 {
		top = fmt.Sprintf("%d", *c.stack.peek())
	}
	_, err := fmt.Fprintf(l.out, "%d:%d %v left=%d height=%d top=%s\n",
		c.function, c.pc, c.code[c.pc].Opcode, c.meter.Remaining(), height, top)
	return err
}
