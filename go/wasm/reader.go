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
	"bytes"
	"errors"
	"io"

	"github.com/go-interpreter/wagon/wasm/leb128"
)

// reader decodes the immediates of instructions and initializer
// expressions. All methods fail with a RuleMalformed violation on truncated
// or overlong input.
type reader struct {
	data *bytes.Reader
}

func newReader(data []byte) *reader {
	return &reader{data: bytes.NewReader(data)}
}

func (r *reader) len() int {
	return r.data.Len()
}

func (r *reader) done() bool {
	return r.data.Len() == 0
}

func (r *reader) offset() int64 {
	return r.data.Size() - int64(r.data.Len())
}

func (r *reader) byte() (byte, error) {
	b, err := r.data.ReadByte()
	if err != nil {
		return 0, violation(RuleMalformed, "unexpected end of input at offset %d", r.offset())
	}
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	pos := r.offset()
	v, err := leb128.ReadVarUint32(r.data)
	if err != nil {
		return 0, integerViolation(pos, err)
	}
	return v, nil
}

func (r *reader) s32() (int32, error) {
	pos := r.offset()
	v, err := leb128.ReadVarint32(r.data)
	if err != nil {
		return 0, integerViolation(pos, err)
	}
	return v, nil
}

func (r *reader) s64() (int64, error) {
	pos := r.offset()
	v, err := leb128.ReadVarint64(r.data)
	if err != nil {
		return 0, integerViolation(pos, err)
	}
	return v, nil
}

// count reads the length of a vector, rejecting lengths that can not
// possibly fit into the remaining input.
func (r *reader) count() (uint32, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if uint64(n) > uint64(r.len()) {
		return 0, violation(RuleMalformed, "vector length %d exceeds remaining input", n)
	}
	return n, nil
}

func integerViolation(pos int64, err error) *ValidationError {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return violation(RuleMalformed, "unexpected end of input at offset %d", pos)
	}
	return violation(RuleMalformed, "invalid integer at offset %d: %v", pos, err)
}
