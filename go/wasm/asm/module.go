// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package asm assembles modules in the WebAssembly binary format. It is used
// to produce example contracts and test inputs; it does not validate its
// input.
package asm

import (
	"bytes"
	"slices"

	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// ModuleBuilder collects the entities of a module and encodes them in
// canonical section order.
type ModuleBuilder struct {
	types     []funcType
	imports   []imported
	functions []function
	tables    [][]byte
	memories  [][]byte
	globals   [][]byte
	exports   [][]byte
	start     *uint32
	elements  [][]byte
	data      [][]byte
	dataCount bool
	extra     []rawSection
}

type funcType struct {
	params  []op.ValueType
	results []op.ValueType
}

type imported struct {
	module, name string
	typeIndex    uint32
}

type function struct {
	typeIndex uint32
	locals    []op.ValueType
	body      []byte
}

type rawSection struct {
	id      op.SectionID
	payload []byte
}

func NewModule() *ModuleBuilder {
	return &ModuleBuilder{}
}

// Type returns the index of the given function type, adding it if needed.
func (b *ModuleBuilder) Type(params, results []op.ValueType) uint32 {
	for i, t := range b.types {
		if slices.Equal(t.params, params) && slices.Equal(t.results, results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunction adds a function import and returns its function index.
// All imports must be added before the first function is defined.
func (b *ModuleBuilder) ImportFunction(module, name string, params, results []op.ValueType) uint32 {
	if len(b.functions) > 0 {
		panic("imports must be declared before functions")
	}
	b.imports = append(b.imports, imported{module: module, name: name, typeIndex: b.Type(params, results)})
	return uint32(len(b.imports) - 1)
}

// Function defines a function and returns its index in the function index
// space. The terminating end instruction is appended automatically.
func (b *ModuleBuilder) Function(params, results, locals []op.ValueType, body *Code) uint32 {
	code := slices.Clone(body.Bytes())
	code = append(code, byte(op.END))
	b.functions = append(b.functions, function{
		typeIndex: b.Type(params, results),
		locals:    locals,
		body:      code,
	})
	return uint32(len(b.imports) + len(b.functions) - 1)
}

// Memory declares a memory with minimum and maximum page counts.
func (b *ModuleBuilder) Memory(initial, maximum uint32) *ModuleBuilder {
	entry := []byte{op.LimitsMinMax}
	entry = appendUnsigned(entry, uint64(initial))
	entry = appendUnsigned(entry, uint64(maximum))
	b.memories = append(b.memories, entry)
	return b
}

// UnboundedMemory declares a memory without a maximum page count.
func (b *ModuleBuilder) UnboundedMemory(initial uint32) *ModuleBuilder {
	entry := []byte{op.LimitsMinOnly}
	entry = appendUnsigned(entry, uint64(initial))
	b.memories = append(b.memories, entry)
	return b
}

// Table declares a table of function references with a fixed size.
func (b *ModuleBuilder) Table(size uint32) *ModuleBuilder {
	entry := []byte{byte(op.FuncRef), op.LimitsMinMax}
	entry = appendUnsigned(entry, uint64(size))
	entry = appendUnsigned(entry, uint64(size))
	b.tables = append(b.tables, entry)
	return b
}

// Global declares a global initialized with a constant and returns its index.
func (b *ModuleBuilder) Global(typ op.ValueType, mutable bool, init int64) uint32 {
	entry := []byte{byte(typ)}
	if mutable {
		entry = append(entry, 1)
	} else {
		entry = append(entry, 0)
	}
	entry = append(entry, constExpr(typ, init)...)
	b.globals = append(b.globals, entry)
	return uint32(len(b.globals) - 1)
}

// Export exports an entity under the given name.
func (b *ModuleBuilder) Export(name string, kind op.ExternalKind, index uint32) *ModuleBuilder {
	entry := appendName(nil, name)
	entry = append(entry, byte(kind))
	entry = appendUnsigned(entry, uint64(index))
	b.exports = append(b.exports, entry)
	return b
}

func (b *ModuleBuilder) ExportFunction(name string, function uint32) *ModuleBuilder {
	return b.Export(name, op.ExternalFunction, function)
}

func (b *ModuleBuilder) Start(function uint32) *ModuleBuilder {
	b.start = &function
	return b
}

// Element initializes table slots starting at offset with the given functions.
func (b *ModuleBuilder) Element(offset uint32, functions ...uint32) *ModuleBuilder {
	entry := []byte{0x00}
	entry = append(entry, constExpr(op.I32, int64(offset))...)
	entry = appendUnsigned(entry, uint64(len(functions)))
	for _, f := range functions {
		entry = appendUnsigned(entry, uint64(f))
	}
	b.elements = append(b.elements, entry)
	return b
}

// Data initializes memory at the given offset.
func (b *ModuleBuilder) Data(offset uint32, data []byte) *ModuleBuilder {
	entry := []byte{0x00}
	entry = append(entry, constExpr(op.I32, int64(offset))...)
	entry = appendUnsigned(entry, uint64(len(data)))
	entry = append(entry, data...)
	b.data = append(b.data, entry)
	return b
}

// WithDataCount emits a data count section.
func (b *ModuleBuilder) WithDataCount() *ModuleBuilder {
	b.dataCount = true
	return b
}

// AppendRawSection adds a section with the given payload after all
// generated sections.
func (b *ModuleBuilder) AppendRawSection(id op.SectionID, payload []byte) *ModuleBuilder {
	b.extra = append(b.extra, rawSection{id: id, payload: payload})
	return b
}

// Bytes encodes the module.
func (b *ModuleBuilder) Bytes() []byte {
	var out bytes.Buffer
	out.Write(op.Magic[:])
	out.Write(op.Version[:])

	if len(b.types) > 0 {
		entries := make([][]byte, 0, len(b.types))
		for _, t := range b.types {
			entry := []byte{op.FuncTypeForm}
			entry = appendValueTypes(entry, t.params)
			entry = appendValueTypes(entry, t.results)
			entries = append(entries, entry)
		}
		writeSection(&out, op.SectionType, vector(entries))
	}
	if len(b.imports) > 0 {
		entries := make([][]byte, 0, len(b.imports))
		for _, imp := range b.imports {
			entry := appendName(nil, imp.module)
			entry = appendName(entry, imp.name)
			entry = append(entry, byte(op.ExternalFunction))
			entry = appendUnsigned(entry, uint64(imp.typeIndex))
			entries = append(entries, entry)
		}
		writeSection(&out, op.SectionImport, vector(entries))
	}
	if len(b.functions) > 0 {
		entries := make([][]byte, 0, len(b.functions))
		for _, f := range b.functions {
			entries = append(entries, appendUnsigned(nil, uint64(f.typeIndex)))
		}
		writeSection(&out, op.SectionFunction, vector(entries))
	}
	if len(b.tables) > 0 {
		writeSection(&out, op.SectionTable, vector(b.tables))
	}
	if len(b.memories) > 0 {
		writeSection(&out, op.SectionMemory, vector(b.memories))
	}
	if len(b.globals) > 0 {
		writeSection(&out, op.SectionGlobal, vector(b.globals))
	}
	if len(b.exports) > 0 {
		writeSection(&out, op.SectionExport, vector(b.exports))
	}
	if b.start != nil {
		writeSection(&out, op.SectionStart, appendUnsigned(nil, uint64(*b.start)))
	}
	if len(b.elements) > 0 {
		writeSection(&out, op.SectionElement, vector(b.elements))
	}
	if b.dataCount {
		writeSection(&out, op.SectionDataCount, appendUnsigned(nil, uint64(len(b.data))))
	}
	if len(b.functions) > 0 {
		entries := make([][]byte, 0, len(b.functions))
		for _, f := range b.functions {
			body := encodeLocals(f.locals)
			body = append(body, f.body...)
			entry := appendUnsigned(nil, uint64(len(body)))
			entries = append(entries, append(entry, body...))
		}
		writeSection(&out, op.SectionCode, vector(entries))
	}
	if len(b.data) > 0 {
		writeSection(&out, op.SectionData, vector(b.data))
	}
	for _, s := range b.extra {
		writeSection(&out, s.id, s.payload)
	}
	return out.Bytes()
}

// encodeLocals groups consecutive locals of the same type.
func encodeLocals(locals []op.ValueType) []byte {
	var groups [][]byte
	for i := 0; i < len(locals); {
		j := i
		for j < len(locals) && locals[j] == locals[i] {
			j++
		}
		group := appendUnsigned(nil, uint64(j-i))
		groups = append(groups, append(group, byte(locals[i])))
		i = j
	}
	return vector(groups)
}

func constExpr(typ op.ValueType, value int64) []byte {
	var expr []byte
	if typ == op.I64 {
		expr = append(expr, byte(op.I64_CONST))
	} else {
		expr = append(expr, byte(op.I32_CONST))
		value = int64(int32(value))
	}
	expr = appendSigned(expr, value)
	return append(expr, byte(op.END))
}

func appendValueTypes(buf []byte, types []op.ValueType) []byte {
	buf = appendUnsigned(buf, uint64(len(types)))
	for _, t := range types {
		buf = append(buf, byte(t))
	}
	return buf
}

func appendName(buf []byte, name string) []byte {
	buf = appendUnsigned(buf, uint64(len(name)))
	return append(buf, name...)
}

func vector(entries [][]byte) []byte {
	res := appendUnsigned(nil, uint64(len(entries)))
	for _, e := range entries {
		res = append(res, e...)
	}
	return res
}

func writeSection(out *bytes.Buffer, id op.SectionID, payload []byte) {
	out.WriteByte(byte(id))
	out.Write(appendUnsigned(nil, uint64(len(payload))))
	out.Write(payload)
}
