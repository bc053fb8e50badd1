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
	"strings"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
	wagon "github.com/go-interpreter/wagon/wasm"
	"github.com/go-interpreter/wagon/wasm/leb128"
)

const (
	exportDeploy = "deploy"
	exportCall   = "call"
)

// decoder checks the structural rules on a parsed binary module and
// assembles the resulting Module. Function bodies are handed to the
// instrumenter once all sections they depend on have been checked.
type decoder struct {
	schedule *gas.Schedule
	limits   *gas.Limits
	module   *Module

	canonical     []uint32 // < canonical index of every declared type
	functionTypes []uint32 // < canonical type of every function, imports first
	numImports    uint32
	hasTable      bool
	hasMemory     bool
	deploy, call  *uint32
}

func newDecoder(schedule *gas.Schedule) *decoder {
	return &decoder{
		schedule: schedule,
		limits:   &schedule.Limits,
		module:   &Module{ScheduleVersion: schedule.Version},
	}
}

func (d *decoder) decode(code []byte) (*Module, error) {
	if uint64(len(code)) > uint64(d.limits.MaxCodeSize) {
		return nil, violation(RuleLimit, "code size %d exceeds limit of %d bytes", len(code), d.limits.MaxCodeSize)
	}
	m, err := parseModule(code)
	if err != nil {
		return nil, err
	}
	if err := checkSectionSizes(code, m); err != nil {
		return nil, err
	}
	if m.Start != nil {
		return nil, violation(RuleStart, "start functions are not allowed")
	}
	for _, step := range []func(*wagon.Module) error{
		d.decodeTypes,
		d.decodeImports,
		d.decodeFunctions,
		d.decodeTable,
		d.decodeMemory,
		d.decodeGlobals,
		d.decodeExports,
		d.decodeElements,
		d.decodeCode,
		d.decodeData,
	} {
		if err := step(m); err != nil {
			return nil, err
		}
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return d.module, nil
}

// parseModule reads the binary structure of the code. Parser failures,
// including panics on malformed function bodies, are violations.
func parseModule(code []byte) (m *wagon.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, violation(RuleMalformed, "%v", r)
		}
	}()
	m, err = wagon.DecodeModule(bytes.NewReader(code))
	if err != nil {
		return nil, parseViolation(err)
	}
	return m, nil
}

func parseViolation(err error) *ValidationError {
	var duplicate wagon.DuplicateExportError
	var section wagon.InvalidSectionIDError
	switch {
	case errors.As(err, &duplicate):
		return violation(RuleExport, "duplicate export %q", string(duplicate))
	case errors.As(err, &section):
		return violation(RuleMalformed, "unknown section id %d", byte(section))
	case strings.Contains(err.Error(), "prescribed order"):
		return violation(RuleSectionOrder, "%v", err)
	}
	return violation(RuleMalformed, "%v", err)
}

// checkSectionSizes verifies that every section payload was consumed
// exactly as declared and that no bytes follow the last section.
func checkSectionSizes(code []byte, m *wagon.Module) error {
	pos := int64(len(op.Magic) + len(op.Version))
	for _, section := range m.Sections {
		raw := section.GetRawSection()
		r := bytes.NewReader(code[pos+1:])
		size, err := leb128.ReadVarUint32(r)
		if err != nil {
			return violation(RuleMalformed, "invalid size of %v section", raw.ID)
		}
		start := int64(len(code)) - int64(r.Len())
		if start != raw.Start || int64(size) != raw.End-raw.Start {
			return violation(RuleMalformed, "%v section has %d bytes, declared %d", raw.ID, raw.End-raw.Start, size)
		}
		pos = raw.End
	}
	if pos != int64(len(code)) {
		return violation(RuleMalformed, "%d trailing bytes", int64(len(code))-pos)
	}
	return nil
}

func (d *decoder) finish() error {
	if !d.hasMemory {
		return violation(RuleMemory, "module must declare a memory")
	}
	if d.deploy == nil {
		return violation(RuleExport, "missing %q export", exportDeploy)
	}
	if d.call == nil {
		return violation(RuleExport, "missing %q export", exportCall)
	}
	d.module.Deploy = *d.deploy - d.numImports
	d.module.Call = *d.call - d.numImports
	return nil
}

// --- types and imports ---

func checkValueType(t op.ValueType) (op.ValueType, error) {
	switch t {
	case op.I32, op.I64:
		return t, nil
	case op.F32, op.F64:
		return 0, violation(RuleFloatingPoint, "value type %v", t)
	case op.V128, op.FuncRef, op.ExternRef:
		return 0, violation(RuleUnsupported, "value type %v", t)
	}
	return 0, violation(RuleMalformed, "invalid value type 0x%02x", byte(t))
}

func checkValueTypes(types []wagon.ValueType) ([]op.ValueType, error) {
	res := make([]op.ValueType, 0, len(types))
	for _, t := range types {
		v, err := checkValueType(op.ValueType(t))
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

func (d *decoder) decodeTypes(m *wagon.Module) error {
	if m.Types == nil {
		return nil
	}
	if n := len(m.Types.Entries); uint64(n) > uint64(d.limits.MaxTypes) {
		return violation(RuleLimit, "%d types exceed limit of %d", n, d.limits.MaxTypes)
	}
	for i, sig := range m.Types.Entries {
		params, err := checkValueTypes(sig.ParamTypes)
		if err != nil {
			return err
		}
		results, err := checkValueTypes(sig.ReturnTypes)
		if err != nil {
			return err
		}
		t := FuncType{Params: params, Results: results}
		canonical := uint32(i)
		for j, other := range d.module.Types {
			if other.Equal(t) {
				canonical = d.canonical[j]
				break
			}
		}
		d.module.Types = append(d.module.Types, t)
		d.canonical = append(d.canonical, canonical)
	}
	return nil
}

// canonicalType maps a declared type index to the first equal type.
func (d *decoder) canonicalType(index uint32) (uint32, error) {
	if index >= uint32(len(d.module.Types)) {
		return 0, violation(RuleIndex, "type index %d out of range", index)
	}
	return d.canonical[index], nil
}

// typeIndex reads a type index immediate of an instruction.
func (d *decoder) typeIndex(r *reader) (uint32, error) {
	index, err := r.u32()
	if err != nil {
		return 0, err
	}
	return d.canonicalType(index)
}

func (d *decoder) decodeImports(m *wagon.Module) error {
	if m.Import == nil {
		return nil
	}
	for _, entry := range m.Import.Entries {
		module, name := entry.ModuleName, entry.FieldName
		imported, ok := entry.Type.(wagon.FuncImport)
		if !ok {
			return violation(RuleImport, "%s.%s: %v imports are not allowed", module, name, entry.Type.Kind())
		}
		typ, err := d.canonicalType(imported.Type)
		if err != nil {
			return err
		}
		if module != HostModule {
			return violation(RuleImport, "%s.%s: unknown import module", module, name)
		}
		f, found := LookupHostFunction(name)
		if !found {
			return violation(RuleImport, "%s.%s: not an available host function", module, name)
		}
		if want, got := f.Signature(), d.module.Types[typ]; !want.Equal(got) {
			return violation(RuleImport, "%s.%s: wrong signature, wanted %v, got %v", module, name, want, got)
		}
		d.module.Imports = append(d.module.Imports, f)
		d.functionTypes = append(d.functionTypes, typ)
	}
	d.numImports = uint32(len(d.module.Imports))
	if d.numImports > d.limits.MaxFunctions {
		return violation(RuleLimit, "%d functions exceed limit of %d", d.numImports, d.limits.MaxFunctions)
	}
	return nil
}

// --- functions, table, memory and globals ---

func (d *decoder) decodeFunctions(m *wagon.Module) error {
	if m.Function == nil {
		return nil
	}
	n := len(m.Function.Types)
	if total := uint64(d.numImports) + uint64(n); total > uint64(d.limits.MaxFunctions) {
		return violation(RuleLimit, "%d functions exceed limit of %d", total, d.limits.MaxFunctions)
	}
	for _, index := range m.Function.Types {
		typ, err := d.canonicalType(index)
		if err != nil {
			return err
		}
		d.functionTypes = append(d.functionTypes, typ)
	}
	return nil
}

func (d *decoder) decodeTable(m *wagon.Module) error {
	if m.Table == nil || len(m.Table.Entries) == 0 {
		return nil
	}
	if n := len(m.Table.Entries); n > 1 {
		return violation(RuleTable, "at most one table is allowed, got %d", n)
	}
	limits := m.Table.Entries[0].Limits
	size := limits.Initial
	if limits.Flags == op.LimitsMinMax && limits.Maximum < size {
		return violation(RuleTable, "table maximum %d below initial size %d", limits.Maximum, size)
	}
	if size > d.limits.MaxTableSize {
		return violation(RuleTable, "table size %d exceeds limit of %d", size, d.limits.MaxTableSize)
	}
	d.hasTable = true
	d.module.Table = Table{Size: size, Elements: make([]uint32, size)}
	return nil
}

func (d *decoder) decodeMemory(m *wagon.Module) error {
	if m.Memory == nil {
		return nil
	}
	if n := len(m.Memory.Entries); n != 1 {
		return violation(RuleMemory, "exactly one memory is required, got %d", n)
	}
	limits := m.Memory.Entries[0].Limits
	if limits.Flags != op.LimitsMinMax {
		return violation(RuleMemory, "memory must declare a maximum")
	}
	if limits.Initial > limits.Maximum {
		return violation(RuleMemory, "initial size %d exceeds maximum %d", limits.Initial, limits.Maximum)
	}
	if limits.Maximum > d.limits.MaxMemoryPages {
		return violation(RuleMemory, "maximum of %d pages exceeds limit of %d", limits.Maximum, d.limits.MaxMemoryPages)
	}
	d.hasMemory = true
	d.module.Memory = Memory{Initial: limits.Initial, Maximum: limits.Maximum}
	return nil
}

// constExpr evaluates a constant initializer expression of the given type.
// Only a single constant followed by END is accepted.
func constExpr(expr []byte, typ op.ValueType) (uint64, error) {
	r := newReader(expr)
	b, err := r.byte()
	if err != nil {
		return 0, err
	}
	var value uint64
	var got op.ValueType
	switch o := op.OpCode(b); o {
	case op.I32_CONST:
		v, err := r.s32()
		if err != nil {
			return 0, err
		}
		value, got = uint64(uint32(v)), op.I32
	case op.I64_CONST:
		v, err := r.s64()
		if err != nil {
			return 0, err
		}
		value, got = uint64(v), op.I64
	case op.F32_CONST, op.F64_CONST:
		return 0, violation(RuleFloatingPoint, "initializer %v", o)
	default:
		return 0, violation(RuleUnsupported, "non-constant initializer %v", o)
	}
	if got != typ {
		return 0, violation(RuleTypeMismatch, "initializer of type %v where %v is required", got, typ)
	}
	end, err := r.byte()
	if err != nil {
		return 0, err
	}
	if op.OpCode(end) != op.END || !r.done() {
		return 0, violation(RuleUnsupported, "initializer is not a single constant")
	}
	return value, nil
}

func (d *decoder) decodeGlobals(m *wagon.Module) error {
	if m.Global == nil {
		return nil
	}
	if n := len(m.Global.Globals); uint64(n) > uint64(d.limits.MaxGlobals) {
		return violation(RuleLimit, "%d globals exceed limit of %d", n, d.limits.MaxGlobals)
	}
	for _, global := range m.Global.Globals {
		typ, err := checkValueType(op.ValueType(global.Type.Type))
		if err != nil {
			return err
		}
		init, err := constExpr(global.Init, typ)
		if err != nil {
			return err
		}
		d.module.Globals = append(d.module.Globals, Global{Type: typ, Mutable: global.Type.Mutable, Init: init})
	}
	return nil
}

// --- exports ---

func (d *decoder) decodeExports(m *wagon.Module) error {
	if m.Export == nil {
		return nil
	}
	for _, name := range m.Export.Names {
		export := m.Export.Entries[name]
		index := export.Index
		kind := op.ExternalKind(export.Kind)
		switch kind {
		case op.ExternalFunction:
			if index >= uint32(len(d.functionTypes)) {
				return violation(RuleIndex, "exported function %d out of range", index)
			}
		case op.ExternalTable:
			if !d.hasTable || index != 0 {
				return violation(RuleIndex, "exported table %d out of range", index)
			}
		case op.ExternalMemory:
			if !d.hasMemory || index != 0 {
				return violation(RuleIndex, "exported memory %d out of range", index)
			}
		case op.ExternalGlobal:
			if index >= uint32(len(d.module.Globals)) {
				return violation(RuleIndex, "exported global %d out of range", index)
			}
		default:
			return violation(RuleMalformed, "invalid export kind 0x%02x", byte(kind))
		}

		if name != exportDeploy && name != exportCall {
			continue
		}
		if kind != op.ExternalFunction {
			return violation(RuleExport, "export %q must be a function", name)
		}
		if index < d.numImports {
			return violation(RuleExport, "export %q must not be a host function", name)
		}
		if t := d.module.Types[d.functionTypes[index]]; len(t.Params) != 0 || len(t.Results) != 0 {
			return violation(RuleExport, "export %q must have type [] -> [], got %v", name, t)
		}
		if name == exportDeploy {
			d.deploy = &index
		} else {
			d.call = &index
		}
	}
	return nil
}

// --- segments ---

func (d *decoder) decodeElements(m *wagon.Module) error {
	if m.Elements == nil {
		return nil
	}
	for _, segment := range m.Elements.Entries {
		if segment.Index != 0 {
			return violation(RuleUnsupported, "element segment kind %d", segment.Index)
		}
		if !d.hasTable {
			return violation(RuleTable, "element segment without table")
		}
		offset, err := constExpr(segment.Offset, op.I32)
		if err != nil {
			return err
		}
		count := uint64(len(segment.Elems))
		if offset+count > uint64(d.module.Table.Size) {
			return violation(RuleSegment, "element segment [%d, %d) exceeds table size %d", offset, offset+count, d.module.Table.Size)
		}
		for j, f := range segment.Elems {
			if f >= uint32(len(d.functionTypes)) {
				return violation(RuleIndex, "element function %d out of range", f)
			}
			if f < d.numImports {
				return violation(RuleTable, "host function %v can not be placed in the table", d.module.Imports[f])
			}
			d.module.Table.Elements[uint32(offset)+uint32(j)] = f - d.numImports + 1
		}
	}
	return nil
}

func (d *decoder) decodeData(m *wagon.Module) error {
	if m.Data == nil {
		return nil
	}
	memorySize := uint64(d.module.Memory.Initial) * gas.PageSize
	for _, segment := range m.Data.Entries {
		if segment.Index != 0 {
			return violation(RuleUnsupported, "data segment kind %d", segment.Index)
		}
		offset, err := constExpr(segment.Offset, op.I32)
		if err != nil {
			return err
		}
		size := uint64(len(segment.Data))
		if offset+size > memorySize {
			return violation(RuleSegment, "data segment [%d, %d) exceeds initial memory of %d bytes", offset, offset+size, memorySize)
		}
		d.module.Data = append(d.module.Data, DataSegment{
			Offset: uint32(offset),
			Data:   bytes.Clone(segment.Data),
		})
	}
	return nil
}

// --- code ---

func (d *decoder) decodeCode(m *wagon.Module) error {
	declared := 0
	if m.Function != nil {
		declared = len(m.Function.Types)
	}
	var bodies []wagon.FunctionBody
	if m.Code != nil {
		bodies = m.Code.Bodies
	}
	if len(bodies) != declared {
		return violation(RuleMalformed, "%d function bodies for %d declared functions", len(bodies), declared)
	}
	d.module.Functions = make([]Function, 0, len(bodies))
	for i, body := range bodies {
		typ := d.functionTypes[d.numImports+uint32(i)]
		f, err := d.decodeBody(&body, typ)
		if err != nil {
			return err
		}
		d.module.Functions = append(d.module.Functions, f)
	}
	return nil
}

func (d *decoder) decodeBody(body *wagon.FunctionBody, typ uint32) (Function, error) {
	signature := d.module.Types[typ]
	locals := append([]op.ValueType{}, signature.Params...)
	total := uint64(len(signature.Params))
	for _, entry := range body.Locals {
		t, err := checkValueType(op.ValueType(entry.Type))
		if err != nil {
			return Function{}, err
		}
		total += uint64(entry.Count)
		if total > uint64(d.limits.MaxLocals) {
			return Function{}, violation(RuleLimit, "%d locals exceed limit of %d", total, d.limits.MaxLocals)
		}
		for j := uint32(0); j < entry.Count; j++ {
			locals = append(locals, t)
		}
	}

	// The parser strips the END closing the body.
	code := make([]byte, 0, len(body.Code)+1)
	code = append(code, body.Code...)
	r := newReader(append(code, byte(op.END)))
	instructions, maxHeight, err := instrument(d, r, locals, signature.Results)
	if err != nil {
		return Function{}, err
	}
	if !r.done() {
		return Function{}, violation(RuleMalformed, "function body has %d trailing bytes", r.len())
	}
	return Function{
		Type:           typ,
		NumLocals:      uint32(len(locals) - len(signature.Params)),
		MaxStackHeight: maxHeight,
		Code:           instructions,
	}, nil
}
