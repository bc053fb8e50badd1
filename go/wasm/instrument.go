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
	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// unknown is the type of operands produced by unreachable code.
const unknown op.ValueType = 0

// control is an entry of the control stack of the type checker.
type control struct {
	opcode      op.OpCode // < BLOCK, LOOP, IF or ELSE; the function body is a BLOCK
	results     []op.ValueType
	height      int  // < operand stack height at block entry
	unreachable bool // < the rest of the block can not be reached
	start       int  // < first instruction of a loop
	fixups      []int
	elseFixup   int // < the JUMP_UNLESS of an if still waiting for its else, -1 otherwise
}

// labelTypes are the operands a branch to this block carries.
func (c *control) labelTypes() []op.ValueType {
	if c.opcode == op.LOOP {
		return nil
	}
	return c.results
}

// instrumenter type-checks a single function body and lowers it into a flat
// instruction stream. Structured control flow is turned into jumps with
// resolved targets and the stream is partitioned into basic blocks, each
// starting with a GAS instruction charging the static prices of the block.
// A new block starts at every branch target and after every branch.
type instrumenter struct {
	d        *decoder
	r        *reader
	schedule *gas.Schedule

	locals   []op.ValueType
	results  []op.ValueType
	operands []op.ValueType
	controls []control

	code      Code
	gasIndex  int // < the GAS instruction of the current block, -1 if not yet emitted
	maxHeight int
}

func instrument(d *decoder, r *reader, locals, results []op.ValueType) (Code, uint32, error) {
	in := &instrumenter{
		d:        d,
		r:        r,
		schedule: d.schedule,
		locals:   locals,
		results:  results,
		gasIndex: -1,
	}
	in.controls = append(in.controls, control{opcode: op.BLOCK, results: results, elseFixup: -1})
	for len(in.controls) > 0 {
		b, err := r.byte()
		if err != nil {
			return nil, 0, err
		}
		if err := in.step(op.OpCode(b)); err != nil {
			return nil, 0, err
		}
	}
	return in.code, uint32(in.maxHeight), nil
}

// --- code emission ---

func (in *instrumenter) emit(opcode OpCode, arg uint32, value uint64) int {
	in.code = append(in.code, Instruction{Opcode: opcode, Arg: arg, Value: value})
	return len(in.code) - 1
}

// charge adds the given price to the current basic block.
func (in *instrumenter) charge(price tessera.Gas) {
	if price == 0 {
		return
	}
	if in.gasIndex < 0 {
		in.gasIndex = in.emit(GAS, 0, 0)
	}
	in.code[in.gasIndex].Value += uint64(price)
}

func (in *instrumenter) startBlock() {
	in.gasIndex = -1
}

// link makes the given branch instruction target the label of a block.
func (in *instrumenter) link(target *control, instruction int) {
	if target.opcode == op.LOOP {
		in.code[instruction].Arg = uint32(target.start)
	} else {
		target.fixups = append(target.fixups, instruction)
	}
}

// --- operand and control stack ---

func (in *instrumenter) top() *control {
	return &in.controls[len(in.controls)-1]
}

func (in *instrumenter) push(t op.ValueType) {
	in.operands = append(in.operands, t)
	if len(in.operands) > in.maxHeight {
		in.maxHeight = len(in.operands)
	}
}

func (in *instrumenter) pushTypes(types []op.ValueType) {
	for _, t := range types {
		in.push(t)
	}
}

func (in *instrumenter) pop() (op.ValueType, error) {
	top := in.top()
	if len(in.operands) == top.height {
		if top.unreachable {
			return unknown, nil
		}
		return 0, violation(RuleTypeMismatch, "operand stack underflow")
	}
	t := in.operands[len(in.operands)-1]
	in.operands = in.operands[:len(in.operands)-1]
	return t, nil
}

func (in *instrumenter) popExpect(want op.ValueType) error {
	got, err := in.pop()
	if err != nil {
		return err
	}
	if got != want && got != unknown && want != unknown {
		return violation(RuleTypeMismatch, "expected %v operand, got %v", want, got)
	}
	return nil
}

func (in *instrumenter) popTypes(types []op.ValueType) error {
	for i := len(types) - 1; i >= 0; i-- {
		if err := in.popExpect(types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (in *instrumenter) pushControl(opcode op.OpCode, results []op.ValueType, elseFixup int) {
	in.controls = append(in.controls, control{
		opcode:    opcode,
		results:   results,
		height:    len(in.operands),
		start:     len(in.code),
		elseFixup: elseFixup,
	})
}

// checkBlockEnd verifies that exactly the block results are on the stack.
func (in *instrumenter) checkBlockEnd() error {
	top := in.top()
	if err := in.popTypes(top.results); err != nil {
		return err
	}
	if len(in.operands) != top.height {
		return violation(RuleTypeMismatch, "%d superfluous operands at end of block", len(in.operands)-top.height)
	}
	return nil
}

func (in *instrumenter) setUnreachable() {
	top := in.top()
	in.operands = in.operands[:top.height]
	top.unreachable = true
}

// branch resolves the target of a branch and the stack unwinding needed to
// reach it from the current operand stack.
func (in *instrumenter) branch(depth uint32) (*control, uint64, error) {
	if depth >= uint32(len(in.controls)) {
		return nil, 0, violation(RuleIndex, "branch depth %d out of range", depth)
	}
	target := &in.controls[len(in.controls)-1-int(depth)]
	keep := len(target.labelTypes())
	drop := len(in.operands) - keep - target.height
	if drop < 0 {
		drop = 0
	}
	return target, branchOperands(uint32(drop), uint32(keep)), nil
}

func (in *instrumenter) blockType() ([]op.ValueType, error) {
	b, err := in.r.byte()
	if err != nil {
		return nil, err
	}
	switch t := op.ValueType(b); {
	case b == op.BlockTypeEmpty:
		return nil, nil
	case t == op.I32 || t == op.I64:
		return []op.ValueType{t}, nil
	case t.IsFloat():
		return nil, violation(RuleFloatingPoint, "block type %v", t)
	}
	return nil, violation(RuleUnsupported, "block type 0x%02x", b)
}

// --- instructions ---

func (in *instrumenter) step(o op.OpCode) error {
	switch {
	case o == op.PREFIX_MISC:
		sub, err := in.r.u32()
		if err != nil {
			return err
		}
		if sub <= op.MiscTruncSatLast {
			return violation(RuleFloatingPoint, "instruction 0xFC %d", sub)
		}
		return violation(RuleUnsupported, "instruction 0xFC %d", sub)
	case o == op.PREFIX_SIMD:
		return violation(RuleUnsupported, "vector instructions")
	case o.IsFloat():
		return violation(RuleFloatingPoint, "instruction %v", o)
	case !o.IsDefined():
		return violation(RuleUnsupported, "unknown opcode 0x%02X", byte(o))
	}

	s := in.schedule
	switch o {
	case op.UNREACHABLE:
		in.charge(s.Regular)
		in.emit(UNREACHABLE, 0, 0)
		in.setUnreachable()
		in.startBlock()

	case op.NOP:

	case op.BLOCK, op.LOOP:
		results, err := in.blockType()
		if err != nil {
			return err
		}
		if o == op.LOOP {
			in.startBlock()
		}
		in.pushControl(o, results, -1)

	case op.IF:
		results, err := in.blockType()
		if err != nil {
			return err
		}
		if err := in.popExpect(op.I32); err != nil {
			return err
		}
		jump := in.emit(JUMP_UNLESS, 0, 0)
		in.startBlock()
		in.pushControl(op.IF, results, jump)

	case op.ELSE:
		if in.top().opcode != op.IF {
			return violation(RuleMalformed, "else without if")
		}
		if err := in.checkBlockEnd(); err != nil {
			return err
		}
		jump := in.emit(JUMP, 0, 0)
		top := in.top()
		top.fixups = append(top.fixups, jump)
		in.code[top.elseFixup].Arg = uint32(len(in.code))
		top.elseFixup = -1
		top.opcode = op.ELSE
		top.unreachable = false
		in.operands = in.operands[:top.height]
		in.startBlock()

	case op.END:
		return in.end()

	case op.BR:
		depth, err := in.r.u32()
		if err != nil {
			return err
		}
		target, unwind, err := in.branch(depth)
		if err != nil {
			return err
		}
		if err := in.popTypes(target.labelTypes()); err != nil {
			return err
		}
		in.link(target, in.emit(BR, 0, unwind))
		in.setUnreachable()
		in.startBlock()

	case op.BR_IF:
		depth, err := in.r.u32()
		if err != nil {
			return err
		}
		if err := in.popExpect(op.I32); err != nil {
			return err
		}
		target, unwind, err := in.branch(depth)
		if err != nil {
			return err
		}
		types := target.labelTypes()
		if err := in.popTypes(types); err != nil {
			return err
		}
		in.pushTypes(types)
		in.link(target, in.emit(BR_IF, 0, unwind))
		in.startBlock()

	case op.BR_TABLE:
		return in.brTable()

	case op.RETURN:
		if err := in.popTypes(in.results); err != nil {
			return err
		}
		in.emit(RETURN, 0, 0)
		in.setUnreachable()
		in.startBlock()

	case op.CALL:
		index, err := in.r.u32()
		if err != nil {
			return err
		}
		if index >= uint32(len(in.d.functionTypes)) {
			return violation(RuleIndex, "function index %d out of range", index)
		}
		t := in.d.module.Types[in.d.functionTypes[index]]
		if err := in.popTypes(t.Params); err != nil {
			return err
		}
		in.pushTypes(t.Results)
		if index < in.d.numImports {
			in.emit(CALL_HOST, uint32(in.d.module.Imports[index]), 0)
		} else {
			in.emit(CALL, index-in.d.numImports, 0)
		}

	case op.CALL_INDIRECT:
		typ, err := in.d.typeIndex(in.r)
		if err != nil {
			return err
		}
		table, err := in.r.u32()
		if err != nil {
			return err
		}
		if table != 0 {
			return violation(RuleIndex, "table index %d out of range", table)
		}
		if !in.d.hasTable {
			return violation(RuleTable, "call_indirect without table")
		}
		if err := in.popExpect(op.I32); err != nil {
			return err
		}
		t := in.d.module.Types[typ]
		if err := in.popTypes(t.Params); err != nil {
			return err
		}
		in.pushTypes(t.Results)
		in.emit(CALL_INDIRECT, typ, 0)

	case op.DROP:
		if _, err := in.pop(); err != nil {
			return err
		}
		in.charge(s.Regular)
		in.emit(DROP, 0, 0)

	case op.SELECT:
		if err := in.popExpect(op.I32); err != nil {
			return err
		}
		a, err := in.pop()
		if err != nil {
			return err
		}
		b, err := in.pop()
		if err != nil {
			return err
		}
		if a != b && a != unknown && b != unknown {
			return violation(RuleTypeMismatch, "select operands of type %v and %v", b, a)
		}
		if a == unknown {
			a = b
		}
		in.push(a)
		in.charge(s.Regular)
		in.emit(SELECT, 0, 0)

	case op.LOCAL_GET, op.LOCAL_SET, op.LOCAL_TEE:
		index, err := in.r.u32()
		if err != nil {
			return err
		}
		if index >= uint32(len(in.locals)) {
			return violation(RuleIndex, "local %d out of range", index)
		}
		t := in.locals[index]
		if o != op.LOCAL_GET {
			if err := in.popExpect(t); err != nil {
				return err
			}
		}
		if o != op.LOCAL_SET {
			in.push(t)
		}
		in.charge(s.Regular)
		in.emit(OpCode(o), index, 0)

	case op.GLOBAL_GET, op.GLOBAL_SET:
		index, err := in.r.u32()
		if err != nil {
			return err
		}
		if index >= uint32(len(in.d.module.Globals)) {
			return violation(RuleIndex, "global %d out of range", index)
		}
		global := in.d.module.Globals[index]
		if o == op.GLOBAL_GET {
			in.push(global.Type)
		} else {
			if !global.Mutable {
				return violation(RuleTypeMismatch, "global %d is immutable", index)
			}
			if err := in.popExpect(global.Type); err != nil {
				return err
			}
		}
		in.charge(s.Regular)
		in.emit(OpCode(o), index, 0)

	case op.MEMORY_SIZE, op.MEMORY_GROW:
		reserved, err := in.r.byte()
		if err != nil {
			return err
		}
		if reserved != 0 {
			return violation(RuleMalformed, "%v: invalid memory index", o)
		}
		if !in.d.hasMemory {
			return violation(RuleMemory, "%v without memory", o)
		}
		if o == op.MEMORY_SIZE {
			in.push(op.I32)
			in.charge(s.Regular)
			in.emit(MEMORY_SIZE, 0, 0)
			break
		}
		if err := in.popExpect(op.I32); err != nil {
			return err
		}
		in.push(op.I32)
		in.charge(s.MemoryGrow)
		in.emit(GROW_GAS, 0, uint64(s.MemoryGrowPerPage))
		in.emit(MEMORY_GROW, 0, 0)

	case op.I32_CONST:
		v, err := in.r.s32()
		if err != nil {
			return err
		}
		in.push(op.I32)
		in.charge(s.Regular)
		in.emit(I32_CONST, 0, uint64(uint32(v)))

	case op.I64_CONST:
		v, err := in.r.s64()
		if err != nil {
			return err
		}
		in.push(op.I64)
		in.charge(s.Regular)
		in.emit(I64_CONST, 0, uint64(v))

	default:
		if OpCode(o).IsLoad() || OpCode(o).IsStore() {
			return in.memoryAccess(o)
		}
		return in.numeric(o)
	}
	return nil
}

func (in *instrumenter) end() error {
	top := *in.top()
	if err := in.checkBlockEnd(); err != nil {
		return err
	}
	if top.opcode == op.IF && len(top.results) != 0 {
		return violation(RuleTypeMismatch, "if without else must not produce results")
	}
	in.controls = in.controls[:len(in.controls)-1]
	in.operands = in.operands[:top.height]

	here := uint32(len(in.code))
	if top.elseFixup >= 0 {
		in.code[top.elseFixup].Arg = here
	}
	if top.opcode != op.LOOP {
		for _, f := range top.fixups {
			in.code[f].Arg = here
		}
		in.startBlock()
	}
	if len(in.controls) == 0 {
		in.emit(RETURN, 0, 0)
		return nil
	}
	in.pushTypes(top.results)
	return nil
}

func (in *instrumenter) brTable() error {
	n, err := in.r.count()
	if err != nil {
		return err
	}
	labels := make([]uint32, n+1)
	for i := range labels {
		if labels[i], err = in.r.u32(); err != nil {
			return err
		}
	}
	if err := in.popExpect(op.I32); err != nil {
		return err
	}
	defaultLabel := labels[n]
	if defaultLabel >= uint32(len(in.controls)) {
		return violation(RuleIndex, "branch depth %d out of range", defaultLabel)
	}
	arity := len(in.controls[len(in.controls)-1-int(defaultLabel)].labelTypes())

	in.emit(BR_TABLE, n, 0)
	for _, label := range labels {
		target, unwind, err := in.branch(label)
		if err != nil {
			return err
		}
		types := target.labelTypes()
		if len(types) != arity {
			return violation(RuleTypeMismatch, "br_table targets of different arity")
		}
		if err := in.popTypes(types); err != nil {
			return err
		}
		in.pushTypes(types)
		in.link(target, in.emit(DATA, 0, unwind))
	}
	in.setUnreachable()
	in.startBlock()
	return nil
}

func (in *instrumenter) memoryAccess(o op.OpCode) error {
	align, err := in.r.u32()
	if err != nil {
		return err
	}
	offset, err := in.r.u32()
	if err != nil {
		return err
	}
	if !in.d.hasMemory {
		return violation(RuleMemory, "%v without memory", o)
	}
	if align > accessAlignment(o) {
		return violation(RuleMalformed, "%v: alignment 2^%d exceeds natural alignment", o, align)
	}
	if OpCode(o).IsLoad() {
		if err := in.popExpect(op.I32); err != nil {
			return err
		}
		in.push(accessType(o))
		in.charge(in.schedule.Load)
	} else {
		if err := in.popExpect(accessType(o)); err != nil {
			return err
		}
		if err := in.popExpect(op.I32); err != nil {
			return err
		}
		in.charge(in.schedule.Store)
	}
	in.emit(OpCode(o), offset, 0)
	return nil
}

// accessAlignment is the binary logarithm of the access width.
func accessAlignment(o op.OpCode) uint32 {
	switch o {
	case op.I32_LOAD8_S, op.I32_LOAD8_U, op.I64_LOAD8_S, op.I64_LOAD8_U,
		op.I32_STORE8, op.I64_STORE8:
		return 0
	case op.I32_LOAD16_S, op.I32_LOAD16_U, op.I64_LOAD16_S, op.I64_LOAD16_U,
		op.I32_STORE16, op.I64_STORE16:
		return 1
	case op.I32_LOAD, op.I64_LOAD32_S, op.I64_LOAD32_U, op.I32_STORE, op.I64_STORE32:
		return 2
	}
	return 3
}

// accessType is the type of the value loaded or stored.
func accessType(o op.OpCode) op.ValueType {
	switch o {
	case op.I32_LOAD, op.I32_LOAD8_S, op.I32_LOAD8_U, op.I32_LOAD16_S, op.I32_LOAD16_U,
		op.I32_STORE, op.I32_STORE8, op.I32_STORE16:
		return op.I32
	}
	return op.I64
}

func (in *instrumenter) numeric(o op.OpCode) error {
	var params []op.ValueType
	var result op.ValueType
	switch {
	case o == op.I32_EQZ,
		op.I32_CLZ <= o && o <= op.I32_POPCNT,
		o == op.I32_EXTEND8_S || o == op.I32_EXTEND16_S:
		params, result = []op.ValueType{op.I32}, op.I32
	case op.I32_EQ <= o && o <= op.I32_GE_U,
		op.I32_ADD <= o && o <= op.I32_ROTR:
		params, result = []op.ValueType{op.I32, op.I32}, op.I32
	case o == op.I64_EQZ || o == op.I32_WRAP_I64:
		params, result = []op.ValueType{op.I64}, op.I32
	case op.I64_EQ <= o && o <= op.I64_GE_U:
		params, result = []op.ValueType{op.I64, op.I64}, op.I32
	case op.I64_CLZ <= o && o <= op.I64_POPCNT,
		op.I64_EXTEND8_S <= o && o <= op.I64_EXTEND32_S:
		params, result = []op.ValueType{op.I64}, op.I64
	case op.I64_ADD <= o && o <= op.I64_ROTR:
		params, result = []op.ValueType{op.I64, op.I64}, op.I64
	case o == op.I64_EXTEND_I32_S || o == op.I64_EXTEND_I32_U:
		params, result = []op.ValueType{op.I32}, op.I64
	default:
		return violation(RuleUnsupported, "instruction %v", o)
	}
	if err := in.popTypes(params); err != nil {
		return err
	}
	in.push(result)
	in.charge(staticPrice(o, in.schedule))
	in.emit(OpCode(o), 0, 0)
	return nil
}

// staticPrice is the price of a numeric instruction.
func staticPrice(o op.OpCode, s *gas.Schedule) tessera.Gas {
	switch o {
	case op.I32_MUL, op.I64_MUL:
		return s.Multiply
	case op.I32_DIV_S, op.I32_DIV_U, op.I32_REM_S, op.I32_REM_U,
		op.I64_DIV_S, op.I64_DIV_U, op.I64_REM_S, op.I64_REM_U:
		return s.Divide
	}
	return s.Regular
}
