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
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Tessera/go/gas"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/Fantom-foundation/Tessera/go/wasm/asm"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
	"go.uber.org/mock/gomock"
)

const testGasLimit = tessera.Gas(1_000_000)

// testModule is a module builder importing host functions by name.
type testModule struct {
	*asm.ModuleBuilder
	hosts map[wasm.HostFunction]uint32
}

func newTestModule(imports ...wasm.HostFunction) *testModule {
	res := &testModule{
		ModuleBuilder: asm.NewModule().Memory(1, 2),
		hosts:         map[wasm.HostFunction]uint32{},
	}
	for _, f := range imports {
		signature := f.Signature()
		res.hosts[f] = res.ImportFunction(wasm.HostModule, f.Name(), signature.Params, signature.Results)
	}
	return res
}

// entry defines a function used as both entry points.
func (m *testModule) entry(locals []op.ValueType, body *asm.Code) *testModule {
	f := m.Function(nil, nil, locals, body)
	m.ExportFunction("deploy", f).ExportFunction("call", f)
	return m
}

func (m *testModule) convert(t *testing.T) *wasm.Module {
	t.Helper()
	schedule := gas.DefaultSchedule()
	module, err := wasm.Convert(m.Bytes(), &schedule)
	if err != nil {
		t.Fatalf("failed to convert code: %v", err)
	}
	return module
}

// returningI64 creates a contract returning the 8 bytes of the i64 value
// computed by the given expression.
func returningI64(expression *asm.Code) *testModule {
	m := newTestModule(wasm.ExtReturn)
	return m.entry(nil, asm.NewCode().
		I32Const(0).
		Raw(expression.Bytes()...).
		Store(op.I64_STORE, 0).
		I32Const(0).
		I32Const(8).
		Call(m.hosts[wasm.ExtReturn]),
	)
}

func newParameters(module *wasm.Module, host vm.Host, limit tessera.Gas) vm.Parameters {
	schedule := gas.DefaultSchedule()
	return vm.Parameters{
		Host:     host,
		Module:   module,
		Entry:    vm.EntryCall,
		Meter:    gas.NewMeter(limit),
		Schedule: &schedule,
		Caller:   tessera.Address{1},
		Callee:   tessera.Address{2},
		Value:    tessera.NewValue(3),
		Input:    tessera.Data("input"),
	}
}

func run(t *testing.T, params vm.Parameters) tessera.Outcome {
	t.Helper()
	instance, err := NewInterpreter(Config{}).Instantiate(params)
	if err != nil {
		t.Fatalf("failed to instantiate module: %v", err)
	}
	yield, err := instance.Execute()
	if err != nil {
		t.Fatalf("unexpected execution error: %v", err)
	}
	if yield.Request != nil {
		t.Fatalf("unexpected request for nested invocation: %v", yield.Request)
	}
	return yield.Outcome
}

func i64Result(t *testing.T, outcome tessera.Outcome) uint64 {
	t.Helper()
	if outcome.Kind != tessera.Returned || len(outcome.Data) != 8 {
		t.Fatalf("unexpected outcome %v", outcome)
	}
	return binary.LittleEndian.Uint64(outcome.Data)
}

func TestSandbox_IsRegistered(t *testing.T) {
	interpreter, err := vm.NewInterpreter("sandbox")
	if err != nil {
		t.Fatalf("failed to create sandbox interpreter: %v", err)
	}
	if _, ok := interpreter.(vm.ProfilingInterpreter); !ok {
		t.Errorf("sandbox should support profiling")
	}
}

func TestSandbox_ExperimentalConfigurationsCanBeRegistered(t *testing.T) {
	RegisterExperimentalInterpreterConfigurations()
	for _, name := range []string{"sandbox-logging", "sandbox-stats"} {
		if vm.GetInterpreterFactory(name) == nil {
			t.Errorf("configuration %s is not registered", name)
		}
	}
}

func TestSandbox_EmptyEntryPointReturnsWithoutData(t *testing.T) {
	module := newTestModule().entry(nil, asm.NewCode()).convert(t)
	params := newParameters(module, nil, testGasLimit)
	params.Host = vm.NewMockHost(gomock.NewController(t))

	outcome := run(t, params)
	if outcome.Kind != tessera.Returned || len(outcome.Data) != 0 {
		t.Errorf("unexpected outcome %v", outcome)
	}
}

func TestSandbox_SelectsEntryPoint(t *testing.T) {
	m := newTestModule(wasm.ExtRevert)
	deploy := m.Function(nil, nil, nil, asm.NewCode())
	call := m.Function(nil, nil, nil, asm.NewCode().I32Const(0).I32Const(0).Call(m.hosts[wasm.ExtRevert]))
	m.ExportFunction("deploy", deploy).ExportFunction("call", call)
	module := m.convert(t)

	tests := map[vm.Entry]tessera.OutcomeKind{
		vm.EntryDeploy: tessera.Returned,
		vm.EntryCall:   tessera.Reverted,
	}
	for entry, want := range tests {
		t.Run(entry.String(), func(t *testing.T) {
			params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
			params.Entry = entry
			if got := run(t, params).Kind; want != got {
				t.Errorf("unexpected outcome, wanted %v, got %v", want, got)
			}
		})
	}
}

func TestSandbox_InstantiateRejectsIncompleteParameters(t *testing.T) {
	module := newTestModule().entry(nil, asm.NewCode()).convert(t)
	host := vm.NewMockHost(gomock.NewController(t))

	tests := map[string]func(*vm.Parameters){
		"no module":   func(p *vm.Parameters) { p.Module = nil },
		"no meter":    func(p *vm.Parameters) { p.Meter = nil },
		"no schedule": func(p *vm.Parameters) { p.Schedule = nil },
		"no host":     func(p *vm.Parameters) { p.Host = nil },
		"invalid entry": func(p *vm.Parameters) {
			broken := *module
			broken.Call = 7
			p.Module = &broken
		},
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			params := newParameters(module, host, testGasLimit)
			modify(&params)
			if _, err := NewInterpreter(Config{}).Instantiate(params); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestSandbox_ControlFlow(t *testing.T) {
	// sum(n) = n + (n-1) + ... + 1, using a loop
	sum := func(m *testModule) uint32 {
		return m.Function([]op.ValueType{op.I64}, []op.ValueType{op.I64}, []op.ValueType{op.I64}, asm.NewCode().
			Block().
			Loop().
			LocalGet(0).Op(op.I64_EQZ).BrIf(1).
			LocalGet(1).LocalGet(0).Op(op.I64_ADD).LocalSet(1).
			LocalGet(0).I64Const(1).Op(op.I64_SUB).LocalSet(0).
			Br(0).
			End().
			End().
			LocalGet(1),
		)
	}
	// abs(x) using if/else
	abs := func(m *testModule) uint32 {
		return m.Function([]op.ValueType{op.I64}, []op.ValueType{op.I64}, nil, asm.NewCode().
			LocalGet(0).I64Const(0).Op(op.I64_LT_S).
			If(op.I64).
			I64Const(0).LocalGet(0).Op(op.I64_SUB).
			Else().
			LocalGet(0).
			End(),
		)
	}
	// pick(i) selects 10, 20 or 30 using a branch table
	pick := func(m *testModule) uint32 {
		return m.Function([]op.ValueType{op.I32}, []op.ValueType{op.I64}, nil, asm.NewCode().
			Block().
			Block().
			Block().
			LocalGet(0).BrTable([]uint32{0, 1}, 2).
			End().
			I64Const(10).Op(op.RETURN).
			End().
			I64Const(20).Op(op.RETURN).
			End().
			I64Const(30),
		)
	}

	tests := map[string]struct {
		function func(*testModule) uint32
		argument *asm.Code
		want     uint64
	}{
		"loop":                   {sum, asm.NewCode().I64Const(10), 55},
		"loop without iteration": {sum, asm.NewCode().I64Const(0), 0},
		"if":                     {abs, asm.NewCode().I64Const(-5), 5},
		"else":                   {abs, asm.NewCode().I64Const(7), 7},
		"branch table first":     {pick, asm.NewCode().I32Const(0), 10},
		"branch table second":    {pick, asm.NewCode().I32Const(1), 20},
		"branch table default":   {pick, asm.NewCode().I32Const(5), 30},
		"branch table negative":  {pick, asm.NewCode().I32Const(-1), 30},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := newTestModule(wasm.ExtReturn)
			f := test.function(m)
			m.entry(nil, asm.NewCode().
				I32Const(0).
				Raw(test.argument.Bytes()...).
				Call(f).
				Store(op.I64_STORE, 0).
				I32Const(0).
				I32Const(8).
				Call(m.hosts[wasm.ExtReturn]),
			)
			params := newParameters(m.convert(t), vm.NewMockHost(gomock.NewController(t)), testGasLimit)
			if want, got := test.want, i64Result(t, run(t, params)); want != got {
				t.Errorf("unexpected result, wanted %d, got %d", want, got)
			}
		})
	}
}

func TestSandbox_BranchKeepsResultsAndDropsOperands(t *testing.T) {
	module := returningI64(asm.NewCode().
		Block(op.I64).
		I64Const(1).
		I64Const(2).
		I64Const(3).
		Br(0).
		End().
		I64Const(4).
		Op(op.I64_ADD),
	).convert(t)
	params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
	if want, got := uint64(7), i64Result(t, run(t, params)); want != got {
		t.Errorf("unexpected result, wanted %d, got %d", want, got)
	}
}

func TestSandbox_MemoryAccess(t *testing.T) {
	tests := map[string]struct {
		expression *asm.Code
		want       uint64
	}{
		"load8_s": {asm.NewCode().
			I32Const(16).I32Const(0xFF).Store(op.I32_STORE8, 0).
			I32Const(16).Load(op.I32_LOAD8_S, 0).Op(op.I64_EXTEND_I32_U),
			0xFFFFFFFF,
		},
		"load16_u": {asm.NewCode().
			I32Const(16).I32Const(-1).Store(op.I32_STORE, 0).
			I32Const(16).Load(op.I32_LOAD16_U, 0).Op(op.I64_EXTEND_I32_U),
			0xFFFF,
		},
		"load32_s with offset": {asm.NewCode().
			I32Const(12).I32Const(-2).Store(op.I32_STORE, 4).
			I32Const(0).Load(op.I64_LOAD32_S, 16),
			math.MaxUint64 - 1,
		},
		"store64 little endian": {asm.NewCode().
			I32Const(16).I64Const(0x0102030405060708).Store(op.I64_STORE, 0).
			I32Const(16).Load(op.I64_LOAD8_U, 0),
			0x08,
		},
		"last byte": {asm.NewCode().
			I32Const(gas.PageSize-1).Load(op.I64_LOAD8_U, 0),
			0,
		},
		"memory size": {asm.NewCode().
			MemorySize().Op(op.I64_EXTEND_I32_U),
			1,
		},
		"grow returns previous size": {asm.NewCode().
			I32Const(1).MemoryGrow().Op(op.I64_EXTEND_I32_U),
			1,
		},
		"grow beyond maximum fails": {asm.NewCode().
			I32Const(2).MemoryGrow().Op(op.I64_EXTEND_I32_U),
			0xFFFFFFFF,
		},
		"grown memory is accessible": {asm.NewCode().
			I32Const(1).MemoryGrow().Op(op.DROP).
			I32Const(2*gas.PageSize-8).Load(op.I64_LOAD, 0),
			0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			module := returningI64(test.expression).convert(t)
			params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
			if want, got := test.want, i64Result(t, run(t, params)); want != got {
				t.Errorf("unexpected result, wanted 0x%x, got 0x%x", want, got)
			}
		})
	}
}

func TestSandbox_DataSegmentsAreLoaded(t *testing.T) {
	m := newTestModule(wasm.ExtReturn)
	m.Data(100, []byte("hello"))
	m.entry(nil, asm.NewCode().I32Const(100).I32Const(5).Call(m.hosts[wasm.ExtReturn]))
	params := newParameters(m.convert(t), vm.NewMockHost(gomock.NewController(t)), testGasLimit)
	outcome := run(t, params)
	if want, got := tessera.ReturnedWith(tessera.Data("hello")), outcome; want.String() != got.String() {
		t.Errorf("unexpected outcome, wanted %v, got %v", want, got)
	}
}

func TestSandbox_GlobalsAreInitializedAndUpdated(t *testing.T) {
	m := newTestModule(wasm.ExtReturn)
	g := m.Global(op.I64, true, 40)
	m.entry(nil, asm.NewCode().
		GlobalGet(g).I64Const(2).Op(op.I64_ADD).GlobalSet(g).
		I32Const(0).GlobalGet(g).Store(op.I64_STORE, 0).
		I32Const(0).I32Const(8).Call(m.hosts[wasm.ExtReturn]),
	)
	params := newParameters(m.convert(t), vm.NewMockHost(gomock.NewController(t)), testGasLimit)
	if want, got := uint64(42), i64Result(t, run(t, params)); want != got {
		t.Errorf("unexpected result, wanted %d, got %d", want, got)
	}
}

func TestSandbox_IndirectCalls(t *testing.T) {
	tests := map[string]struct {
		index int32
		trap  tessera.TrapKind
	}{
		"valid call":       {0, tessera.TrapNone},
		"type mismatch":    {1, tessera.TrapInvalidCall},
		"empty element":    {2, tessera.TrapInvalidCall},
		"index past table": {3, tessera.TrapInvalidCall},
		"negative index":   {-1, tessera.TrapInvalidCall},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := newTestModule(wasm.ExtReturn)
			one := m.Function(nil, []op.ValueType{op.I64}, nil, asm.NewCode().I64Const(1))
			identity := m.Function([]op.ValueType{op.I64}, []op.ValueType{op.I64}, nil, asm.NewCode().LocalGet(0))
			m.Table(3).Element(0, one, identity)
			m.entry(nil, asm.NewCode().
				I32Const(0).
				I32Const(test.index).
				CallIndirect(m.Type(nil, []op.ValueType{op.I64})).
				Store(op.I64_STORE, 0).
				I32Const(0).I32Const(8).Call(m.hosts[wasm.ExtReturn]),
			)
			params := newParameters(m.convert(t), vm.NewMockHost(gomock.NewController(t)), testGasLimit)
			outcome := run(t, params)
			if test.trap == tessera.TrapNone {
				if want, got := uint64(1), i64Result(t, outcome); want != got {
					t.Errorf("unexpected result, wanted %d, got %d", want, got)
				}
				return
			}
			if want, got := tessera.TrappedWith(test.trap), outcome; want.String() != got.String() {
				t.Errorf("unexpected outcome, wanted %v, got %v", want, got)
			}
		})
	}
}

func TestSandbox_Traps(t *testing.T) {
	manyLocals := make([]op.ValueType, 1000)
	for i := range manyLocals {
		manyLocals[i] = op.I64
	}

	tests := map[string]struct {
		locals []op.ValueType
		body   *asm.Code
		trap   tessera.TrapKind
	}{
		"unreachable": {
			body: asm.NewCode().Op(op.UNREACHABLE),
			trap: tessera.TrapUnreachable,
		},
		"division by zero": {
			body: asm.NewCode().I32Const(1).I32Const(0).Op(op.I32_DIV_U).Op(op.DROP),
			trap: tessera.TrapArithmetic,
		},
		"signed division overflow": {
			body: asm.NewCode().I64Const(math.MinInt64).I64Const(-1).Op(op.I64_DIV_S).Op(op.DROP),
			trap: tessera.TrapArithmetic,
		},
		"load beyond memory": {
			body: asm.NewCode().I32Const(gas.PageSize-3).Load(op.I32_LOAD, 0).Op(op.DROP),
			trap: tessera.TrapMemoryAccess,
		},
		"load offset beyond memory": {
			body: asm.NewCode().I32Const(0).Load(op.I64_LOAD, gas.PageSize).Op(op.DROP),
			trap: tessera.TrapMemoryAccess,
		},
		"store at maximum address": {
			body: asm.NewCode().I32Const(-1).I32Const(0).Store(op.I32_STORE8, 0),
			trap: tessera.TrapMemoryAccess,
		},
		"infinite loop": {
			body: asm.NewCode().Loop().Br(0).End(),
			trap: tessera.TrapOutOfGas,
		},
		"infinite recursion": {
			body: asm.NewCode().Call(0),
			trap: tessera.TrapStackOverflow,
		},
		"recursion with large frames": {
			locals: manyLocals,
			body:   asm.NewCode().Call(0),
			trap:   tessera.TrapStackOverflow,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			module := newTestModule().entry(test.locals, test.body).convert(t)
			params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
			outcome := run(t, params)
			if want, got := tessera.TrappedWith(test.trap), outcome; want.String() != got.String() {
				t.Errorf("unexpected outcome, wanted %v, got %v", want, got)
			}
		})
	}
}

func TestSandbox_ChargesExactGas(t *testing.T) {
	schedule := gas.DefaultSchedule()
	module := newTestModule().entry(nil, asm.NewCode().
		I32Const(6).
		I32Const(7).
		Op(op.I32_MUL).
		Op(op.DROP),
	).convert(t)
	params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
	run(t, params)

	want := 3*schedule.Regular + schedule.Multiply + schedule.Branch
	if got := params.Meter.Consumed(); want != got {
		t.Errorf("unexpected gas consumption, wanted %d, got %d", want, got)
	}
}

func TestSandbox_RunningOutOfGasExhaustsMeter(t *testing.T) {
	module := newTestModule().entry(nil, asm.NewCode().I32Const(1).Op(op.DROP)).convert(t)
	params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), 1)
	outcome := run(t, params)
	if outcome.Kind != tessera.Trapped || outcome.Trap != tessera.TrapOutOfGas {
		t.Errorf("unexpected outcome %v", outcome)
	}
	if !params.Meter.Exhausted() || params.Meter.Remaining() != 0 {
		t.Errorf("meter should be exhausted, got %v", params.Meter)
	}
}

func TestSandbox_FailingMemoryGrowIsNotChargedPerPage(t *testing.T) {
	consumption := func(pages int32) tessera.Gas {
		module := newTestModule().entry(nil, asm.NewCode().
			I32Const(pages).MemoryGrow().Op(op.DROP),
		).convert(t)
		params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
		run(t, params)
		return params.Meter.Consumed()
	}
	schedule := gas.DefaultSchedule()
	success, failure := consumption(1), consumption(5)
	if want, got := schedule.MemoryGrowPerPage, success-failure; want != got {
		t.Errorf("unexpected difference in gas consumption, wanted %d, got %d", want, got)
	}
}

func TestSandbox_LoggingRunnerWritesInstructions(t *testing.T) {
	module := newTestModule().entry(nil, asm.NewCode().I32Const(1).Op(op.DROP)).convert(t)
	var buffer bytes.Buffer
	interpreter := NewInterpreter(Config{runner: newLogger(&buffer)})
	params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), 100)
	instance, err := interpreter.Instantiate(params)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	if _, err := instance.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "0:0 gas left=100 height=0 top=-\n" +
		"0:1 i32.const left=98 height=0 top=-\n" +
		"0:2 drop left=98 height=1 top=1\n" +
		"0:3 return left=98 height=0 top=-\n"
	if got := buffer.String(); want != got {
		t.Errorf("unexpected log, wanted\n%v\ngot\n%v", want, got)
	}
}

func TestSandbox_StatisticsRunnerCollectsProfile(t *testing.T) {
	module := newTestModule().entry(nil, asm.NewCode().I32Const(1).Op(op.DROP)).convert(t)
	interpreter := NewInterpreter(Config{runner: &statisticRunner{}})
	for i := 0; i < 2; i++ {
		params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
		instance, err := interpreter.Instantiate(params)
		if err != nil {
			t.Fatalf("failed to instantiate: %v", err)
		}
		if _, err := instance.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	profile := interpreter.Profile()
	if !strings.Contains(profile, "Steps: 8") {
		t.Errorf("unexpected profile:\n%v", profile)
	}
	interpreter.ResetProfile()
	if profile := interpreter.Profile(); !strings.Contains(profile, "Steps: 0") {
		t.Errorf("profile not reset:\n%v", profile)
	}
}

func TestSandbox_FinishedInstanceCanNotBeExecutedAgain(t *testing.T) {
	module := newTestModule().entry(nil, asm.NewCode()).convert(t)
	params := newParameters(module, vm.NewMockHost(gomock.NewController(t)), testGasLimit)
	instance, err := NewInterpreter(Config{}).Instantiate(params)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	if _, err := instance.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := instance.Execute(); err == nil {
		t.Errorf("expected an error when executing a finished instance")
	}
	if err := instance.Resume(vm.CallResult{}); err == nil {
		t.Errorf("expected an error when resuming a finished instance")
	}
}
