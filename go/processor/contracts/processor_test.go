// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package contracts

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Fantom-foundation/Tessera/go/codestore"
	"github.com/Fantom-foundation/Tessera/go/examples"
	"github.com/Fantom-foundation/Tessera/go/gas"
	_ "github.com/Fantom-foundation/Tessera/go/interpreter/sandbox"
	"github.com/Fantom-foundation/Tessera/go/state"
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"go.uber.org/mock/gomock"
)

const testGasLimit = tessera.Gas(10_000_000)

var deployer = tessera.Address{0xde}

func newStore(t *testing.T, schedule gas.Schedule) *codestore.Store {
	t.Helper()
	converter, err := wasm.NewConverter(wasm.ConversionConfig{}, schedule)
	if err != nil {
		t.Fatalf("failed to create converter: %v", err)
	}
	store, err := codestore.NewInMemory(converter)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestProcessor(t *testing.T, schedule gas.Schedule, accounts state.Accounts) (*Processor, *state.State) {
	t.Helper()
	world := state.New(accounts)
	processor, err := New(Config{}, newStore(t, schedule), world)
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	return processor, world
}

// deploy uploads and instantiates the given code with the given endowment.
func deploy(t *testing.T, p *Processor, code tessera.Code, endowment uint64) tessera.Address {
	t.Helper()
	upload, err := p.PutCode(code, testGasLimit)
	if err != nil || !upload.Success() {
		t.Fatalf("failed to upload code: %v, %v", err, upload.Err)
	}
	receipt, err := p.Instantiate(InstantiateParameters{
		Deployer:  deployer,
		CodeHash:  upload.CodeHash,
		Endowment: tessera.NewValue(endowment),
		Input:     tessera.Data{byte(len(code))},
		GasLimit:  testGasLimit,
	})
	if err != nil || !receipt.Outcome.Success() {
		t.Fatalf("failed to instantiate code: %v, %v", err, receipt.Outcome)
	}
	return receipt.Address
}

func call(t *testing.T, p *Processor, callee tessera.Address, input []byte) Receipt {
	t.Helper()
	receipt, err := p.Call(CallParameters{
		Caller:   deployer,
		Callee:   callee,
		Input:    input,
		GasLimit: testGasLimit,
	})
	if err != nil {
		t.Fatalf("failed to call %v: %v", callee, err)
	}
	return receipt
}

func TestProcessor_UnknownInterpreter(t *testing.T) {
	_, err := New(Config{Interpreter: "unknown"}, newStore(t, gas.DefaultSchedule()), state.New(nil))
	if err == nil {
		t.Errorf("expected an error")
	}
}

func TestProcessor_PutCode(t *testing.T) {
	schedule := gas.DefaultSchedule()
	counter := examples.CounterContract()
	float := examples.FloatContract()

	tests := map[string]struct {
		code     tessera.Code
		gasLimit tessera.Gas
		gasUsed  tessera.Gas
		check    func(*testing.T, UploadReceipt)
	}{
		"valid code": {
			code:     counter,
			gasLimit: testGasLimit,
			gasUsed:  schedule.UploadFee(len(counter)),
			check: func(t *testing.T, r UploadReceipt) {
				if !r.Success() || r.CodeHash != tessera.CodeHash(counter) {
					t.Errorf("unexpected receipt: %+v", r)
				}
			},
		},
		"floating point code": {
			code:     float,
			gasLimit: testGasLimit,
			gasUsed:  schedule.UploadFee(len(float)),
			check: func(t *testing.T, r UploadReceipt) {
				var validationErr *wasm.ValidationError
				if !errors.As(r.Err, &validationErr) || validationErr.Rule != wasm.RuleFloatingPoint {
					t.Errorf("expected floating point violation, got %v", r.Err)
				}
				if r.CodeHash != (tessera.Hash{}) {
					t.Errorf("rejected code produced a hash")
				}
			},
		},
		"fee exceeds limit": {
			code:     counter,
			gasLimit: 100,
			gasUsed:  100,
			check: func(t *testing.T, r UploadReceipt) {
				if !errors.Is(r.Err, gas.ErrOutOfGas) {
					t.Errorf("expected out of gas, got %v", r.Err)
				}
			},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p, _ := newTestProcessor(t, schedule, nil)
			receipt, err := p.PutCode(test.code, test.gasLimit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if receipt.GasUsed != test.gasUsed {
				t.Errorf("unexpected gas used, wanted %d, got %d", test.gasUsed, receipt.GasUsed)
			}
			test.check(t, receipt)
			found, err := p.store.Get(tessera.CodeHash(test.code))
			if receipt.Success() != (err == nil && found != nil) {
				t.Errorf("store content does not match receipt: %v", err)
			}
		})
	}
}

func TestProcessor_InstantiateDerivesAddress(t *testing.T) {
	p, world := newTestProcessor(t, gas.DefaultSchedule(), nil)
	code := examples.CounterContract()
	upload, _ := p.PutCode(code, testGasLimit)

	params := InstantiateParameters{
		Deployer: deployer,
		CodeHash: upload.CodeHash,
		Input:    tessera.Data("salt"),
		GasLimit: testGasLimit,
	}
	receipt, err := p.Instantiate(params)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	want := ContractAddress(deployer, upload.CodeHash, params.Input)
	if !receipt.Outcome.Success() || receipt.Address != want {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if hash, found := world.GetContract(want); !found || hash != upload.CodeHash {
		t.Errorf("contract not registered")
	}

	// A second instantiation with equal parameters would overwrite the contract.
	receipt, err = p.Instantiate(params)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	if want := tessera.TrappedWith(tessera.TrapHostFunctionError); receipt.Outcome.Kind != want.Kind || receipt.Outcome.Trap != want.Trap {
		t.Errorf("unexpected outcome: %v", receipt.Outcome)
	}
	if receipt.GasUsed != 0 {
		t.Errorf("refused instantiation consumed gas: %d", receipt.GasUsed)
	}
}

func TestProcessor_RefusedInvocationsConsumeNoGas(t *testing.T) {
	p, _ := newTestProcessor(t, gas.DefaultSchedule(), nil)
	counter := deploy(t, p, examples.CounterContract(), 0)

	tests := map[string]struct {
		run  func() (Receipt, error)
		trap tessera.TrapKind
	}{
		"unknown callee": {
			run: func() (Receipt, error) {
				return p.Call(CallParameters{Caller: deployer, Callee: tessera.Address{0x42}, GasLimit: testGasLimit})
			},
			trap: tessera.TrapHostFunctionError,
		},
		"unknown code": {
			run: func() (Receipt, error) {
				return p.Instantiate(InstantiateParameters{Deployer: deployer, CodeHash: tessera.Hash{0x42}, GasLimit: testGasLimit})
			},
			trap: tessera.TrapHostFunctionError,
		},
		"insufficient funds": {
			run: func() (Receipt, error) {
				return p.Call(CallParameters{Caller: deployer, Callee: counter, Value: tessera.NewValue(1), GasLimit: testGasLimit})
			},
			trap: tessera.TrapInsufficientFunds,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			receipt, err := test.run()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if receipt.Outcome.Kind != tessera.Trapped || receipt.Outcome.Trap != test.trap {
				t.Errorf("unexpected outcome, wanted trap %v, got %v", test.trap, receipt.Outcome)
			}
			if receipt.GasUsed != 0 {
				t.Errorf("refused invocation consumed gas: %d", receipt.GasUsed)
			}
		})
	}
}

func TestProcessor_CounterKeepsStateAndEvents(t *testing.T) {
	p, world := newTestProcessor(t, gas.DefaultSchedule(), nil)
	counter := deploy(t, p, examples.CounterContract(), 0)

	for i := uint64(1); i <= 3; i++ {
		receipt := call(t, p, counter, nil)
		if !receipt.Outcome.Success() {
			t.Fatalf("call failed: %v", receipt.Outcome)
		}
		if got := binary.LittleEndian.Uint64(receipt.Outcome.Data); got != i {
			t.Errorf("unexpected counter value, wanted %d, got %d", i, got)
		}
		if len(receipt.Events) != 1 {
			t.Fatalf("unexpected events: %v", receipt.Events)
		}
		event := receipt.Events[0]
		if event.Address != counter || len(event.Topics) != 1 || binary.LittleEndian.Uint64(event.Data) != i {
			t.Errorf("unexpected event: %+v", event)
		}
		if receipt.GasUsed == 0 {
			t.Errorf("call consumed no gas")
		}
	}
	data, found := world.GetStorage(counter, tessera.Key{})
	if !found || binary.LittleEndian.Uint64(data) != 3 {
		t.Errorf("unexpected stored counter: %x", data)
	}
}

func TestProcessor_FailedTopLevelCallKeepsStateUnchanged(t *testing.T) {
	p, world := newTestProcessor(t, gas.DefaultSchedule(), nil)
	reverting := deploy(t, p, examples.RevertingContract(), 0)
	root := world.Root()

	receipt := call(t, p, reverting, nil)
	if receipt.Outcome.Kind != tessera.Reverted || string(receipt.Outcome.Data) != examples.RevertReason {
		t.Errorf("unexpected outcome: %v", receipt.Outcome)
	}
	if receipt.GasUsed == 0 {
		t.Errorf("reverted call consumed no gas")
	}
	if len(receipt.Events) != 0 {
		t.Errorf("reverted call produced events")
	}
	if world.Root() != root {
		t.Errorf("reverted call modified the state")
	}
}

func TestProcessor_FailedNestedCallsDoNotLeakWrites(t *testing.T) {
	tests := map[string]struct {
		code   tessera.Code
		status uint32
	}{
		"revert": {code: examples.RevertingContract(), status: tessera.RevertedWith(nil).Code()},
		"trap":   {code: examples.BurnerContract(), status: tessera.TrappedWith(tessera.TrapOutOfGas).Code()},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p, world := newTestProcessor(t, gas.DefaultSchedule(), nil)
			forwarder := deploy(t, p, examples.ForwarderContract(), 0)
			callee := deploy(t, p, test.code, 0)

			input := binary.LittleEndian.AppendUint64(callee[:], 100_000)
			receipt := call(t, p, forwarder, input)
			if !receipt.Outcome.Success() {
				t.Fatalf("forwarder failed: %v", receipt.Outcome)
			}
			if got := binary.LittleEndian.Uint32(receipt.Outcome.Data); got != test.status {
				t.Errorf("unexpected status, wanted %d, got %d", test.status, got)
			}
			if _, found := world.GetStorage(callee, tessera.Key{}); found {
				t.Errorf("write of failed callee is visible")
			}
		})
	}
}

func TestProcessor_SuccessfulNestedCallsAreCommitted(t *testing.T) {
	p, world := newTestProcessor(t, gas.DefaultSchedule(), nil)
	forwarder := deploy(t, p, examples.ForwarderContract(), 0)
	counter := deploy(t, p, examples.CounterContract(), 0)

	input := binary.LittleEndian.AppendUint64(counter[:], 100_000)
	receipt := call(t, p, forwarder, input)
	if !receipt.Outcome.Success() || binary.LittleEndian.Uint32(receipt.Outcome.Data) != 0 {
		t.Fatalf("unexpected outcome: %v", receipt.Outcome)
	}
	if len(receipt.Events) != 1 || receipt.Events[0].Address != counter {
		t.Errorf("event of nested call missing: %v", receipt.Events)
	}
	if data, found := world.GetStorage(counter, tessera.Key{}); !found || binary.LittleEndian.Uint64(data) != 1 {
		t.Errorf("write of nested call missing: %x", data)
	}
}

func TestProcessor_RecursionIsLimited(t *testing.T) {
	schedule := gas.DefaultSchedule()
	schedule.Limits.MaxRecursionDepth = 5
	p, world := newTestProcessor(t, schedule, nil)
	recursive := deploy(t, p, examples.RecursiveContract(), 0)

	receipt := call(t, p, recursive, nil)
	if !receipt.Outcome.Success() {
		t.Fatalf("unexpected outcome: %v", receipt.Outcome)
	}
	want := tessera.TrappedWith(tessera.TrapRecursionLimit).Code()
	if got := binary.LittleEndian.Uint32(receipt.Outcome.Data); got != want {
		t.Errorf("unexpected status, wanted %d, got %d", want, got)
	}
	data, found := world.GetStorage(recursive, tessera.Key{})
	if !found || binary.LittleEndian.Uint64(data) != 5 {
		t.Errorf("unexpected number of frames: %x", data)
	}
}

func TestProcessor_RefusedRecursionChargesNothing(t *testing.T) {
	const (
		depthLimit = 4
		frameCost  = 10
	)
	schedule := gas.DefaultSchedule()
	schedule.Limits.MaxRecursionDepth = depthLimit
	store := newStore(t, schedule)
	hash, _, err := store.Put(examples.CounterContract())
	if err != nil {
		t.Fatalf("failed to store code: %v", err)
	}
	address := tessera.Address{1}
	world := state.New(state.Accounts{address: {Code: &hash}})

	ctrl := gomock.NewController(t)
	interpreter := vm.NewMockInterpreter(ctrl)
	interpreter.EXPECT().Instantiate(gomock.Any()).DoAndReturn(func(params vm.Parameters) (vm.Instance, error) {
		instance := vm.NewMockInstance(ctrl)
		var result *vm.CallResult
		var remaining tessera.Gas
		instance.EXPECT().Execute().DoAndReturn(func() (vm.Yield, error) {
			if result == nil {
				if err := params.Meter.Charge(frameCost); err != nil {
					return vm.Yield{}, err
				}
				remaining = params.Meter.Remaining()
				return vm.Yield{Request: &vm.CallRequest{Kind: vm.Call, Callee: address, Gas: 1000}}, nil
			}
			if result.Outcome.Success() {
				return vm.Yield{Outcome: result.Outcome}, nil
			}
			return vm.Yield{Outcome: tessera.ReturnedWith(tessera.Data{byte(result.Outcome.Code())})}, nil
		}).Times(2)
		instance.EXPECT().Resume(gomock.Any()).DoAndReturn(func(r vm.CallResult) error {
			result = &r
			if params.Depth == depthLimit-1 && params.Meter.Remaining() != remaining {
				t.Errorf("refused call changed the gas of its caller")
			}
			return nil
		})
		return instance, nil
	}).Times(depthLimit)

	p := NewWithInterpreter(interpreter, store, world)
	receipt, err := p.Call(CallParameters{Callee: address, GasLimit: testGasLimit})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := byte(tessera.TrappedWith(tessera.TrapRecursionLimit).Code()); len(receipt.Outcome.Data) != 1 || receipt.Outcome.Data[0] != want {
		t.Errorf("unexpected outcome: %v", receipt.Outcome)
	}
	if want := tessera.Gas(depthLimit * frameCost); receipt.GasUsed != want {
		t.Errorf("unexpected gas used, wanted %d, got %d", want, receipt.GasUsed)
	}
}

func TestProcessor_InterpreterErrorsAreReported(t *testing.T) {
	store := newStore(t, gas.DefaultSchedule())
	hash, _, err := store.Put(examples.CounterContract())
	if err != nil {
		t.Fatalf("failed to store code: %v", err)
	}
	world := state.New(state.Accounts{{1}: {Code: &hash}})

	ctrl := gomock.NewController(t)
	interpreter := vm.NewMockInterpreter(ctrl)
	instance := vm.NewMockInstance(ctrl)
	interpreter.EXPECT().Instantiate(gomock.Any()).Return(instance, nil)
	instance.EXPECT().Execute().Return(vm.Yield{}, errors.New("injected"))

	p := NewWithInterpreter(interpreter, store, world)
	if _, err := p.Call(CallParameters{Callee: tessera.Address{1}, GasLimit: testGasLimit}); err == nil {
		t.Errorf("expected an error")
	}
}

func TestProcessor_NestedInstantiation(t *testing.T) {
	p, world := newTestProcessor(t, gas.DefaultSchedule(), nil)
	factory := deploy(t, p, examples.FactoryContract(), 0)
	upload, _ := p.PutCode(examples.CounterContract(), testGasLimit)

	receipt := call(t, p, factory, upload.CodeHash[:])
	if !receipt.Outcome.Success() || len(receipt.Outcome.Data) != 20 {
		t.Fatalf("unexpected outcome: %v", receipt.Outcome)
	}
	var created tessera.Address
	copy(created[:], receipt.Outcome.Data)
	if want := ContractAddress(factory, upload.CodeHash, nil); created != want {
		t.Errorf("unexpected address, wanted %v, got %v", want, created)
	}
	if _, found := world.GetContract(created); !found {
		t.Fatalf("created contract not registered")
	}
	if receipt := call(t, p, created, nil); !receipt.Outcome.Success() {
		t.Errorf("created contract can not be called: %v", receipt.Outcome)
	}

	// The address is taken now.
	receipt = call(t, p, factory, upload.CodeHash[:])
	want := tessera.TrappedWith(tessera.TrapHostFunctionError).Code()
	if got := binary.LittleEndian.Uint32(receipt.Outcome.Data); len(receipt.Outcome.Data) != 4 || got != want {
		t.Errorf("unexpected outcome: %v", receipt.Outcome)
	}
}

func TestProcessor_ValueTransfers(t *testing.T) {
	p, world := newTestProcessor(t, gas.DefaultSchedule(), state.Accounts{
		deployer: {Balance: tessera.NewValue(100)},
	})
	payer := deploy(t, p, examples.PayerContract(), 50)
	if got := world.GetBalance(payer); got != tessera.NewValue(50) {
		t.Fatalf("endowment not transferred: %v", got)
	}

	receiver := tessera.Address{0xbe}
	pay := func(amount uint64) Receipt {
		value := tessera.NewValue(amount)
		input := append(append([]byte{}, receiver[:]...), value[:]...)
		return call(t, p, payer, input)
	}

	if receipt := pay(20); !receipt.Outcome.Success() {
		t.Fatalf("payment failed: %v", receipt.Outcome)
	}
	if got := world.GetBalance(receiver); got != tessera.NewValue(20) {
		t.Errorf("unexpected balance of receiver: %v", got)
	}
	if got := world.GetBalance(payer); got != tessera.NewValue(30) {
		t.Errorf("unexpected balance of payer: %v", got)
	}

	receipt := pay(31)
	if receipt.Outcome.Kind != tessera.Trapped || receipt.Outcome.Trap != tessera.TrapInsufficientFunds {
		t.Errorf("unexpected outcome: %v", receipt.Outcome)
	}
	if receipt.GasUsed == 0 {
		t.Errorf("failed payment consumed no gas")
	}
	if got := world.GetBalance(payer); got != tessera.NewValue(30) {
		t.Errorf("failed payment changed the balance: %v", got)
	}
}

// interleavedCredit credits an account right before the next debit, like a
// transaction committing between the execution and the commit of another.
type interleavedCredit struct {
	*state.State
	armed   bool
	account tessera.Address
	amount  tessera.Value
}

func (s *interleavedCredit) Debit(address tessera.Address, value tessera.Value) error {
	if s.armed {
		s.armed = false
		s.State.Credit(s.account, s.amount)
	}
	return s.State.Debit(address, value)
}

func TestProcessor_CommitKeepsInterleavedCredits(t *testing.T) {
	receiver := tessera.Address{0xbe}
	world := &interleavedCredit{
		State: state.New(state.Accounts{
			deployer: {Balance: tessera.NewValue(100)},
		}),
		account: receiver,
		amount:  tessera.NewValue(1000),
	}
	p, err := New(Config{}, newStore(t, gas.DefaultSchedule()), world)
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	payer := deploy(t, p, examples.PayerContract(), 50)

	world.armed = true
	value := tessera.NewValue(20)
	input := append(append([]byte{}, receiver[:]...), value[:]...)
	if receipt := call(t, p, payer, input); !receipt.Outcome.Success() {
		t.Fatalf("payment failed: %v", receipt.Outcome)
	}
	if world.armed {
		t.Fatalf("payment did not debit the payer")
	}
	if want, got := tessera.NewValue(1020), world.GetBalance(receiver); want != got {
		t.Errorf("unexpected balance of receiver, wanted %v, got %v", want, got)
	}
	if want, got := tessera.NewValue(30), world.GetBalance(payer); want != got {
		t.Errorf("unexpected balance of payer, wanted %v, got %v", want, got)
	}
}
