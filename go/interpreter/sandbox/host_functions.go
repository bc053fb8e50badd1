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
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/vm"
	"github.com/Fantom-foundation/Tessera/go/wasm"
)

// callHost executes a host function. Arguments are taken from the stack,
// results are pushed back. Every function charges the HostCall price and its
// own base price before touching its arguments, and checks lengths before
// charging per-byte prices.
func (c *context) callHost(f wasm.HostFunction) (status, error) {
	if err := c.useGas(c.schedule.HostCall); err != nil {
		return statusFailed, err
	}
	s := c.schedule
	limits := &s.Limits
	switch f {
	case wasm.ExtGetStorage:
		return statusRunning, c.extGetStorage()

	case wasm.ExtSetStorage:
		return statusRunning, c.extSetStorage()

	case wasm.ExtClearStorage:
		if err := c.useGas(s.ClearStorage); err != nil {
			return statusFailed, err
		}
		var key tessera.Key
		if err := c.memory.readInto(c.pop32(), key[:]); err != nil {
			return statusFailed, err
		}
		c.host.ClearStorage(key)

	case wasm.ExtTransfer:
		return statusRunning, c.extTransfer()

	case wasm.ExtCall, wasm.ExtInstantiate:
		return c.extCall(f)

	case wasm.ExtDepositEvent:
		return statusRunning, c.extDepositEvent()

	case wasm.ExtReturn, wasm.ExtRevert:
		size, offset := c.pop32(), c.pop32()
		// Oversized return data traps with LengthExceeded instead of being truncated.
		if size > limits.MaxReturnDataSize {
			return statusFailed, errLengthExceeded
		}
		if err := c.useGasPerByte(s.ReturnDataPerByte, uint64(size)); err != nil {
			return statusFailed, err
		}
		data, err := c.memory.read(offset, size)
		if err != nil {
			return statusFailed, err
		}
		c.returnData = data
		if f == wasm.ExtRevert {
			return statusReverted, nil
		}

	case wasm.ExtInputSize:
		c.stack.push(uint64(len(c.params.Input)))
	case wasm.ExtInputCopy:
		return statusRunning, c.copyOut(c.params.Input)
	case wasm.ExtScratchSize:
		c.stack.push(uint64(len(c.scratch)))
	case wasm.ExtScratchCopy:
		return statusRunning, c.copyOut(c.scratch)

	case wasm.ExtCaller:
		return statusRunning, c.memory.write(c.pop32(), c.params.Caller[:])
	case wasm.ExtAddress:
		return statusRunning, c.memory.write(c.pop32(), c.params.Callee[:])
	case wasm.ExtValueTransferred:
		return statusRunning, c.memory.write(c.pop32(), c.params.Value[:])
	case wasm.ExtBalance:
		balance := c.host.Balance()
		return statusRunning, c.memory.write(c.pop32(), balance[:])
	case wasm.ExtGasLeft:
		c.stack.push(uint64(c.meter.Remaining()))

	case wasm.ExtMalloc:
		if err := c.useGas(s.Malloc); err != nil {
			return statusFailed, err
		}
		top := c.stack.peek()
		*top = uint64(c.heap.allocate(uint32(*top)))
	case wasm.ExtFree:
		if err := c.useGas(s.Free); err != nil {
			return statusFailed, err
		}
		if err := c.heap.free(c.pop32()); err != nil {
			return statusFailed, err
		}

	default:
		return statusFailed, fmt.Errorf("%w: %v", errUnknownHostCall, f)
	}
	return statusRunning, nil
}

func (c *context) pop32() uint32 {
	return uint32(c.stack.pop())
}

func (c *context) extGetStorage() error {
	if err := c.useGas(c.schedule.GetStorage); err != nil {
		return err
	}
	var key tessera.Key
	if err := c.memory.readInto(c.pop32(), key[:]); err != nil {
		return err
	}
	value, found := c.host.GetStorage(key)
	if !found {
		c.scratch = nil
		c.stack.push(1)
		return nil
	}
	if err := c.useGasPerByte(c.schedule.GetStoragePerByte, uint64(len(value))); err != nil {
		return err
	}
	c.scratch = value
	c.stack.push(0)
	return nil
}

func (c *context) extSetStorage() error {
	size, valuePtr, keyPtr := c.pop32(), c.pop32(), c.pop32()
	if err := c.useGas(c.schedule.SetStorage); err != nil {
		return err
	}
	if size > c.schedule.Limits.MaxValueSize {
		return errLengthExceeded
	}
	if err := c.useGasPerByte(c.schedule.SetStoragePerByte, uint64(size)); err != nil {
		return err
	}
	var key tessera.Key
	if err := c.memory.readInto(keyPtr, key[:]); err != nil {
		return err
	}
	value, err := c.memory.read(valuePtr, size)
	if err != nil {
		return err
	}
	c.host.SetStorage(key, value)
	return nil
}

func (c *context) extTransfer() error {
	valuePtr, destPtr := c.pop32(), c.pop32()
	if err := c.useGas(c.schedule.Transfer); err != nil {
		return err
	}
	var dest tessera.Address
	if err := c.memory.readInto(destPtr, dest[:]); err != nil {
		return err
	}
	var value tessera.Value
	if err := c.memory.readInto(valuePtr, value[:]); err != nil {
		return err
	}
	if err := c.host.Transfer(dest, value); err != nil {
		if errors.Is(err, tessera.ErrInsufficientFunds) {
			return err
		}
		return fmt.Errorf("%w: %w", errHostFunction, err)
	}
	return nil
}

// extCall prepares a nested invocation and suspends the instance. The result
// code is pushed when the instance is resumed.
func (c *context) extCall(f wasm.HostFunction) (status, error) {
	size, inputPtr, valuePtr := c.pop32(), c.pop32(), c.pop32()
	limit := tessera.Gas(c.stack.pop())
	targetPtr := c.pop32()

	kind, price := vm.Call, c.schedule.NestedCall
	if f == wasm.ExtInstantiate {
		kind, price = vm.Instantiate, c.schedule.Instantiate
	}
	if err := c.useGas(price); err != nil {
		return statusFailed, err
	}
	if size > c.schedule.Limits.MaxCallDataSize {
		return statusFailed, errLengthExceeded
	}
	if err := c.useGasPerByte(c.schedule.CallDataPerByte, uint64(size)); err != nil {
		return statusFailed, err
	}

	request := &vm.CallRequest{Kind: kind, Gas: limit}
	var err error
	if kind == vm.Call {
		err = c.memory.readInto(targetPtr, request.Callee[:])
	} else {
		err = c.memory.readInto(targetPtr, request.CodeHash[:])
	}
	if err != nil {
		return statusFailed, err
	}
	if err := c.memory.readInto(valuePtr, request.Value[:]); err != nil {
		return statusFailed, err
	}
	if request.Input, err = c.memory.read(inputPtr, size); err != nil {
		return statusFailed, err
	}
	c.request = request
	return statusSuspended, nil
}

// resume completes a nested invocation requested by extCall.
func (c *context) resume(result vm.CallResult) {
	c.scratch = nil
	switch {
	case c.request.Kind == vm.Instantiate && result.Outcome.Success():
		c.scratch = append([]byte{}, result.Address[:]...)
	case result.Outcome.Kind != tessera.Trapped:
		c.scratch = result.Outcome.Data
	}
	c.stack.push(uint64(result.Outcome.Code()))
	c.request = nil
}

func (c *context) extDepositEvent() error {
	size, dataPtr, count, topicsPtr := c.pop32(), c.pop32(), c.pop32(), c.pop32()
	s := c.schedule
	if err := c.useGas(s.DepositEvent); err != nil {
		return err
	}
	if count > s.Limits.MaxEventTopics || size > s.Limits.MaxEventDataSize {
		return errLengthExceeded
	}
	if err := c.useGasPerByte(s.EventTopic, uint64(count)); err != nil {
		return err
	}
	if err := c.useGasPerByte(s.EventDataPerByte, uint64(size)); err != nil {
		return err
	}
	topics := make([]tessera.Hash, count)
	for i := range topics {
		offset := uint64(topicsPtr) + uint64(i)*32
		if offset > uint64(^uint32(0)) {
			return errMemoryAccess
		}
		if err := c.memory.readInto(uint32(offset), topics[i][:]); err != nil {
			return err
		}
	}
	data, err := c.memory.read(dataPtr, size)
	if err != nil {
		return err
	}
	c.host.DepositEvent(topics, data)
	return nil
}

// copyOut implements the (dest, offset, len) copy functions reading from
// the given buffer.
func (c *context) copyOut(buffer []byte) error {
	size, offset, dest := c.pop32(), c.pop32(), c.pop32()
	if err := c.useGasPerByte(c.schedule.CopyPerByte, uint64(size)); err != nil {
		return err
	}
	end := uint64(offset) + uint64(size)
	if end > uint64(len(buffer)) {
		return errMemoryAccess
	}
	return c.memory.write(dest, buffer[offset:end])
}
