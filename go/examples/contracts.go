// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"github.com/Fantom-foundation/Tessera/go/tessera"
	"github.com/Fantom-foundation/Tessera/go/wasm"
	"github.com/Fantom-foundation/Tessera/go/wasm/asm"
	"github.com/Fantom-foundation/Tessera/go/wasm/op"
)

// The contracts below use storage key 0 and are built for tests and the
// command line tool. Each of them has an empty deploy function.

// CounterContract increments an 8-byte little-endian counter stored at key
// 0, emits an event with a zero topic carrying the new value and returns it.
func CounterContract() tessera.Code {
	c := newContract(wasm.ExtGetStorage, wasm.ExtSetStorage, wasm.ExtScratchCopy, wasm.ExtDepositEvent, wasm.ExtReturn)
	// memory: key at 0, counter at 32, topic at 64
	return c.build(asm.NewCode().
		I32Const(0).Call(c.host(wasm.ExtGetStorage)).Op(op.I32_EQZ).
		If().
		I32Const(32).I32Const(0).I32Const(8).Call(c.host(wasm.ExtScratchCopy)).
		End().
		I32Const(32).
		I32Const(32).Load(op.I64_LOAD, 0).I64Const(1).Op(op.I64_ADD).
		Store(op.I64_STORE, 0).
		I32Const(0).I32Const(32).I32Const(8).Call(c.host(wasm.ExtSetStorage)).
		I32Const(64).I32Const(1).I32Const(32).I32Const(8).Call(c.host(wasm.ExtDepositEvent)).
		I32Const(32).I32Const(8).Call(c.host(wasm.ExtReturn)),
	)
}

// ForwarderContract calls the contract whose address is given by the first
// 20 bytes of the input with the gas limit given by the following 8 bytes
// (little-endian). It returns the 4-byte status code of the nested call
// followed by the 8-byte amount of gas the call cost the forwarder.
func ForwarderContract() tessera.Code {
	c := newContract(wasm.ExtInputCopy, wasm.ExtGasLeft, wasm.ExtCall, wasm.ExtReturn)
	const before = 0
	// memory: input at 0, zero value at 32, result at 64
	return c.build(asm.NewCode().
		I32Const(0).I32Const(0).I32Const(28).Call(c.host(wasm.ExtInputCopy)).
		Call(c.host(wasm.ExtGasLeft)).LocalSet(before).
		I32Const(64).
		I32Const(0).I32Const(20).Load(op.I64_LOAD, 0).I32Const(32).I32Const(0).I32Const(0).Call(c.host(wasm.ExtCall)).
		Store(op.I32_STORE, 0).
		I32Const(68).
		LocalGet(before).Call(c.host(wasm.ExtGasLeft)).Op(op.I64_SUB).
		Store(op.I64_STORE, 0).
		I32Const(64).I32Const(12).Call(c.host(wasm.ExtReturn)),
		op.I64,
	)
}

// BurnerContract stores a single byte at key 0 and loops until it runs out
// of gas.
func BurnerContract() tessera.Code {
	c := newContract(wasm.ExtSetStorage)
	return c.build(asm.NewCode().
		I32Const(0).I32Const(32).I32Const(1).Call(c.host(wasm.ExtSetStorage)).
		Loop().Br(0).End(),
	)
}

// RevertReason is the data returned by the RevertingContract.
const RevertReason = "no"

// RevertingContract stores a single byte at key 0 and reverts.
func RevertingContract() tessera.Code {
	c := newContract(wasm.ExtSetStorage, wasm.ExtRevert)
	c.Data(100, []byte(RevertReason))
	return c.build(asm.NewCode().
		I32Const(0).I32Const(32).I32Const(1).Call(c.host(wasm.ExtSetStorage)).
		I32Const(100).I32Const(int32(len(RevertReason))).Call(c.host(wasm.ExtRevert)),
	)
}

// StoreInputContract stores its input at key 0.
func StoreInputContract() tessera.Code {
	c := newContract(wasm.ExtInputSize, wasm.ExtInputCopy, wasm.ExtSetStorage)
	return c.build(asm.NewCode().
		I32Const(32).I32Const(0).Call(c.host(wasm.ExtInputSize)).Call(c.host(wasm.ExtInputCopy)).
		I32Const(0).I32Const(32).Call(c.host(wasm.ExtInputSize)).Call(c.host(wasm.ExtSetStorage)),
	)
}

// RecursiveContract increments the counter at key 0 and calls itself with
// all its gas. If the nested call fails, its 4-byte status code is
// returned, otherwise the return data of the nested call is forwarded.
func RecursiveContract() tessera.Code {
	c := newContract(
		wasm.ExtGetStorage, wasm.ExtSetStorage, wasm.ExtScratchSize, wasm.ExtScratchCopy,
		wasm.ExtAddress, wasm.ExtCall, wasm.ExtReturn,
	)
	const status = 0
	// memory: key at 0, counter at 32, own address at 64, zero value at 96,
	// status at 128, forwarded data at 256
	return c.build(asm.NewCode().
		I32Const(0).Call(c.host(wasm.ExtGetStorage)).Op(op.I32_EQZ).
		If().
		I32Const(32).I32Const(0).I32Const(8).Call(c.host(wasm.ExtScratchCopy)).
		End().
		I32Const(32).
		I32Const(32).Load(op.I64_LOAD, 0).I64Const(1).Op(op.I64_ADD).
		Store(op.I64_STORE, 0).
		I32Const(0).I32Const(32).I32Const(8).Call(c.host(wasm.ExtSetStorage)).
		I32Const(64).Call(c.host(wasm.ExtAddress)).
		I32Const(128).
		I32Const(64).I64Const(-1).I32Const(96).I32Const(0).I32Const(0).Call(c.host(wasm.ExtCall)).
		LocalTee(status).
		Store(op.I32_STORE, 0).
		LocalGet(status).
		If().
		I32Const(128).I32Const(4).Call(c.host(wasm.ExtReturn)).
		Else().
		I32Const(256).I32Const(0).Call(c.host(wasm.ExtScratchSize)).Call(c.host(wasm.ExtScratchCopy)).
		I32Const(256).Call(c.host(wasm.ExtScratchSize)).Call(c.host(wasm.ExtReturn)).
		End(),
		op.I32,
	)
}

// FactoryContract instantiates the code whose hash is given as input with
// all its gas and no endowment. It returns the 20-byte address of the new
// contract, or the 4-byte status code if the instantiation failed.
func FactoryContract() tessera.Code {
	c := newContract(wasm.ExtInputCopy, wasm.ExtInstantiate, wasm.ExtScratchCopy, wasm.ExtReturn)
	const status = 0
	// memory: code hash at 0, zero value at 32, result at 128
	return c.build(asm.NewCode().
		I32Const(0).I32Const(0).I32Const(32).Call(c.host(wasm.ExtInputCopy)).
		I32Const(0).I64Const(-1).I32Const(32).I32Const(0).I32Const(0).Call(c.host(wasm.ExtInstantiate)).
		LocalTee(status).
		If().
		I32Const(128).LocalGet(status).Store(op.I32_STORE, 0).
		I32Const(128).I32Const(4).Call(c.host(wasm.ExtReturn)).
		Else().
		I32Const(128).I32Const(0).I32Const(20).Call(c.host(wasm.ExtScratchCopy)).
		I32Const(128).I32Const(20).Call(c.host(wasm.ExtReturn)).
		End(),
		op.I32,
	)
}

// PayerContract transfers the 32-byte value given by input bytes 20 to 52
// to the address given by the first 20 bytes.
func PayerContract() tessera.Code {
	c := newContract(wasm.ExtInputCopy, wasm.ExtTransfer)
	return c.build(asm.NewCode().
		I32Const(0).I32Const(0).I32Const(52).Call(c.host(wasm.ExtInputCopy)).
		I32Const(0).I32Const(20).Call(c.host(wasm.ExtTransfer)),
	)
}

// FloatContract is rejected by the validator as it uses a floating-point
// instruction.
func FloatContract() tessera.Code {
	c := newContract()
	return c.build(asm.NewCode().Raw(byte(op.F32_CONST), 0, 0, 0, 0).Op(op.DROP))
}
