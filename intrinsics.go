// Copyright 2025 gbc Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

// DefaultTypes returns the built-in types merged into every resolver.
func DefaultTypes() []Type {
	return []Type{&SignedInteger{}, &UnsignedInteger{}}
}

// binaryIntrinsic builds the standard two-operand inline body: pop both
// operands, apply the target mnemonic, push the result.
func binaryIntrinsic(name string, result Type, mnemonic string) *InlineBody {
	return NewInlineBody(name, result, []Statement{
		NewAssemblyInstructionStatement("pop", []string{"R2"}),
		NewAssemblyInstructionStatement("pop", []string{"R1"}),
		NewAssemblyInstructionStatement(mnemonic, []string{"R1", "R1", "R2"}),
		NewAssemblyInstructionStatement("psh", []string{"R1"}),
	})
}

// DefaultFunctions returns the built-in operator and cast intrinsics. The
// integer casts are free: both types are one word, so the value on the stack
// is already the result. The signed division and shift mnemonics are relayed
// as raw assembly; the URCL emitter itself never lowers signed arithmetic.
func DefaultFunctions() []Callable {
	signed := Type(&SignedInteger{})
	unsigned := Type(&UnsignedInteger{})
	return []Callable{
		NewInlineBody("__CAST_Integer_UInteger", unsigned, nil),
		NewInlineBody("__CAST_UInteger_Integer", signed, nil),

		binaryIntrinsic("__ADD_Integer_Integer", signed, "add"),
		binaryIntrinsic("__SUB_Integer_Integer", signed, "sub"),
		binaryIntrinsic("__MUL_Integer_Integer", signed, "mul"),
		binaryIntrinsic("__DIV_Integer_Integer", signed, "sdiv"),
		binaryIntrinsic("__LSHIFT_Integer_Integer", signed, "sbsl"),
		binaryIntrinsic("__RSHIFT_Integer_Integer", signed, "sbsr"),
		binaryIntrinsic("__AND_Integer_Integer", signed, "and"),
		binaryIntrinsic("__OR_Integer_Integer", signed, "or"),
		binaryIntrinsic("__XOR_Integer_Integer", signed, "xor"),

		binaryIntrinsic("__ADD_UInteger_UInteger", unsigned, "add"),
		binaryIntrinsic("__SUB_UInteger_UInteger", unsigned, "sub"),
		binaryIntrinsic("__MUL_UInteger_UInteger", unsigned, "mul"),
		binaryIntrinsic("__DIV_UInteger_UInteger", unsigned, "div"),
		binaryIntrinsic("__LSHIFT_UInteger_UInteger", unsigned, "bsl"),
		binaryIntrinsic("__RSHIFT_UInteger_UInteger", unsigned, "bsr"),
		binaryIntrinsic("__AND_UInteger_UInteger", unsigned, "and"),
		binaryIntrinsic("__OR_UInteger_UInteger", unsigned, "or"),
		binaryIntrinsic("__XOR_UInteger_UInteger", unsigned, "xor"),
	}
}
