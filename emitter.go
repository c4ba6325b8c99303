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

// Label is a position in the emitted instruction stream. A label is created
// unmarked and bound to an instruction offset when marked.
type Label struct {
	name    string
	address int
	marked  bool
}

func NewLabel(name string) *Label { return &Label{name: name} }

func (l *Label) Name() string { return l.name }
func (l *Label) Address() int { return l.address }
func (l *Label) Marked() bool { return l.marked }

// Emitter is the stack-machine capability set the lowering engine targets.
// Arithmetic and comparison operations consume their operands from the
// operand stack and push the result; comparisons produce 0 or 1. The
// pointer operations pop an address: ld_ptr pushes size words loading from
// the highest address down, st_ptr stores size words at ascending
// addresses.
//
// Operations that the back-end cannot lower record a sticky error
// observable through Err; the first error wins and emission continues as a
// no-op from there.
type Emitter interface {
	// EmitRaw appends one raw target instruction verbatim.
	EmitRaw(operation string, operands []string)
	// Comment emits a comment into the resulting assembly.
	Comment(text string)

	Push(immediate int)
	Pop()

	Add()
	Sub()
	MulS()
	MulU()
	DivS()
	DivU()
	RemS()
	RemU()
	BitNot()
	BitAnd()
	BitOr()
	BitXor()
	Lsh()
	Rsh()

	CmpEq()
	CmpNe()
	CmpLtS()
	CmpLtU()
	CmpGtS()
	CmpGtU()
	CmpLeS()
	CmpLeU()
	CmpGeS()
	CmpGeU()

	Call(target string)
	Ret()
	Jmp(target string)
	// BrT branches when the popped value is not zero, BrF when it is zero.
	BrT(target string)
	BrF(target string)
	BrEq(target string)
	BrNe(target string)
	BrLtS(target string)
	BrLtU(target string)
	BrGtS(target string)
	BrGtU(target string)
	BrLeS(target string)
	BrLeU(target string)
	BrGeS(target string)
	BrGeU(target string)

	// AddSP grows the stack by n words, RemSP shrinks it.
	AddSP(n int)
	RemSP(n int)
	LdSP()
	StSP()
	LdBP()
	StBP()

	LdGlobal(index int)
	StGlobal(index int)
	LdPtr(size int)
	StPtr(size int)

	// CurrentOffset returns the number of high-level operations emitted so
	// far. Branch targets can name an operation by this offset.
	CurrentOffset() int
	CreateLabel(name string) *Label
	MarkLabel(label *Label)

	Err() error
}
