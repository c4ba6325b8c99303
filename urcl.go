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

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// URCLEmitter renders the stack-machine operations as URCL text. Register
// conventions: R0 is the zero sink, R1 and R2 are scratch, R3 holds the
// frame base pointer, SP is the dedicated stack pointer, and R4 upward is
// the globals window.
//
// Every high-level operation is bracketed by a .___urcl___<offset> label and
// an offset-counter bump so branches can target an operation's first
// instruction by number. Optimizer-internal labels use the
// .___urcl___internal___<n> form; user labels are the name with a leading
// dot.
type URCLEmitter struct {
	// ShowIL prefixes every operation with a comment naming it.
	ShowIL bool
	// Optimize runs the peephole pipeline on commit.
	Optimize bool

	current  int
	internal int
	insts    [][]string
	rules    []Rule
	err      error
}

func NewURCLEmitter() *URCLEmitter {
	return &URCLEmitter{Optimize: true, rules: DefaultRules()}
}

// Instructions exposes the accumulated instruction buffer.
func (e *URCLEmitter) Instructions() [][]string { return e.insts }

func (e *URCLEmitter) Err() error { return e.err }

func (e *URCLEmitter) setErr(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *URCLEmitter) notImplemented(op string) {
	e.setErr(fmt.Errorf("%s is not implemented", op))
}

func offsetTarget(offset int) string {
	return ".___urcl___" + strconv.Itoa(offset)
}

func internalTarget(n int) string {
	return ".___urcl___internal___" + strconv.Itoa(n)
}

func nameTarget(name string) string {
	return "." + name
}

func (e *URCLEmitter) emit(tokens ...string) {
	e.insts = append(e.insts, tokens)
}

// begin brackets the start of one high-level operation with its offset
// label.
func (e *URCLEmitter) begin(op string) {
	if e.ShowIL {
		e.Comment(op)
	}
	e.emit(offsetTarget(e.current))
}

func (e *URCLEmitter) end() {
	e.current++
}

func (e *URCLEmitter) createInternal() int {
	e.internal++
	return e.internal - 1
}

func (e *URCLEmitter) markInternal(n int) {
	e.emit(internalTarget(n))
}

func (e *URCLEmitter) CurrentOffset() int { return e.current }

func (e *URCLEmitter) CreateLabel(name string) *Label { return NewLabel(name) }

func (e *URCLEmitter) MarkLabel(label *Label) {
	label.address = e.CurrentOffset()
	label.marked = true
	if len(label.name) > 0 {
		e.emit(nameTarget(label.name))
	}
}

// Commit optimizes the accumulated buffer and writes it out, one
// instruction per line with space-separated tokens. Suppressed nops never
// reach the output.
func (e *URCLEmitter) Commit(w io.Writer) error {
	if e.err != nil {
		return e.err
	}
	insts := e.insts
	if e.Optimize {
		optimized, err := optimizeInstructions(insts, e.rules)
		if err != nil {
			return err
		}
		insts = optimized
		e.insts = optimized
	}
	var builder strings.Builder
	for _, inst := range insts {
		if strings.ToUpper(inst[0]) == "NOP" {
			continue
		}
		builder.WriteString(strings.Join(inst, " "))
		builder.WriteRune('\n')
	}
	_, err := io.WriteString(w, builder.String())
	return err
}

func (e *URCLEmitter) Comment(text string) {
	parts := strings.Split(text, " ")
	parts[0] = "//" + parts[0]
	e.emit(parts...)
}

func (e *URCLEmitter) EmitRaw(operation string, operands []string) {
	e.begin("emit_raw")
	e.emit(append([]string{operation}, operands...)...)
	e.end()
}

func (e *URCLEmitter) Push(immediate int) {
	e.begin("push")
	e.emit("psh", strconv.Itoa(immediate))
	e.end()
}

func (e *URCLEmitter) Pop() {
	e.begin("pop")
	e.emit("pop", "R0")
	e.end()
}

// binary emits the standard two-operand sequence: pop both operands, apply
// the mnemonic, push the result.
func (e *URCLEmitter) binary(op string, mnemonic string) {
	e.begin(op)
	e.emit("pop", "R2")
	e.emit("pop", "R1")
	e.emit(mnemonic, "R1", "R1", "R2")
	e.emit("psh", "R1")
	e.end()
}

func (e *URCLEmitter) Add() { e.binary("add", "add") }
func (e *URCLEmitter) Sub() { e.binary("sub", "sub") }

func (e *URCLEmitter) MulS() { e.MulU() }

func (e *URCLEmitter) MulU() { e.binary("mul_u", "mlt") }

func (e *URCLEmitter) DivS() { e.notImplemented("div_s") }

func (e *URCLEmitter) DivU() { e.binary("div_u", "div") }

func (e *URCLEmitter) RemS() { e.notImplemented("rem_s") }

func (e *URCLEmitter) RemU() { e.binary("rem_u", "mod") }

func (e *URCLEmitter) BitNot() {
	e.begin("bit_not")
	e.emit("pop", "R1")
	e.emit("not", "R1", "R1")
	e.emit("psh", "R1")
	e.end()
}

func (e *URCLEmitter) BitAnd() { e.binary("bit_and", "and") }
func (e *URCLEmitter) BitOr() { e.binary("bit_or", "or") }
func (e *URCLEmitter) BitXor() { e.binary("bit_xor", "xor") }
func (e *URCLEmitter) Lsh() { e.binary("lsh", "bsl") }
func (e *URCLEmitter) Rsh() { e.binary("rsh", "bsr") }

// compare materializes a 0/1 boolean: branch to a true label that pushes 1,
// fall through to push 0.
func (e *URCLEmitter) compare(op string, mnemonic string) {
	e.begin(op)
	end := e.createInternal()
	true_ := e.createInternal()
	e.emit("pop", "R2")
	e.emit("pop", "R1")
	e.emit(mnemonic, internalTarget(true_), "R1", "R2")
	e.emit("psh", "0")
	e.emit("jmp", internalTarget(end))
	e.markInternal(true_)
	e.emit("psh", "1")
	e.markInternal(end)
	e.end()
}

func (e *URCLEmitter) CmpEq() { e.compare("cmp_eq", "bre") }
func (e *URCLEmitter) CmpNe() { e.compare("cmp_ne", "bne") }

func (e *URCLEmitter) CmpLtS() { e.notImplemented("cmp_lt_s") }
func (e *URCLEmitter) CmpLtU() { e.compare("cmp_lt_u", "brl") }
func (e *URCLEmitter) CmpGtS() { e.notImplemented("cmp_gt_s") }
func (e *URCLEmitter) CmpGtU() { e.compare("cmp_gt_u", "brg") }
func (e *URCLEmitter) CmpLeS() { e.notImplemented("cmp_le_s") }
func (e *URCLEmitter) CmpLeU() { e.compare("cmp_le_u", "ble") }
func (e *URCLEmitter) CmpGeS() { e.notImplemented("cmp_ge_s") }
func (e *URCLEmitter) CmpGeU() { e.compare("cmp_ge_u", "bge") }

func (e *URCLEmitter) Call(target string) {
	e.begin("call")
	e.emit("cal", nameTarget(target))
	e.end()
}

func (e *URCLEmitter) Ret() {
	e.begin("ret")
	e.emit("ret")
	e.end()
}

func (e *URCLEmitter) Jmp(target string) {
	e.begin("jmp")
	e.emit("jmp", nameTarget(target))
	e.end()
}

func (e *URCLEmitter) BrT(target string) {
	e.begin("br_t")
	e.emit("pop", "R1")
	e.emit("brz", nameTarget(target), "R1")
	e.end()
}

func (e *URCLEmitter) BrF(target string) {
	e.begin("br_f")
	e.emit("pop", "R1")
	e.emit("bnz", nameTarget(target), "R1")
	e.end()
}

// branch pops both operands and branches on the comparison.
func (e *URCLEmitter) branch(op string, mnemonic string, target string) {
	e.begin(op)
	e.emit("pop", "R2")
	e.emit("pop", "R1")
	e.emit(mnemonic, nameTarget(target), "R1", "R2")
	e.end()
}

func (e *URCLEmitter) BrEq(target string) { e.branch("br_eq", "bre", target) }
func (e *URCLEmitter) BrNe(target string) { e.branch("br_ne", "bne", target) }

func (e *URCLEmitter) BrLtS(string) { e.notImplemented("br_lt_s") }

func (e *URCLEmitter) BrLtU(target string) { e.branch("br_lt_u", "brl", target) }

func (e *URCLEmitter) BrGtS(string) { e.notImplemented("br_gt_s") }

func (e *URCLEmitter) BrGtU(target string) { e.branch("br_gt_u", "brg", target) }

func (e *URCLEmitter) BrLeS(string) { e.notImplemented("br_le_s") }

func (e *URCLEmitter) BrLeU(target string) { e.branch("br_le_u", "ble", target) }

func (e *URCLEmitter) BrGeS(string) { e.notImplemented("br_ge_s") }

func (e *URCLEmitter) BrGeU(target string) { e.branch("br_ge_u", "bge", target) }

// AddSP grows the stack, which extends downward, so the register moves by
// subtraction; RemSP is the inverse.
func (e *URCLEmitter) AddSP(n int) {
	e.begin("add_sp")
	e.emit("sub", "SP", "SP", strconv.Itoa(n))
	e.end()
}

func (e *URCLEmitter) RemSP(n int) {
	e.begin("rem_sp")
	e.emit("add", "SP", "SP", strconv.Itoa(n))
	e.end()
}

func (e *URCLEmitter) LdSP() {
	e.begin("ld_sp")
	e.emit("psh", "SP")
	e.end()
}

func (e *URCLEmitter) StSP() {
	e.begin("st_sp")
	e.emit("pop", "SP")
	e.end()
}

func (e *URCLEmitter) LdBP() {
	e.begin("ld_bp")
	e.emit("psh", "R3")
	e.end()
}

func (e *URCLEmitter) StBP() {
	e.begin("st_bp")
	e.emit("pop", "R3")
	e.end()
}

// LdPtr pops an address and pushes size words, loading from the highest
// address down so the lowest word ends on top.
func (e *URCLEmitter) LdPtr(size int) {
	e.begin("ld_ptr")
	if size > 0 {
		e.emit("pop", "R1")
		if size == 1 {
			e.emit("lod", "R1", "R1")
			e.emit("psh", "R1")
		} else {
			e.emit("add", "R1", "R1", strconv.Itoa(size-1))
			for i := 0; i < size; i++ {
				if i != 0 {
					e.emit("sub", "R1", "R1", "1")
				}
				e.emit("lod", "R2", "R1")
				e.emit("psh", "R2")
			}
		}
	}
	e.end()
}

// StPtr pops an address, then pops and stores size words at ascending
// addresses.
func (e *URCLEmitter) StPtr(size int) {
	e.begin("st_ptr")
	if size > 0 {
		e.emit("pop", "R1")
		for i := 0; i < size; i++ {
			if i != 0 {
				e.emit("add", "R1", "R1", "1")
			}
			e.emit("pop", "R2")
			e.emit("str", "R1", "R2")
		}
	}
	e.end()
}

func (e *URCLEmitter) LdGlobal(index int) {
	e.begin("ld_global")
	e.emit("psh", "R"+strconv.Itoa(index+4))
	e.end()
}

func (e *URCLEmitter) StGlobal(index int) {
	e.begin("st_global")
	e.emit("pop", "R"+strconv.Itoa(index+4))
	e.end()
}
