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
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// The peephole optimizer rewrites the emitted instruction list. Each
// instruction is a token slice whose first element is the mnemonic, a label
// (leading dot), or a comment (leading slashes).
//
// Rules come in four kinds. Stack rules run exactly once in a single forward
// pass over the list, tracking a virtual register map and a virtual operand
// stack seeded with SP ≡ BP. Pair rules rewrite two adjacent effective
// instructions and mono rules a single one; both run until a full sweep
// changes nothing, restarting from the top after every hit. Code rules scan
// the whole list and run to fixpoint at the end.

// Rule is implemented by the four rewrite kinds.
type Rule interface {
	rule()
}

// StackRule is a forward-pass rule keyed on the instruction mnemonic. The
// first matching stack rule handles the instruction.
type StackRule interface {
	Rule
	Pattern() *regexp.Regexp
	Apply(i int, insts [][]string, state *stackState) error
}

// PairRule rewrites two adjacent effective instructions.
type PairRule interface {
	Rule
	PatternCurrent() *regexp.Regexp
	PatternNext() *regexp.Regexp
	AllowLabelsNext() bool
	Apply(current, next int, insts [][]string) ([][]string, bool)
}

// MonoRule rewrites a single instruction.
type MonoRule interface {
	Rule
	Pattern() *regexp.Regexp
	Apply(i int, insts [][]string) ([][]string, bool)
}

// CodeRule scans the entire instruction list.
type CodeRule interface {
	Rule
	Apply(insts [][]string) ([][]string, bool)
}

var readonlyRegPattern = regexp.MustCompile(`^(?:B(?:R[ELGZ]|[LG]E|N[EZ])|JMP|CAL|PSH|STR)`)

// isReadonlyRegInstruction reports whether the instruction reads all its
// register operands without writing any: labels, comments, branches, calls,
// pushes, and stores.
func isReadonlyRegInstruction(inst []string) bool {
	return strings.HasPrefix(inst[0], ".") || strings.HasPrefix(inst[0], "//") ||
		readonlyRegPattern.MatchString(strings.ToUpper(inst[0]))
}

func constantOperand(operand string) (int, bool) {
	value, err := strconv.Atoi(operand)
	return value, err == nil
}

func removeAt(insts [][]string, i int) [][]string {
	return append(insts[:i], insts[i+1:]...)
}

// stackState is the virtual machine state of the forward pass: register
// contents and the operand stack. A cell is a known constant (int), a
// symbolic value (string), or unknown (nil).
type stackState struct {
	registers map[string]any
	stack     []any
}

func newStackState() *stackState {
	return &stackState{registers: map[string]any{"SP": "BP"}}
}

func (s *stackState) get(name string) any {
	upper := strings.ToUpper(name)
	if upper == "R0" {
		return 0
	}
	if value, ok := s.registers[upper]; ok {
		return value
	}
	return nil
}

func (s *stackState) set(name string, value any) {
	upper := strings.ToUpper(name)
	if upper != "R0" {
		s.registers[upper] = value
	}
}

func (s *stackState) push(value any) { s.stack = append(s.stack, value) }

func (s *stackState) pop() any {
	if len(s.stack) == 0 {
		return nil
	}
	value := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return value
}

var errBadSPMutation = errors.New("this type of stack modification is not allowed")

// applySPMutation validates and models a direct SP write. Only three shapes
// are allowed: ADD SP, SP, k (pop k), SUB SP, SP, k (push k unknowns), and
// SUB SP, R3, k (truncate to the saved-BP slot plus k words).
func (s *stackState) applySPMutation(inst []string) error {
	if len(inst) == 4 {
		if k, ok := constantOperand(inst[3]); ok {
			switch strings.ToUpper(inst[2]) {
			case "SP":
				switch strings.ToUpper(inst[0]) {
				case "ADD":
					for n := 0; n < k; n++ {
						if len(s.stack) == 0 {
							return errors.New("virtual stack underflow")
						}
						s.stack = s.stack[:len(s.stack)-1]
					}
					return nil
				case "SUB":
					for n := 0; n < k; n++ {
						s.push(nil)
					}
					return nil
				}
				return errBadSPMutation
			case "R3":
				if strings.ToUpper(inst[0]) == "SUB" {
					for len(s.stack) > k+1 {
						s.stack = s.stack[:len(s.stack)-1]
					}
					return nil
				}
				return errBadSPMutation
			}
		}
	}
	return errBadSPMutation
}

// PushStackRule records pushed values on the virtual stack. Pushes of known
// constants vanish; the pop side re-materializes them.
type PushStackRule struct{}

func (PushStackRule) rule() {}
func (PushStackRule) Pattern() *regexp.Regexp { return pshOnlyPattern }

func (PushStackRule) Apply(i int, insts [][]string, state *stackState) error {
	if value, err := parseValue(insts[i][1]); err == nil {
		state.push(value)
		insts[i] = []string{"nop"}
		return nil
	}
	operand := insts[i][1]
	upper := strings.ToUpper(operand)
	if strings.HasPrefix(upper, "R") || upper == "SP" {
		value := state.get(operand)
		state.push(value)
		// A push of a register with a known constant vanishes like a push
		// of the literal; the pop side re-materializes or elides it.
		if _, ok := value.(int); ok {
			insts[i] = []string{"nop"}
		}
		return nil
	}
	state.push(operand)
	return nil
}

// PopStackRule pops the virtual stack into the register map. A pop whose
// value already sits in the destination becomes a discard into R0; a pop of
// a known constant vanishes entirely.
type PopStackRule struct{}

func (PopStackRule) rule() {}
func (PopStackRule) Pattern() *regexp.Regexp { return popOnlyPattern }

func (PopStackRule) Apply(i int, insts [][]string, state *stackState) error {
	value := state.pop()
	if value != nil && state.get(insts[i][1]) == value {
		insts[i] = []string{"pop", "R0"}
	} else {
		state.set(insts[i][1], value)
	}
	if _, ok := value.(int); ok {
		insts[i] = []string{"nop"}
	}
	return nil
}

// RetStackRule verifies the virtual stack is empty at every return and
// resets the register map to the frame-exit state SP ≡ BP.
type RetStackRule struct{}

func (RetStackRule) rule() {}
func (RetStackRule) Pattern() *regexp.Regexp { return retOnlyPattern }

func (RetStackRule) Apply(i int, insts [][]string, state *stackState) error {
	if len(state.stack) != 0 {
		return errors.New("stack must be empty before returning")
	}
	clear(state.registers)
	state.registers["SP"] = "BP"
	return nil
}

// GeneralStackRule handles every remaining instruction: substitute known
// constants into read operands, rewrite a symbolic BP to R3, model direct SP
// arithmetic, and invalidate written registers. Calls clobber everything.
type GeneralStackRule struct{}

func (GeneralStackRule) rule() {}
func (GeneralStackRule) Pattern() *regexp.Regexp { return anyWordPattern }

func (GeneralStackRule) Apply(i int, insts [][]string, state *stackState) error {
	inst := insts[i]
	readonly := isReadonlyRegInstruction(inst)
	start := 2
	if readonly {
		start = 1
	}
	for j := start; j < len(inst); j++ {
		value := state.get(inst[j])
		if n, ok := value.(int); ok {
			inst[j] = strconv.Itoa(n)
		} else if sym, ok := value.(string); ok && sym == "BP" {
			inst[j] = "R3"
		}
	}
	if len(inst) > 1 {
		if strings.ToUpper(inst[0]) == "CAL" {
			clear(state.registers)
		} else if !readonly {
			if inst[1] == "SP" {
				if err := state.applySPMutation(inst); err != nil {
					return err
				}
			}
			state.set(inst[1], nil)
		}
	}
	return nil
}

// PushFollowedByPopRule fuses a push and the next pop into a register move,
// or drops the pair entirely when source and destination coincide.
type PushFollowedByPopRule struct{}

func (PushFollowedByPopRule) rule() {}
func (PushFollowedByPopRule) PatternCurrent() *regexp.Regexp { return pshOnlyPattern }
func (PushFollowedByPopRule) PatternNext() *regexp.Regexp { return popOnlyPattern }
func (PushFollowedByPopRule) AllowLabelsNext() bool { return false }

func (PushFollowedByPopRule) Apply(current, next int, insts [][]string) ([][]string, bool) {
	if insts[next][1] == insts[current][1] {
		insts = removeAt(insts, next)
	} else {
		insts[next] = []string{"mov", insts[next][1], insts[current][1]}
	}
	return removeAt(insts, current), true
}

// RepeatedAddSubRule folds two constant adjustments of the same register
// into one, or into a plain move when they cancel.
type RepeatedAddSubRule struct{}

func (RepeatedAddSubRule) rule() {}
func (RepeatedAddSubRule) PatternCurrent() *regexp.Regexp { return addSubPattern }
func (RepeatedAddSubRule) PatternNext() *regexp.Regexp { return addSubPattern }
func (RepeatedAddSubRule) AllowLabelsNext() bool { return false }

func (RepeatedAddSubRule) Apply(current, next int, insts [][]string) ([][]string, bool) {
	if len(insts[current]) < 4 || len(insts[next]) < 4 {
		return insts, false
	}
	a, okA := constantOperand(insts[current][3])
	b, okB := constantOperand(insts[next][3])
	if !okA || !okB {
		return insts, false
	}
	if insts[current][1] != insts[next][2] || insts[current][1] != insts[next][1] {
		return insts, false
	}
	if strings.ToUpper(insts[current][0]) == "SUB" {
		a = -a
	}
	if strings.ToUpper(insts[next][0]) == "SUB" {
		b = -b
	}
	switch value := a + b; {
	case value < 0:
		insts[current] = []string{"sub", insts[next][1], insts[current][2], strconv.Itoa(-value)}
	case value > 0:
		insts[current] = []string{"add", insts[next][1], insts[current][2], strconv.Itoa(value)}
	default:
		insts[current] = []string{"mov", insts[next][1], insts[current][2]}
	}
	return removeAt(insts, next), true
}

// OverwrittenResultRule drops a write whose destination is overwritten by
// the next instruction without being read by it.
type OverwrittenResultRule struct{}

func (OverwrittenResultRule) rule() {}
func (OverwrittenResultRule) PatternCurrent() *regexp.Regexp { return anyWordPattern }
func (OverwrittenResultRule) PatternNext() *regexp.Regexp { return anyWordPattern }
func (OverwrittenResultRule) AllowLabelsNext() bool { return false }

func (OverwrittenResultRule) Apply(current, next int, insts [][]string) ([][]string, bool) {
	if isReadonlyRegInstruction(insts[current]) || isReadonlyRegInstruction(insts[next]) {
		return insts, false
	}
	if len(insts[current]) < 2 || len(insts[next]) < 2 || insts[current][1] != insts[next][1] {
		return insts, false
	}
	for j := 2; j < len(insts[next]); j++ {
		if insts[next][j] == insts[current][1] {
			return insts, false
		}
	}
	return removeAt(insts, current), true
}

// JumpNextRule drops a jump that lands on the immediately following label.
type JumpNextRule struct{}

func (JumpNextRule) rule() {}
func (JumpNextRule) PatternCurrent() *regexp.Regexp { return jmpOnlyPattern }
func (JumpNextRule) PatternNext() *regexp.Regexp { return labelPattern }
func (JumpNextRule) AllowLabelsNext() bool { return true }

func (JumpNextRule) Apply(current, next int, insts [][]string) ([][]string, bool) {
	if insts[current][1] != insts[next][0] {
		return insts, false
	}
	return removeAt(insts, current), true
}

// VoidMoveRule drops moves with no effect: same source and destination, or a
// write to the R0 sink.
type VoidMoveRule struct{}

func (VoidMoveRule) rule() {}
func (VoidMoveRule) Pattern() *regexp.Regexp { return movOnlyPattern }

func (VoidMoveRule) Apply(i int, insts [][]string) ([][]string, bool) {
	if insts[i][1] == insts[i][2] || insts[i][1] == "R0" {
		return removeAt(insts, i), true
	}
	return insts, false
}

// CommentRule strips comments.
type CommentRule struct{}

func (CommentRule) rule() {}
func (CommentRule) Pattern() *regexp.Regexp { return commentPattern }

func (CommentRule) Apply(i int, insts [][]string) ([][]string, bool) {
	return removeAt(insts, i), true
}

// LabelGCRule removes emitter-internal labels that no operand references.
type LabelGCRule struct{}

func (LabelGCRule) rule() {}

func (LabelGCRule) Apply(insts [][]string) ([][]string, bool) {
	referenced := map[string]bool{}
	for _, inst := range insts {
		for _, operand := range inst[1:] {
			if strings.HasPrefix(operand, ".___") {
				referenced[operand] = true
			}
		}
	}
	result := lo.Filter(insts, func(inst []string, _ int) bool {
		return !strings.HasPrefix(inst[0], ".___") || referenced[inst[0]]
	})
	return result, len(result) != len(insts)
}

var (
	pshOnlyPattern = regexp.MustCompile(`^PSH$`)
	popOnlyPattern = regexp.MustCompile(`^POP$`)
	retOnlyPattern = regexp.MustCompile(`^RET$`)
	jmpOnlyPattern = regexp.MustCompile(`^JMP$`)
	movOnlyPattern = regexp.MustCompile(`^MOV$`)
	addSubPattern  = regexp.MustCompile(`^(?:ADD|SUB)$`)
	anyWordPattern = regexp.MustCompile(`^\w.*$`)
	labelPattern   = regexp.MustCompile(`^\..*$`)
	commentPattern = regexp.MustCompile(`^//.*$`)
)

// DefaultRules returns the standard rule set in application order. The
// RET verification rule sits before the general rule so returns are checked
// before the catch-all consumes them.
func DefaultRules() []Rule {
	return []Rule{
		PushStackRule{},
		PopStackRule{},
		RetStackRule{},
		GeneralStackRule{},
		PushFollowedByPopRule{},
		RepeatedAddSubRule{},
		OverwrittenResultRule{},
		JumpNextRule{},
		VoidMoveRule{},
		CommentRule{},
		LabelGCRule{},
	}
}

// nextInstruction finds the next effective instruction after i, skipping
// nops, comments, and (unless allowed) labels.
func nextInstruction(insts [][]string, i int, allowLabels bool) (int, bool) {
	for j := i + 1; j < len(insts); j++ {
		if strings.HasPrefix(insts[j][0], ".") && !allowLabels {
			continue
		}
		if strings.HasPrefix(insts[j][0], "//") {
			continue
		}
		if strings.ToUpper(insts[j][0]) == "NOP" {
			continue
		}
		return j, true
	}
	return 0, false
}

// optimizeInstructions runs the full pipeline: the forward stack pass once,
// then pair and mono rules restarting from the top on every hit until a
// sweep is clean, then code rules to fixpoint.
func optimizeInstructions(insts [][]string, rules []Rule) ([][]string, error) {
	state := newStackState()
	for i := range insts {
		op := strings.ToUpper(insts[i][0])
		for _, rule := range rules {
			if stack, ok := rule.(StackRule); ok && stack.Pattern().MatchString(op) {
				if err := stack.Apply(i, insts, state); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	i := 0
	for i < len(insts) {
		rerun := false
		for _, rule := range rules {
			switch r := rule.(type) {
			case PairRule:
				next, ok := nextInstruction(insts, i, r.AllowLabelsNext())
				if ok && r.PatternCurrent().MatchString(strings.ToUpper(insts[i][0])) &&
					r.PatternNext().MatchString(strings.ToUpper(insts[next][0])) {
					if out, changed := r.Apply(i, next, insts); changed {
						insts = out
						rerun = true
					}
				}
			case MonoRule:
				if r.Pattern().MatchString(strings.ToUpper(insts[i][0])) {
					if out, changed := r.Apply(i, insts); changed {
						insts = out
						rerun = true
					}
				}
			}
			if rerun {
				break
			}
		}
		if rerun {
			i = 0
		} else {
			i++
		}
	}

	for {
		rerun := false
		for _, rule := range rules {
			if code, ok := rule.(CodeRule); ok {
				out, changed := code.Apply(insts)
				insts = out
				rerun = rerun || changed
			}
		}
		if !rerun {
			break
		}
	}
	return insts, nil
}
