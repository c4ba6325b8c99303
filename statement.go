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
)

// Statement is one emittable line of a routine body.
type Statement interface {
	// Locals returns the locals this statement declares, in source order.
	Locals() []*Local
	Resolve(r *Resolver, frame Frame) error
	Emit(e Emitter, frame Frame) error
}

// LocalStatement declares a local. Stack space for it is carved out by the
// frame prologue, so emission itself is a no-op.
type LocalStatement struct {
	local *Local
}

func NewLocalStatement(local *Local) *LocalStatement {
	return &LocalStatement{local: local}
}

func (s *LocalStatement) Locals() []*Local { return []*Local{s.local} }

func (s *LocalStatement) Resolve(r *Resolver, frame Frame) error {
	return s.local.Resolve(r)
}

func (s *LocalStatement) Emit(Emitter, Frame) error { return nil }

// AssignmentStatement evaluates an expression and stores it into a variable
// or dotted field path.
type AssignmentStatement struct {
	targetName string
	expr       Expression
}

func NewAssignmentStatement(targetName string, expr Expression) *AssignmentStatement {
	return &AssignmentStatement{targetName: targetName, expr: expr}
}

func (s *AssignmentStatement) Locals() []*Local { return nil }

func (s *AssignmentStatement) Resolve(r *Resolver, frame Frame) error {
	return s.expr.Resolve(r, frame)
}

func (s *AssignmentStatement) Emit(e Emitter, frame Frame) error {
	if err := s.expr.Emit(e, frame); err != nil {
		return err
	}
	target, err := frame.Lookup(s.targetName)
	if err != nil {
		return err
	}
	return target.EmitStore(e, frame)
}

// ReturnStatement stores its value into the frame's return slot and jumps to
// the routine's shared epilogue label. The value type must match the
// routine's declared return type exactly.
type ReturnStatement struct {
	expr Expression
}

func NewReturnStatement(expr Expression) *ReturnStatement {
	return &ReturnStatement{expr: expr}
}

func (s *ReturnStatement) Locals() []*Local { return nil }

func (s *ReturnStatement) Resolve(r *Resolver, frame Frame) error {
	return s.expr.Resolve(r, frame)
}

func (s *ReturnStatement) Emit(e Emitter, frame Frame) error {
	typ, err := s.expr.ResultType()
	if err != nil {
		return err
	}
	if !TypeEqual(typ, frame.ReturnType()) {
		return errors.New("return value does not match function return type")
	}
	if err := s.expr.Emit(e, frame); err != nil {
		return err
	}
	if err := NewReturnVariable(typ).EmitStore(e, frame); err != nil {
		return err
	}
	e.Jmp("__" + frame.Name() + "__return")
	return nil
}

// AssemblyLoadStatement pushes a variable's value for use by following raw
// assembly.
type AssemblyLoadStatement struct {
	source string
}

func NewAssemblyLoadStatement(source string) *AssemblyLoadStatement {
	return &AssemblyLoadStatement{source: source}
}

func (s *AssemblyLoadStatement) Locals() []*Local { return nil }
func (s *AssemblyLoadStatement) Resolve(*Resolver, Frame) error { return nil }

func (s *AssemblyLoadStatement) Emit(e Emitter, frame Frame) error {
	source, err := frame.Lookup(s.source)
	if err != nil {
		return err
	}
	return source.EmitLoad(e, frame)
}

// AssemblyStoreStatement pops the top of the stack into a variable.
type AssemblyStoreStatement struct {
	target string
}

func NewAssemblyStoreStatement(target string) *AssemblyStoreStatement {
	return &AssemblyStoreStatement{target: target}
}

func (s *AssemblyStoreStatement) Locals() []*Local { return nil }
func (s *AssemblyStoreStatement) Resolve(*Resolver, Frame) error { return nil }

func (s *AssemblyStoreStatement) Emit(e Emitter, frame Frame) error {
	target, err := frame.Lookup(s.target)
	if err != nil {
		return err
	}
	return target.EmitStore(e, frame)
}

// AssemblyInstructionStatement emits one raw target instruction verbatim.
type AssemblyInstructionStatement struct {
	operation string
	operands  []string
}

func NewAssemblyInstructionStatement(operation string, operands []string) *AssemblyInstructionStatement {
	return &AssemblyInstructionStatement{operation: operation, operands: operands}
}

func (s *AssemblyInstructionStatement) Locals() []*Local { return nil }
func (s *AssemblyInstructionStatement) Resolve(*Resolver, Frame) error { return nil }

func (s *AssemblyInstructionStatement) Emit(e Emitter, frame Frame) error {
	e.EmitRaw(s.operation, s.operands)
	return nil
}

// CallStatement evaluates a call for its effect and discards the return
// value left on the stack, if any.
type CallStatement struct {
	expr *CallExpression
}

func NewCallStatement(expr *CallExpression) *CallStatement {
	return &CallStatement{expr: expr}
}

func (s *CallStatement) Locals() []*Local { return nil }

func (s *CallStatement) Resolve(r *Resolver, frame Frame) error {
	return s.expr.Resolve(r, frame)
}

func (s *CallStatement) Emit(e Emitter, frame Frame) error {
	if err := s.expr.Emit(e, frame); err != nil {
		return err
	}
	typ, err := s.expr.ResultType()
	if err != nil {
		return err
	}
	if typ.Size() > 0 {
		e.RemSP(typ.Size())
	}
	return nil
}
