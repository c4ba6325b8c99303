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
	"fmt"
	"strings"
)

// Variable is anything with an address in the current frame: a parameter, a
// local, a structure field path rooted at one of those, or the return slot.
// Load and store go through the address computed by EmitLoadAddress.
type Variable interface {
	Name() string
	// Type returns the resolved type, or nil before resolution.
	Type() Type
	Size() int
	ByRef() bool
	// Lookup resolves a dotted field path relative to this variable. An
	// empty path yields the variable itself.
	Lookup(path string) (Variable, error)
	EmitLoadAddress(e Emitter, frame Frame) error
	EmitLoad(e Emitter, frame Frame) error
	EmitStore(e Emitter, frame Frame) error
}

// lookupVariable walks a dotted field path rooted at v. ByRef variables are
// looked up through the pointed-to type.
func lookupVariable(v Variable, path string) (Variable, error) {
	if path == "" {
		return v, nil
	}
	typ := v.Type()
	if typ == nil {
		return nil, errors.New("type is not resolved")
	}
	if v.ByRef() {
		if pt, ok := typ.(*PointerType); ok {
			typ = pt.Referenced()
		}
	}
	if ct, ok := typ.(*ComplexType); ok {
		head, rest, _ := strings.Cut(path, ".")
		if field := ct.FieldByName(head, v); field != nil {
			return lookupVariable(field, rest)
		}
	}
	return nil, fmt.Errorf("Undefined variable %q.", path)
}

// Field is a structure member anchored at an enclosing variable. Its address
// is the anchor's address plus the field offset.
type Field struct {
	relativeTo Variable
	ref        typeRef
	name       string
	index      int
	offset     int
}

// NewField creates a declaration field, not yet anchored or resolved.
func NewField(typeName string, name string, index int) *Field {
	return &Field{ref: typeRefNamed(typeName), name: name, index: index}
}

func (f *Field) Name() string { return f.name }
func (f *Field) Index() int { return f.index }
func (f *Field) Offset() int { return f.offset }
func (f *Field) Type() Type { return f.ref.typ }
func (f *Field) ByRef() bool { return false }

func (f *Field) Size() int {
	if f.ref.typ == nil {
		return 0
	}
	return f.ref.typ.Size()
}

func (f *Field) Lookup(path string) (Variable, error) { return lookupVariable(f, path) }

func (f *Field) EmitLoadAddress(e Emitter, frame Frame) error {
	if err := f.relativeTo.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.Push(f.offset)
	e.Add()
	return nil
}

func (f *Field) EmitLoad(e Emitter, frame Frame) error {
	if err := f.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.LdPtr(f.Size())
	return nil
}

func (f *Field) EmitStore(e Emitter, frame Frame) error {
	if err := f.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.StPtr(f.Size())
	return nil
}

// Parameter is a routine argument. Parameters live above the frame base
// pointer: the last argument sits at BP+2, just past the return address and
// saved BP slots, and earlier arguments follow at higher addresses. A ByRef
// parameter resolves to pointer-to-T and is dereferenced once when its
// address is taken.
type Parameter struct {
	ref   typeRef
	byRef bool
	name  string
	index int
}

func NewParameter(typeName string, byRef bool, name string, index int) *Parameter {
	return &Parameter{ref: typeRefNamed(typeName), byRef: byRef, name: name, index: index}
}

func (p *Parameter) Name() string { return p.name }
func (p *Parameter) Index() int { return p.index }
func (p *Parameter) Type() Type { return p.ref.typ }
func (p *Parameter) ByRef() bool { return p.byRef }

func (p *Parameter) Size() int {
	if p.ref.typ == nil {
		return 0
	}
	return p.ref.typ.Size()
}

func (p *Parameter) Resolve(r *Resolver) error {
	if err := p.ref.resolve(r); err != nil {
		return err
	}
	if p.byRef {
		p.ref.typ = NewPointerType(p.ref.typ)
	}
	return nil
}

func (p *Parameter) Lookup(path string) (Variable, error) { return lookupVariable(p, path) }

func (p *Parameter) EmitLoadAddress(e Emitter, frame Frame) error {
	offset := 2
	for i := frame.ArgumentCount() - 1; i > p.index; i-- {
		offset += frame.Argument(i).Size()
	}
	e.LdBP()
	e.Push(offset)
	e.Add()
	if p.byRef {
		e.LdPtr(p.Size())
	}
	return nil
}

func (p *Parameter) EmitLoad(e Emitter, frame Frame) error {
	if err := p.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.LdPtr(p.Size())
	return nil
}

func (p *Parameter) EmitStore(e Emitter, frame Frame) error {
	if err := p.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.StPtr(p.Size())
	return nil
}

// Local is a routine-local variable below the frame base pointer. Its offset
// is the sum of the sizes of the locals declared up to and including itself.
// The optional initializer is pushed once per word at frame entry; without
// one the space is merely reserved.
type Local struct {
	ref     typeRef
	name    string
	initial *int
}

func NewLocal(typeName string, name string, initial *int) *Local {
	return &Local{ref: typeRefNamed(typeName), name: name, initial: initial}
}

func (l *Local) Name() string { return l.name }
func (l *Local) Type() Type { return l.ref.typ }
func (l *Local) ByRef() bool { return false }
func (l *Local) InitialValue() *int { return l.initial }

func (l *Local) Size() int {
	if l.ref.typ == nil {
		return 0
	}
	return l.ref.typ.Size()
}

func (l *Local) Resolve(r *Resolver) error { return l.ref.resolve(r) }

func (l *Local) Lookup(path string) (Variable, error) { return lookupVariable(l, path) }

func (l *Local) EmitLoadAddress(e Emitter, frame Frame) error {
	offset := 0
	for i := 0; i < frame.LocalCount(); i++ {
		local := frame.Local(i)
		offset += local.Size()
		if local == l {
			break
		}
	}
	e.LdBP()
	e.Push(offset)
	e.Sub()
	return nil
}

func (l *Local) EmitLoad(e Emitter, frame Frame) error {
	if err := l.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.LdPtr(l.Size())
	return nil
}

func (l *Local) EmitStore(e Emitter, frame Frame) error {
	if err := l.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.StPtr(l.Size())
	return nil
}

// ReturnVariable is the caller-reserved return slot sitting past the
// arguments at BP+2+Σargs. For Void it is empty and loads and stores are
// no-ops.
type ReturnVariable struct {
	typ Type
}

func NewReturnVariable(typ Type) *ReturnVariable {
	return &ReturnVariable{typ: typ}
}

func (v *ReturnVariable) Name() string { return "" }
func (v *ReturnVariable) Type() Type { return v.typ }
func (v *ReturnVariable) ByRef() bool { return false }
func (v *ReturnVariable) Size() int { return v.typ.Size() }

func (v *ReturnVariable) Lookup(path string) (Variable, error) { return lookupVariable(v, path) }

func (v *ReturnVariable) EmitLoadAddress(e Emitter, frame Frame) error {
	offset := 2
	for i := 0; i < frame.ArgumentCount(); i++ {
		offset += frame.Argument(i).Size()
	}
	e.LdBP()
	e.Push(offset)
	e.Add()
	return nil
}

func (v *ReturnVariable) EmitLoad(e Emitter, frame Frame) error {
	if v.Size() == 0 {
		return nil
	}
	if err := v.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.LdPtr(v.Size())
	return nil
}

func (v *ReturnVariable) EmitStore(e Emitter, frame Frame) error {
	if v.Size() == 0 {
		return nil
	}
	if err := v.EmitLoadAddress(e, frame); err != nil {
		return err
	}
	e.StPtr(v.Size())
	return nil
}
