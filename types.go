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
	"github.com/samber/lo"
)

// Type is a source-language type. Sizes are measured in machine words.
type Type interface {
	Name() string
	Size() int
	Resolve(r *Resolver) error
}

// Primitive is a single-word type with a signedness.
type Primitive interface {
	Type
	Signed() bool
}

// TypeEqual reports whether two types are the same under the language's
// equality rules: primitives by tag, pointers by referenced type, complex
// types by name. Canonical names encode all three, so name comparison is
// sufficient.
func TypeEqual(a, b Type) bool {
	return a != nil && b != nil && a.Name() == b.Name()
}

// EmptyType is a zero-sized type. The only instance is Void.
type EmptyType struct {
	name string
}

// Void is the return type of subroutines and of empty return statements.
var Void Type = &EmptyType{name: "Void"}

func (t *EmptyType) Name() string { return t.name }
func (t *EmptyType) Size() int { return 0 }
func (t *EmptyType) Resolve(*Resolver) error { return nil }

// SignedInteger is the one-word signed integer type "Integer".
type SignedInteger struct{}

func (*SignedInteger) Name() string { return "Integer" }
func (*SignedInteger) Size() int { return 1 }
func (*SignedInteger) Signed() bool { return true }
func (*SignedInteger) Resolve(*Resolver) error { return nil }

// UnsignedInteger is the one-word unsigned integer type "UInteger".
type UnsignedInteger struct{}

func (*UnsignedInteger) Name() string { return "UInteger" }
func (*UnsignedInteger) Size() int { return 1 }
func (*UnsignedInteger) Signed() bool { return false }
func (*UnsignedInteger) Resolve(*Resolver) error { return nil }

// PointerType is a one-word unsigned pointer to a referenced type. Its name
// is the referenced type's name with a trailing star, which is also the form
// the resolver parses.
type PointerType struct {
	referenced Type
}

func NewPointerType(referenced Type) *PointerType {
	return &PointerType{referenced: referenced}
}

func (t *PointerType) Name() string { return t.referenced.Name() + "*" }
func (t *PointerType) Size() int { return 1 }
func (t *PointerType) Signed() bool { return false }
func (t *PointerType) Referenced() Type { return t.referenced }

func (t *PointerType) Resolve(r *Resolver) error {
	t.referenced = r.Resolve(t.referenced)
	return nil
}

// ComplexType is a structure type. Its size is the sum of its field sizes and
// field offsets accumulate in declaration order.
type ComplexType struct {
	name   string
	fields []*Field
}

func NewComplexType(name string, fields []*Field) *ComplexType {
	return &ComplexType{name: name, fields: fields}
}

func (t *ComplexType) Name() string { return t.name }

func (t *ComplexType) Size() int {
	return lo.SumBy(t.fields, func(f *Field) int { return f.Size() })
}

func (t *ComplexType) Fields() []*Field { return t.fields }

// FieldByName returns a copy of the named field anchored at relativeTo, or
// nil if the structure has no such field.
func (t *ComplexType) FieldByName(name string, relativeTo Variable) *Field {
	offset := 0
	for _, f := range t.fields {
		if f.name == name {
			return &Field{relativeTo: relativeTo, ref: f.ref, name: f.name, index: f.index, offset: offset}
		}
		offset += f.Size()
	}
	return nil
}

// FieldOffset returns the word offset of the named field.
func (t *ComplexType) FieldOffset(name string) (int, bool) {
	offset := 0
	for _, f := range t.fields {
		if f.name == name {
			return offset, true
		}
		offset += f.Size()
	}
	return 0, false
}

func (t *ComplexType) Resolve(r *Resolver) error {
	for _, f := range t.fields {
		if err := f.ref.resolve(r); err != nil {
			return err
		}
	}
	return nil
}

// typeRef is a type reference that starts as a textual name and is patched
// to a concrete type by the resolver.
type typeRef struct {
	name string
	typ  Type
}

func typeRefOf(t Type) typeRef { return typeRef{typ: t} }
func typeRefNamed(name string) typeRef { return typeRef{name: name} }

func (t *typeRef) resolve(r *Resolver) error {
	if t.typ != nil {
		t.typ = r.Resolve(t.typ)
		return nil
	}
	typ, err := r.TypeByName(t.name)
	if err != nil {
		return err
	}
	t.typ = typ
	return nil
}
