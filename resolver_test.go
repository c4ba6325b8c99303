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
	"strings"
	"testing"
)

func unoptimizedEmitter() *URCLEmitter {
	emit := NewURCLEmitter()
	emit.Optimize = false
	return emit
}

func emittedLines(e *URCLEmitter) []string {
	var lines []string
	for _, inst := range e.Instructions() {
		lines = append(lines, strings.Join(inst, " "))
	}
	return lines
}

func containsLine(lines []string, want string) bool {
	for _, line := range lines {
		if line == want {
			return true
		}
	}
	return false
}

// Parameters are laid out right to left: the last parameter sits at BP+2 and
// each earlier one is further up by the sizes of the parameters after it.
func TestParameterFrameOffsets(t *testing.T) {
	resolver := NewResolver(DefaultTypes(), nil)
	args := []*Parameter{
		NewParameter("Integer", false, "a", 0),
		NewParameter("Integer", false, "b", 1),
		NewParameter("Integer", false, "c", 2),
	}
	function := NewFunction("F", args, "Integer", nil)
	if err := function.Resolve(resolver); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		param  int
		offset string
	}{
		{0, "psh 4"},
		{1, "psh 3"},
		{2, "psh 2"},
	}
	for _, tt := range tests {
		emit := unoptimizedEmitter()
		if err := function.Argument(tt.param).EmitLoadAddress(emit, function); err != nil {
			t.Fatal(err)
		}
		lines := emittedLines(emit)
		if !containsLine(lines, "psh R3") {
			t.Errorf("parameter %d address does not start from BP: %v", tt.param, lines)
		}
		if !containsLine(lines, tt.offset) {
			t.Errorf("parameter %d address lines = %v, want %q", tt.param, lines, tt.offset)
		}
	}
}

// The return slot sits past all the arguments at BP+2+Σargs.
func TestReturnSlotOffset(t *testing.T) {
	resolver := NewResolver(DefaultTypes(), nil)
	args := []*Parameter{
		NewParameter("Integer", false, "a", 0),
		NewParameter("Integer", false, "b", 1),
	}
	function := NewFunction("F", args, "Integer", nil)
	if err := function.Resolve(resolver); err != nil {
		t.Fatal(err)
	}
	ret, err := resolver.TypeByName("Integer")
	if err != nil {
		t.Fatal(err)
	}
	emit := unoptimizedEmitter()
	if err := NewReturnVariable(ret).EmitLoadAddress(emit, function); err != nil {
		t.Fatal(err)
	}
	if !containsLine(emittedLines(emit), "psh 4") {
		t.Errorf("return slot lines = %v, want psh 4", emittedLines(emit))
	}
}

// Local offsets accumulate left to right below BP.
func TestLocalFrameOffsets(t *testing.T) {
	resolver := NewResolver(DefaultTypes(), nil)
	first := NewLocal("Integer", "x", nil)
	second := NewLocal("Integer", "y", nil)
	sub := NewSubRoutine("S", nil, []Statement{
		NewLocalStatement(first),
		NewLocalStatement(second),
	})
	if err := sub.Resolve(resolver); err != nil {
		t.Fatal(err)
	}
	emit := unoptimizedEmitter()
	if err := second.EmitLoadAddress(emit, sub); err != nil {
		t.Fatal(err)
	}
	lines := emittedLines(emit)
	if !containsLine(lines, "psh 2") {
		t.Errorf("local y lines = %v, want psh 2", lines)
	}
	if !containsLine(lines, "sub R1 R1 R2") {
		t.Errorf("local address is not below BP: %v", lines)
	}
}

// A ByRef parameter resolves to pointer-to-T and its address computation
// dereferences once.
func TestByRefParameter(t *testing.T) {
	resolver := NewResolver(DefaultTypes(), nil)
	param := NewParameter("Integer", true, "v", 0)
	sub := NewSubRoutine("S", []*Parameter{param}, nil)
	if err := sub.Resolve(resolver); err != nil {
		t.Fatal(err)
	}
	if param.Type().Name() != "Integer*" {
		t.Errorf("resolved type = %q, want %q", param.Type().Name(), "Integer*")
	}
	emit := unoptimizedEmitter()
	if err := param.EmitLoadAddress(emit, sub); err != nil {
		t.Fatal(err)
	}
	if !containsLine(emittedLines(emit), "lod R1 R1") {
		t.Errorf("by-reference address lines = %v, want a dereference", emittedLines(emit))
	}
}

func TestFieldPathLookup(t *testing.T) {
	point := NewComplexType("Point", []*Field{
		NewField("Integer", "X", 0),
		NewField("Integer", "Y", 1),
	})
	resolver := NewResolver(append(DefaultTypes(), point), nil)
	if err := resolver.ResolveSelf(); err != nil {
		t.Fatal(err)
	}
	sub := NewSubRoutine("S", []*Parameter{NewParameter("Point", false, "p", 0)}, nil)
	if err := sub.Resolve(resolver); err != nil {
		t.Fatal(err)
	}
	variable, err := sub.Lookup("p.Y")
	if err != nil {
		t.Fatal(err)
	}
	field, ok := variable.(*Field)
	if !ok {
		t.Fatalf("got %T, want *Field", variable)
	}
	if field.Offset() != 1 {
		t.Errorf("Offset() = %d, want 1", field.Offset())
	}
	if field.Type().Name() != "Integer" {
		t.Errorf("field type = %q, want Integer", field.Type().Name())
	}

	if _, err := sub.Lookup("q"); err == nil {
		t.Error("expected an undefined variable error")
	}
	if _, err := sub.Lookup("p.Z"); err == nil {
		t.Error("expected an undefined variable error for a missing field")
	}
}

func TestAddressOf(t *testing.T) {
	resolver := NewResolver(DefaultTypes(), nil)
	sub := NewSubRoutine("S", []*Parameter{NewParameter("Integer", false, "a", 0)}, nil)
	if err := sub.Resolve(resolver); err != nil {
		t.Fatal(err)
	}
	call := NewCallExpression("AddressOf", []Expression{NewVariableExpression("a")})
	if err := call.Resolve(resolver, sub); err != nil {
		t.Fatal(err)
	}
	typ, err := call.ResultType()
	if err != nil {
		t.Fatal(err)
	}
	if typ.Name() != "Integer*" {
		t.Errorf("result type = %q, want %q", typ.Name(), "Integer*")
	}
	emit := unoptimizedEmitter()
	if err := call.Emit(emit, sub); err != nil {
		t.Fatal(err)
	}
	lines := emittedLines(emit)
	if !containsLine(lines, "psh 2") {
		t.Errorf("address lines = %v, want the parameter offset", lines)
	}
	if containsLine(lines, "lod R1 R1") {
		t.Errorf("address-of must not load the value: %v", lines)
	}
}

func TestAddressOfRejectsNonVariables(t *testing.T) {
	resolver := NewResolver(DefaultTypes(), nil)
	sub := NewSubRoutine("S", nil, nil)
	call := NewCallExpression("ADDRESSOF", []Expression{NewConstantExpression(1, "Integer")})
	if err := call.Resolve(resolver, sub); err != nil {
		t.Fatal(err)
	}
	err := call.Emit(unoptimizedEmitter(), sub)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "address") {
		t.Errorf("error = %q, want mention of the missing address", err)
	}
}

// Inline bodies splice into the caller with no label, call, or frame.
func TestInlineBodySplicing(t *testing.T) {
	body := binaryIntrinsic("__ADD_Integer_Integer", &SignedInteger{}, "add")
	emit := unoptimizedEmitter()
	if err := body.Emit(emit); err != nil {
		t.Fatal(err)
	}
	lines := emittedLines(emit)
	if !containsLine(lines, "pop R2") || !containsLine(lines, "add R1 R1 R2") {
		t.Errorf("inline body lines = %v", lines)
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "cal") || line == ".__ADD_Integer_Integer" {
			t.Errorf("inline body emitted call machinery: %v", lines)
		}
	}
}
