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
	"testing"
)

func TestParseExpressionConstant(t *testing.T) {
	expr, err := parseExpression("42")
	if err != nil {
		t.Fatal(err)
	}
	constant, ok := expr.(*ConstantExpression)
	if !ok {
		t.Fatalf("got %T, want *ConstantExpression", expr)
	}
	if constant.Value() != 42 {
		t.Errorf("Value() = %d, want 42", constant.Value())
	}
}

func TestParseExpressionVariablePath(t *testing.T) {
	expr, err := parseExpression("point.X")
	if err != nil {
		t.Fatal(err)
	}
	variable, ok := expr.(*VariableExpression)
	if !ok {
		t.Fatalf("got %T, want *VariableExpression", expr)
	}
	if variable.Name() != "point.X" {
		t.Errorf("Name() = %q, want %q", variable.Name(), "point.X")
	}
}

func TestParseExpressionBinaryOperators(t *testing.T) {
	tests := []string{"a + b", "a - b", "a * b", "a / b", "a << b", "a >> b", "a AND b", "a OR b", "a XOR b"}
	for _, source := range tests {
		t.Run(source, func(t *testing.T) {
			expr, err := parseExpression(source)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := expr.(*BinaryOperandExpression); !ok {
				t.Errorf("got %T, want *BinaryOperandExpression", expr)
			}
		})
	}
}

// All operators share one precedence level and bind to the right.
func TestParseExpressionRightAssociative(t *testing.T) {
	expr, err := parseExpression("a - b - c")
	if err != nil {
		t.Fatal(err)
	}
	outer, ok := expr.(*BinaryOperandExpression)
	if !ok {
		t.Fatalf("got %T, want *BinaryOperandExpression", expr)
	}
	left, ok := outer.exprA.(*VariableExpression)
	if !ok {
		t.Fatalf("left operand is %T, want *VariableExpression", outer.exprA)
	}
	if left.Name() != "a" {
		t.Errorf("left operand = %q, want %q", left.Name(), "a")
	}
	if _, ok := outer.exprB.(*BinaryOperandExpression); !ok {
		t.Errorf("right operand is %T, want the nested subtraction", outer.exprB)
	}
}

func TestParseExpressionCall(t *testing.T) {
	expr, err := parseExpression("Add(a, 2)")
	if err != nil {
		t.Fatal(err)
	}
	call, ok := expr.(*CallExpression)
	if !ok {
		t.Fatalf("got %T, want *CallExpression", expr)
	}
	if call.TargetName() != "Add" {
		t.Errorf("TargetName() = %q, want %q", call.TargetName(), "Add")
	}
	if len(call.args) != 2 {
		t.Fatalf("got %d arguments, want 2", len(call.args))
	}
	first, ok := call.args[0].(*VariableExpression)
	if !ok || first.Name() != "a" {
		t.Errorf("first argument = %#v, want variable a", call.args[0])
	}
	second, ok := call.args[1].(*ConstantExpression)
	if !ok || second.Value() != 2 {
		t.Errorf("second argument = %#v, want constant 2", call.args[1])
	}
}

func TestParseExpressionEmptyCall(t *testing.T) {
	expr, err := parseExpression("Tick()")
	if err != nil {
		t.Fatal(err)
	}
	call, ok := expr.(*CallExpression)
	if !ok {
		t.Fatalf("got %T, want *CallExpression", expr)
	}
	if len(call.args) != 0 {
		t.Errorf("got %d arguments, want 0", len(call.args))
	}
}

func TestParseExpressionNestedCalls(t *testing.T) {
	expr, err := parseExpression("Outer(Inner(x), y)")
	if err != nil {
		t.Fatal(err)
	}
	outer, ok := expr.(*CallExpression)
	if !ok {
		t.Fatalf("got %T, want *CallExpression", expr)
	}
	if len(outer.args) != 2 {
		t.Fatalf("got %d arguments, want 2", len(outer.args))
	}
	inner, ok := outer.args[0].(*CallExpression)
	if !ok || inner.TargetName() != "Inner" {
		t.Errorf("first argument = %#v, want the inner call", outer.args[0])
	}
}

func TestParseExpressionCast(t *testing.T) {
	expr, err := parseExpression("1 AS UInteger")
	if err != nil {
		t.Fatal(err)
	}
	cast, ok := expr.(*CastExpression)
	if !ok {
		t.Fatalf("got %T, want *CastExpression", expr)
	}
	if cast.target.name != "UInteger" {
		t.Errorf("cast target = %q, want %q", cast.target.name, "UInteger")
	}
}

func TestParseExpressionCastRequiresIdentifier(t *testing.T) {
	if _, err := parseExpression("1 AS 2"); err == nil {
		t.Error("expected an error for a non-identifier cast target")
	}
}

func TestParseExpressionErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing close paren", "(a + b"},
		{"missing open paren", "a + b)"},
		{"two values", "a b"},
		{"dangling operator", "a +"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseExpression(tt.source); err == nil {
				t.Errorf("parseExpression(%q) succeeded, want error", tt.source)
			}
		})
	}
}

func TestOperatorTable(t *testing.T) {
	for token, op := range operators {
		if op.precedence != 0 {
			t.Errorf("operator %q has precedence %d, want 0", token, op.precedence)
		}
		if op.leftAssoc {
			t.Errorf("operator %q is left-associative, want right", token)
		}
		if op.arity != 2 {
			t.Errorf("operator %q has arity %d, want 2", token, op.arity)
		}
	}
}
