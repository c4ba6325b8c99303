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

// Expression is a value-producing tree node. Emit pushes the value of the
// expression onto the operand stack.
type Expression interface {
	Resolve(r *Resolver, frame Frame) error
	ResultType() (Type, error)
	Emit(e Emitter, frame Frame) error
}

var errUnresolvedExpression = errors.New("expression has not been resolved")

// VoidExpression is the empty expression of a bare Return.
type VoidExpression struct{}

func (VoidExpression) Resolve(*Resolver, Frame) error { return nil }
func (VoidExpression) ResultType() (Type, error) { return Void, nil }
func (VoidExpression) Emit(Emitter, Frame) error { return nil }

// ConstantExpression is an integer literal.
type ConstantExpression struct {
	value int
	ref   typeRef
}

func NewConstantExpression(value int, typeName string) *ConstantExpression {
	return &ConstantExpression{value: value, ref: typeRefNamed(typeName)}
}

func (c *ConstantExpression) Value() int { return c.value }

func (c *ConstantExpression) Resolve(r *Resolver, frame Frame) error {
	return c.ref.resolve(r)
}

func (c *ConstantExpression) ResultType() (Type, error) {
	if c.ref.typ == nil {
		return nil, errUnresolvedExpression
	}
	return c.ref.typ, nil
}

func (c *ConstantExpression) Emit(e Emitter, frame Frame) error {
	e.Push(c.value)
	return nil
}

// VariableExpression names a parameter, local, or dotted field path. The
// resolver patches the name to a concrete variable.
type VariableExpression struct {
	name   string
	target Variable
}

func NewVariableExpression(name string) *VariableExpression {
	return &VariableExpression{name: name}
}

func (v *VariableExpression) Name() string {
	if v.target != nil {
		return v.target.Name()
	}
	return v.name
}

func (v *VariableExpression) Variable() (Variable, error) {
	if v.target == nil {
		return nil, errUnresolvedExpression
	}
	return v.target, nil
}

func (v *VariableExpression) Resolve(r *Resolver, frame Frame) error {
	if v.target != nil {
		return nil
	}
	target, err := frame.Lookup(v.name)
	if err != nil {
		return err
	}
	v.target = target
	return nil
}

func (v *VariableExpression) ResultType() (Type, error) {
	if v.target == nil {
		return nil, errUnresolvedExpression
	}
	return v.target.Type(), nil
}

func (v *VariableExpression) Emit(e Emitter, frame Frame) error {
	if v.target == nil {
		return errUnresolvedExpression
	}
	return v.target.EmitLoad(e, frame)
}

// UnaryOperandExpression applies an operator to one operand. Resolution
// rewrites it into a call to the mangled intrinsic for the operand type.
type UnaryOperandExpression struct {
	operator string
	expr     Expression
	call     *CallExpression
}

func NewUnaryOperandExpression(operator string, expr Expression) *UnaryOperandExpression {
	return &UnaryOperandExpression{operator: operator, expr: expr}
}

func (u *UnaryOperandExpression) OperationName() (string, error) {
	typ, err := u.expr.ResultType()
	if err != nil {
		return "", err
	}
	op, ok := operators[strings.ToUpper(u.operator)]
	if !ok {
		return "", fmt.Errorf("unknown operator %q", u.operator)
	}
	return strings.ReplaceAll(op.template, "TYPE1", typ.Name()), nil
}

func (u *UnaryOperandExpression) Resolve(r *Resolver, frame Frame) error {
	if err := u.expr.Resolve(r, frame); err != nil {
		return err
	}
	name, err := u.OperationName()
	if err != nil {
		return err
	}
	u.call = NewCallExpression(name, []Expression{u.expr})
	return u.call.Resolve(r, frame)
}

func (u *UnaryOperandExpression) ResultType() (Type, error) {
	if u.call == nil {
		return nil, errUnresolvedExpression
	}
	return u.call.ResultType()
}

func (u *UnaryOperandExpression) Emit(e Emitter, frame Frame) error {
	if u.call == nil {
		return errUnresolvedExpression
	}
	return u.call.Emit(e, frame)
}

// BinaryOperandExpression applies an operator to two operands. Resolution
// rewrites it into a call to the mangled intrinsic for the operand types, so
// an operator is "defined" exactly when its intrinsic is registered.
type BinaryOperandExpression struct {
	operator string
	exprA    Expression
	exprB    Expression
	call     *CallExpression
}

func NewBinaryOperandExpression(operator string, exprA, exprB Expression) *BinaryOperandExpression {
	return &BinaryOperandExpression{operator: operator, exprA: exprA, exprB: exprB}
}

func (b *BinaryOperandExpression) OperationName() (string, error) {
	typeA, err := b.exprA.ResultType()
	if err != nil {
		return "", err
	}
	typeB, err := b.exprB.ResultType()
	if err != nil {
		return "", err
	}
	op, ok := operators[strings.ToUpper(b.operator)]
	if !ok {
		return "", fmt.Errorf("unknown operator %q", b.operator)
	}
	name := strings.ReplaceAll(op.template, "TYPE1", typeA.Name())
	return strings.ReplaceAll(name, "TYPE2", typeB.Name()), nil
}

func (b *BinaryOperandExpression) Resolve(r *Resolver, frame Frame) error {
	if err := b.exprA.Resolve(r, frame); err != nil {
		return err
	}
	if err := b.exprB.Resolve(r, frame); err != nil {
		return err
	}
	name, err := b.OperationName()
	if err != nil {
		return err
	}
	b.call = NewCallExpression(name, []Expression{b.exprA, b.exprB})
	return b.call.Resolve(r, frame)
}

func (b *BinaryOperandExpression) ResultType() (Type, error) {
	if b.call == nil {
		return nil, errUnresolvedExpression
	}
	return b.call.ResultType()
}

func (b *BinaryOperandExpression) Emit(e Emitter, frame Frame) error {
	if b.call == nil {
		return errUnresolvedExpression
	}
	return b.call.Emit(e, frame)
}

// CastExpression converts a value to a named target type via the mangled
// __CAST_From_To intrinsic.
type CastExpression struct {
	target typeRef
	expr   Expression
	call   *CallExpression
}

func NewCastExpression(typeName string, expr Expression) *CastExpression {
	return &CastExpression{target: typeRefNamed(typeName), expr: expr}
}

func (c *CastExpression) OperationName() (string, error) {
	from, err := c.expr.ResultType()
	if err != nil {
		return "", err
	}
	if c.target.typ == nil {
		return "", errUnresolvedExpression
	}
	return fmt.Sprintf("__CAST_%s_%s", from.Name(), c.target.typ.Name()), nil
}

func (c *CastExpression) Resolve(r *Resolver, frame Frame) error {
	if err := c.target.resolve(r); err != nil {
		return err
	}
	if err := c.expr.Resolve(r, frame); err != nil {
		return err
	}
	name, err := c.OperationName()
	if err != nil {
		return err
	}
	c.call = NewCallExpression(name, []Expression{c.expr})
	return c.call.Resolve(r, frame)
}

func (c *CastExpression) ResultType() (Type, error) {
	if c.call == nil {
		return nil, errUnresolvedExpression
	}
	return c.call.ResultType()
}

func (c *CastExpression) Emit(e Emitter, frame Frame) error {
	if c.call == nil {
		return errUnresolvedExpression
	}
	return c.call.Emit(e, frame)
}

// CallExpression invokes a callable with evaluated arguments. ADDRESSOF is a
// reserved pseudo-call that never resolves to a callable: its single operand
// must be a variable expression and it produces the variable's address.
type CallExpression struct {
	targetName string
	target     Callable
	addressOf  bool
	args       []Expression
}

func NewCallExpression(targetName string, args []Expression) *CallExpression {
	return &CallExpression{
		targetName: targetName,
		addressOf:  strings.ToUpper(targetName) == "ADDRESSOF",
		args:       args,
	}
}

func (c *CallExpression) TargetName() string {
	if c.target != nil {
		return c.target.Name()
	}
	return c.targetName
}

func (c *CallExpression) Resolve(r *Resolver, frame Frame) error {
	for _, arg := range c.args {
		if err := arg.Resolve(r, frame); err != nil {
			return err
		}
	}
	if c.target == nil && !c.addressOf {
		target, err := r.Function(c.targetName)
		if err != nil {
			return err
		}
		c.target = target
	}
	return nil
}

func (c *CallExpression) ResultType() (Type, error) {
	if c.addressOf {
		return c.addressOfType()
	}
	if c.target == nil {
		return nil, errors.New("function is not resolved")
	}
	return c.target.ReturnType(), nil
}

func (c *CallExpression) addressOfType() (Type, error) {
	if len(c.args) == 0 {
		return NewPointerType(Void), nil
	}
	typ, err := c.args[0].ResultType()
	if err != nil {
		return nil, err
	}
	return NewPointerType(typ), nil
}

func (c *CallExpression) Emit(e Emitter, frame Frame) error {
	if c.addressOf {
		if len(c.args) != 1 {
			return errors.New(`expected 1 operand for "ADDRESSOF" operator`)
		}
		expr, ok := c.args[0].(*VariableExpression)
		if !ok {
			return errors.New("expression does not have an address")
		}
		target, err := expr.Variable()
		if err != nil {
			return err
		}
		return target.EmitLoadAddress(e, frame)
	}
	if c.target == nil {
		return errors.New("function is not resolved")
	}
	if c.target.Inline() {
		for _, arg := range c.args {
			if err := arg.Emit(e, frame); err != nil {
				return err
			}
		}
		return c.target.Emit(e)
	}
	// The return slot is reserved before any argument is evaluated so the
	// argument offsets seen by the callee stay stable.
	if size := c.target.ReturnType().Size(); size > 0 {
		e.AddSP(size)
	}
	size := 0
	for _, arg := range c.args {
		if err := arg.Emit(e, frame); err != nil {
			return err
		}
		typ, err := arg.ResultType()
		if err != nil {
			return err
		}
		size += typ.Size()
	}
	e.Call(c.target.Name())
	if size > 0 {
		e.RemSP(size)
	}
	return nil
}
