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
	"strings"

	"github.com/samber/lo"
)

// Frame is the view of a callable that variable emission needs: argument and
// local layout, the return type, and name lookup within the scope.
type Frame interface {
	Name() string
	ArgumentCount() int
	Argument(i int) *Parameter
	LocalCount() int
	Local(i int) *Local
	ReturnType() Type
	Lookup(name string) (Variable, error)
}

// Callable is an invocable entity: a user subroutine or function, or a
// built-in inline body spliced at the call site.
type Callable interface {
	Frame
	Inline() bool
	ArgumentsSize() int
	LocalsSize() int
	Body() []Statement
	Resolve(r *Resolver) error
	Emit(e Emitter) error
}

// routine carries the state shared by subroutines and functions.
type routine struct {
	name string
	args []*Parameter
	body []Statement
}

func (r *routine) Name() string { return r.name }
func (r *routine) ArgumentCount() int { return len(r.args) }
func (r *routine) Argument(i int) *Parameter { return r.args[i] }
func (r *routine) Body() []Statement { return r.body }

func (r *routine) ArgumentsSize() int {
	return lo.SumBy(r.args, func(p *Parameter) int { return p.Size() })
}

func (r *routine) locals() []*Local {
	return lo.FlatMap(r.body, func(s Statement, _ int) []*Local { return s.Locals() })
}

func (r *routine) LocalCount() int { return len(r.locals()) }

func (r *routine) Local(i int) *Local { return r.locals()[i] }

func (r *routine) LocalsSize() int {
	return lo.SumBy(r.locals(), func(l *Local) int { return l.Size() })
}

// lookup finds a local or argument by the head of a dotted path and chases
// the remaining path through its fields.
func (r *routine) lookup(name string) (Variable, error) {
	head, rest, _ := strings.Cut(name, ".")
	for _, local := range r.locals() {
		if local.Name() == head {
			return local.Lookup(rest)
		}
	}
	for _, arg := range r.args {
		if arg.Name() == head {
			return arg.Lookup(rest)
		}
	}
	return nil, fmt.Errorf("Undefined variable %q.", name)
}

func (r *routine) resolve(res *Resolver, self Callable) error {
	for _, arg := range r.args {
		if err := arg.Resolve(res); err != nil {
			return err
		}
	}
	for _, statement := range r.body {
		if err := statement.Resolve(res, self); err != nil {
			return err
		}
	}
	return nil
}

// emit writes the frame prologue, the body, the shared epilogue label, and
// the frame teardown. Locals with an initializer have the value pushed once
// per word; others only have their space reserved.
func (r *routine) emit(e Emitter, self Callable) error {
	e.MarkLabel(e.CreateLabel(r.name))
	e.LdBP()
	e.LdSP()
	e.StBP()
	for _, local := range r.locals() {
		if value := local.InitialValue(); value == nil {
			e.AddSP(local.Size())
		} else {
			for i := 0; i < local.Size(); i++ {
				e.Push(*value)
			}
		}
	}
	for _, statement := range r.body {
		if err := statement.Emit(e, self); err != nil {
			return err
		}
	}
	e.MarkLabel(e.CreateLabel(fmt.Sprintf("__%s__return", r.name)))
	e.LdBP()
	e.StSP()
	e.StBP()
	e.Ret()
	return nil
}

// SubRoutine is a callable with no return value.
type SubRoutine struct {
	routine
}

func NewSubRoutine(name string, args []*Parameter, body []Statement) *SubRoutine {
	return &SubRoutine{routine: routine{name: name, args: args, body: body}}
}

func (s *SubRoutine) Inline() bool { return false }
func (s *SubRoutine) ReturnType() Type { return Void }

func (s *SubRoutine) Lookup(name string) (Variable, error) { return s.lookup(name) }

func (s *SubRoutine) Resolve(r *Resolver) error { return s.resolve(r, s) }

func (s *SubRoutine) Emit(e Emitter) error { return s.emit(e, s) }

// Function is a callable with a declared return type.
type Function struct {
	routine
	ret typeRef
}

func NewFunction(name string, args []*Parameter, returnTypeName string, body []Statement) *Function {
	return &Function{
		routine: routine{name: name, args: args, body: body},
		ret:     typeRefNamed(returnTypeName),
	}
}

func (f *Function) Inline() bool { return false }

func (f *Function) ReturnType() Type { return f.ret.typ }

func (f *Function) Lookup(name string) (Variable, error) { return f.lookup(name) }

func (f *Function) Resolve(r *Resolver) error {
	if err := f.ret.resolve(r); err != nil {
		return err
	}
	return f.resolve(r, f)
}

func (f *Function) Emit(e Emitter) error { return f.emit(e, f) }

// InlineBody is a built-in callable with no frame of its own. Its body,
// typically raw assembly, is spliced directly into the caller's stream with
// no call, no prologue, and no label. The operator and cast intrinsics are
// all inline bodies.
type InlineBody struct {
	name string
	ret  typeRef
	body []Statement
}

func NewInlineBody(name string, returnType Type, body []Statement) *InlineBody {
	return &InlineBody{name: name, ret: typeRefOf(returnType), body: body}
}

func (b *InlineBody) Name() string { return b.name }
func (b *InlineBody) Inline() bool { return true }
func (b *InlineBody) ArgumentCount() int { return 0 }
func (b *InlineBody) Argument(i int) *Parameter { return nil }
func (b *InlineBody) ArgumentsSize() int { return 0 }
func (b *InlineBody) LocalCount() int { return 0 }
func (b *InlineBody) Local(i int) *Local { return nil }
func (b *InlineBody) LocalsSize() int { return 0 }
func (b *InlineBody) ReturnType() Type { return b.ret.typ }
func (b *InlineBody) Body() []Statement { return b.body }

func (b *InlineBody) Lookup(name string) (Variable, error) {
	return nil, fmt.Errorf("Undefined variable %q.", name)
}

func (b *InlineBody) Resolve(r *Resolver) error {
	if err := b.ret.resolve(r); err != nil {
		return err
	}
	for _, statement := range b.body {
		if err := statement.Resolve(r, b); err != nil {
			return err
		}
	}
	return nil
}

func (b *InlineBody) Emit(e Emitter) error {
	for _, statement := range b.body {
		if err := statement.Emit(e, b); err != nil {
			return err
		}
	}
	return nil
}

// Module is one source file's worth of declarations: its structure types and
// its top-level callables.
type Module struct {
	name  string
	types []Type
	code  []Callable
}

func NewModule(name string, types []Type, code []Callable) *Module {
	return &Module{name: name, types: types, code: code}
}

func (m *Module) Name() string { return m.name }
func (m *Module) Types() []Type { return m.types }
func (m *Module) Code() []Callable { return m.code }

// Resolver builds a resolver over this module's declarations merged with the
// supplied builtins.
func (m *Module) Resolver(additionalTypes []Type, additionalFunctions []Callable) *Resolver {
	types := make([]Type, 0, len(m.types)+len(additionalTypes))
	types = append(types, m.types...)
	types = append(types, additionalTypes...)
	code := make([]Callable, 0, len(m.code)+len(additionalFunctions))
	code = append(code, m.code...)
	code = append(code, additionalFunctions...)
	return NewResolver(types, code)
}

func (m *Module) Resolve(r *Resolver) error {
	for _, typ := range m.types {
		if err := typ.Resolve(r); err != nil {
			return err
		}
	}
	for _, code := range m.code {
		if err := code.Resolve(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Emit(e Emitter) error {
	for _, code := range m.code {
		if err := code.Emit(e); err != nil {
			return err
		}
	}
	return nil
}
