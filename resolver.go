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
)

// Resolver ties textual type and function names to concrete entities. It is
// used in two phases: first every declared type and callable is registered,
// then each declaration is walked and its name references are patched to the
// registered objects. After resolution the IR is read-only.
type Resolver struct {
	types     []Type
	functions map[string]Callable
}

func NewResolver(types []Type, functions []Callable) *Resolver {
	r := &Resolver{types: types, functions: make(map[string]Callable, len(functions))}
	for _, function := range functions {
		r.functions[function.Name()] = function
	}
	return r
}

// ResolveSelf resolves every registered type against the resolver itself.
func (r *Resolver) ResolveSelf() error {
	for _, typ := range r.types {
		if err := typ.Resolve(r); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the canonical type for a fresh type object, registering it
// if no type of that name is known yet.
func (r *Resolver) Resolve(typ Type) Type {
	for _, other := range r.types {
		if other.Name() == typ.Name() {
			return typ
		}
	}
	r.types = append(r.types, typ)
	return typ
}

// DefineFunction registers a callable after construction.
func (r *Resolver) DefineFunction(function Callable) {
	r.functions[function.Name()] = function
}

// Function returns the callable registered under name. Operator and cast
// intrinsics are looked up here by their mangled names, so a missing
// intrinsic surfaces as an undefined function.
func (r *Resolver) Function(name string) (Callable, error) {
	if function, ok := r.functions[name]; ok {
		return function, nil
	}
	return nil, fmt.Errorf("Undefined function %q.", name)
}

// TypeByName returns the type registered under name. Names with a trailing
// star resolve recursively to pointer types.
func (r *Resolver) TypeByName(name string) (Type, error) {
	if strings.HasSuffix(name, "*") {
		referenced, err := r.TypeByName(strings.TrimSuffix(name, "*"))
		if err != nil {
			return nil, err
		}
		return NewPointerType(referenced), nil
	}
	for _, typ := range r.types {
		if typ.Name() == name {
			return typ, nil
		}
	}
	return nil, fmt.Errorf("Undefined type %q.", name)
}
