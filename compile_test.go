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

func compileSource(t *testing.T, name string, source string) (string, error) {
	t.Helper()
	module, err := ParseModule(name, strings.Split(source, "\n"))
	if err != nil {
		return "", err
	}
	emit := NewURCLEmitter()
	if err := compileModules([]*Module{module}, emit); err != nil {
		return "", err
	}
	var out strings.Builder
	if err := emit.Commit(&out); err != nil {
		return "", err
	}
	return out.String(), nil
}

func mustCompile(t *testing.T, name string, source string) string {
	t.Helper()
	out, err := compileSource(t, name, source)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestCompileEmptyModule(t *testing.T) {
	out := mustCompile(t, "Empty", "\n   \n\n")
	if strings.TrimSpace(out) != "" {
		t.Errorf("empty module produced output:\n%s", out)
	}
}

func TestCompileAddFunction(t *testing.T) {
	out := mustCompile(t, "Math", `
Function Add(a As Integer, b As Integer) As Integer
  Return a + b
End Function
`)
	lines := strings.Split(strings.TrimSpace(out), "\n")

	if !containsLine(lines, ".Add") {
		t.Errorf("output is missing the .Add label:\n%s", out)
	}
	// Parameters load from BP+3 and BP+2, the return slot sits at BP+4, and
	// BP itself lives in R3.
	for _, want := range []string{"add R1 R3 3", "add R1 R3 2", "add R1 R3 4"} {
		if !containsLine(lines, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
	if lines[len(lines)-1] != "ret" {
		t.Errorf("last line = %q, want ret", lines[len(lines)-1])
	}
	for i, line := range lines {
		if strings.HasPrefix(line, "psh ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "pop ") {
			t.Errorf("push/pop pair survived optimization: %q, %q", line, lines[i+1])
		}
		if line == "nop" {
			t.Error("a nop reached the committed output")
		}
	}
}

func TestCompileUndefinedOperatorIntrinsic(t *testing.T) {
	_, err := compileSource(t, "Pointers", `
Function Diff(a As UInteger*, b As UInteger*) As UInteger*
  Return a - b
End Function
`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `Undefined function "__SUB_UInteger*_UInteger*"`) {
		t.Errorf("error = %q, want the mangled intrinsic name", err)
	}
}

func TestCompileReturnTypeMismatch(t *testing.T) {
	_, err := compileSource(t, "Mismatch", `
Function F() As Integer
  Return 1 AS UInteger
End Function
`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "return value does not match function return type") {
		t.Errorf("error = %q, want a return type mismatch", err)
	}
}

// Signed division lowers through the __DIV_Integer_Integer intrinsic, whose
// raw sdiv survives to the output; only a direct div_s on the emitter is
// fatal.
func TestCompileSignedDivision(t *testing.T) {
	out := mustCompile(t, "Signed", `
Function F(a As Integer, b As Integer) As Integer
  Return a / b
End Function
`)
	if !strings.Contains(out, "sdiv R1 R1 R2") {
		t.Errorf("output is missing the relayed sdiv:\n%s", out)
	}
}

func TestCompileCast(t *testing.T) {
	out := mustCompile(t, "Casts", `
Function F(a As Integer) As UInteger
  Return a AS UInteger
End Function
`)
	if !strings.Contains(out, ".F") {
		t.Errorf("output is missing the .F label:\n%s", out)
	}
}

func TestCompileCallSequence(t *testing.T) {
	out := mustCompile(t, "Calls", `
Function Add(a As Integer, b As Integer) As Integer
  Return a + b
End Function

Function Twice(a As Integer) As Integer
  Return Add(a, a)
End Function
`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !containsLine(lines, "cal .Add") {
		t.Errorf("output is missing the call:\n%s", out)
	}
	// Both arguments are discarded in one SP adjustment after the call.
	if !containsLine(lines, "add SP SP 2") {
		t.Errorf("output is missing the argument cleanup:\n%s", out)
	}
}

func TestCompileLocalInitializer(t *testing.T) {
	module, err := ParseModule("Locals", []string{
		"Sub S()",
		"  Dim x As Integer = 7",
		"  Dim y As Integer",
		"End Sub",
	})
	if err != nil {
		t.Fatal(err)
	}
	emit := unoptimizedEmitter()
	if err := compileModules([]*Module{module}, emit); err != nil {
		t.Fatal(err)
	}
	lines := emittedLines(emit)
	if !containsLine(lines, "psh 7") {
		t.Errorf("initialized local was not pushed: %v", lines)
	}
	if !containsLine(lines, "sub SP SP 1") {
		t.Errorf("uninitialized local was not reserved: %v", lines)
	}
}

func TestCompileFieldAssignment(t *testing.T) {
	out := mustCompile(t, "Structs", `
Structure Point
  Dim X As Integer
  Dim Y As Integer
End Structure

Sub SetY(p As Point)
  p.Y = 40 + 2
End Sub
`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !containsLine(lines, ".SetY") {
		t.Errorf("output is missing the .SetY label:\n%s", out)
	}
	if !containsLine(lines, "str R1 R2") {
		t.Errorf("output is missing the field store:\n%s", out)
	}
}

func TestCompileSubHasVoidReturnType(t *testing.T) {
	out := mustCompile(t, "Subs", `
Sub Nothing()
  Return
End Sub
`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !containsLine(lines, ".Nothing") {
		t.Errorf("output is missing the .Nothing label:\n%s", out)
	}
	if lines[len(lines)-1] != "ret" {
		t.Errorf("last line = %q, want ret", lines[len(lines)-1])
	}
}

func TestCompileAsmStatements(t *testing.T) {
	module, err := ParseModule("Raw", []string{
		"Sub Copy(a As Integer)",
		"  Asm Load a",
		"  Asm Exec pop R4",
		"End Sub",
	})
	if err != nil {
		t.Fatal(err)
	}
	emit := unoptimizedEmitter()
	if err := compileModules([]*Module{module}, emit); err != nil {
		t.Fatal(err)
	}
	lines := emittedLines(emit)
	if !containsLine(lines, "pop R4") {
		t.Errorf("output is missing the raw instruction: %v", lines)
	}
	if !containsLine(lines, "lod R1 R1") {
		t.Errorf("output is missing the variable load: %v", lines)
	}
}

func TestCompileCrossModuleCalls(t *testing.T) {
	library, err := ParseModule("Library", strings.Split(`
Function Add(a As Integer, b As Integer) As Integer
  Return a + b
End Function
`, "\n"))
	if err != nil {
		t.Fatal(err)
	}
	app, err := ParseModule("App", strings.Split(`
Function Main(a As Integer) As Integer
  Return Add(a, a)
End Function
`, "\n"))
	if err != nil {
		t.Fatal(err)
	}
	emit := NewURCLEmitter()
	if err := compileModules([]*Module{library, app}, emit); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := emit.Commit(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "cal .Add") {
		t.Errorf("cross-module call did not resolve:\n%s", out.String())
	}
}

func TestCompileUndefinedVariable(t *testing.T) {
	_, err := compileSource(t, "Bad", `
Sub S()
  x = 1
End Sub
`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `Undefined variable "x"`) {
		t.Errorf("error = %q, want the undefined variable", err)
	}
}
