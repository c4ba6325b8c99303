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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

// SourceReader yields the lines of one named module.
type SourceReader interface {
	ModuleName() string
	ReadLines() ([]string, error)
}

// fileSource reads a module from a file. The module name is the filename's
// stem.
type fileSource struct {
	path string
}

func (f fileSource) ModuleName() string {
	name := filepath.Base(f.path)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func (f fileSource) ReadLines() ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

var moduleNamePattern = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// ParseSource parses one module from a source reader.
func ParseSource(source SourceReader) (*Module, error) {
	name := source.ModuleName()
	if !moduleNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid module name %q", name)
	}
	lines, err := source.ReadLines()
	if err != nil {
		return nil, err
	}
	return ParseModule(name, lines)
}

// ParseFile parses one module from a file path.
func ParseFile(path string) (*Module, error) {
	return ParseSource(fileSource{path: path})
}

// compileModules resolves all modules against one shared resolver, so calls
// and types resolve across module boundaries, and then emits each module in
// order.
func compileModules(modules []*Module, emit *URCLEmitter) error {
	var types []Type
	var code []Callable
	for _, module := range modules {
		types = append(types, module.Types()...)
		code = append(code, module.Code()...)
	}
	resolver := NewResolver(append(types, DefaultTypes()...), code)
	for _, function := range DefaultFunctions() {
		resolver.DefineFunction(function)
	}
	for _, module := range modules {
		if err := module.Resolve(resolver); err != nil {
			return err
		}
	}
	for _, module := range modules {
		if err := module.Emit(emit); err != nil {
			return err
		}
	}
	return emit.Err()
}

var verbose bool

var command = &cobra.Command{
	Use:                "gbc source... [-o output]",
	Args:               cobra.ArbitraryArgs,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("No input files specified.")
			os.Exit(1)
		}
		output, _ := cmd.PersistentFlags().GetString("output")
		showIL, _ := cmd.PersistentFlags().GetBool("show-il")
		noOptimize, _ := cmd.PersistentFlags().GetBool("no-optimize")

		var modules []*Module
		for _, input := range args {
			if verbose {
				fmt.Fprintf(os.Stderr, "Parsing %v\n", input)
			}
			module, err := ParseFile(input)
			if err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			modules = append(modules, module)
		}

		emit := NewURCLEmitter()
		emit.ShowIL = showIL
		emit.Optimize = !noOptimize
		if err := compileModules(modules, emit); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		file, err := os.Create(output)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := emit.Commit(file); err != nil {
			_ = file.Close()
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := file.Close(); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	command.PersistentFlags().StringP("output", "o", "main.urcl", "output file for the generated URCL")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "if set, increase verbosity level")
	command.PersistentFlags().Bool("show-il", false, "annotate each operation with the IL operation name")
	command.PersistentFlags().Bool("no-optimize", false, "disable the peephole optimizer")
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
