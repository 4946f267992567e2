// Package refal is the facade over the compiler and abstract machine: it
// loads one or more source modules, links them into a single compiled
// program, and evaluates goal expressions against it. Its shape — a struct
// wrapping the loaded program plus convenience constructors for file-backed
// and interactive use — follows the teacher engine's own Engine type.
package refal

import (
	"fmt"
	"io"
	"os"

	"github.com/relang/refal/internal/cache"
	"github.com/relang/refal/internal/compile"
	"github.com/relang/refal/internal/globalize"
	"github.com/relang/refal/internal/parse"
	"github.com/relang/refal/internal/rasl"
	"github.com/relang/refal/internal/render"
	"github.com/relang/refal/internal/repl"
	"github.com/relang/refal/internal/runtime"
	"github.com/relang/refal/internal/vm"
)

// Engine holds a linked, compiled program ready for evaluation.
type Engine struct {
	Program rasl.Program
}

// New compiles and links the named source files into a single Engine.
// Later files win on function name collision, mirroring rasl.Merge.
func New(sourceFiles ...string) (*Engine, error) {
	var programs []rasl.Program
	for _, path := range sourceFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read source file %s: %w", path, err)
		}
		prog, err := Compile(string(data))
		if err != nil {
			return nil, fmt.Errorf("compile source file %s: %w", path, err)
		}
		programs = append(programs, prog)
	}
	return &Engine{Program: rasl.Merge(programs...)}, nil
}

// Compile runs the full front end — parse, globalize, compile — over a
// single module's source text and returns its compiled program.
func Compile(source string) (rasl.Program, error) {
	m, err := parse.Parse(source)
	if err != nil {
		return nil, err
	}
	return compile.Module(globalize.Module(m)), nil
}

// LoadCompiled reads a program previously written by DumpCompiled, skipping
// the parse/compile steps entirely (SPEC_FULL §12).
func LoadCompiled(path string) (*Engine, error) {
	prog, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return &Engine{Program: prog}, nil
}

// DumpCompiled writes the engine's program to path for a later LoadCompiled.
func (e *Engine) DumpCompiled(path string) error {
	return cache.Dump(path, e.Program)
}

// Eval evaluates the call "<goalFunc>" against the engine's program and
// returns the flattened result sequence.
func (e *Engine) Eval(goalFunc string) ([]runtime.Object, error) {
	return vm.EvalMain(e.Program, goalFunc)
}

// EvalString evaluates goalFunc and renders the result as surface text
// wrapped to render.DefaultWidth.
func (e *Engine) EvalString(goalFunc string) (string, error) {
	objects, err := e.Eval(goalFunc)
	if err != nil {
		return "", err
	}
	return render.Wrapped(objects, render.DefaultWidth), nil
}

// RunREPL starts an interactive goal-evaluation session against the
// engine's program, writing output to out.
func (e *Engine) RunREPL(out io.Writer) error {
	session, err := repl.New(e.Program, out)
	if err != nil {
		return err
	}
	defer session.Close()
	return session.Run()
}
