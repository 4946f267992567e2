// Package repl is an interactive goal runner: it evaluates one goal
// expression per input line against a single already-compiled program,
// using github.com/chzyer/readline for line editing and history the way
// internal/input's InteractiveCommandReader does for the teacher's game
// session loop (SPEC_FULL §12).
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/relang/refal/internal/compile"
	"github.com/relang/refal/internal/globalize"
	"github.com/relang/refal/internal/parse"
	"github.com/relang/refal/internal/rasl"
	"github.com/relang/refal/internal/render"
	"github.com/relang/refal/internal/vm"
)

// Session is a running REPL bound to one compiled program.
type Session struct {
	prog rasl.Program
	rl   *readline.Instance
	out  io.Writer
}

// New opens a readline-backed session evaluating goals against prog. Output
// is written to out.
func New(prog rasl.Program, out io.Writer) (*Session, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "refal> ",
		Stdout: out,
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}
	return &Session{prog: prog, rl: rl, out: out}, nil
}

// Close tears down the underlying readline instance.
func (s *Session) Close() error {
	return s.rl.Close()
}

// Run reads goal expressions until EOF (or a line of "QUIT"), evaluating
// each one against the session's program and printing its result. Evaluation
// errors are reported but do not end the session.
func (s *Session) Run() error {
	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "QUIT") {
			return nil
		}

		if err := s.evalLine(line); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *Session) evalLine(line string) error {
	goalModule, err := parse.Parse("$MODULE repl; Goal { = " + line + "; }")
	if err != nil {
		return err
	}

	goalProg := compile.Module(globalize.Module(goalModule))
	merged := rasl.Merge(s.prog, goalProg)

	objects, err := vm.EvalMain(merged, "repl.Goal")
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, render.Wrapped(objects, render.DefaultWidth))
	return nil
}
