package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relang/refal/internal/ast"
	"github.com/relang/refal/internal/globalize"
	"github.com/relang/refal/internal/parse"
	"github.com/relang/refal/internal/rasl"
)

func compileSource(t *testing.T, source string) rasl.Program {
	t.Helper()
	m, err := parse.Parse(source)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return Module(globalize.Module(m))
}

// Test_Module_qualifiesFunctionNames confirms the compiled Program is keyed
// by the globalized, module-qualified function name (spec §2), not the bare
// name written in source.
func Test_Module_qualifiesFunctionNames(t *testing.T) {
	prog := compileSource(t, `$MODULE test;
Foo { = True; }`)

	_, ok := prog["test.Foo"]
	assert.True(t, ok)
	_, ok = prog["Foo"]
	assert.False(t, ok)
}

// Test_Module_trivialSentence pins the exact instruction stream for the
// simplest possible sentence — an empty pattern rewriting to a single
// symbol — per the hole-step algorithm (spec §4.1): an empty pattern
// compiles to a single MatchEmpty with no MatchMoveBorders, since the
// initial borders already bracket the (empty) whole pattern.
func Test_Module_trivialSentence(t *testing.T) {
	prog := compileSource(t, `$MODULE test;
Foo { = True; }`)

	assert.Equal(t, []rasl.Command{
		{Op: rasl.MatchEmpty},
		{Op: rasl.MoveBorder},
		{Op: rasl.InsertSymbol, Str: "True"},
		{Op: rasl.CompleteStep},
		{Op: rasl.NextStep},
	}, prog["test.Foo"].Commands)
}

// Test_Module_setupTransitionBetweenSentences checks that flatten (spec
// §4.1.2) emits a SetupTransition choice point before every sentence but
// the last, with a jump target that is the absolute instruction index of
// the next sentence's first command.
func Test_Module_setupTransitionBetweenSentences(t *testing.T) {
	prog := compileSource(t, `$MODULE test;
Foo { = True; = False; }`)

	cmds := prog["test.Foo"].Commands
	// sentence 1: MatchEmpty, MoveBorder, InsertSymbol, CompleteStep, NextStep (5 commands)
	wantJump := 1 + 5
	assert.Equal(t, rasl.Command{Op: rasl.SetupTransition, N: wantJump}, cmds[0])
	assert.Equal(t, rasl.MatchEmpty, cmds[wantJump].Op)
	assert.Equal(t, rasl.Command{Op: rasl.InsertSymbol, Str: "False"}, cmds[wantJump+2])
	assert.Len(t, cmds, 1+5+5)
}

// Test_Module_firstOccurrenceTransplantsLaterOccurrencesCopy pins the
// resolved "first-vs-last transplant" open question (SPEC_FULL §13): of a
// pattern variable appearing twice in the rewrite, the first occurrence
// transplants the matched nodes directly and every later occurrence copies
// them, so that exactly one splice reuses the original chain.
func Test_Module_firstOccurrenceTransplantsLaterOccurrencesCopy(t *testing.T) {
	prog := compileSource(t, `$MODULE test;
Dup { $e.1 = $e.1 $e.1; }`)

	cmds := prog["test.Dup"].Commands
	if !assert.Len(t, cmds, 6) {
		return
	}
	assert.Equal(t, rasl.Command{Op: rasl.MatchEVar}, cmds[0])
	assert.Equal(t, rasl.Command{Op: rasl.MoveBorder}, cmds[1])
	assert.Equal(t, rasl.TransplantExpr, cmds[2].Op)
	assert.Equal(t, rasl.CopyExpr, cmds[3].Op)
	assert.Equal(t, cmds[2].N, cmds[3].N, "both occurrences read the same projection slot")
	assert.Equal(t, rasl.Command{Op: rasl.CompleteStep}, cmds[4])
	assert.Equal(t, rasl.Command{Op: rasl.NextStep}, cmds[5])
}

// Test_Module_singleSVarOccurrenceTransplants mirrors the EVar case above
// for an SVar bound once in the pattern and used once in the rewrite: a
// single occurrence is always the transplant, never a copy. Unlike the
// single-EVar pattern above, consuming a leading SVar leaves a (now empty)
// remainder hole behind, so the match stream ends with an extra MatchEmpty.
func Test_Module_singleSVarOccurrenceTransplants(t *testing.T) {
	prog := compileSource(t, `$MODULE test;
Identity { $s.1 = $s.1; }`)

	cmds := prog["test.Identity"].Commands
	if !assert.Len(t, cmds, 6) {
		return
	}
	assert.Equal(t, rasl.MatchSVarL, cmds[0].Op)
	assert.Equal(t, rasl.Command{Op: rasl.MatchEmpty}, cmds[1])
	assert.Equal(t, rasl.Command{Op: rasl.MoveBorder}, cmds[2])
	assert.Equal(t, rasl.TransplantObject, cmds[3].Op)
	assert.Equal(t, rasl.Command{Op: rasl.CompleteStep}, cmds[4])
	assert.Equal(t, rasl.Command{Op: rasl.NextStep}, cmds[5])
}

// Test_Module_multipleFunctionsCompileIndependently checks that compiling
// a module with several functions produces one Program entry per function,
// each keyed and qualified independently of declaration order.
func Test_Module_multipleFunctionsCompileIndependently(t *testing.T) {
	prog := compileSource(t, `$MODULE test;
A { = ; }
B { = ; }
C { = ; }`)

	assert.Len(t, prog, 3)
	for _, name := range []string{"test.A", "test.B", "test.C"} {
		fn, ok := prog[name]
		if !assert.True(t, ok, "missing %s", name) {
			continue
		}
		assert.Equal(t, name, fn.Name)
	}
}

func Test_varsOf_collectsOnlyVariables(t *testing.T) {
	pattern := []ast.Object{
		ast.Symbol("x"),
		ast.EVar("1"),
		ast.SVar("2"),
		ast.TVar("3"),
	}
	vars := varsOf(pattern)
	assert.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, vars)
}
