package globalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relang/refal/internal/ast"
)

func Test_Module_qualifiesFunctionNamesAndCallSymbols(t *testing.T) {
	m := ast.Module{
		Name: "mymod",
		Functions: []ast.Function{
			{
				Name: "F",
				Sentences: []ast.Sentence{
					{
						Pattern: []ast.Object{ast.EVar("1")},
						Rewrite: []ast.Object{
							ast.FunL, ast.Symbol("G"), ast.EVar("1"), ast.FunR,
						},
					},
				},
			},
		},
	}

	out := Module(m)

	assert.Equal(t, "mymod.F", out.Functions[0].Name)
	assert.Equal(t, []ast.Object{
		ast.FunL, ast.Symbol("mymod.G"), ast.EVar("1"), ast.FunR,
	}, out.Functions[0].Sentences[0].Rewrite)
}

func Test_Module_leavesAlreadyQualifiedCallsAlone(t *testing.T) {
	m := ast.Module{
		Name: "mymod",
		Functions: []ast.Function{
			{
				Name: "F",
				Sentences: []ast.Sentence{
					{
						Rewrite: []ast.Object{ast.FunL, ast.Symbol("other.G"), ast.FunR},
					},
				},
			},
		},
	}

	out := Module(m)
	assert.Equal(t, []ast.Object{ast.FunL, ast.Symbol("other.G"), ast.FunR}, out.Functions[0].Sentences[0].Rewrite)
}

func Test_Module_doesNotQualifySymbolsOutsideCallPosition(t *testing.T) {
	m := ast.Module{
		Name: "mymod",
		Functions: []ast.Function{
			{
				Name: "F",
				Sentences: []ast.Sentence{
					{Rewrite: []ast.Object{ast.Symbol("bare")}},
				},
			},
		},
	}

	out := Module(m)
	assert.Equal(t, []ast.Object{ast.Symbol("bare")}, out.Functions[0].Sentences[0].Rewrite)
}

func Test_Module_doesNotTouchPattern(t *testing.T) {
	m := ast.Module{
		Name: "mymod",
		Functions: []ast.Function{
			{
				Name: "F",
				Sentences: []ast.Sentence{
					{Pattern: []ast.Object{ast.FunL, ast.Symbol("H"), ast.FunR}},
				},
			},
		},
	}

	out := Module(m)
	assert.Equal(t, []ast.Object{ast.FunL, ast.Symbol("H"), ast.FunR}, out.Functions[0].Sentences[0].Pattern)
}
