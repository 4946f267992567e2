package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relang/refal/internal/ast"
)

func Test_Parse_palindrome(t *testing.T) {
	src := `$MODULE test;
Palindrome {
	=True;
	$s.1 =True;
	$s.1 $e.1 $s.1 = <Palindrome $e.1>;
	$e.1 =False;
}`

	m, err := Parse(src)
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, "test", m.Name)
	if !assert.Len(t, m.Functions, 1) {
		return
	}
	f := m.Functions[0]
	assert.Equal(t, "Palindrome", f.Name)
	if !assert.Len(t, f.Sentences, 4) {
		return
	}

	assert.Empty(t, f.Sentences[0].Pattern)
	assert.Equal(t, []ast.Object{ast.Symbol("True")}, f.Sentences[0].Rewrite)

	assert.Equal(t, []ast.Object{ast.SVar("1")}, f.Sentences[1].Pattern)

	assert.Equal(t, []ast.Object{ast.SVar("1"), ast.EVar("1"), ast.SVar("1")}, f.Sentences[2].Pattern)
	assert.Equal(t, []ast.Object{ast.FunL, ast.Symbol("Palindrome"), ast.EVar("1"), ast.FunR}, f.Sentences[2].Rewrite)
}

func Test_Parse_structuralBrackets(t *testing.T) {
	src := `$MODULE test;
F { $e.1 = ($e.1 $e.1); }`

	m, err := Parse(src)
	if !assert.NoError(t, err) {
		return
	}
	rewrite := m.Functions[0].Sentences[0].Rewrite
	assert.Equal(t, []ast.Object{ast.StrL, ast.EVar("1"), ast.EVar("1"), ast.StrR}, rewrite)
}

func Test_Parse_errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "missing module header", src: "F { = ; }"},
		{name: "missing semicolon after module name", src: "$MODULE test F { = ; }"},
		{name: "unterminated function body", src: "$MODULE test; F { = ;"},
		{name: "missing eq in sentence", src: "$MODULE test; F { $e.1 ; }"},
		{name: "trailing garbage", src: "$MODULE test; F { = ; } extra"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			assert.Error(t, err)
		})
	}
}
