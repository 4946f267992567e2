package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relang/refal/internal/runtime"
)

func Test_Result_spacesBareSymbolsButHugsBrackets(t *testing.T) {
	objs := []runtime.Object{
		{Kind: runtime.Symbol, Sym: "'a'"},
		{Kind: runtime.Symbol, Sym: "'b'"},
		{Kind: runtime.StrBracketL},
		{Kind: runtime.Symbol, Sym: "'c'"},
		{Kind: runtime.StrBracketR},
	}
	assert.Equal(t, "'a' 'b' ('c')", Result(objs))
}

func Test_Result_callBrackets(t *testing.T) {
	objs := []runtime.Object{
		{Kind: runtime.FunBracketL},
		{Kind: runtime.Symbol, Sym: "Foo"},
		{Kind: runtime.Symbol, Sym: "'x'"},
		{Kind: runtime.FunBracketR},
	}
	assert.Equal(t, "<Foo 'x'>", Result(objs))
}

func Test_Result_empty(t *testing.T) {
	assert.Equal(t, "", Result(nil))
}

func Test_Wrapped_usesDefaultWidthWhenNonPositive(t *testing.T) {
	objs := make([]runtime.Object, 0)
	for i := 0; i < 30; i++ {
		objs = append(objs, runtime.Object{Kind: runtime.Symbol, Sym: "'word'"})
	}
	wrapped := Wrapped(objs, 0)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), DefaultWidth)
	}
}
