package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Tokenize_classSequence(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    []TokenClass
		expectErr bool
	}{
		{name: "empty", input: "", expect: []TokenClass{TokEOF}},
		{name: "module header", input: "$MODULE foo;", expect: []TokenClass{
			TokModule, TokSymbol, TokSemi, TokEOF,
		}},
		{name: "brackets and eq", input: "F { = ; }", expect: []TokenClass{
			TokSymbol, TokCurlyL, TokEq, TokSemi, TokCurlyR, TokEOF,
		}},
		{name: "call and structural brackets", input: "<F (a b)>", expect: []TokenClass{
			TokAngleL, TokSymbol, TokParenL, TokSymbol, TokSymbol, TokParenR, TokAngleR, TokEOF,
		}},
		{name: "quoted symbol", input: "'a b'", expect: []TokenClass{TokSymbol, TokEOF}},
		{name: "variables", input: "$e.1 $s.x $t.foo", expect: []TokenClass{
			TokEVar, TokSVar, TokTVar, TokEOF,
		}},
		{name: "comment is skipped", input: "a /* comment */ b", expect: []TokenClass{
			TokSymbol, TokSymbol, TokEOF,
		}},
		{name: "unterminated quoted symbol", input: "'abc", expectErr: true},
		{name: "bad variable sigil", input: "$z.1", expectErr: true},
		{name: "empty variable name", input: "$e.", expectErr: true},
		{name: "unexpected character", input: "#", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := Tokenize(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			var classes []TokenClass
			for _, tok := range toks {
				classes = append(classes, tok.Class)
			}
			assert.Equal(t, tc.expect, classes)
		})
	}
}

func Test_Tokenize_values(t *testing.T) {
	toks, err := Tokenize("$e.foo 'a symbol' bareword")
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "foo", toks[0].Value)
	assert.Equal(t, "a symbol", toks[1].Value)
	assert.Equal(t, "bareword", toks[2].Value)
}

func Test_Tokenize_moduleKeywordRequiresWordBoundary(t *testing.T) {
	// "$MODULEX" is not the $MODULE keyword, and 'M' is not a valid
	// variable sigil either, so this is a lexing error.
	_, err := Tokenize("$MODULEX")
	assert.Error(t, err)
}
