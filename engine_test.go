package refal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relang/refal/internal/compile"
	"github.com/relang/refal/internal/globalize"
	"github.com/relang/refal/internal/parse"
	"github.com/relang/refal/internal/rasl"
)

// evalGoal compiles source as module "test" and evaluates goalExpr (a
// single call expression, e.g. "<Palindrome 'a' 'b' 'a'>") against it.
// As in internal/repl, goalExpr becomes the body of a synthetic
// zero-argument function that is compiled and linked in alongside source;
// here that function is also placed in module "test", so the bare call
// names in goalExpr qualify to source's own functions.
func evalGoal(t *testing.T, source, goalExpr string) string {
	t.Helper()

	prog, err := Compile(source)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	goalModule, err := parse.Parse("$MODULE test; Run { = " + goalExpr + "; }")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	goalProg := compile.Module(globalize.Module(goalModule))

	eng := &Engine{Program: rasl.Merge(prog, goalProg)}
	out, err := eng.EvalString("test.Run")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return out
}

func Test_Scenario1_Palindrome(t *testing.T) {
	const src = `$MODULE test;
Palindrome {
	=True;
	$s.1 =True;
	$s.1 $e.1 $s.1 = <Palindrome $e.1>;
	$e.1 =False;
}`
	out := evalGoal(t, src, "<Palindrome 'a' 'b' 'a'>")
	assert.Equal(t, "True", out)
}

func Test_Scenario2_ChangePlusToMinus(t *testing.T) {
	const src = `$MODULE test;
ChangePlusToMinus {
	'+' $e.1 = '-' <ChangePlusToMinus $e.1>;
	$s.1 $e.1 = $s.1 <ChangePlusToMinus $e.1>;
	=;
}`
	out := evalGoal(t, src, "<ChangePlusToMinus '+' '12' '-' '123'>")
	assert.Equal(t, "- 12 - 123", out)
}

// Test_Scenario3_TranslateTable ports the embedded test corpus's
// dictionary example verbatim (original_source/src/vm/tests.rs: Table,
// Translate, D2): Table associates whole parenthesized words with their
// translation, and Translate finds the entry whose captured word matches
// the one under lookup.
func Test_Scenario3_TranslateTable(t *testing.T) {
	const src = `$MODULE test;
Table {
	= (('c' 'a' 'n' 'e') 'd' 'o' 'g')
	  (('g' 'a' 't' 't' 'o') 'c' 'a' 't')
	  (('c' 'a' 'v' 'a' 'l' 'l' 'o') 'h' 'o' 'r' 's' 'e')
	  (('r' 'a' 'n' 'a') 'f' 'r' 'o' 'g')
	  (('p' 'o' 'r' 'c' 'o') 'p' 'i' 'g');
}
Translate {
	($e.Word) $e.1 (($e.Word) $e.Trans) $e.2 = $e.Trans;
	($e.Word) $e.1 = 'no-match';
}`
	out := evalGoal(t, src, "<Translate ('g' 'a' 't' 't' 'o') <Table>>")
	assert.Equal(t, "c a t", out)
}

func Test_Scenario4_BinaryAdd(t *testing.T) {
	const src = `$MODULE test;
BinaryAdd {
	($e.X '0') ($e.Y $s.1) = <BinaryAdd ($e.X) ($e.Y)> $s.1;
	($e.X '1') ($e.Y '0') = <BinaryAdd ($e.X) ($e.Y)> '1';
	($e.X '1') ($e.Y '1') = <BinaryAdd (<BinaryAdd ($e.X) ('1')>) ($e.Y)> '0';
	($e.X) ($e.Y) = $e.X $e.Y;
}`
	out := evalGoal(t, src, "<BinaryAdd ('1' '0') ('1' '0')>")
	assert.Equal(t, "1 0 0", out)
}

func Test_Scenario5_RepeatedInBrackets(t *testing.T) {
	const src = `$MODULE test;
RepeatedInBrackets {
	=True;
	($e.1 $e.1) ($e.2 $e.2) =True;
	$e.1 =False;
}`
	out := evalGoal(t, src, "<RepeatedInBrackets ('a' 'a') ('b' 'b')>")
	assert.Equal(t, "True", out)
}

// Test_Scenario6_RepeatedSixHole is the corpus's "simultaneous e-var
// unification" test (original_source/src/vm/tests.rs: Repeated,
// TestRepeated3): six parenthesized groups, each with an independent
// s-var hole that must equal its partner group's hole; a correct VM
// cannot shortcut through the holes independently (spec §8).
func Test_Scenario6_RepeatedSixHole(t *testing.T) {
	const src = `$MODULE test;
Repeated {
	($e.1 $s.1 $e.2)
	($e.3 $s.1 $e.4)
	($e.5 $s.2 $e.6)
	($e.7 $s.2 $e.8)
	($e.9 $s.3 $e.10)
	($e.11 $s.3 $e.12)
		= $s.1 $s.2 $s.3;
	$e.1
		= N;
}`
	out := evalGoal(t, src, "<Repeated ('1' 'a')('2' 'a')('3' 'b')('4' 'b')('c' 'd')('c' 'd')>")
	assert.Equal(t, "a b c", out)
}

func Test_EmptyRewriteIdempotence(t *testing.T) {
	// spec §8: a function with one sentence "= ;" on an empty argument
	// reduces to the empty sequence.
	const src = `$MODULE test;
Nothing { = ; }`
	out := evalGoal(t, src, "<Nothing>")
	assert.Equal(t, "", out)
}

func Test_SentenceOrdering(t *testing.T) {
	// spec §8: swapping the first two sentences changes behavior when
	// their patterns both match the same argument.
	const firstSentenceWins = `$MODULE test;
Pick { $e.1 = 'first'; $e.1 = 'second'; }`
	const secondSentenceWins = `$MODULE test;
Pick { $e.1 = 'second'; $e.1 = 'first'; }`

	out1 := evalGoal(t, firstSentenceWins, "<Pick 'x'>")
	assert.Equal(t, "first", out1)

	out2 := evalGoal(t, secondSentenceWins, "<Pick 'x'>")
	assert.Equal(t, "second", out2)
}

func Test_Determinism(t *testing.T) {
	const src = `$MODULE test;
Palindrome {
	=True;
	$s.1 =True;
	$s.1 $e.1 $s.1 = <Palindrome $e.1>;
	$e.1 =False;
}`
	out1 := evalGoal(t, src, "<Palindrome 'a' 'b' 'a'>")
	out2 := evalGoal(t, src, "<Palindrome 'a' 'b' 'a'>")
	assert.Equal(t, out1, out2)
}
