// Package rasl defines the compiled instruction set ("RASL": Refal Abstract
// machine Sentence Language, spec §3 Commands) and the compiled Program that
// maps qualified function names to their instruction lists.
//
// Go has no tagged-union type, so Command is a single struct carrying an Op
// discriminator plus whichever of Str/N/N2 that Op uses; unused fields are
// zero. This mirrors how the reference compiler's Command enum collapses
// onto a flat dispatch table in the VM (internal/vm).
package rasl

import "fmt"

// Op identifies the kind of a Command.
type Op int

const (
	MatchEmpty Op = iota
	MatchSymbolL
	MatchSymbolR
	MatchStrBracketL
	MatchStrBracketR
	MatchSVarL
	MatchSVarR
	MatchSVarLProj
	MatchSVarRProj
	MatchTVarL
	MatchTVarR
	MatchEVar
	MatchEVarPrepare
	MatchEVarLengthen
	MatchEVarLProj
	MatchEVarRProj
	MatchMoveBorders
	SetupTransition
	ConstrainLengthen

	MoveBorder // begins the rewrite/construction phase (a.k.a. RewriteStart)
	InsertSymbol
	InsertStrBracketL
	InsertStrBracketR
	InsertFunBracketL
	InsertFunBracketR
	CopySymbol
	CopyExpr
	TransplantObject
	TransplantExpr
	CompleteStep // a.k.a. RewriteFinalize
	NextStep     // a.k.a. MatchStart
)

var names = [...]string{
	"MatchEmpty", "MatchSymbolL", "MatchSymbolR", "MatchStrBracketL", "MatchStrBracketR",
	"MatchSVarL", "MatchSVarR", "MatchSVarLProj", "MatchSVarRProj",
	"MatchTVarL", "MatchTVarR", "MatchEVar", "MatchEVarPrepare", "MatchEVarLengthen",
	"MatchEVarLProj", "MatchEVarRProj", "MatchMoveBorders", "SetupTransition", "ConstrainLengthen",
	"MoveBorder", "InsertSymbol", "InsertStrBracketL", "InsertStrBracketR",
	"InsertFunBracketL", "InsertFunBracketR", "CopySymbol", "CopyExpr",
	"TransplantObject", "TransplantExpr", "CompleteStep", "NextStep",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Command is one instruction of a compiled sentence. Str carries the symbol
// text for MatchSymbolL/R and InsertSymbol. N (and N2 for MatchMoveBorders)
// carry projection slots, lengthen counts, or jump targets depending on Op.
type Command struct {
	Op  Op
	Str string
	N   int
	N2  int
}

func (c Command) String() string {
	switch c.Op {
	case MatchSymbolL, MatchSymbolR, InsertSymbol:
		return fmt.Sprintf("%s(%q)", c.Op, c.Str)
	case MatchSVarLProj, MatchSVarRProj, MatchEVarLProj, MatchEVarRProj,
		SetupTransition, ConstrainLengthen, CopySymbol, CopyExpr,
		TransplantObject, TransplantExpr:
		return fmt.Sprintf("%s(%d)", c.Op, c.N)
	case MatchMoveBorders:
		return fmt.Sprintf("%s(%d, %d)", c.Op, c.N, c.N2)
	default:
		return c.Op.String()
	}
}

// Function is one compiled function: its qualified name and the flattened,
// SetupTransition-separated command stream for all of its sentences.
type Function struct {
	Name     string
	Commands []Command
}

// Program maps every compiled function's qualified name to its Function.
// Programs from multiple source modules may be merged (SPEC_FULL §12,
// multi-module programs) since names are already fully qualified by
// internal/globalize before compilation.
type Program map[string]Function

// Merge returns a new Program containing the functions of all given
// programs. Later programs win on name collision.
func Merge(programs ...Program) Program {
	out := make(Program)
	for _, p := range programs {
		for name, fn := range p {
			out[name] = fn
		}
	}
	return out
}
