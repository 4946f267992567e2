// Package compile implements the pattern compiler (spec §4.1) and rewrite
// compiler (spec §4.2): given an already name-qualified internal/ast.Module,
// it produces an internal/rasl.Program of flat match/construct instruction
// streams, one per function.
//
// The algorithm is a direct port of the reference Refal compiler: match
// order is outside-in (try the left end, then the right end, then fall back
// to non-deterministic length choice on the open expression-variables that
// remain), and holes that share unprojected variables are decomposed into
// independent classes so that each can be lengthened on its own, suspending
// the others on a stack (§4.1.1).
package compile

import (
	"github.com/relang/refal/internal/ast"
	"github.com/relang/refal/internal/rasl"
)

// Module compiles every function of an already-globalized module into a
// Program keyed by qualified function name.
func Module(m ast.Module) rasl.Program {
	prog := make(rasl.Program, len(m.Functions))
	for _, f := range m.Functions {
		prog[f.Name] = compileFunction(f)
	}
	return prog
}

func compileFunction(f ast.Function) rasl.Function {
	sentenceCommands := make([][]rasl.Command, len(f.Sentences))
	for i, s := range f.Sentences {
		sentenceCommands[i] = compileSentence(s)
	}
	return rasl.Function{Name: f.Name, Commands: flatten(sentenceCommands)}
}

// flatten concatenates a function's per-sentence command streams, inserting
// a SetupTransition choice point before every sentence but the last (spec
// §4.1.2): if sentence i fails to match, execution resumes at the start of
// sentence i+1.
func flatten(sentenceCommands [][]rasl.Command) []rasl.Command {
	var result []rasl.Command
	for i, cur := range sentenceCommands {
		if i < len(sentenceCommands)-1 {
			jumpTo := len(result) + len(cur) + 1
			result = append(result, rasl.Command{Op: rasl.SetupTransition, N: jumpTo})
		}
		result = append(result, cur...)
	}
	return result
}

func compileSentence(s ast.Sentence) []rasl.Command {
	pattern, rewrite := kindQualifiedVars(s.Pattern), kindQualifiedVars(s.Rewrite)
	liveVars := varsOf(pattern)
	patternCommands, projectedVars := compilePattern(pattern)
	rewriteCommands := compileExpression(rewrite, projectedVars, liveVars)

	out := make([]rasl.Command, 0, len(patternCommands)+len(rewriteCommands))
	out = append(out, patternCommands...)
	out = append(out, rewriteCommands...)
	return out
}

// kindQualifiedVars returns objects with every variable renamed to include
// its kind ("$s.1", "$e.1"), so that variables of different kinds sharing a
// name are bound and tracked as distinct variables.
func kindQualifiedVars(objects []ast.Object) []ast.Object {
	out := make([]ast.Object, len(objects))
	for i, o := range objects {
		out[i] = o
		if o.IsVar() {
			out[i].Name = o.String()
		}
	}
	return out
}

// hole is a contiguous unmatched slice of the pattern, bordered by two
// projection slots that the VM will hold as the active match window once
// this hole becomes active (spec §4.1).
type hole struct {
	left, right int
	objects     []ast.Object
}

// state is the pattern compiler's working set, mirroring the reference
// compiler's State exactly (field names kept close to the Rust source for
// traceability against original_source/src/compiler.rs).
type state struct {
	border1, border2     int
	nextElement          int
	transitionDepth      int
	projectedVars        map[string]int
	holes                []hole
	holesStack           [][]hole
	transitionDepthStack []int
	commands             []rasl.Command
}

// compilePattern runs the hole-step algorithm (spec §4.1) to completion and
// returns the emitted match commands along with the slot each pattern
// variable was bound to.
func compilePattern(pattern []ast.Object) ([]rasl.Command, map[string]int) {
	st := &state{
		border1:       1,
		border2:       2,
		nextElement:   3,
		projectedVars: make(map[string]int),
		holes:         []hole{{left: 1, right: 2, objects: pattern}},
	}

	for {
		if index, ok := findHole(st); ok {
			moveBorders(st, index)
			_ = empty(st, index) ||
				closedExpression(st, index) ||
				bracketsLeft(st, index) ||
				symbolLeft(st, index) ||
				termLeft(st, index) ||
				bracketsRight(st, index) ||
				symbolRight(st, index) ||
				termRight(st, index)
			continue
		}
		if len(st.holes) > 0 {
			handleHoles(st)
		} else if len(st.holesStack) > 0 {
			constrainLengthen(st)
		} else {
			break
		}
	}

	return st.commands, st.projectedVars
}

// findHole returns the index of the first hole that is trivial — matchable
// from an end without further decomposition (spec §4.1 step 1).
func findHole(st *state) (int, bool) {
	for i, h := range st.holes {
		if !nonTrivialHole(h.objects, st.projectedVars) {
			return i, true
		}
	}
	return 0, false
}

// nonTrivialHole reports whether a hole can only be resolved by open-ended
// length choice: more than one object, and both ends are unprojected
// expression-variables.
func nonTrivialHole(objects []ast.Object, projectedVars map[string]int) bool {
	if len(objects) <= 1 {
		return false
	}
	first := objects[0]
	last := objects[len(objects)-1]
	if first.Kind != ast.EVarKind || isProjected(projectedVars, first.Name) {
		return false
	}
	if last.Kind != ast.EVarKind || isProjected(projectedVars, last.Name) {
		return false
	}
	return true
}

func isProjected(projectedVars map[string]int, name string) bool {
	_, ok := projectedVars[name]
	return ok
}

func moveBorders(st *state, index int) {
	h := st.holes[index]
	if h.left != st.border1 || h.right != st.border2 {
		st.commands = append(st.commands, rasl.Command{Op: rasl.MatchMoveBorders, N: h.left, N2: h.right})
		st.border1 = h.left
		st.border2 = h.right
	}
}

func empty(st *state, index int) bool {
	h := st.holes[index]
	if len(h.objects) != 0 {
		return false
	}
	st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEmpty})
	st.holes = removeHole(st.holes, index)
	return true
}

func closedExpression(st *state, index int) bool {
	h := st.holes[index]
	if len(h.objects) != 1 {
		return false
	}
	o := h.objects[0]
	if o.Kind != ast.EVarKind || isProjected(st.projectedVars, o.Name) {
		return false
	}
	st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEVar})
	st.projectedVars[o.Name] = st.nextElement + 1
	st.holes = removeHole(st.holes, index)
	st.nextElement += 2
	return true
}

func bracketsLeft(st *state, index int) bool {
	h := st.holes[index]
	if len(h.objects) == 0 || h.objects[0].Kind != ast.StrBracketL {
		return false
	}
	st.commands = append(st.commands, rasl.Command{Op: rasl.MatchStrBracketL})

	depth := 1
	rIdx := 0
	for i := 1; i < len(h.objects); i++ {
		switch h.objects[i].Kind {
		case ast.StrBracketR:
			depth--
			if depth == 0 {
				rIdx = i
			}
		case ast.StrBracketL:
			depth++
		}
		if depth == 0 {
			break
		}
	}

	inner := hole{left: st.nextElement, right: st.nextElement + 1, objects: cloneObjects(h.objects[1:rIdx])}
	after := hole{left: st.nextElement + 1, right: h.right, objects: cloneObjects(h.objects[rIdx+1:])}
	st.border1 = st.nextElement
	st.border2 = st.nextElement + 1
	st.holes = replaceHole(st.holes, index, inner, after)
	st.nextElement += 2
	return true
}

func symbolLeft(st *state, index int) bool {
	h := st.holes[index]
	if len(h.objects) == 0 {
		return false
	}
	first := h.objects[0]
	switch first.Kind {
	case ast.Sym:
		st.commands = append(st.commands, rasl.Command{Op: rasl.MatchSymbolL, Str: first.Name})
	case ast.SVarKind:
		if slot, ok := st.projectedVars[first.Name]; ok {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchSVarLProj, N: slot})
		} else {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchSVarL})
			st.projectedVars[first.Name] = st.nextElement
		}
	default:
		return false
	}
	st.border1 = st.nextElement
	st.border2 = h.right
	st.holes[index] = hole{left: st.nextElement, right: h.right, objects: cloneObjects(h.objects[1:])}
	st.nextElement++
	return true
}

func termLeft(st *state, index int) bool {
	h := st.holes[index]
	if len(h.objects) == 0 {
		return false
	}
	first := h.objects[0]
	matched := false
	switch first.Kind {
	case ast.TVarKind:
		if slot, ok := st.projectedVars[first.Name]; ok {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEVarLProj, N: slot})
		} else {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchTVarL})
			st.projectedVars[first.Name] = st.nextElement + 1
		}
		matched = true
	case ast.EVarKind:
		if slot, ok := st.projectedVars[first.Name]; ok {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEVarLProj, N: slot})
			matched = true
		}
	}
	if matched {
		st.border1 = st.nextElement + 1
		st.border2 = h.right
		st.holes[index] = hole{left: st.nextElement + 1, right: h.right, objects: cloneObjects(h.objects[1:])}
		st.nextElement += 2
	}
	return matched
}

func bracketsRight(st *state, index int) bool {
	h := st.holes[index]
	n := len(h.objects)
	if n == 0 || h.objects[n-1].Kind != ast.StrBracketR {
		return false
	}
	st.commands = append(st.commands, rasl.Command{Op: rasl.MatchStrBracketR})

	depth := 1
	lIdx := 0
	for i := n - 2; i >= 0; i-- {
		switch h.objects[i].Kind {
		case ast.StrBracketL:
			depth--
			if depth == 0 {
				lIdx = i
			}
		case ast.StrBracketR:
			depth++
		}
		if depth == 0 {
			break
		}
	}

	before := hole{left: h.left, right: st.nextElement, objects: cloneObjects(h.objects[:lIdx])}
	inner := hole{left: st.nextElement, right: st.nextElement + 1, objects: cloneObjects(h.objects[lIdx+1 : n-1])}
	st.border1 = h.left
	st.border2 = st.nextElement
	st.holes = replaceHole(st.holes, index, before, inner)
	st.nextElement += 2
	return true
}

func symbolRight(st *state, index int) bool {
	h := st.holes[index]
	n := len(h.objects)
	if n == 0 {
		return false
	}
	last := h.objects[n-1]
	switch last.Kind {
	case ast.Sym:
		st.commands = append(st.commands, rasl.Command{Op: rasl.MatchSymbolR, Str: last.Name})
	case ast.SVarKind:
		if slot, ok := st.projectedVars[last.Name]; ok {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchSVarRProj, N: slot})
		} else {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchSVarR})
			st.projectedVars[last.Name] = st.nextElement
		}
	default:
		return false
	}
	st.border1 = h.left
	st.border2 = st.nextElement
	st.holes[index] = hole{left: h.left, right: st.nextElement, objects: cloneObjects(h.objects[:n-1])}
	st.nextElement++
	return true
}

func termRight(st *state, index int) bool {
	h := st.holes[index]
	n := len(h.objects)
	if n == 0 {
		return false
	}
	last := h.objects[n-1]
	matched := false
	switch last.Kind {
	case ast.TVarKind:
		if slot, ok := st.projectedVars[last.Name]; ok {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEVarRProj, N: slot})
		} else {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchTVarR})
			st.projectedVars[last.Name] = st.nextElement + 1
		}
		matched = true
	case ast.EVarKind:
		if slot, ok := st.projectedVars[last.Name]; ok {
			st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEVarRProj, N: slot})
			matched = true
		}
	}
	if matched {
		st.border1 = h.left
		st.border2 = st.nextElement
		st.holes[index] = hole{left: h.left, right: st.nextElement, objects: cloneObjects(h.objects[:n-1])}
		st.nextElement += 2
	}
	return matched
}

// handleHoles implements lengthen-setup (spec §4.1.1): when every remaining
// hole is non-trivial, first decompose them into variable-disjoint classes
// (suspending all but the first), then emit the open choice point that
// starts the first remaining hole's leading expression-variable at length
// zero.
func handleHoles(st *state) {
	projectedNames := make(map[string]bool, len(st.projectedVars))
	for name := range st.projectedVars {
		projectedNames[name] = true
	}

	decomp := decomposeHoles(st.holes, projectedNames)
	if decomp.n > 1 {
		old := st.holes
		perClass := make([][]hole, decomp.n+1)
		for i, h := range old {
			c := decomp.classes[i]
			perClass[c] = append(perClass[c], h)
		}
		for i := 2; i <= decomp.n; i++ {
			st.holesStack = append(st.holesStack, perClass[i])
			st.transitionDepthStack = append(st.transitionDepthStack, st.transitionDepth)
		}
		st.holes = perClass[1]
	}

	if len(st.holes) == 0 {
		return
	}
	h := st.holes[0]
	if len(h.objects) == 0 || h.objects[0].Kind != ast.EVarKind {
		return
	}
	v := h.objects[0].Name

	if st.border1 != h.left || st.border2 != h.right {
		st.commands = append(st.commands, rasl.Command{Op: rasl.MatchMoveBorders, N: h.left, N2: h.right})
	}
	st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEVarPrepare})
	st.commands = append(st.commands, rasl.Command{Op: rasl.MatchEVarLengthen})
	st.transitionDepth++
	st.projectedVars[v] = st.nextElement + 1
	st.border1 = st.nextElement + 1
	st.border2 = h.right
	st.holes[0] = hole{left: st.nextElement + 1, right: h.right, objects: cloneObjects(h.objects[1:])}
	st.nextElement += 2
}

// constrainLengthen resumes the next suspended decomposition class: emitting
// ConstrainLengthen tells the VM to discard the choice points accumulated
// while the just-finished class (and anything nested within it) was
// lengthened, since that class is now fully and permanently matched.
func constrainLengthen(st *state) {
	if len(st.holesStack) == 0 {
		return
	}
	last := len(st.holesStack) - 1
	holes := st.holesStack[last]
	st.holesStack = st.holesStack[:last]

	lastDepth := len(st.transitionDepthStack) - 1
	td0 := st.transitionDepthStack[lastDepth]
	st.transitionDepthStack = st.transitionDepthStack[:lastDepth]

	st.commands = append(st.commands, rasl.Command{Op: rasl.ConstrainLengthen, N: st.transitionDepth - td0})
	st.transitionDepth = td0
	st.holes = holes
}

// decomposition is a partition of a hole set into variable-disjoint classes
// (spec §4.1.1). classes[i] gives the 1-based class of holes[i]; class 0 is
// never assigned (holes are always classified).
type decomposition struct {
	n       int
	classes []int
}

// decomposeHoles grows each class from an unassigned seed hole, absorbing
// any other unassigned hole whose variables meet the growing set in a
// variable not already projected, until a fixed point, then starts the next
// class from whatever remains unassigned.
func decomposeHoles(holes []hole, projectedVars map[string]bool) decomposition {
	n := 0
	classes := make([]int, len(holes))
	x := map[string]bool{}

	for {
		seed := -1
		for i := range classes {
			if classes[i] == 0 {
				x = varsOf(holes[i].objects)
				n++
				classes[i] = n
				seed = i
				break
			}
		}
		if seed == -1 {
			return decomposition{n: n, classes: classes}
		}

		for {
			stable := true
			for i := range holes {
				if classes[i] != 0 {
					continue
				}
				holeVars := intersectVars(varsOf(holes[i].objects), x)
				if i != seed && !isSuperset(projectedVars, holeVars) {
					stable = false
					break
				}
			}
			if stable {
				break
			}
			for i := range holes {
				if classes[i] != 0 {
					continue
				}
				holeVars := varsOf(holes[i].objects)
				if !isSuperset(projectedVars, intersectVars(holeVars, x)) {
					classes[i] = n
					for v := range holeVars {
						x[v] = true
					}
					break
				}
			}
		}
	}
}

// compileExpression is the rewrite compiler (spec §4.2): for each object of
// the rewrite it emits a construction instruction, choosing Transplant for
// the first linear occurrence of a pattern-bound variable and Copy for every
// later occurrence (so at most one splice reuses the matched nodes and every
// other occurrence gets a fresh copy).
func compileExpression(expression []ast.Object, projectedVars map[string]int, liveVars map[string]bool) []rasl.Command {
	commands := []rasl.Command{{Op: rasl.MoveBorder}}

	for _, o := range expression {
		switch o.Kind {
		case ast.Sym:
			commands = append(commands, rasl.Command{Op: rasl.InsertSymbol, Str: o.Name})
		case ast.StrBracketL:
			commands = append(commands, rasl.Command{Op: rasl.InsertStrBracketL})
		case ast.StrBracketR:
			commands = append(commands, rasl.Command{Op: rasl.InsertStrBracketR})
		case ast.FunBracketL:
			commands = append(commands, rasl.Command{Op: rasl.InsertFunBracketL})
		case ast.FunBracketR:
			commands = append(commands, rasl.Command{Op: rasl.InsertFunBracketR})
		case ast.SVarKind:
			slot := projectedVars[o.Name]
			if liveVars[o.Name] {
				delete(liveVars, o.Name)
				commands = append(commands, rasl.Command{Op: rasl.TransplantObject, N: slot})
			} else {
				commands = append(commands, rasl.Command{Op: rasl.CopySymbol, N: slot})
			}
		case ast.EVarKind, ast.TVarKind:
			slot := projectedVars[o.Name]
			if liveVars[o.Name] {
				delete(liveVars, o.Name)
				commands = append(commands, rasl.Command{Op: rasl.TransplantExpr, N: slot})
			} else {
				commands = append(commands, rasl.Command{Op: rasl.CopyExpr, N: slot})
			}
		}
	}

	commands = append(commands, rasl.Command{Op: rasl.CompleteStep})
	commands = append(commands, rasl.Command{Op: rasl.NextStep})
	return commands
}

func varsOf(objects []ast.Object) map[string]bool {
	out := make(map[string]bool)
	for _, o := range objects {
		if o.IsVar() {
			out[o.Name] = true
		}
	}
	return out
}

func intersectVars(a, keep map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range a {
		if keep[k] {
			out[k] = true
		}
	}
	return out
}

func isSuperset(a, b map[string]bool) bool {
	for k := range b {
		if !a[k] {
			return false
		}
	}
	return true
}

func cloneObjects(objects []ast.Object) []ast.Object {
	if len(objects) == 0 {
		return nil
	}
	out := make([]ast.Object, len(objects))
	copy(out, objects)
	return out
}

func replaceHole(holes []hole, index int, replacements ...hole) []hole {
	out := make([]hole, 0, len(holes)-1+len(replacements))
	out = append(out, holes[:index]...)
	out = append(out, replacements...)
	out = append(out, holes[index+1:]...)
	return out
}

func removeHole(holes []hole, index int) []hole {
	return replaceHole(holes, index)
}
