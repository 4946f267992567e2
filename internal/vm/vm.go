// Package vm implements the abstract machine (spec §5): it interprets a
// compiled internal/rasl.Program over an internal/runtime view field,
// backtracking through failed matches via a choice-point ("jump") stack and
// resuming suspended function calls via a LIFO activation queue ("dots").
//
// Command dispatch is a straight switch on rasl.Op, mirroring the reference
// interpreter's single execute_cmd table; the per-command bodies below keep
// the reference's method-per-command shape and field names so they can be
// checked against each other line for line.
package vm

import (
	"github.com/relang/refal/internal/rasl"
	"github.com/relang/refal/internal/rerr"
	"github.com/relang/refal/internal/runtime"
)

// jump is one choice point: the match window and command position to resume
// at if a later match fails (spec §5.3).
type jump struct {
	border1, border2 *runtime.Node
	projectionIndex  int
	commandIndex     int
}

type machine struct {
	defs rasl.Program

	commands     []rasl.Command
	commandIndex int

	projections []*runtime.Node
	jumps       []jump

	border1, border2 *runtime.Node
	dots             []*runtime.Node

	end bool
	err error
}

// EvalMain evaluates "<main>" against defs to completion and returns the
// flattened result sequence (spec §5, §8).
func EvalMain(defs rasl.Program, main string) ([]runtime.Object, error) {
	dots, chain := runtime.InitView(main)
	if err := eval(defs, dots); err != nil {
		return nil, err
	}
	return runtime.Flatten(chain), nil
}

func eval(defs rasl.Program, dots []*runtime.Node) error {
	vm, err := initVM(defs, dots)
	if err != nil {
		return err
	}
	for !vm.end {
		cmd := vm.commands[vm.commandIndex]
		vm.commandIndex++
		executeCmd(vm, cmd)
	}
	return vm.err
}

func initVM(defs rasl.Program, dots []*runtime.Node) (*machine, error) {
	funBrR := dots[len(dots)-1]
	dots = dots[:len(dots)-1]
	funBrL := funBrR.Twin
	fun := funBrL.Next
	funBrLPrev := funBrL.Prev

	fn, ok := defs[fun.Sym]
	if !ok {
		return nil, rerr.New(rerr.Undefined, "undefined function %q", fun.Sym)
	}

	return &machine{
		defs:         defs,
		commands:     fn.Commands,
		commandIndex: 0,
		projections:  []*runtime.Node{funBrLPrev, fun, funBrR},
		border1:      fun,
		border2:      funBrR,
		dots:         dots,
	}, nil
}

func executeCmd(vm *machine, cmd rasl.Command) {
	switch cmd.Op {
	case rasl.MatchEmpty:
		vm.matchEmpty()
	case rasl.MatchStrBracketL:
		vm.matchStrBracketL()
	case rasl.MatchStrBracketR:
		vm.matchStrBracketR()
	case rasl.MatchSymbolL:
		vm.symbolL(cmd.Str)
	case rasl.MatchSymbolR:
		vm.symbolR(cmd.Str)
	case rasl.MatchSVarL:
		vm.matchSVarL()
	case rasl.MatchSVarR:
		vm.matchSVarR()
	case rasl.MatchSVarLProj:
		vm.matchSVarLProj(cmd.N)
	case rasl.MatchSVarRProj:
		vm.matchSVarRProj(cmd.N)
	case rasl.MatchTVarL:
		vm.matchTVarL()
	case rasl.MatchTVarR:
		vm.matchTVarR()
	case rasl.MatchEVarPrepare:
		vm.prepareLengthen()
	case rasl.MatchEVar:
		vm.matchEVar()
	case rasl.MatchEVarLengthen:
		vm.lengthen()
	case rasl.MatchEVarLProj:
		vm.matchEVarLProj(cmd.N)
	case rasl.MatchEVarRProj:
		vm.matchEVarRProj(cmd.N)
	case rasl.MatchMoveBorders:
		vm.matchMoveBorders(cmd.N, cmd.N2)
	case rasl.MoveBorder:
		vm.moveBorder()
	case rasl.NextStep:
		vm.nextStep()
	case rasl.SetupTransition:
		vm.setupTransition(cmd.N)
	case rasl.ConstrainLengthen:
		vm.constrainLengthen(cmd.N)
	default:
		panic("vm: illegal command at top-level dispatch: " + cmd.Op.String())
	}
}

// --- match commands ---

func (vm *machine) nextStep() {
	vm.projections = nil
	vm.jumps = nil

	if len(vm.dots) == 0 {
		vm.end = true
		return
	}

	vm.border2 = vm.dots[len(vm.dots)-1]
	vm.dots = vm.dots[:len(vm.dots)-1]
	vm.border1 = vm.border2.Twin

	fun := vm.border1.Next
	fn, ok := vm.defs[fun.Sym]
	if !ok {
		vm.err = rerr.New(rerr.Undefined, "undefined function %q", fun.Sym)
		vm.end = true
		return
	}
	vm.commands = fn.Commands

	vm.projections = append(vm.projections, vm.border1.Prev, fun, vm.border2)
	vm.border1 = fun
	vm.commandIndex = 0
}

func (vm *machine) matchEmpty() {
	if vm.border1.Next != vm.border2 {
		vm.fail()
	}
}

func (vm *machine) symbolL(symbol string) {
	if !vm.shiftBorder1() {
		return
	}
	if vm.border1.Kind == runtime.Symbol && vm.border1.Sym == symbol {
		vm.projections = append(vm.projections, vm.border1)
	} else {
		vm.fail()
	}
}

func (vm *machine) symbolR(symbol string) {
	if !vm.shiftBorder2() {
		return
	}
	if vm.border2.Kind == runtime.Symbol && vm.border2.Sym == symbol {
		vm.projections = append(vm.projections, vm.border2)
	} else {
		vm.fail()
	}
}

func (vm *machine) matchStrBracketL() {
	if !vm.shiftBorder1() {
		return
	}
	if vm.border1.Kind != runtime.StrBracketL {
		vm.fail()
		return
	}
	vm.border2 = vm.border1.Twin
	vm.projections = append(vm.projections, vm.border1, vm.border1.Twin)
}

func (vm *machine) matchStrBracketR() {
	if !vm.shiftBorder2() {
		return
	}
	if vm.border2.Kind != runtime.StrBracketR {
		vm.fail()
		return
	}
	vm.projections = append(vm.projections, vm.border2.Twin, vm.border2)
	vm.border2 = vm.border2.Twin
}

func (vm *machine) matchSVarL() {
	if !vm.shiftBorder1() {
		return
	}
	if vm.border1.Kind != runtime.Symbol {
		vm.fail()
		return
	}
	vm.projections = append(vm.projections, vm.border1)
}

func (vm *machine) matchSVarR() {
	if !vm.shiftBorder2() {
		return
	}
	if vm.border2.Kind != runtime.Symbol {
		vm.fail()
		return
	}
	vm.projections = append(vm.projections, vm.border2)
}

func (vm *machine) matchSVarLProj(n int) {
	if !vm.shiftBorder1() {
		return
	}
	if !vm.border1.SameObject(vm.projections[n]) {
		vm.fail()
		return
	}
	vm.projections = append(vm.projections, vm.border1)
}

func (vm *machine) matchSVarRProj(n int) {
	if !vm.shiftBorder2() {
		return
	}
	if !vm.border2.SameObject(vm.projections[n]) {
		vm.fail()
		return
	}
	vm.projections = append(vm.projections, vm.border2)
}

func (vm *machine) matchTVarL() {
	if !vm.shiftBorder1() {
		return
	}
	vm.projections = append(vm.projections, vm.border1)
	if vm.border1.Kind == runtime.StrBracketL {
		vm.border1 = vm.border1.Twin
	}
	vm.projections = append(vm.projections, vm.border1)
}

func (vm *machine) matchTVarR() {
	if !vm.shiftBorder2() {
		return
	}
	toInsert := vm.border2
	if vm.border2.Kind == runtime.StrBracketR {
		vm.border2 = vm.border2.Twin
	}
	vm.projections = append(vm.projections, vm.border2, toInsert)
}

func (vm *machine) matchEVar() {
	start := vm.border1.Next
	end := vm.border2.Prev
	vm.projections = append(vm.projections, start, end)
}

func (vm *machine) matchEVarLProj(n int) {
	node1 := vm.projections[n-1]
	node2 := vm.projections[n]
	start := vm.border1.Next
	border0 := node1.Prev
	for border0 != node2 {
		border0 = border0.Next
		if !vm.shiftBorder1() {
			return
		}
		if border0.SameObject(vm.border1) {
			continue
		}
		vm.fail()
		return
	}
	vm.projections = append(vm.projections, start, vm.border1)
}

func (vm *machine) matchEVarRProj(n int) {
	end := vm.border2.Prev
	node1 := vm.projections[n-1]
	node2 := vm.projections[n]
	border0 := node2.Next
	for border0 != node1 {
		border0 = border0.Prev
		if !vm.shiftBorder2() {
			return
		}
		if border0.SameObject(vm.border2) {
			continue
		}
		vm.fail()
		return
	}
	vm.projections = append(vm.projections, vm.border2, end)
}

func (vm *machine) matchMoveBorders(l, r int) {
	vm.border1 = vm.projections[l]
	vm.border2 = vm.projections[r]
}

func (vm *machine) prepareLengthen() {
	vm.projections = append(vm.projections, vm.border1.Next, vm.border1)
	vm.jumps = append(vm.jumps, jump{
		border1:         vm.border1,
		border2:         vm.border2,
		projectionIndex: len(vm.projections),
		commandIndex:    vm.commandIndex,
	})
	vm.commandIndex++
}

func (vm *machine) lengthen() {
	vm.border1 = vm.projections[len(vm.projections)-1]
	vm.projections = vm.projections[:len(vm.projections)-1]
	if !vm.shiftBorder1() {
		return
	}
	if vm.border1.Kind == runtime.StrBracketL {
		vm.border1 = vm.border1.Twin
	}
	vm.projections = append(vm.projections, vm.border1)
	vm.jumps = append(vm.jumps, jump{
		border1:         vm.border1,
		border2:         vm.border2,
		projectionIndex: len(vm.projections),
		commandIndex:    vm.commandIndex - 1,
	})
}

func (vm *machine) setupTransition(commandIndex int) {
	vm.jumps = append(vm.jumps, jump{
		border1:         vm.border1,
		border2:         vm.border2,
		projectionIndex: len(vm.projections),
		commandIndex:    commandIndex,
	})
}

func (vm *machine) constrainLengthen(n int) {
	for i := 0; i < n; i++ {
		vm.jumps = vm.jumps[:len(vm.jumps)-1]
	}
}

// --- construction phase ---

// transplant is a deferred splice: the run of nodes from start to end
// (inclusive) is cut from wherever it currently lives and relinked right
// after border, once the whole rewrite has finished being built (spec §5.2
// CompleteStep). Deferring this way lets a variable's own matched nodes be
// moved into the result without disturbing move_border's own cursor while
// the rest of the rewrite is still being laid down.
type transplant struct {
	border, start, end *runtime.Node
}

// moveBorder runs the construction phase of one matched sentence: it reads
// Insert/Copy/Transplant/CompleteStep commands directly out of vm.commands
// starting at vm.commandIndex (MoveBorder itself was already consumed by
// the top-level dispatch) until it reaches the NextStep that terminates the
// sentence, at which point any FunBracketR nodes it created are queued onto
// vm.dots and control returns to the top-level loop to actually execute
// NextStep.
func (vm *machine) moveBorder() {
	border := vm.projections[0]
	var localDots []*runtime.Node
	var lBrackets []*runtime.Node
	var lFunBrackets []*runtime.Node
	var transplants []transplant

	for {
		cmd := vm.commands[vm.commandIndex]
		switch cmd.Op {
		case rasl.InsertSymbol:
			sym := runtime.NewSymbol(cmd.Str)
			next := border.Next
			runtime.LinkNodes(border, sym)
			border = sym
			runtime.LinkNodes(border, next)

		case rasl.InsertStrBracketL:
			l := runtime.NewNode(runtime.StrBracketL)
			lBrackets = append(lBrackets, l)
			next := border.Next
			runtime.LinkNodes(border, l)
			border = l
			runtime.LinkNodes(border, next)

		case rasl.InsertStrBracketR:
			r := runtime.NewNode(runtime.StrBracketR)
			l := lBrackets[len(lBrackets)-1]
			lBrackets = lBrackets[:len(lBrackets)-1]
			runtime.PairNodes(l, r)
			next := border.Next
			runtime.LinkNodes(border, r)
			border = r
			runtime.LinkNodes(border, next)

		case rasl.InsertFunBracketL:
			l := runtime.NewNode(runtime.FunBracketL)
			lFunBrackets = append(lFunBrackets, l)
			next := border.Next
			runtime.LinkNodes(border, l)
			border = l
			runtime.LinkNodes(border, next)

		case rasl.InsertFunBracketR:
			r := runtime.NewNode(runtime.FunBracketR)
			l := lFunBrackets[len(lFunBrackets)-1]
			lFunBrackets = lFunBrackets[:len(lFunBrackets)-1]
			runtime.PairNodes(l, r)
			next := border.Next
			runtime.LinkNodes(border, r)
			border = r
			runtime.LinkNodes(border, next)
			localDots = append(localDots, border)

		case rasl.TransplantObject:
			node := vm.projections[cmd.N]
			transplants = append(transplants, transplant{border: border, start: node, end: node})

		case rasl.TransplantExpr:
			start := vm.projections[cmd.N-1]
			end := vm.projections[cmd.N]
			if end.Next != start {
				transplants = append(transplants, transplant{border: border, start: start, end: end})
			}

		case rasl.CopySymbol:
			node := vm.projections[cmd.N]
			sym := runtime.NewSymbol(node.Sym)
			next := border.Next
			runtime.LinkNodes(border, sym)
			border = sym
			runtime.LinkNodes(border, next)

		case rasl.CopyExpr:
			node1 := vm.projections[cmd.N-1]
			node2 := vm.projections[cmd.N]
			next := border.Next
			cur := node1.Prev
			for cur != node2 {
				cur = cur.Next
				switch cur.Kind {
				case runtime.StrBracketL:
					ins := runtime.NewNode(runtime.StrBracketL)
					lBrackets = append(lBrackets, ins)
					runtime.LinkNodes(border, ins)
					border = ins
				case runtime.StrBracketR:
					ins := runtime.NewNode(runtime.StrBracketR)
					l := lBrackets[len(lBrackets)-1]
					lBrackets = lBrackets[:len(lBrackets)-1]
					runtime.PairNodes(l, ins)
					runtime.LinkNodes(border, ins)
					border = ins
				default:
					ins := &runtime.Node{Kind: cur.Kind, Sym: cur.Sym}
					runtime.LinkNodes(border, ins)
					border = ins
				}
			}
			runtime.LinkNodes(border, next)

		case rasl.CompleteStep:
			anchor := vm.projections[2]
			var garbage *runtime.Node
			if border != anchor {
				next := anchor.Next
				firstToDelete := border.Next
				lastToDelete := next.Prev
				runtime.LinkNodes(border, next)
				runtime.UnlinkNext(lastToDelete)
				runtime.UnlinkPrev(firstToDelete)
				garbage = firstToDelete
			}
			for i := len(transplants) - 1; i >= 0; i-- {
				t := transplants[i]
				runtime.LinkNodes(t.start.Prev, t.end.Next)
				runtime.LinkNodes(t.end, t.border.Next)
				runtime.LinkNodes(t.border, t.start)
			}
			transplants = nil
			_ = garbage // unreachable once unlinked; reclaimed by the garbage collector

		case rasl.NextStep:
			for i := len(localDots) - 1; i >= 0; i-- {
				vm.dots = append(vm.dots, localDots[i])
			}
			return

		default:
			panic("vm: illegal command in construction phase: " + cmd.Op.String())
		}
		vm.commandIndex++
	}
}

// --- utilities ---

func (vm *machine) fail() {
	if len(vm.jumps) == 0 {
		vm.err = rerr.New(rerr.Recognition, "recognition impossible")
		vm.end = true
		return
	}
	j := vm.jumps[len(vm.jumps)-1]
	vm.jumps = vm.jumps[:len(vm.jumps)-1]
	vm.border1 = j.border1
	vm.border2 = j.border2
	vm.projections = vm.projections[:j.projectionIndex]
	vm.commandIndex = j.commandIndex
}

func (vm *machine) shiftBorder1() bool {
	vm.border1 = vm.border1.Next
	if vm.border1 == vm.border2 {
		vm.fail()
		return false
	}
	return true
}

func (vm *machine) shiftBorder2() bool {
	vm.border2 = vm.border2.Prev
	if vm.border1 == vm.border2 {
		vm.fail()
		return false
	}
	return true
}
