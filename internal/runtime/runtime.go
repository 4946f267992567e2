// Package runtime implements the view field (spec §5.1): a doubly-linked
// chain of Nodes bounded by First/Last sentinels, with paired StrBracket and
// FunBracket nodes carrying a Twin link to their matching partner. The
// abstract machine (internal/vm) walks and mutates this chain directly;
// this package only owns the node/chain primitives and the two whole-chain
// operations (initial view construction and final flattening) that don't
// belong to any single VM command.
package runtime

import "fmt"

// Kind identifies what a Node represents in the view field.
type Kind int

const (
	Symbol Kind = iota
	StrBracketL
	StrBracketR
	FunBracketL
	FunBracketR
	First // left sentinel, never matched against
	Last  // right sentinel, never matched against
)

func (k Kind) String() string {
	names := [...]string{"Symbol", "StrBracketL", "StrBracketR", "FunBracketL", "FunBracketR", "First", "Last"}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one cell of the view field. Go has no borrow checker, so unlike
// the reference implementation's Rc<RefCell<Node>> graph, links are plain
// pointers mutated directly by internal/vm.
type Node struct {
	Kind Kind
	Sym  string // valid when Kind == Symbol

	Prev *Node
	Next *Node
	Twin *Node // paired bracket, or nil for Symbol/First/Last
}

// NewNode allocates a bracket or sentinel node.
func NewNode(kind Kind) *Node { return &Node{Kind: kind} }

// NewSymbol allocates a Symbol node carrying s.
func NewSymbol(s string) *Node { return &Node{Kind: Symbol, Sym: s} }

// SameObject reports whether n and other carry the same object identity for
// matching purposes (spec §5.2 MatchSVarLProj/RProj and MatchEVarLProj/RProj
// compare previously-bound nodes by object equality, not node identity).
func (n *Node) SameObject(other *Node) bool {
	return n.Kind == other.Kind && n.Sym == other.Sym
}

// Chain is a complete view field: the sentinel-bounded node list that the VM
// matches against and rewrites in place.
type Chain struct {
	First *Node
	Last  *Node
}

// LinkNodes splices b in as a's immediate successor.
func LinkNodes(a, b *Node) {
	a.Next = b
	b.Prev = a
}

// UnlinkPrev severs n's backward link, used when detaching a run of garbage
// nodes from the live chain (spec §5.2 CompleteStep).
func UnlinkPrev(n *Node) { n.Prev = nil }

// UnlinkNext severs n's forward link.
func UnlinkNext(n *Node) { n.Next = nil }

// PairNodes records a and b as each other's bracket twin.
func PairNodes(a, b *Node) {
	a.Twin = b
	b.Twin = a
}

// Object is a flattened, sentinel-free view of a chain's contents — the
// materialized result sequence (spec §5.1 Design Notes, §8).
type Object struct {
	Kind Kind
	Sym  string
}

func (o Object) String() string {
	switch o.Kind {
	case Symbol:
		return o.Sym
	case StrBracketL:
		return "("
	case StrBracketR:
		return ")"
	case FunBracketL:
		return "<"
	case FunBracketR:
		return ">"
	default:
		return o.Kind.String()
	}
}

// Flatten walks chain from First to Last and returns its contents with the
// sentinels dropped.
func Flatten(chain *Chain) []Object {
	var out []Object
	for cur := chain.First; cur != nil; cur = cur.Next {
		if cur.Kind == First || cur.Kind == Last {
			continue
		}
		out = append(out, Object{Kind: cur.Kind, Sym: cur.Sym})
	}
	return out
}

// InitView builds the initial view field for evaluating a goal expression
// that is a single call to main: First <main> Last, with the call brackets
// paired. It returns the one-element initial activation queue (spec §5.3
// "dots") holding the FunBracketR of that call.
func InitView(main string) ([]*Node, *Chain) {
	first := NewNode(First)
	funBrL := NewNode(FunBracketL)
	fun := NewSymbol(main)
	funBrR := NewNode(FunBracketR)
	last := NewNode(Last)

	LinkNodes(first, funBrL)
	LinkNodes(funBrL, fun)
	LinkNodes(fun, funBrR)
	LinkNodes(funBrR, last)
	PairNodes(funBrL, funBrR)

	return []*Node{funBrR}, &Chain{First: first, Last: last}
}
