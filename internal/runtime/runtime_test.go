package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_InitView_bracketPairingAndChainIntegrity(t *testing.T) {
	dots, chain := InitView("mymod.Main")
	if !assert.Len(t, dots, 1) {
		return
	}
	assert.Equal(t, FunBracketR, dots[0].Kind)

	// chain integrity: every non-sentinel node's prev.next == n and
	// next.prev == n (spec §8).
	for n := chain.First; n != nil; n = n.Next {
		if n.Prev != nil {
			assert.Same(t, n, n.Prev.Next)
		}
		if n.Next != nil {
			assert.Same(t, n, n.Next.Prev)
		}
	}

	// bracket pairing: twin.twin == n, and twin is on the opposite side.
	for n := chain.First; n != nil; n = n.Next {
		if n.Kind == StrBracketL || n.Kind == StrBracketR || n.Kind == FunBracketL || n.Kind == FunBracketR {
			if !assert.NotNil(t, n.Twin) {
				continue
			}
			assert.Same(t, n, n.Twin.Twin)
		}
	}
}

func Test_Flatten_dropsSentinels(t *testing.T) {
	_, chain := InitView("mymod.Main")
	objs := Flatten(chain)
	assert.Equal(t, []Object{
		{Kind: FunBracketL},
		{Kind: Symbol, Sym: "mymod.Main"},
		{Kind: FunBracketR},
	}, objs)
}

func Test_SameObject(t *testing.T) {
	a := NewSymbol("x")
	b := NewSymbol("x")
	c := NewSymbol("y")
	assert.True(t, a.SameObject(b))
	assert.False(t, a.SameObject(c))

	bl := NewNode(StrBracketL)
	assert.False(t, a.SameObject(bl))
}

func Test_LinkAndPairNodes(t *testing.T) {
	a := NewSymbol("a")
	b := NewSymbol("b")
	LinkNodes(a, b)
	assert.Same(t, b, a.Next)
	assert.Same(t, a, b.Prev)

	l := NewNode(StrBracketL)
	r := NewNode(StrBracketR)
	PairNodes(l, r)
	assert.Same(t, r, l.Twin)
	assert.Same(t, l, r.Twin)
}
