// Package globalize implements the name-qualification pass (spec §2 step 2):
// every Symbol immediately following a FunBracketL that does not already
// contain '.' is rewritten to "<module>.<Symbol>". Function definitions are
// qualified unconditionally, since a function is always addressed by its
// fully-qualified name once compiled (spec §4.1.2, §4.3.2).
package globalize

import (
	"strings"

	"github.com/relang/refal/internal/ast"
)

// Module qualifies every function name and every call-position symbol in m.
func Module(m ast.Module) ast.Module {
	out := ast.Module{Name: m.Name, Functions: make([]ast.Function, len(m.Functions))}
	for i, f := range m.Functions {
		out.Functions[i] = function(m.Name, f)
	}
	return out
}

func function(moduleName string, f ast.Function) ast.Function {
	out := ast.Function{
		Name:      moduleName + "." + f.Name,
		Sentences: make([]ast.Sentence, len(f.Sentences)),
	}
	for i, s := range f.Sentences {
		out.Sentences[i] = sentence(moduleName, s)
	}
	return out
}

func sentence(moduleName string, s ast.Sentence) ast.Sentence {
	// Only the rewrite is qualified: calls are constructed at rewrite time,
	// never matched against in the pattern.
	return ast.Sentence{
		Pattern: s.Pattern,
		Rewrite: expression(moduleName, s.Rewrite),
	}
}

func expression(moduleName string, objs []ast.Object) []ast.Object {
	out := make([]ast.Object, len(objs))
	prevWasFunBracketL := false
	for i, o := range objs {
		if o.Kind == ast.Sym && prevWasFunBracketL && !strings.Contains(o.Name, ".") {
			out[i] = ast.Symbol(moduleName + "." + o.Name)
		} else {
			out[i] = o
		}
		prevWasFunBracketL = o.Kind == ast.FunBracketL
	}
	return out
}
