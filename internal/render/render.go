// Package render turns a flattened internal/runtime result sequence into the
// surface text shown to a CLI or REPL user, wrapping it for the terminal the
// way the teacher's engine wraps console and debug output with
// github.com/dekarrin/rosed.
package render

import (
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/relang/refal/internal/runtime"
)

// DefaultWidth is the column width results are wrapped to when no other
// width is requested, matching the teacher's console output width.
const DefaultWidth = 80

// Result joins objects back into Refal surface syntax: symbols separated by
// spaces, structure brackets and call brackets rendered without surrounding
// space on their inner side.
func Result(objects []runtime.Object) string {
	var sb strings.Builder
	for i, o := range objects {
		if i > 0 && needsSpace(objects[i-1], o) {
			sb.WriteByte(' ')
		}
		sb.WriteString(o.String())
	}
	return sb.String()
}

func needsSpace(prev, cur runtime.Object) bool {
	if prev.Kind == runtime.StrBracketL || prev.Kind == runtime.FunBracketL {
		return false
	}
	if cur.Kind == runtime.StrBracketR || cur.Kind == runtime.FunBracketR {
		return false
	}
	return true
}

// Wrapped renders objects as Result and wraps the text to width columns,
// width<=0 selecting DefaultWidth.
func Wrapped(objects []runtime.Object, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return rosed.Edit(Result(objects)).Wrap(width).String()
}
