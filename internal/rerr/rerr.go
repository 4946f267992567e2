// Package rerr defines the typed errors surfaced by the lexer, parser,
// compiler, and VM (spec §7). Each kind carries a human-readable message and
// may wrap an underlying cause.
package rerr

import "fmt"

// Kind identifies which of §7's error categories an error belongs to.
type Kind int

const (
	// Lexing indicates the source text could not be tokenized.
	Lexing Kind = iota
	// Parsing indicates the token stream did not match the surface grammar.
	Parsing
	// IllegalState indicates an internal invariant was violated; it signals
	// a bug in the compiler or VM rather than a problem with user input.
	IllegalState
	// Undefined indicates a call to a function with no matching definition.
	Undefined
	// Recognition indicates the jumps stack emptied on failure: the goal
	// (or some nested activation) had no sentence that matched.
	Recognition
)

func (k Kind) String() string {
	switch k {
	case Lexing:
		return "Lexing"
	case Parsing:
		return "Parsing"
	case IllegalState:
		return "IllegalState"
	case Undefined:
		return "Undefined"
	case Recognition:
		return "Recognition"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a typed error carrying a Kind, a human message, and an optional
// wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Wrap error
}

func (e *Error) Error() string {
	if e.Wrap != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Wrap)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause, if any, so that errors.Is/errors.As see
// through an *Error to what it wraps.
func (e *Error) Unwrap() error {
	return e.Wrap
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, format string, a ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Wrap builds an *Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, a ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Wrap: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
