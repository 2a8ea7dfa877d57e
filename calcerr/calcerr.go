// Package calcerr defines the shared error taxonomy used by every layer of
// the calculator engine, from the arena up through Context. Every fallible
// operation in the engine returns one of these kinds; none of them are ever
// produced by a panic over user-supplied data.
package calcerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the engine's well-known failure modes.
type Kind int

const (
	NotEnoughValues Kind = iota
	NotANumber
	NotARealNumber
	InvalidInteger
	DataTypeMismatch
	DimensionMismatch
	IncompatibleUnits
	InvalidEntry
	IndexOutOfRange
	ValueNotDefined
	ValueOutOfRange
	FloatRequiresDecimalMode
	RequiresSizedIntegerMode
	InvalidDate
	InvalidTime
	OutOfMemory
	StackOverflow
	CorruptData
	UndoBufferEmpty
	VectorTooLarge
	MatrixTooLarge
)

var names = [...]string{
	"not enough values",
	"not a number",
	"not a real number",
	"invalid integer",
	"data type mismatch",
	"dimension mismatch",
	"incompatible units",
	"invalid entry",
	"index out of range",
	"value not defined",
	"value out of range",
	"requires decimal mode",
	"requires sized integer mode",
	"invalid date",
	"invalid time",
	"out of memory",
	"stack overflow",
	"corrupt data",
	"undo buffer empty",
	"vector too large",
	"matrix too large",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(names) {
		return "unknown error"
	}
	return names[k]
}

// Error is the concrete error type returned across the engine. It carries a
// Kind that callers can switch on with errors.As, plus optional context.
type Error struct {
	Kind    Kind
	Context string
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

// New builds an *Error for the given kind with no extra context.
func New(kind Kind) error {
	return &Error{Kind: kind}
}

// Newf builds an *Error for the given kind with formatted context.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Context: fmt.Sprintf(format, args...)}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
