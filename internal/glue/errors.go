package glue

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a glueing failure.
type Kind int

const (
	// KindPrecondition marks a caller error: wrong state, bad target,
	// non-pole input.
	KindPrecondition Kind = iota + 1
	// KindExhausted marks a search that found no acceptable result.
	KindExhausted
	// KindNumeric marks a degenerate geometric configuration.
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindExhausted:
		return "exhausted"
	case KindNumeric:
		return "numeric"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel errors, one per kind.
var (
	ErrPrecondition = errors.New("precondition violated")
	ErrNoGlueing    = errors.New("no glueing found")
	ErrDegenerate   = errors.New("degenerate geometry")
)

// Error is the error type returned by glueing operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPrecondition:
		return e.Kind == KindPrecondition
	case ErrNoGlueing:
		return e.Kind == KindExhausted
	case ErrDegenerate:
		return e.Kind == KindNumeric
	}
	return false
}

// Preconditionf returns a KindPrecondition error.
func Preconditionf(op, format string, args ...interface{}) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: errors.Errorf(format, args...)}
}

// Exhaustedf returns a KindExhausted error.
func Exhaustedf(op, format string, args ...interface{}) error {
	return &Error{Kind: KindExhausted, Op: op, Err: errors.Errorf(format, args...)}
}

// Wrap attaches kind and op to err. It returns nil for a nil err.
func Wrap(err error, kind Kind, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
