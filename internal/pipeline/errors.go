package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGraph    = errors.New("invalid graph")
	ErrCycle           = errors.New("cycle detected")
	ErrMissingInput    = errors.New("missing input")
	ErrUndeclaredField = errors.New("undeclared output field")
	ErrFieldOverwrite  = errors.New("field already set")
	ErrIncompleteState = errors.New("incomplete state")
)

// GraphError carries a sentinel kind plus a human readable detail.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func kindf(kind error, format string, args ...any) error {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
