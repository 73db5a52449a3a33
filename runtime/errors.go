package runtime

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed enumeration of recoverable render errors. A
// guarded block recovers from exactly these kinds; anything else propagates.
type ErrorKind uint8

const (
	// ErrName is a failed name lookup in the dynamic context or locals.
	ErrName ErrorKind = iota

	// ErrValue is a malformed or out-of-domain value.
	ErrValue

	// ErrAttribute is a failed member access on a value.
	ErrAttribute

	// ErrLookup is a failed key or index access on a container.
	ErrLookup

	// ErrType is an operation applied to a value of the wrong type.
	ErrType
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrName:
		return "name"
	case ErrValue:
		return "value"
	case ErrAttribute:
		return "attribute"
	case ErrLookup:
		return "lookup"
	case ErrType:
		return "type"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error is a recoverable render error raised by the runtime context,
// path traversal or value conversion.
type Error struct {
	Kind ErrorKind
	Name string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Name)
}

// Recoverable reports whether err belongs to the closed recoverable set.
func Recoverable(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

func nameError(name string) *Error {
	return &Error{Kind: ErrName, Name: name}
}

func lookupError(key string) *Error {
	return &Error{Kind: ErrLookup, Name: key}
}

func attributeError(name string) *Error {
	return &Error{Kind: ErrAttribute, Name: name}
}

func typeError(format string, args ...any) *Error {
	return &Error{Kind: ErrType, Msg: fmt.Sprintf(format, args...)}
}

func valueError(format string, args ...any) *Error {
	return &Error{Kind: ErrValue, Msg: fmt.Sprintf(format, args...)}
}
