package stagez

import (
	"errors"
	"fmt"
)

// Binding and registration errors. Every *Error wraps exactly one of these,
// so callers match with errors.Is.
var (
	ErrDuplicateName = errors.New("duplicate name")
	ErrNotFound      = errors.New("not found")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrNilFactory    = errors.New("nil factory")
	ErrClosed        = errors.New("pipeline closed")
)

// Kind identifies which namespace a failing name belongs to.
type Kind string

// Name namespaces.
const (
	KindStage  Kind = "stage"
	KindInput  Kind = "input"
	KindOutput Kind = "output"
)

// Error provides context about a failed registration or lookup. It records
// which pipeline and operation failed, the name involved and, for type
// mismatches, both sides of the comparison.
type Error struct {
	Expected TypeToken
	Got      TypeToken
	Err      error
	Pipeline Name
	Op       string
	Kind     Kind
	Name     Name
}

// Error implements the error interface.
func (e *Error) Error() string {
	location := fmt.Sprintf("stagez: %s: %s %s %q", e.Pipeline, e.Op, e.Kind, e.Name)
	if errors.Is(e.Err, ErrTypeMismatch) {
		return fmt.Sprintf("%s: %v: expected %s, got %s", location, e.Err, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s: %v", location, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsDuplicate returns true if the error was caused by a name collision.
func (e *Error) IsDuplicate() bool {
	return errors.Is(e.Err, ErrDuplicateName)
}

// IsNotFound returns true if the error was caused by an unknown name.
func (e *Error) IsNotFound() bool {
	return errors.Is(e.Err, ErrNotFound)
}

// IsTypeMismatch returns true if the error was caused by a token mismatch.
func (e *Error) IsTypeMismatch() bool {
	return errors.Is(e.Err, ErrTypeMismatch)
}
