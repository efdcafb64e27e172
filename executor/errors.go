package executor

import (
	"errors"
	"fmt"

	"github.com/wkalt/treeq/value"
)

// ErrCancelled is returned when evaluation is aborted through its context.
var ErrCancelled = errors.New("evaluation cancelled")

// typeErrorf returns a value.TypeError annotated with a source location.
func typeErrorf(pos Pos, format string, args ...any) error {
	return fmt.Errorf("%s: %w", pos, value.NewTypeError(format, args...))
}

// withPos annotates an error with a source location.
func withPos(pos Pos, err error) error {
	return fmt.Errorf("%s: %w", pos, err)
}

// ArityError is returned when a function is called with the wrong number of
// arguments, or a positional argument is out of bounds.
type ArityError struct {
	Msg string
}

func newArityError(name string, expected string, actual int) ArityError {
	return ArityError{Msg: fmt.Sprintf("%s expects %s, got %d", name, expected, actual)}
}

func newBoundsError(name string, what string, pos int64) ArityError {
	return ArityError{Msg: fmt.Sprintf("%s: %s %d out of bounds", name, what, pos)}
}

func (e ArityError) Error() string {
	return "arity error: " + e.Msg
}

func (e ArityError) Is(target error) bool {
	_, ok := target.(ArityError)
	return ok
}

// UpdateConflictError is returned when the updating annotation of a function
// disagrees with its body.
type UpdateConflictError struct {
	Msg string
}

func (e UpdateConflictError) Error() string {
	return "update conflict: " + e.Msg
}

func (e UpdateConflictError) Is(target error) bool {
	_, ok := target.(UpdateConflictError)
	return ok
}

// UndefinedError is returned for references to unknown variables, functions,
// data sources or an absent context item.
type UndefinedError struct {
	Kind string
	Name string
}

func (e UndefinedError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("undefined %s", e.Kind)
	}
	return fmt.Sprintf("undefined %s %s", e.Kind, e.Name)
}

func (e UndefinedError) Is(target error) bool {
	_, ok := target.(UndefinedError)
	return ok
}

// UserError is raised by the error function.
type UserError struct {
	Code    string
	Message string
	Value   value.Seq
}

func (e UserError) Error() string {
	if len(e.Value) > 0 {
		return fmt.Sprintf("%s: %s %s", e.Code, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e UserError) Is(target error) bool {
	_, ok := target.(UserError)
	return ok
}

// ErrCallDepth is returned when function calls nest too deeply.
var ErrCallDepth = errors.New("maximum call depth exceeded")
