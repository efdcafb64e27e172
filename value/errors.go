package value

import "fmt"

// TypeError is raised for incomparable items, failed coercions and impossible
// cardinalities.
type TypeError struct {
	Msg string
}

// NewTypeError returns a new type error.
func NewTypeError(format string, args ...any) TypeError {
	return TypeError{Msg: fmt.Sprintf(format, args...)}
}

func (e TypeError) Error() string {
	return "type error: " + e.Msg
}

// Is reports whether the target is a type error.
func (e TypeError) Is(target error) bool {
	_, ok := target.(TypeError)
	return ok
}
