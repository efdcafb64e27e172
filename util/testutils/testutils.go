package testutils

import (
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/wkalt/treeq/value"
)

/*
General purpose test utilitites.
*/

////////////////////////////////////////////////////////////////////////////////

// GetOpenPort returns an open port that can be used for testing.
func GetOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Flatten concatenates slices of the same type.
func Flatten[T any](slices ...[]T) []T {
	var result []T
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}

// StripSpace removes line breaks and collapses runs of spaces, so that
// rendered expressions can be compared against indented literals.
func StripSpace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Must converts an interface to a specific type or fails the test.
func Must[T any](t *testing.T, x any) T {
	t.Helper()
	v, ok := x.(T)
	if !ok {
		t.Fatalf("expected %T, got %T", v, x)
	}
	return v
}

// Ints returns a sequence of integers.
func Ints(xs ...int64) value.Seq {
	seq := make(value.Seq, len(xs))
	for i, x := range xs {
		seq[i] = value.Int(x)
	}
	return seq
}
