package util

import (
	"cmp"
	"slices"

	"golang.org/x/exp/maps"
)

/*
Utility functions.
*/

////////////////////////////////////////////////////////////////////////////////

// Okeys returns the keys of a map in sorted order.
func Okeys[T cmp.Ordered, K any](m map[T]K) []T {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// Map applies f to every element of a slice.
func Map[T, U any](records []T, f func(T) U) []U {
	out := make([]U, len(records))
	for i, record := range records {
		out[i] = f(record)
	}
	return out
}

// When returns a if cond is true, otherwise b.
func When[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
