package util

import (
	"errors"
	"os"
)

var (
	errNoQuery    = errors.New("expected exactly one query argument")
	errQueryTwice = errors.New("cannot combine a query argument with --file")
)

// StdoutRedirected returns true if stdout is redirected to a file or pipe.
func StdoutRedirected() bool {
	if fi, err := os.Stdout.Stat(); err == nil {
		return (fi.Mode() & os.ModeCharDevice) == 0
	}
	return false
}

// ReadQuery returns the query text of a command: the single argument, or
// the contents of file if it is set.
func ReadQuery(args []string, file string) (string, error) {
	if file != "" {
		if len(args) > 0 {
			return "", errQueryTwice
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if len(args) != 1 {
		return "", errNoQuery
	}
	return args[0], nil
}
