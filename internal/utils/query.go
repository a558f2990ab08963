// Package utils holds small query-string parsing helpers for the handlers.
package utils

import "strconv"

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// not a number.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// BoolDefault parses s with strconv.ParseBool ("1", "t", "true", ...),
// returning def when s is empty or unparseable.
func BoolDefault(s string, def bool) bool {
	if s == "" {
		return def
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return def
}
