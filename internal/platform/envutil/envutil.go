// Package envutil reads typed values out of the process environment
// with a fallback default. Adapted from the teacher's
// internal/platform/envutil package (originally Int-only) with the
// sibling helpers internal/config needs for the rest of spec.md §6's
// environment variable surface.
package envutil

import (
	"os"
	"strconv"
	"strings"
)

// Int reads an integer environment variable, returning def if unset
// or unparseable.
func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Bool reads a boolean environment variable, returning def if unset
// or unparseable.
func Bool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// String reads a string environment variable, returning def if unset
// or empty.
func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// List reads a comma-separated environment variable into a trimmed,
// non-empty slice, returning def if unset or empty.
func List(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
