// Package dsl parses YAML DSL documents into ast nodes: top-level kind
// dispatch, the condition mini-language (delegated to package ast), and
// import resolution with cycle detection.
package dsl

import "fmt"

// ParseError is a structured parse failure carrying the offending field and
// what was expected versus found, per spec §4.1. Raised at load time, never
// surfaced during Decide (spec §7).
type ParseError struct {
	Path     string // source file the error occurred in
	Field    string
	Expected string
	Actual   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dsl: parse error in %s: field %q expected %s, got %s", e.Path, e.Field, e.Expected, e.Actual)
}

// CyclicImportError is raised when the ImportResolver's DFS coloring finds a
// back-edge to a gray (in-progress) node.
type CyclicImportError struct {
	Cycle []string
}

func (e *CyclicImportError) Error() string {
	s := "dsl: cyclic import: "
	for i, p := range e.Cycle {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return s
}
