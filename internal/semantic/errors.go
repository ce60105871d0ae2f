// Package semantic implements C4: symbol resolution, bottom-up type
// inference over ast.Expr, and pipeline DAG validation. It never executes
// anything — it only proves (or disproves) that a Document is safe to
// compile.
package semantic

import "fmt"

// Variant enumerates the CompileError families from spec §4.3. Only the
// semantic analyzer (this package) raises CompileError; package ir's
// Compile returns these errors and adds none of its own. The type lives
// here because semantic is the lower package in the dependency order (ir
// imports semantic, never the reverse).
type Variant int

const (
	UndefinedSymbol Variant = iota
	TypeError
	InvalidExpression
	UnsupportedFeature
	CyclicPipeline
	Internal
)

func (v Variant) String() string {
	switch v {
	case UndefinedSymbol:
		return "UndefinedSymbol"
	case TypeError:
		return "TypeError"
	case InvalidExpression:
		return "InvalidExpression"
	case UnsupportedFeature:
		return "UnsupportedFeature"
	case CyclicPipeline:
		return "CyclicPipeline"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// CompileError is a single semantic/compile failure. All compile errors are
// surfaced at engine-load time, never during Decide (spec §7).
type CompileError struct {
	Variant Variant
	Subject string // rule/ruleset/pipeline/step id this error concerns
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Variant, e.Subject, e.Message)
}

func newErr(variant Variant, subject, format string, args ...any) *CompileError {
	return &CompileError{Variant: variant, Subject: subject, Message: fmt.Sprintf(format, args...)}
}
