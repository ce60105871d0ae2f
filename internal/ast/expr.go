// Package ast defines the tree form of the DSL: expressions, rules,
// rulesets, pipelines, feature definitions, and imports. The parser (package
// dsl) builds these nodes from YAML; the semantic analyzer and IR compiler
// consume them read-only. AST is discarded once compilation succeeds
// (spec §3 Lifecycle).
package ast

import (
	"fmt"

	"github.com/riskline/decisionengine/internal/value"
	"gopkg.in/yaml.v3"
)

// ExprKind tags the Expr sum type. Dispatch throughout the compiler and
// analyzer switches on Kind rather than using type assertions, mirroring
// the teacher's Match struct (policy/types.go) which picks a sub-matcher by
// which pointer field is non-nil — here a single tag serves the same role.
type ExprKind int

const (
	KindLiteral ExprKind = iota
	KindVarRef
	KindUnary
	KindBinary
	KindCompare
	KindCall
	KindTernary
	KindTemplate
	KindGroup
)

// UnaryOp is the operator for a KindUnary node.
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
)

// GroupMode distinguishes ConditionGroup's all/any sugar. Per spec §3,
// empty All is true and empty Any is false — a detail that would be lost
// if Group were flattened into plain nested Binary(and/or) nodes, so it
// gets its own ExprKind instead.
type GroupMode int

const (
	GroupAll GroupMode = iota
	GroupAny
)

// TemplatePart is one segment of a KindTemplate node: either literal text
// or a `{path}` interpolation rewritten to a variable reference.
type TemplatePart struct {
	Literal string
	Path    string // non-empty when this part is an interpolation
}

// Expr is the recursive expression tree: literal | variable reference |
// unary | binary (arith/logical) | compare (comparison/membership/string
// predicate) | call | ternary | template | group.
type Expr struct {
	Kind ExprKind

	// KindLiteral
	Literal value.Value

	// KindVarRef
	Path string

	// KindUnary
	UnaryOp UnaryOp
	Operand *Expr

	// KindBinary
	BinaryOp value.BinaryArithOp
	Left     *Expr
	Right    *Expr

	// KindCompare (reuses Left/Right above)
	CompareOp value.CompareOp

	// KindCall
	Func string
	Args []*Expr

	// KindTernary
	Cond *Expr
	Then *Expr
	Else *Expr

	// KindTemplate
	Parts []TemplatePart

	// KindGroup
	GroupMode GroupMode
	Items     []*Expr
}

// Lit builds a literal Expr node.
func Lit(v value.Value) *Expr { return &Expr{Kind: KindLiteral, Literal: v} }

// Var builds a variable-reference Expr node.
func Var(path string) *Expr { return &Expr{Kind: KindVarRef, Path: path} }

// Cmp builds a comparison/membership/string-predicate Expr node.
func Cmp(left *Expr, op value.CompareOp, right *Expr) *Expr {
	return &Expr{Kind: KindCompare, CompareOp: op, Left: left, Right: right}
}

// Bin builds an arithmetic/logical binary Expr node.
func Bin(left *Expr, op value.BinaryArithOp, right *Expr) *Expr {
	return &Expr{Kind: KindBinary, BinaryOp: op, Left: left, Right: right}
}

// Un builds a unary Expr node.
func Un(op UnaryOp, operand *Expr) *Expr {
	return &Expr{Kind: KindUnary, UnaryOp: op, Operand: operand}
}

// NewGroup builds a ConditionGroup Expr node. An empty All group is
// equivalent to Lit(true); an empty Any group is equivalent to Lit(false) —
// the compiler special-cases both rather than emitting a degenerate loop.
func NewGroup(mode GroupMode, items []*Expr) *Expr {
	return &Expr{Kind: KindGroup, GroupMode: mode, Items: items}
}

// UnmarshalYAML parses a `when`/value-position field that may appear as a
// condition-mini-language string ("amount > 100") or a structured mapping
// ({all: [...]} / {any: [...]} / a nested expression document). Scalars are
// routed through the recursive-descent condition tokenizer in condstring.go;
// mappings are decoded into an intermediate rawExpr and lowered below.
func (e *Expr) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		parsed, err := ParseConditionString(s)
		if err != nil {
			return fmt.Errorf("ast: condition string %q: %w", s, err)
		}
		*e = *parsed
		return nil
	case yaml.MappingNode:
		var raw rawExpr
		if err := node.Decode(&raw); err != nil {
			return err
		}
		parsed, err := raw.lower()
		if err != nil {
			return err
		}
		*e = *parsed
		return nil
	default:
		return fmt.Errorf("ast: unsupported YAML node kind %v for expression", node.Kind)
	}
}

// rawExpr is the structured-YAML shape for a condition/expression, used only
// during decode. It covers the `all`/`any` group sugar plus an explicit
// atomic form; the shorthand string form never reaches this type.
type rawExpr struct {
	All   []Expr `yaml:"all,omitempty"`
	Any   []Expr `yaml:"any,omitempty"`
	Left  *Expr  `yaml:"left,omitempty"`
	Op    string `yaml:"op,omitempty"`
	Right *Expr  `yaml:"right,omitempty"`
	Not   *Expr  `yaml:"not,omitempty"`
}

func (r rawExpr) lower() (*Expr, error) {
	switch {
	case r.All != nil:
		items := make([]*Expr, len(r.All))
		for i := range r.All {
			e := r.All[i]
			items[i] = &e
		}
		return NewGroup(GroupAll, items), nil
	case r.Any != nil:
		items := make([]*Expr, len(r.Any))
		for i := range r.Any {
			e := r.Any[i]
			items[i] = &e
		}
		return NewGroup(GroupAny, items), nil
	case r.Not != nil:
		return Un(UnaryNot, r.Not), nil
	case r.Left != nil && r.Right != nil:
		op, err := ParseCompareOp(r.Op)
		if err != nil {
			return nil, err
		}
		return Cmp(r.Left, op, r.Right), nil
	default:
		return nil, fmt.Errorf("ast: structured expression missing all/any/not/left+right+op")
	}
}

// ParseCompareOp maps the exhaustive operator set from spec §6 onto
// value.CompareOp.
func ParseCompareOp(s string) (value.CompareOp, error) {
	switch s {
	case "==":
		return value.OpEq, nil
	case "!=":
		return value.OpNeq, nil
	case ">":
		return value.OpGt, nil
	case ">=":
		return value.OpGte, nil
	case "<":
		return value.OpLt, nil
	case "<=":
		return value.OpLte, nil
	case "in":
		return value.OpIn, nil
	case "not in":
		return value.OpNotIn, nil
	case "contains":
		return value.OpContains, nil
	case "starts_with":
		return value.OpStartsWith, nil
	case "ends_with":
		return value.OpEndsWith, nil
	default:
		return 0, fmt.Errorf("ast: unknown comparison operator %q", s)
	}
}
