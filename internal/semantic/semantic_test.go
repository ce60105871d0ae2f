package semantic

import (
	"testing"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/value"
)

func TestInferExprNullAbsorbsComparison(t *testing.T) {
	e := ast.Cmp(ast.Var("event.amount"), value.OpGt, ast.Lit(value.Null))
	_, errs := InferExpr("r", e, nil, SymbolTable{})
	if len(errs) != 0 {
		t.Fatalf("expected no type errors comparing against a literal null, got %v", errs)
	}
}

func TestInferExprMismatchedComparisonIsTypeError(t *testing.T) {
	e := ast.Cmp(ast.Lit(value.Number(1)), value.OpEq, ast.Lit(value.String("x")))
	_, errs := InferExpr("r", e, nil, SymbolTable{})
	if len(errs) != 1 || errs[0].Variant != TypeError {
		t.Fatalf("expected one TypeError, got %v", errs)
	}
}

func TestInferExprUnknownVariableIsPermissive(t *testing.T) {
	e := ast.Cmp(ast.Var("feature.velocity"), value.OpGt, ast.Lit(value.Number(5)))
	symbols := SymbolTable{}
	_, errs := InferExpr("r", e, nil, symbols)
	if len(errs) != 0 {
		t.Fatalf("expected unknown-typed variable to compare permissively, got %v", errs)
	}
	if symbols["feature.velocity"] != TUnknown {
		t.Fatalf("expected symbol table to record feature.velocity as unknown")
	}
}

func TestInferExprArithMixedTypesFails(t *testing.T) {
	e := ast.Bin(ast.Lit(value.Number(1)), value.OpAdd, ast.Lit(value.Bool(true)))
	_, errs := InferExpr("r", e, nil, SymbolTable{})
	if len(errs) == 0 {
		t.Fatal("expected arithmetic type error for number + bool")
	}
}

func TestAnalyzeRuleDeclaredParamType(t *testing.T) {
	r := &ast.Rule{
		ID:     "declared_amount",
		Params: []ast.ParamSpec{{Name: "amount", Type: "string"}},
		When:   ast.Cmp(ast.Var("amount"), value.OpGt, ast.Lit(value.Number(1))),
		Then:   []ast.Effect{{Kind: ast.EffectSetSignal, Name: "s"}},
	}
	_, errs := AnalyzeRule(r)
	if len(errs) == 0 {
		t.Fatal("expected a type error: declared string param compared with >")
	}
}

func TestAnalyzeRuleNoEffectsRejected(t *testing.T) {
	r := &ast.Rule{ID: "empty", When: ast.Lit(value.Bool(true))}
	_, errs := AnalyzeRule(r)
	found := false
	for _, e := range errs {
		if e.Variant == InvalidExpression {
			found = true
		}
	}
	if !found {
		t.Fatal("expected InvalidExpression for rule with no effects")
	}
}

func TestAnalyzePipelineDetectsCycle(t *testing.T) {
	p := &ast.Pipeline{
		ID:    "loop",
		Entry: "a",
		Steps: []ast.Step{
			{ID: "a", Kind: ast.StepRule, Ref: "r1", Next: "b"},
			{ID: "b", Kind: ast.StepRule, Ref: "r1", Next: "a"},
		},
	}
	u := NewUniverse()
	u.Rules["r1"] = &ast.Rule{ID: "r1"}
	_, errs := AnalyzePipeline(p, u)
	found := false
	for _, e := range errs {
		if e.Variant == CyclicPipeline {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CyclicPipeline error, got %v", errs)
	}
}

func TestAnalyzePipelineUndefinedNextIsReported(t *testing.T) {
	p := &ast.Pipeline{
		ID:    "p",
		Entry: "a",
		Steps: []ast.Step{
			{ID: "a", Kind: ast.StepRule, Ref: "r1", Next: "nonexistent"},
		},
	}
	u := NewUniverse()
	u.Rules["r1"] = &ast.Rule{ID: "r1"}
	_, errs := AnalyzePipeline(p, u)
	found := false
	for _, e := range errs {
		if e.Variant == UndefinedSymbol {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UndefinedSymbol for next targeting unknown step, got %v", errs)
	}
}

func TestAnalyzePipelineAcceptsEndTerminal(t *testing.T) {
	p := &ast.Pipeline{
		ID:    "p",
		Entry: "a",
		Steps: []ast.Step{
			{ID: "a", Kind: ast.StepRule, Ref: "r1", Next: ast.EndStepID},
		},
	}
	u := NewUniverse()
	u.Rules["r1"] = &ast.Rule{ID: "r1"}
	_, errs := AnalyzePipeline(p, u)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestAnalyzePipelineUndefinedRuleRef(t *testing.T) {
	p := &ast.Pipeline{
		ID:    "p",
		Entry: "a",
		Steps: []ast.Step{
			{ID: "a", Kind: ast.StepRule, Ref: "missing", Next: ast.EndStepID},
		},
	}
	u := NewUniverse()
	_, errs := AnalyzePipeline(p, u)
	found := false
	for _, e := range errs {
		if e.Variant == UndefinedSymbol {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UndefinedSymbol for missing rule ref, got %v", errs)
	}
}

func TestAnalyzeFeatureAggregateRequiresWindow(t *testing.T) {
	f := &ast.FeatureDef{
		ID:        "velocity",
		Kind:      ast.FeatureAggregate,
		Aggregate: &ast.AggregateSpec{Fn: "count", Source: "events"},
	}
	_, errs := AnalyzeFeature(f)
	found := false
	for _, e := range errs {
		if e.Variant == InvalidExpression {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected InvalidExpression for missing window, got %v", errs)
	}
}

func TestBuildUniverseDetectsDuplicateRuleID(t *testing.T) {
	docs := []*ast.Document{
		{Kind: ast.DocRule, Rule: &ast.Rule{ID: "dup"}},
		{Kind: ast.DocRule, Rule: &ast.Rule{ID: "dup"}},
	}
	_, errs := BuildUniverse(docs)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one duplicate-id error, got %v", errs)
	}
}

func TestAnalyzeUniverseRegistryUndefinedTarget(t *testing.T) {
	u := NewUniverse()
	u.Registries["reg"] = &ast.Registry{ID: "reg", Entries: map[string]string{"purchase": "missing_pipeline"}}
	_, errs := AnalyzeUniverse(u)
	found := false
	for _, e := range errs {
		if e.Variant == UndefinedSymbol {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected UndefinedSymbol for registry entry, got %v", errs)
	}
}
