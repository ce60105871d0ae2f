package ir

import (
	"testing"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/semantic"
	"github.com/riskline/decisionengine/internal/value"
)

func TestCompileRuleProducesJumpPastEffects(t *testing.T) {
	r := &ast.Rule{
		ID:   "high_amount",
		When: ast.Cmp(ast.Var("event.amount"), value.OpGt, ast.Lit(value.Number(1000))),
		Then: []ast.Effect{
			{Kind: ast.EffectSetSignal, Name: "high_amount"},
			{Kind: ast.EffectAddScore, Value: ast.Lit(value.Number(10))},
		},
	}
	prog := CompileRule(r)
	if len(prog.Instructions) == 0 {
		t.Fatal("expected non-empty program")
	}
	last := prog.Instructions[len(prog.Instructions)-1]
	if last.Op != OpHalt {
		t.Fatalf("expected program to end in Halt, got %v", last.Op)
	}
	var sawEmit, sawAddScore bool
	for _, instr := range prog.Instructions {
		if instr.Op == OpEmitSignal && instr.Path == "high_amount" {
			sawEmit = true
		}
		if instr.Op == OpAddScore {
			sawAddScore = true
		}
	}
	if !sawEmit || !sawAddScore {
		t.Fatalf("expected compiled effects in program: %+v", prog.Instructions)
	}
}

func TestConstantFoldCollapsesLiteralComparison(t *testing.T) {
	e := ast.Cmp(ast.Lit(value.Number(5)), value.OpGt, ast.Lit(value.Number(1)))
	r := &ast.Rule{ID: "const_rule", When: e, Then: []ast.Effect{{Kind: ast.EffectSetSignal, Name: "s"}}}
	prog := CompileRule(r)
	if prog.Instructions[0].Op != OpPushConst {
		t.Fatalf("expected constant-folded comparison to collapse to PushConst, got %v", prog.Instructions[0].Op)
	}
	if !prog.Instructions[0].Const.Bool() {
		t.Fatalf("expected folded constant true, got %v", prog.Instructions[0].Const)
	}
}

func TestCompileRulesetInlinesRulesAndDecisionLogic(t *testing.T) {
	rs := &ast.Ruleset{
		ID: "fraud_check",
		Rules: []ast.Rule{
			{
				ID:   "r1",
				When: ast.Cmp(ast.Var("event.amount"), value.OpGt, ast.Lit(value.Number(100))),
				Then: []ast.Effect{{Kind: ast.EffectAddScore, Value: ast.Lit(value.Number(5))}},
			},
		},
		DecisionLogic: &ast.DecisionLogic{
			Conclusions: []ast.Conclusion{
				{When: ast.Cmp(ast.Var("system.score"), value.OpGte, ast.Lit(value.Number(5))), Action: "review"},
			},
			Default: "approve",
		},
	}
	prog := CompileRuleset(rs)
	var sawEnterStep, sawSetAction bool
	for _, instr := range prog.Instructions {
		if instr.Op == OpEnterStep && instr.Path == "r1" {
			sawEnterStep = true
		}
		if instr.Op == OpSetAction {
			sawSetAction = true
		}
	}
	if !sawEnterStep {
		t.Fatal("expected inlined rule bracketed by EnterStep")
	}
	if !sawSetAction {
		t.Fatal("expected decision_logic lowering to emit SetAction")
	}
}

func TestCompilePipelineProducesStepTable(t *testing.T) {
	p := &ast.Pipeline{
		ID:    "main",
		Entry: "check",
		Steps: []ast.Step{
			{ID: "check", Kind: ast.StepRule, Ref: "r1", Next: ast.EndStepID},
		},
	}
	rules := map[string]*ast.Rule{
		"r1": {ID: "r1", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectSetSignal, Name: "s"}}},
	}
	prog := CompilePipeline(p, rules, nil)
	if len(prog.Meta.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(prog.Meta.Steps))
	}
	step := prog.Meta.Steps[0]
	if step.Body == nil {
		t.Fatal("expected inlined rule body for StepRule")
	}
	if step.Next != ast.EndStepID {
		t.Fatalf("expected next=end, got %s", step.Next)
	}
}

func TestCompileRouterProducesRouteConditions(t *testing.T) {
	p := &ast.Pipeline{
		ID:    "router_pipeline",
		Entry: "route",
		Steps: []ast.Step{
			{
				ID:   "route",
				Kind: ast.StepRouter,
				Routes: []ast.Route{
					{When: ast.Cmp(ast.Var("event.country"), value.OpEq, ast.Lit(value.String("US"))), Next: "us_path"},
				},
				Default: "default_path",
			},
		},
	}
	prog := CompilePipeline(p, nil, nil)
	step := prog.Meta.Steps[0]
	if len(step.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(step.Routes))
	}
	if step.Routes[0].Next != "us_path" {
		t.Fatalf("expected route to target us_path, got %s", step.Routes[0].Next)
	}
	if step.Default != "default_path" {
		t.Fatalf("expected default_path, got %s", step.Default)
	}
}

func TestCompileFullUniverseEndToEnd(t *testing.T) {
	u := semantic.NewUniverse()
	u.Rules["r1"] = &ast.Rule{
		ID:   "r1",
		When: ast.Cmp(ast.Var("event.amount"), value.OpGt, ast.Lit(value.Number(1000))),
		Then: []ast.Effect{{Kind: ast.EffectSetSignal, Name: "high_amount"}},
	}
	u.Pipelines["main"] = &ast.Pipeline{
		ID:    "main",
		Entry: "check",
		Steps: []ast.Step{
			{ID: "check", Kind: ast.StepRule, Ref: "r1", Next: ast.EndStepID},
		},
	}
	ps, errs := Compile(u)
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	if _, ok := ps.Pipelines["main"]; !ok {
		t.Fatal("expected main pipeline compiled")
	}
	if _, ok := ps.Rules["r1"]; !ok {
		t.Fatal("expected r1 rule compiled")
	}
}

func TestCompileFullUniverseSurfacesSemanticErrors(t *testing.T) {
	u := semantic.NewUniverse()
	u.Rules["bad"] = &ast.Rule{ID: "bad"} // no when, no effects
	_, errs := Compile(u)
	if len(errs) == 0 {
		t.Fatal("expected semantic errors to block compilation")
	}
}
