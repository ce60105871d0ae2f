package pipeline

import (
	"context"
	"testing"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/value"
)

func TestRunSimpleRuleStepToEnd(t *testing.T) {
	rules := map[string]*ast.Rule{
		"r1": {
			ID:   "r1",
			When: ast.Cmp(ast.Var("event.amount"), value.OpGt, ast.Lit(value.Number(100))),
			Then: []ast.Effect{{Kind: ast.EffectSetSignal, Name: "high"}, {Kind: ast.EffectAddScore, Value: ast.Lit(value.Number(10))}},
		},
	}
	p := &ast.Pipeline{
		ID: "p", Entry: "s1",
		Steps: []ast.Step{{ID: "s1", Kind: ast.StepRule, Ref: "r1", Next: ast.EndStepID}},
	}
	prog := ir.CompilePipeline(p, rules, nil)
	ectx := execctx.New(map[string]value.Value{"amount": value.Number(500)}, nil, nil, 0, 100)

	d := &Driver{}
	res, err := d.Run(context.Background(), prog, ectx, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 10 {
		t.Fatalf("expected score 10, got %v", res.Score)
	}
	if len(res.Signals) != 1 || res.Signals[0] != "high" {
		t.Fatalf("expected signal high, got %v", res.Signals)
	}
}

func TestRunStepSkippedWhenGuardFalse(t *testing.T) {
	rules := map[string]*ast.Rule{
		"r1": {ID: "r1", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectAddScore, Value: ast.Lit(value.Number(99))}}},
	}
	p := &ast.Pipeline{
		ID: "p", Entry: "s1",
		Steps: []ast.Step{{
			ID: "s1", Kind: ast.StepRule, Ref: "r1", Next: ast.EndStepID,
			When: ast.Lit(value.Bool(false)),
		}},
	}
	prog := ir.CompilePipeline(p, rules, nil)
	ectx := execctx.New(nil, nil, nil, 0, 100)
	d := &Driver{}
	res, err := d.Run(context.Background(), prog, ectx, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 0 {
		t.Fatalf("expected step skipped (score 0), got %v", res.Score)
	}
	if res.Trace != nil {
		found := false
		for _, e := range res.Trace {
			if e.Result == ResultSkipped {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected a skipped trace entry, got %v", res.Trace)
		}
	}
}

func TestRunRouterTakesFirstMatchingRoute(t *testing.T) {
	rules := map[string]*ast.Rule{
		"approve_rule": {ID: "approve_rule", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectSetAction, Value: ast.Lit(value.String("approve"))}}},
		"block_rule":   {ID: "block_rule", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectSetAction, Value: ast.Lit(value.String("block"))}}},
	}
	p := &ast.Pipeline{
		ID: "p", Entry: "route",
		Steps: []ast.Step{
			{
				ID: "route", Kind: ast.StepRouter,
				Routes: []ast.Route{
					{When: ast.Cmp(ast.Var("event.country"), value.OpEq, ast.Lit(value.String("US"))), Next: "approve"},
				},
				Default: "block",
			},
			{ID: "approve", Kind: ast.StepRule, Ref: "approve_rule", Next: ast.EndStepID},
			{ID: "block", Kind: ast.StepRule, Ref: "block_rule", Next: ast.EndStepID},
		},
	}
	prog := ir.CompilePipeline(p, rules, nil)
	ectx := execctx.New(map[string]value.Value{"country": value.String("US")}, nil, nil, 0, 100)
	d := &Driver{}
	res, err := d.Run(context.Background(), prog, ectx, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "approve" {
		t.Fatalf("expected route to approve step, got action %q", res.Action)
	}
}

func TestRunRouterFallsBackToDefault(t *testing.T) {
	rules := map[string]*ast.Rule{
		"block_rule": {ID: "block_rule", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectSetAction, Value: ast.Lit(value.String("block"))}}},
	}
	p := &ast.Pipeline{
		ID: "p", Entry: "route",
		Steps: []ast.Step{
			{
				ID: "route", Kind: ast.StepRouter,
				Routes:  []ast.Route{{When: ast.Lit(value.Bool(false)), Next: "unused"}},
				Default: "block",
			},
			{ID: "block", Kind: ast.StepRule, Ref: "block_rule", Next: ast.EndStepID},
		},
	}
	prog := ir.CompilePipeline(p, rules, nil)
	ectx := execctx.New(nil, nil, nil, 0, 100)
	d := &Driver{}
	res, err := d.Run(context.Background(), prog, ectx, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "block" {
		t.Fatalf("expected fallback to default route, got %q", res.Action)
	}
}

func TestOnErrorSkipContinuesToNext(t *testing.T) {
	rules := map[string]*ast.Rule{
		"ok_rule": {ID: "ok_rule", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectSetAction, Value: ast.Lit(value.String("approve"))}}},
	}
	p := &ast.Pipeline{
		ID: "p", Entry: "feat",
		Steps: []ast.Step{
			{ID: "feat", Kind: ast.StepFeature, Ref: "velocity", Next: "ok", OnError: ast.ErrorAction{Kind: ast.ErrorSkip}},
			{ID: "ok", Kind: ast.StepRule, Ref: "ok_rule", Next: ast.EndStepID},
		},
	}
	prog := ir.CompilePipeline(p, rules, nil)
	ectx := execctx.New(nil, nil, nil, 0, 100)
	d := &Driver{Features: failingFeatures{}}
	res, err := d.Run(context.Background(), prog, ectx, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Action != "approve" {
		t.Fatalf("expected skip policy to continue to ok step, got %q", res.Action)
	}
}

type failingFeatures struct{}

func (failingFeatures) Compute(ctx context.Context, featureID string, ectx *execctx.Context) (value.Value, error) {
	return value.Null, errBoom
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }

func TestBranchMergeAllSumsScores(t *testing.T) {
	rules := map[string]*ast.Rule{
		"r1": {ID: "r1", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectAddScore, Value: ast.Lit(value.Number(5))}}},
		"r2": {ID: "r2", When: ast.Lit(value.Bool(true)), Then: []ast.Effect{{Kind: ast.EffectAddScore, Value: ast.Lit(value.Number(7))}}},
	}
	p := &ast.Pipeline{
		ID: "p", Entry: "fork",
		Steps: []ast.Step{
			{
				ID: "fork", Kind: ast.StepBranch, Next: ast.EndStepID,
				Merge: ast.MergeStrategy{Kind: ast.MergeAll},
				Branches: []ast.BranchArm{
					{ID: "a", Entry: "a1", Steps: []ast.Step{{ID: "a1", Kind: ast.StepRule, Ref: "r1", Next: ast.EndStepID}}},
					{ID: "b", Entry: "b1", Steps: []ast.Step{{ID: "b1", Kind: ast.StepRule, Ref: "r2", Next: ast.EndStepID}}},
				},
			},
		},
	}
	prog := ir.CompilePipeline(p, rules, nil)
	ectx := execctx.New(nil, nil, nil, 0, 100)
	d := &Driver{}
	res, err := d.Run(context.Background(), prog, ectx, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 12 {
		t.Fatalf("expected merged score 12, got %v", res.Score)
	}
}
