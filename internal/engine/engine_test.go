package engine

import (
	"context"
	"testing"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/pipeline"
	"github.com/riskline/decisionengine/internal/semantic"
	"github.com/riskline/decisionengine/internal/value"
)

func buildTestProgramSet() *ir.ProgramSet {
	rules := map[string]*ast.Rule{
		"approve_rule": {
			ID: "approve_rule", When: ast.Lit(value.Bool(true)),
			Then: []ast.Effect{{Kind: ast.EffectSetAction, Value: ast.Lit(value.String("approve"))}},
		},
	}
	p := &ast.Pipeline{
		ID: "main", Entry: "s1",
		Steps: []ast.Step{{ID: "s1", Kind: ast.StepRule, Ref: "approve_rule", Next: ast.EndStepID}},
	}
	return &ir.ProgramSet{
		Rules:     map[string]*ir.Program{"approve_rule": ir.CompileRule(rules["approve_rule"])},
		Rulesets:  map[string]*ir.Program{},
		Pipelines: map[string]*ir.Program{"main": ir.CompilePipeline(p, rules, nil)},
		Registry: map[string]*ast.Registry{
			"default": {ID: "default", Entries: map[string]string{"transaction": "main"}},
		},
	}
}

func TestDecideResolvesRegistryAndRunsPipeline(t *testing.T) {
	ps := buildTestProgramSet()
	e := New(ps, &pipeline.Driver{}, 0, 100, nil, nil)

	resp, err := e.Decide(context.Background(), Request{
		Event: map[string]value.Value{"kind": value.String("transaction")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result.Action != "approve" {
		t.Fatalf("expected action approve, got %q", resp.Result.Action)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestDecideUnknownEventKindReturnsNoMatchingProgram(t *testing.T) {
	ps := buildTestProgramSet()
	e := New(ps, &pipeline.Driver{}, 0, 100, nil, nil)

	_, err := e.Decide(context.Background(), Request{
		Event: map[string]value.Value{"kind": value.String("unknown")},
	})
	if _, ok := err.(*NoMatchingProgram); !ok {
		t.Fatalf("expected NoMatchingProgram, got %v", err)
	}
}

func TestReloadRepositorySwapsAtomically(t *testing.T) {
	ps := buildTestProgramSet()
	reloaded := false
	e := New(ps, &pipeline.Driver{}, 0, 100, nil, func() (*ir.ProgramSet, []*semantic.CompileError) {
		reloaded = true
		return buildTestProgramSet(), nil
	})

	result := e.ReloadRepository()
	if !reloaded {
		t.Fatalf("expected load function to be invoked")
	}
	if result.LoadedPrograms == 0 {
		t.Fatalf("expected non-zero loaded programs, got %+v", result)
	}
}

func TestHealthReportsProgramCount(t *testing.T) {
	ps := buildTestProgramSet()
	e := New(ps, &pipeline.Driver{}, 0, 100, nil, nil)
	h := e.Health()
	if h.Status != "ok" || h.ProgramCount == 0 {
		t.Fatalf("expected ok status with programs, got %+v", h)
	}
}
