package ir

import (
	"sort"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/semantic"
)

// ProgramSet is every compiled program produced from one Repository load,
// keyed by id within its own namespace (spec §4.8: "compiled programs
// indexed by (ruleset_id | pipeline_id)").
type ProgramSet struct {
	Rules     map[string]*Program
	Rulesets  map[string]*Program
	Pipelines map[string]*Program
	Registry  map[string]*ast.Registry
	Features  map[string]*ast.FeatureDef
}

// Compile runs semantic analysis over u and, if it passes cleanly, lowers
// every rule/ruleset/pipeline into IR. All compile errors are collected and
// returned together — never partial, per spec §4.3: "All compile errors are
// surfaced at engine-load time, not during Decide."
func Compile(u *semantic.Universe) (*ProgramSet, []*semantic.CompileError) {
	_, errs := semantic.AnalyzeUniverse(u)
	if len(errs) > 0 {
		return nil, errs
	}

	ps := &ProgramSet{
		Rules:     map[string]*Program{},
		Rulesets:  map[string]*Program{},
		Pipelines: map[string]*Program{},
		Registry:  u.Registries,
		Features:  u.Features,
	}

	for id, r := range u.Rules {
		ps.Rules[id] = CompileRule(r)
	}
	for id, rs := range u.Rulesets {
		ps.Rulesets[id] = CompileRuleset(rs)
	}
	// Pipelines are compiled after rules/rulesets so step inlining always
	// finds its referenced body; deterministic id order keeps compiled
	// output reproducible across runs with the same source (spec's
	// "Parse->Compile->Execute determinism" testable property).
	ids := make([]string, 0, len(u.Pipelines))
	for id := range u.Pipelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ps.Pipelines[id] = CompilePipeline(u.Pipelines[id], u.Rules, u.Rulesets)
	}

	return ps, nil
}
