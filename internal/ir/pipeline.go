package ir

import "github.com/riskline/decisionengine/internal/ast"

// compileCtx threads the universe lookup needed to inline a step's
// referenced rule/ruleset body and to recursively compile nested branch
// pipelines.
type compileCtx struct {
	rules    map[string]*ast.Rule
	rulesets map[string]*ast.Ruleset
}

// CompilePipeline lowers a Pipeline into a step table: each step, in
// declaration order, becomes a StepInfo holding its own nested Programs
// (guard, body, one condition per route, one per inline branch arm), and
// the pipeline's instruction stream is a lone Halt. No jumps or Fork/Join
// instructions are emitted; package pipeline walks the table from
// EntryStepID, trying routes in declaration order and falling back to
// Default.
func CompilePipeline(p *ast.Pipeline, rules map[string]*ast.Rule, rulesets map[string]*ast.Ruleset) *Program {
	cc := &compileCtx{rules: rules, rulesets: rulesets}
	steps := make([]StepInfo, 0, len(p.Steps))
	for i := range p.Steps {
		steps = append(steps, compileStep(cc, &p.Steps[i]))
	}

	return &Program{
		Instructions: []Instruction{{Op: OpHalt}},
		Meta: ProgramMetadata{
			ID:          p.ID,
			Kind:        "pipeline",
			EntryStepID: p.Entry,
			Steps:       steps,
		},
	}
}

func compileStep(cc *compileCtx, s *ast.Step) StepInfo {
	info := StepInfo{
		ID:      s.ID,
		Kind:    stepKindName(s.Kind),
		Ref:     s.Ref,
		Next:    s.Next,
		Default: s.Default,
		OnError: s.OnError,
	}
	if s.When != nil {
		info.Guard = CompileStandaloneExpr(s.When)
	}
	if s.OnError.Kind == ast.ErrorDefaultValue && s.OnError.DefaultValue != nil {
		info.DefaultValue = CompileStandaloneExpr(s.OnError.DefaultValue)
	}

	switch s.Kind {
	case ast.StepRule:
		if r, ok := cc.rules[s.Ref]; ok {
			info.Body = CompileRule(r)
		}
	case ast.StepRuleset:
		if rs, ok := cc.rulesets[s.Ref]; ok {
			info.Body = CompileRuleset(rs)
		}
	case ast.StepFeature:
		// Feature computation is a pure suspension point handled by the
		// executor via FeatureExtractor; no VM body is compiled.
	case ast.StepServiceCall, ast.StepLLMCall:
		info.Service = compileServiceCallSpec(s.Service)
	case ast.StepRouter:
		for _, route := range s.Routes {
			info.Routes = append(info.Routes, RouteInfo{
				Cond: CompileStandaloneExpr(route.When),
				Next: route.Next,
			})
		}
	case ast.StepBranch:
		info.Fork = compileForkSpec(cc, s)
	}

	return info
}

func CompileStandaloneExpr(e *ast.Expr) *Program {
	var buf []Instruction
	buf = compileExpr(buf, e)
	buf = append(buf, Instruction{Op: OpHalt})
	buf = optimize(buf)
	return &Program{Instructions: buf, Meta: ProgramMetadata{Kind: "expr"}}
}

// compileServiceCallSpec pre-compiles each param expression into its own
// nested program, evaluated by the executor in declared order just before
// dispatching the call (spec §4.5: "For service_call, feature, llm_call,
// suspend the current stepping while the external call is in flight").
func compileServiceCallSpec(spec *ast.ServiceCallSpec) *ServiceCallSpec {
	if spec == nil {
		return nil
	}
	out := &ServiceCallSpec{Service: spec.Service, DeadlineMs: spec.DeadlineMs}
	for name := range spec.Params {
		out.ParamNames = append(out.ParamNames, name)
	}
	return out
}

// compileForkSpec lowers a branch step's arms into nested Programs, one per
// arm — either a reference to an already-compiled named pipeline (resolved
// later by the engine's program registry) or an inline sub-pipeline
// compiled recursively right here.
func compileForkSpec(cc *compileCtx, s *ast.Step) *ForkSpec {
	fs := &ForkSpec{Merge: s.Merge}
	for _, arm := range s.Branches {
		fs.BranchIDs = append(fs.BranchIDs, arm.ID)
		if len(arm.Steps) > 0 {
			inline := &ast.Pipeline{ID: s.ID + "." + arm.ID, Entry: arm.Entry, Steps: arm.Steps}
			fs.Programs = append(fs.Programs, CompilePipeline(inline, cc.rules, cc.rulesets))
		} else {
			// Referenced named pipeline: resolved by the engine's program
			// registry at run time, not inlined at compile time, since the
			// referenced pipeline may itself still be compiling.
			fs.Programs = append(fs.Programs, nil)
		}
	}
	return fs
}

func stepKindName(k ast.StepKind) string {
	switch k {
	case ast.StepRule:
		return "rule"
	case ast.StepRuleset:
		return "ruleset"
	case ast.StepRouter:
		return "router"
	case ast.StepBranch:
		return "branch"
	case ast.StepFeature:
		return "feature"
	case ast.StepServiceCall:
		return "service_call"
	case ast.StepLLMCall:
		return "llm_call"
	default:
		return "unknown"
	}
}
