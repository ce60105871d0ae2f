package semantic

import "github.com/riskline/decisionengine/internal/ast"

// color tags a step during DFS cycle detection: white = unvisited,
// gray = on the current DFS path, black = fully explored.
type color int

const (
	white color = iota
	gray
	black
)

// AnalyzePipeline validates a pipeline's step graph against spec §4.2:
// "BFS from entry, collect reachable step ids, ensure every referenced id
// exists or equals end, ensure no cycles (back-edge to a gray node)." It
// also type-checks every step's when-guard and resolves ref/service/branch
// fields against u.
func AnalyzePipeline(p *ast.Pipeline, u *Universe) (SymbolTable, []*CompileError) {
	symbols := SymbolTable{}
	var errs []*CompileError

	byID := map[string]*ast.Step{}
	for i := range p.Steps {
		s := &p.Steps[i]
		if s.ID == "" {
			errs = append(errs, newErr(InvalidExpression, p.ID, "step has no id"))
			continue
		}
		if _, dup := byID[s.ID]; dup {
			errs = append(errs, newErr(InvalidExpression, p.ID, "duplicate step id %q", s.ID))
			continue
		}
		byID[s.ID] = s
	}

	if p.Entry == "" {
		errs = append(errs, newErr(InvalidExpression, p.ID, "pipeline has no entry"))
		return symbols, errs
	}
	if _, ok := byID[p.Entry]; !ok && p.Entry != ast.EndStepID {
		errs = append(errs, newErr(UndefinedSymbol, p.ID, "entry step %q not found", p.Entry))
		return symbols, errs
	}

	for id, s := range byID {
		errs = append(errs, analyzeStep(p.ID, s, byID, u, symbols)...)
		_ = id
	}

	errs = append(errs, checkReachabilityAndCycles(p, byID)...)
	return symbols, errs
}

func analyzeStep(pipelineID string, s *ast.Step, byID map[string]*ast.Step, u *Universe, symbols SymbolTable) []*CompileError {
	var errs []*CompileError
	env := map[string]Type{}

	if s.When != nil {
		t, werrs := InferExpr(pipelineID+"."+s.ID, s.When, env, symbols)
		errs = append(errs, werrs...)
		if t != TUnknown && t != TNull && t != TBool {
			errs = append(errs, newErr(TypeError, pipelineID+"."+s.ID, "step when must be bool, got %s", t))
		}
	}

	switch s.Kind {
	case ast.StepRule:
		if _, ok := u.Rules[s.Ref]; !ok {
			errs = append(errs, newErr(UndefinedSymbol, pipelineID+"."+s.ID, "rule %q not found", s.Ref))
		}
		errs = append(errs, checkNextOrRoutes(pipelineID, s, byID)...)

	case ast.StepRuleset:
		if _, ok := u.Rulesets[s.Ref]; !ok {
			errs = append(errs, newErr(UndefinedSymbol, pipelineID+"."+s.ID, "ruleset %q not found", s.Ref))
		}
		errs = append(errs, checkNextOrRoutes(pipelineID, s, byID)...)

	case ast.StepFeature:
		if _, ok := u.Features[s.Ref]; !ok {
			errs = append(errs, newErr(UndefinedSymbol, pipelineID+"."+s.ID, "feature %q not found", s.Ref))
		}
		errs = append(errs, checkNextOrRoutes(pipelineID, s, byID)...)

	case ast.StepRouter:
		if len(s.Routes) == 0 {
			errs = append(errs, newErr(InvalidExpression, pipelineID+"."+s.ID, "router step has no routes"))
		}
		for i, route := range s.Routes {
			if route.When == nil {
				errs = append(errs, newErr(InvalidExpression, pipelineID+"."+s.ID, "route %d missing when", i))
			} else {
				t, rerrs := InferExpr(pipelineID+"."+s.ID, route.When, env, symbols)
				errs = append(errs, rerrs...)
				if t != TUnknown && t != TNull && t != TBool {
					errs = append(errs, newErr(TypeError, pipelineID+"."+s.ID, "route %d when must be bool, got %s", i, t))
				}
			}
			if !stepExists(route.Next, byID) {
				errs = append(errs, newErr(UndefinedSymbol, pipelineID+"."+s.ID, "route %d targets unknown step %q", i, route.Next))
			}
		}

	case ast.StepBranch:
		if len(s.Branches) == 0 {
			errs = append(errs, newErr(InvalidExpression, pipelineID+"."+s.ID, "branch step has no branches"))
		}
		for _, arm := range s.Branches {
			if arm.Pipeline != "" {
				if _, ok := u.Pipelines[arm.Pipeline]; !ok {
					errs = append(errs, newErr(UndefinedSymbol, pipelineID+"."+s.ID, "branch pipeline %q not found", arm.Pipeline))
				}
			} else if len(arm.Steps) > 0 {
				inline := &ast.Pipeline{ID: pipelineID + "." + s.ID + "." + arm.ID, Entry: arm.Entry, Steps: arm.Steps}
				_, ierrs := AnalyzePipeline(inline, u)
				errs = append(errs, ierrs...)
			} else {
				errs = append(errs, newErr(InvalidExpression, pipelineID+"."+s.ID, "branch arm %q has neither pipeline ref nor inline steps", arm.ID))
			}
		}
		if s.Merge.Kind == ast.MergeWeighted {
			for _, arm := range s.Branches {
				if _, ok := s.Merge.Weights[arm.ID]; !ok {
					errs = append(errs, newErr(InvalidExpression, pipelineID+"."+s.ID, "weighted merge missing weight for branch %q", arm.ID))
				}
			}
		}
		errs = append(errs, checkNextOrRoutes(pipelineID, s, byID)...)

	case ast.StepServiceCall, ast.StepLLMCall:
		if s.Service == nil || s.Service.Service == "" {
			errs = append(errs, newErr(InvalidExpression, pipelineID+"."+s.ID, "service call step missing service name"))
		} else if s.Service != nil {
			for _, pexpr := range s.Service.Params {
				_, perrs := InferExpr(pipelineID+"."+s.ID, pexpr, env, symbols)
				errs = append(errs, perrs...)
			}
		}
		errs = append(errs, checkNextOrRoutes(pipelineID, s, byID)...)
	}

	if s.OnError.Kind == ast.ErrorDefaultValue && s.OnError.DefaultValue != nil {
		_, derrs := InferExpr(pipelineID+"."+s.ID, s.OnError.DefaultValue, env, symbols)
		errs = append(errs, derrs...)
	}

	return errs
}

func checkNextOrRoutes(pipelineID string, s *ast.Step, byID map[string]*ast.Step) []*CompileError {
	if s.Next == "" {
		return []*CompileError{newErr(InvalidExpression, pipelineID+"."+s.ID, "step missing next")}
	}
	if !stepExists(s.Next, byID) {
		return []*CompileError{newErr(UndefinedSymbol, pipelineID+"."+s.ID, "next targets unknown step %q", s.Next)}
	}
	return nil
}

func stepExists(id string, byID map[string]*ast.Step) bool {
	if id == ast.EndStepID {
		return true
	}
	_, ok := byID[id]
	return ok
}

// checkReachabilityAndCycles runs a DFS coloring pass from entry to catch
// cycles. Unreachable steps are not an error and are not reported; the
// check that every *referenced* id resolves is done in analyzeStep above.
func checkReachabilityAndCycles(p *ast.Pipeline, byID map[string]*ast.Step) []*CompileError {
	var errs []*CompileError

	colors := map[string]color{}
	for id := range byID {
		colors[id] = white
	}

	var visit func(id string, path []string)
	visit = func(id string, path []string) {
		if id == ast.EndStepID {
			return
		}
		s, ok := byID[id]
		if !ok {
			return // already reported as UndefinedSymbol elsewhere
		}
		switch colors[id] {
		case gray:
			errs = append(errs, newErr(CyclicPipeline, p.ID, "cycle detected: %v -> %s", path, id))
			return
		case black:
			return
		}
		colors[id] = gray
		for _, next := range stepSuccessors(s) {
			visit(next, append(path, id))
		}
		colors[id] = black
	}

	visit(p.Entry, nil)
	return errs
}

func stepSuccessors(s *ast.Step) []string {
	var out []string
	if s.Next != "" {
		out = append(out, s.Next)
	}
	for _, r := range s.Routes {
		if r.Next != "" {
			out = append(out, r.Next)
		}
	}
	if s.Default != "" {
		out = append(out, s.Default)
	}
	return out
}
