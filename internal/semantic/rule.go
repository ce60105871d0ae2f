package semantic

import "github.com/riskline/decisionengine/internal/ast"

// AnalyzeRule type-checks a rule's params, when-guard, and effects, and
// returns the symbol table of every variable path it references.
func AnalyzeRule(r *ast.Rule) (SymbolTable, []*CompileError) {
	symbols := SymbolTable{}
	var errs []*CompileError

	env := map[string]Type{}
	for _, p := range r.Params {
		env[p.Name] = typeFromDeclString(p.Type)
	}

	if r.When == nil {
		errs = append(errs, newErr(InvalidExpression, r.ID, "rule has no when condition"))
	} else {
		whenType, werrs := InferExpr(r.ID, r.When, env, symbols)
		errs = append(errs, werrs...)
		if whenType != TUnknown && whenType != TNull && whenType != TBool {
			errs = append(errs, newErr(TypeError, r.ID, "when condition must evaluate to bool, got %s", whenType))
		}
	}

	errs = append(errs, analyzeEffects(r.ID, r.Then, env, symbols)...)
	errs = append(errs, analyzeEffects(r.ID, r.Else, env, symbols)...)

	if len(r.Then) == 0 && len(r.Else) == 0 && len(r.Signals) == 0 {
		errs = append(errs, newErr(InvalidExpression, r.ID, "rule has no effects"))
	}

	return symbols, errs
}

func analyzeEffects(subject string, effects []ast.Effect, env map[string]Type, symbols SymbolTable) []*CompileError {
	var errs []*CompileError
	for _, eff := range effects {
		switch eff.Kind {
		case ast.EffectSetSignal:
			if eff.Name == "" {
				errs = append(errs, newErr(InvalidExpression, subject, "set_signal requires a name"))
			}
		case ast.EffectAddScore:
			if eff.Value == nil {
				errs = append(errs, newErr(InvalidExpression, subject, "add_score requires a value"))
				continue
			}
			t, verrs := InferExpr(subject, eff.Value, env, symbols)
			errs = append(errs, verrs...)
			if t != TUnknown && t != TNull && t != TNumber {
				errs = append(errs, newErr(TypeError, subject, "add_score value must be number, got %s", t))
			}
		case ast.EffectSetField:
			if eff.Name == "" {
				errs = append(errs, newErr(InvalidExpression, subject, "set_field requires a name"))
			}
			if eff.Value != nil {
				_, verrs := InferExpr(subject, eff.Value, env, symbols)
				errs = append(errs, verrs...)
			}
		case ast.EffectSetAction:
			if eff.Value == nil {
				errs = append(errs, newErr(InvalidExpression, subject, "set_action requires a value"))
				continue
			}
			t, verrs := InferExpr(subject, eff.Value, env, symbols)
			errs = append(errs, verrs...)
			if t != TUnknown && t != TNull && t != TString {
				errs = append(errs, newErr(TypeError, subject, "set_action value must be string, got %s", t))
			}
		}
	}
	return errs
}

// AnalyzeRuleset type-checks a ruleset's member rules (each independently,
// per spec's "pure predicate" isolation) plus its decision_logic. A
// ruleset's rules are declared inline, so u is not consulted.
func AnalyzeRuleset(rs *ast.Ruleset, u *Universe) (SymbolTable, []*CompileError) {
	symbols := SymbolTable{}
	var errs []*CompileError

	for i := range rs.Rules {
		r := &rs.Rules[i]
		ruleSymbols, rerrs := AnalyzeRule(r)
		for path, t := range ruleSymbols {
			symbols.observe(path, t)
		}
		errs = append(errs, rerrs...)
	}

	if rs.DecisionLogic != nil {
		env := map[string]Type{} // decision_logic guards see only accumulated score/signals, all Unknown
		for _, c := range rs.DecisionLogic.Conclusions {
			if c.When == nil {
				errs = append(errs, newErr(InvalidExpression, rs.ID, "decision_logic conclusion missing when"))
				continue
			}
			t, cerrs := InferExpr(rs.ID, c.When, env, symbols)
			errs = append(errs, cerrs...)
			if t != TUnknown && t != TNull && t != TBool {
				errs = append(errs, newErr(TypeError, rs.ID, "decision_logic when must be bool, got %s", t))
			}
			if c.Action == "" {
				errs = append(errs, newErr(InvalidExpression, rs.ID, "decision_logic conclusion missing action"))
			}
		}
	}

	_ = u // reserved: future cross-rule-reference checks (e.g. rule composition) hook in here
	return symbols, errs
}
