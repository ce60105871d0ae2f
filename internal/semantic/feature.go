package semantic

import "github.com/riskline/decisionengine/internal/ast"

// AnalyzeFeature type-checks one feature definition per its kind (spec
// §4.6) and verifies its source/table references are non-empty. Lookup and
// aggregate sources are validated for shape only; nothing, here or at
// engine load, checks that a named source exists in the data-source
// configuration.
func AnalyzeFeature(f *ast.FeatureDef) (SymbolTable, []*CompileError) {
	symbols := SymbolTable{}
	var errs []*CompileError
	env := map[string]Type{}

	switch f.Kind {
	case ast.FeatureDerived:
		if f.Expr == nil {
			errs = append(errs, newErr(InvalidExpression, f.ID, "derived feature requires expr"))
			break
		}
		_, eerrs := InferExpr(f.ID, f.Expr, env, symbols)
		errs = append(errs, eerrs...)

	case ast.FeatureAggregate:
		if f.Aggregate == nil {
			errs = append(errs, newErr(InvalidExpression, f.ID, "aggregate feature requires aggregate spec"))
			break
		}
		if _, ok := ast.ParseAggregateFn(f.Aggregate.Fn); !ok {
			errs = append(errs, newErr(InvalidExpression, f.ID, "unknown aggregate function %q", f.Aggregate.Fn))
		}
		if f.Aggregate.Fn != "count" && f.Aggregate.Field == "" {
			errs = append(errs, newErr(InvalidExpression, f.ID, "aggregate %q requires a field", f.Aggregate.Fn))
		}
		if f.Aggregate.Window == "" {
			errs = append(errs, newErr(InvalidExpression, f.ID, "aggregate feature requires a window"))
		}
		if f.Aggregate.Source == "" {
			errs = append(errs, newErr(InvalidExpression, f.ID, "aggregate feature requires a source"))
		}
		if f.Aggregate.Filter != nil {
			_, ferrs := InferExpr(f.ID, f.Aggregate.Filter, env, symbols)
			errs = append(errs, ferrs...)
		}

	case ast.FeatureLookup:
		if f.Lookup == nil {
			errs = append(errs, newErr(InvalidExpression, f.ID, "lookup feature requires lookup spec"))
			break
		}
		if f.Lookup.Source == "" {
			errs = append(errs, newErr(InvalidExpression, f.ID, "lookup feature requires a source"))
		}
		for name, filter := range f.Lookup.Filters {
			_, ferrs := InferExpr(f.ID+"."+name, filter, env, symbols)
			errs = append(errs, ferrs...)
		}
	}

	if f.Cache.Strategy == "ttl" && f.Cache.TTLSeconds <= 0 {
		errs = append(errs, newErr(InvalidExpression, f.ID, "ttl cache strategy requires a positive ttl_seconds"))
	}

	return symbols, errs
}

// AnalyzeUniverse runs every per-kind analyzer across u and returns the
// merged symbol table plus every compile error found. This is the single
// entry point the IR compiler (and the engine's load path) calls once a
// Repository's document set has been fully resolved.
func AnalyzeUniverse(u *Universe) (SymbolTable, []*CompileError) {
	symbols := SymbolTable{}
	var errs []*CompileError

	merge := func(s SymbolTable) {
		for path, t := range s {
			symbols.observe(path, t)
		}
	}

	for _, r := range u.Rules {
		s, rerrs := AnalyzeRule(r)
		merge(s)
		errs = append(errs, rerrs...)
	}
	for _, rs := range u.Rulesets {
		s, rerrs := AnalyzeRuleset(rs, u)
		merge(s)
		errs = append(errs, rerrs...)
	}
	for _, p := range u.Pipelines {
		s, perrs := AnalyzePipeline(p, u)
		merge(s)
		errs = append(errs, perrs...)
	}
	for _, f := range u.Features {
		s, ferrs := AnalyzeFeature(f)
		merge(s)
		errs = append(errs, ferrs...)
	}
	for _, reg := range u.Registries {
		for event, target := range reg.Entries {
			if _, ok := u.Pipelines[target]; !ok {
				if _, ok := u.Rulesets[target]; !ok {
					errs = append(errs, newErr(UndefinedSymbol, reg.ID, "registry entry %q targets unknown program %q", event, target))
				}
			}
		}
	}

	return symbols, errs
}
