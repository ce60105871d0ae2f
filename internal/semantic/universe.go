package semantic

import "github.com/riskline/decisionengine/internal/ast"

// Universe is the set of every rule/ruleset/pipeline/feature id visible
// across a compilation unit (a Repository's full document set, after import
// resolution). It backs cross-document reference checks: a pipeline step's
// `ref`, a feature's dependency, a registry entry, all resolve against it.
type Universe struct {
	Rules     map[string]*ast.Rule
	Rulesets  map[string]*ast.Ruleset
	Pipelines map[string]*ast.Pipeline
	Features  map[string]*ast.FeatureDef
	Registries map[string]*ast.Registry
}

func NewUniverse() *Universe {
	return &Universe{
		Rules:      map[string]*ast.Rule{},
		Rulesets:   map[string]*ast.Ruleset{},
		Pipelines:  map[string]*ast.Pipeline{},
		Features:   map[string]*ast.FeatureDef{},
		Registries: map[string]*ast.Registry{},
	}
}

// BuildUniverse indexes every document by id, reporting a CompileError per
// duplicate id within a kind's namespace (spec §4.2: ids are unique within
// their kind, not globally).
func BuildUniverse(docs []*ast.Document) (*Universe, []*CompileError) {
	u := NewUniverse()
	var errs []*CompileError

	for _, doc := range docs {
		switch doc.Kind {
		case ast.DocRule:
			r := doc.Rule
			if _, dup := u.Rules[r.ID]; dup {
				errs = append(errs, newErr(InvalidExpression, r.ID, "duplicate rule id"))
				continue
			}
			u.Rules[r.ID] = r

		case ast.DocRuleset:
			rs := doc.Ruleset
			if _, dup := u.Rulesets[rs.ID]; dup {
				errs = append(errs, newErr(InvalidExpression, rs.ID, "duplicate ruleset id"))
				continue
			}
			u.Rulesets[rs.ID] = rs

		case ast.DocPipeline:
			p := doc.Pipeline
			if _, dup := u.Pipelines[p.ID]; dup {
				errs = append(errs, newErr(InvalidExpression, p.ID, "duplicate pipeline id"))
				continue
			}
			u.Pipelines[p.ID] = p
			for i := range doc.Features {
				f := &doc.Features[i]
				if _, dup := u.Features[f.ID]; dup {
					errs = append(errs, newErr(InvalidExpression, f.ID, "duplicate feature id"))
					continue
				}
				u.Features[f.ID] = f
			}

		case ast.DocRegistry:
			reg := doc.Registry
			if _, dup := u.Registries[reg.ID]; dup {
				errs = append(errs, newErr(InvalidExpression, reg.ID, "duplicate registry id"))
				continue
			}
			u.Registries[reg.ID] = reg
		}
	}
	return u, errs
}
