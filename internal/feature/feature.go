// Package feature implements C8's FeatureExtractor and its collaborators:
// a write-through cache, a singleflight-coalesced compute path, and a
// DataSourceClient multiplexing over feature-store/OLAP/SQL backends
// (spec §4.6).
package feature

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/obslog"
	"github.com/riskline/decisionengine/internal/pipeline"
	"github.com/riskline/decisionengine/internal/value"
	"github.com/riskline/decisionengine/internal/vm"
)

// Extractor answers compute(featureID, context) -> Value for the three
// feature kinds declared in the DSL: derived, aggregate, lookup.
type Extractor struct {
	defs   map[string]*ast.FeatureDef
	cache  Cache
	source DataSourceClient
	group  singleflight.Group

	// compiled holds the pre-compiled VM programs for each derived feature's
	// expression, keyed by feature id, populated by New so Compute never
	// pays parse/compile cost on the hot path.
	compiled map[string]*ir.Program

	// aggregateFilters and lookupFilters hold the pre-compiled programs for
	// an aggregate's optional filter (evaluated against the current context;
	// when false the aggregate yields its zero value) and a lookup's
	// per-column filter expressions, respectively — same reasoning as
	// compiled above.
	aggregateFilters map[string]*ir.Program
	lookupFilters    map[string]map[string]*ir.Program

	log *zap.Logger
}

// New builds an Extractor from the universe's feature definitions.
func New(defs map[string]*ast.FeatureDef, cache Cache, source DataSourceClient) *Extractor {
	e := &Extractor{
		defs:             defs,
		cache:            cache,
		source:           source,
		compiled:         map[string]*ir.Program{},
		aggregateFilters: map[string]*ir.Program{},
		lookupFilters:    map[string]map[string]*ir.Program{},
		log:              zap.NewNop(),
	}
	for id, def := range defs {
		switch def.Kind {
		case ast.FeatureDerived:
			if def.Expr != nil {
				e.compiled[id] = ir.CompileStandaloneExpr(def.Expr)
			}
		case ast.FeatureAggregate:
			if def.Aggregate != nil && def.Aggregate.Filter != nil {
				e.aggregateFilters[id] = ir.CompileStandaloneExpr(def.Aggregate.Filter)
			}
		case ast.FeatureLookup:
			if def.Lookup != nil {
				perCol := make(map[string]*ir.Program, len(def.Lookup.Filters))
				for col, expr := range def.Lookup.Filters {
					perCol[col] = ir.CompileStandaloneExpr(expr)
				}
				e.lookupFilters[id] = perCol
			}
		}
	}
	return e
}

var _ pipeline.FeatureExtractor = (*Extractor)(nil)

// WithLogger attaches a structured logger used to report coalesced
// (shared) upstream computations; New defaults to a no-op logger.
func (e *Extractor) WithLogger(log *zap.Logger) *Extractor {
	e.log = log
	return e
}

// Compute resolves featureID against its declared kind, consulting the
// cache first and coalescing concurrent callers for the same key into a
// single upstream computation (spec §4.6: "at-most-one-in-flight per key
// and broadcast the result to all waiters").
func (e *Extractor) Compute(ctx context.Context, featureID string, ectx *execctx.Context) (value.Value, error) {
	def, ok := e.defs[featureID]
	if !ok {
		return value.Null, fmt.Errorf("feature: undefined feature %q", featureID)
	}

	key := cacheKey(featureID, def, ectx)

	if e.cache != nil {
		if v, ok := e.cache.Get(ctx, key, def.Cache); ok {
			return v, nil
		}
	}

	result, err, shared := e.group.Do(key, func() (interface{}, error) {
		v, err := e.computeUncached(ctx, def, ectx)
		if err != nil {
			return value.Null, err
		}
		if e.cache != nil {
			e.cache.Set(ctx, key, v, def.Cache)
		}
		return v, nil
	})
	if shared {
		e.log.Debug("feature: coalesced concurrent compute", obslog.FeatureID(featureID))
	}
	if err != nil {
		return value.Null, err
	}
	return result.(value.Value), nil
}

func (e *Extractor) computeUncached(ctx context.Context, def *ast.FeatureDef, ectx *execctx.Context) (value.Value, error) {
	switch def.Kind {
	case ast.FeatureDerived:
		return e.computeDerived(def, ectx)
	case ast.FeatureAggregate:
		return e.computeAggregate(ctx, def, ectx)
	case ast.FeatureLookup:
		return e.computeLookup(ctx, def, ectx)
	default:
		return value.Null, fmt.Errorf("feature: unknown feature kind for %q", def.ID)
	}
}

func (e *Extractor) computeDerived(def *ast.FeatureDef, ectx *execctx.Context) (value.Value, error) {
	prog, ok := e.compiled[def.ID]
	if !ok {
		return value.Null, fmt.Errorf("feature: %q has no compiled expression", def.ID)
	}
	res, err := vm.Run(prog, ectx)
	if err != nil {
		return value.Null, err
	}
	if !res.HasValue {
		return value.Null, nil
	}
	return res.TopOfStack, nil
}

// cacheKey canonicalizes (feature_id, parameter tuple) per spec §4.6.
// Aggregate and lookup features are keyed additionally by the request's
// subject so two different subjects' windows never collide; derived
// features have no caller-supplied parameters beyond the event fields the
// compiled expression itself reads, so the feature id alone is stable.
//
// A "request_scoped" feature is additionally keyed by the request id:
// the Extractor and its caches are long-lived across many Decide calls
// (so concurrent requests can share the coalescing singleflight group),
// so isolating a request_scoped entry to its own request requires the key
// itself to carry the request id rather than relying on the cache being
// discarded between requests.
func cacheKey(featureID string, def *ast.FeatureDef, ectx *execctx.Context) string {
	var base string
	switch def.Kind {
	case ast.FeatureAggregate:
		base = fmt.Sprintf("agg:%s:%s", featureID, ectx.Lookup("event.subject_id").String())
	case ast.FeatureLookup:
		base = fmt.Sprintf("lookup:%s:%s", featureID, ectx.Lookup("event.subject_id").String())
	default:
		base = "derived:" + featureID
	}
	if def.Cache.Strategy == "request_scoped" {
		base += ":" + ectx.Lookup("system.request_id").String()
	}
	return base
}
