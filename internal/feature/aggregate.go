package feature

import (
	"context"
	"fmt"
	"time"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/value"
	"github.com/riskline/decisionengine/internal/vm"
)

// computeAggregate evaluates an `aggregate` feature by querying the OLAP
// source over the declared window, subject, and function (spec §4.6:
// "aggregate (count/sum/min/max/avg over a time window). Aggregates
// declare {field, window, filter}").
func (e *Extractor) computeAggregate(ctx context.Context, def *ast.FeatureDef, ectx *execctx.Context) (value.Value, error) {
	spec := def.Aggregate
	if spec == nil {
		return value.Null, fmt.Errorf("feature: %q declared kind aggregate without an aggregate spec", def.ID)
	}
	if prog, ok := e.aggregateFilters[def.ID]; ok {
		res, err := vm.Run(prog, ectx)
		if err != nil {
			return value.Null, err
		}
		if res.HasValue && !value.Truthy(res.TopOfStack) {
			return zeroForFn(spec.Fn), nil
		}
	}

	window, err := time.ParseDuration(spec.Window)
	if err != nil {
		return value.Null, fmt.Errorf("feature: %q has invalid window %q: %w", def.ID, spec.Window, err)
	}

	if e.source == nil {
		return value.Null, fmt.Errorf("feature: %q requires a data source but none is configured", def.ID)
	}

	result, err := e.source.Query(ctx, Query{
		Type:   QueryOLAP,
		Table:  spec.Table,
		Window: window,
		Filters: map[string]value.Value{
			"subject_id": ectx.Lookup("event.subject_id"),
		},
		Aggregations: []Aggregation{{Fn: spec.Fn, Field: spec.Field}},
	})
	if err != nil {
		return value.Null, err
	}
	if len(result.Rows) == 0 {
		return zeroForFn(spec.Fn), nil
	}
	return result.Column(result.Rows[0], spec.Fn), nil
}

// zeroForFn is the identity/empty result an aggregate reports when its
// filter excludes the current subject or the source returns no rows: zero
// for count/sum, Null for min/max/avg (an empty window has no minimum).
func zeroForFn(fn string) value.Value {
	switch fn {
	case "count", "sum":
		return value.Number(0)
	default:
		return value.Null
	}
}

// computeLookup evaluates a `lookup` feature by querying the SQL source for
// the declared table, with each named filter expression evaluated against
// the current context (spec §4.6: "lookup (data-source query)").
func (e *Extractor) computeLookup(ctx context.Context, def *ast.FeatureDef, ectx *execctx.Context) (value.Value, error) {
	spec := def.Lookup
	if spec == nil {
		return value.Null, fmt.Errorf("feature: %q declared kind lookup without a lookup spec", def.ID)
	}
	if e.source == nil {
		return value.Null, fmt.Errorf("feature: %q requires a data source but none is configured", def.ID)
	}

	filters := make(map[string]value.Value, len(spec.Filters))
	for col, prog := range e.lookupFilters[def.ID] {
		res, err := vm.Run(prog, ectx)
		if err != nil {
			return value.Null, err
		}
		if res.HasValue {
			filters[col] = res.TopOfStack
		}
	}

	result, err := e.source.Query(ctx, Query{
		Type:    QuerySQL,
		Table:   spec.Table,
		Fields:  spec.Fields,
		Filters: filters,
	})
	if err != nil {
		return value.Null, err
	}
	if len(result.Rows) == 0 {
		return value.Null, nil
	}

	row := result.Rows[0]
	if len(spec.Fields) == 1 {
		return result.Column(row, spec.Fields[0]), nil
	}
	obj := make(map[string]value.Value, len(row))
	for k, v := range row {
		obj[k] = v
	}
	return value.Object(obj), nil
}
