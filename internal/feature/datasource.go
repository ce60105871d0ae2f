package feature

import (
	"context"
	"fmt"
	"time"

	"github.com/riskline/decisionengine/internal/value"
)

// QueryType selects which backend a Query targets (spec §4.6:
// "DataSourceClient multiplexes over backends (feature store, OLAP, SQL)").
type QueryType int

const (
	QuerySQL QueryType = iota
	QueryOLAP
	QueryFeatureStore
)

// Query is the backend-agnostic request shape DataSourceClient dispatches
// on its Type field (spec §4.6: "{type, table, fields, filters,
// aggregations, window}").
type Query struct {
	Type         QueryType
	Table        string
	Fields       []string
	Filters      map[string]value.Value
	Aggregations []Aggregation
	Window       time.Duration
}

// Aggregation names one aggregate column to compute server-side, e.g.
// {Fn: "sum", Field: "amount"}.
type Aggregation struct {
	Fn    string
	Field string
}

// QueryResult is a row list plus a column schema; unknown columns in a row
// are Null rather than absent (spec §4.6).
type QueryResult struct {
	Columns []string
	Rows    []map[string]value.Value
}

// Column returns the named column's value from row, or Null if the row doesn't
// carry that column (spec §4.6: "Unknown columns in the result are stored
// as Null in the row").
func (r QueryResult) Column(row map[string]value.Value, name string) value.Value {
	if v, ok := row[name]; ok {
		return v
	}
	return value.Null
}

// DataSourceClient multiplexes Query over whichever concrete backend Type
// selects (spec §4.6).
type DataSourceClient interface {
	Query(ctx context.Context, q Query) (QueryResult, error)
}

// MultiSourceClient dispatches to a backend client by Query.Type alone;
// the Source name declared on the feature's aggregate/lookup spec plays no
// part in the choice.
type MultiSourceClient struct {
	sql          DataSourceClient
	olap         DataSourceClient
	featureStore DataSourceClient
}

func NewMultiSourceClient(sql, olap, featureStore DataSourceClient) *MultiSourceClient {
	return &MultiSourceClient{sql: sql, olap: olap, featureStore: featureStore}
}

func (m *MultiSourceClient) Query(ctx context.Context, q Query) (QueryResult, error) {
	switch q.Type {
	case QuerySQL:
		if m.sql == nil {
			return QueryResult{}, fmt.Errorf("feature: no sql data source configured")
		}
		return m.sql.Query(ctx, q)
	case QueryOLAP:
		if m.olap == nil {
			return QueryResult{}, fmt.Errorf("feature: no olap data source configured")
		}
		return m.olap.Query(ctx, q)
	case QueryFeatureStore:
		if m.featureStore == nil {
			return QueryResult{}, fmt.Errorf("feature: no feature-store data source configured")
		}
		return m.featureStore.Query(ctx, q)
	default:
		return QueryResult{}, fmt.Errorf("feature: unknown query type %d", q.Type)
	}
}
