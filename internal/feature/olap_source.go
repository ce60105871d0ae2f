package feature

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/riskline/decisionengine/internal/value"
)

// OLAPSource answers the "olap" QueryType over ClickHouse, used by
// `aggregate` features computing windowed sum/count/min/max/avg over large
// event tables (spec §4.6).
type OLAPSource struct {
	conn clickhouse.Conn
}

func NewOLAPSource(conn clickhouse.Conn) *OLAPSource {
	return &OLAPSource{conn: conn}
}

func (o *OLAPSource) Query(ctx context.Context, q Query) (QueryResult, error) {
	stmt, args := buildAggregateSelect(q)
	rows, err := o.conn.Query(ctx, stmt, args...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("feature: olap query %q: %w", q.Table, err)
	}
	defer rows.Close()
	return scanClickhouseRows(rows)
}

func buildAggregateSelect(q Query) (string, []any) {
	selects := make([]string, 0, len(q.Aggregations))
	for _, agg := range q.Aggregations {
		selects = append(selects, aggregateExpr(agg))
	}
	if len(selects) == 0 {
		selects = []string{"count(*) AS count"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(selects, ", "), q.Table)

	var conds []string
	var args []any
	if q.Window > 0 {
		conds = append(conds, fmt.Sprintf("event_time >= now() - INTERVAL %d SECOND", int(q.Window.Seconds())))
	}
	for _, col := range value.SortedKeys(q.Filters) {
		args = append(args, q.Filters[col].Raw())
		conds = append(conds, fmt.Sprintf("%s = ?", col))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	return b.String(), args
}

func aggregateExpr(agg Aggregation) string {
	switch agg.Fn {
	case "count":
		return "count(*) AS count"
	case "sum":
		return fmt.Sprintf("sum(%s) AS sum", agg.Field)
	case "min":
		return fmt.Sprintf("min(%s) AS min", agg.Field)
	case "max":
		return fmt.Sprintf("max(%s) AS max", agg.Field)
	case "avg":
		return fmt.Sprintf("avg(%s) AS avg", agg.Field)
	default:
		return "count(*) AS count"
	}
}

func scanClickhouseRows(rows clickhouse.Rows) (QueryResult, error) {
	columns := rows.Columns()
	var out QueryResult
	out.Columns = columns

	for rows.Next() {
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, err
		}
		row := make(map[string]value.Value, len(columns))
		for i, col := range columns {
			row[col] = value.FromRaw(dest[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}
