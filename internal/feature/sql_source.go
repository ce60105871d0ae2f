package feature

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskline/decisionengine/internal/value"
)

// SQLSource answers the "sql" QueryType over a Postgres pool, used by
// `lookup` features whose spec names a relational source (spec §4.6:
// "DataSourceClient multiplexes over backends ... SQL").
type SQLSource struct {
	pool *pgxpool.Pool
}

func NewSQLSource(pool *pgxpool.Pool) *SQLSource {
	return &SQLSource{pool: pool}
}

func (s *SQLSource) Query(ctx context.Context, q Query) (QueryResult, error) {
	stmt, args := buildSelect(q)
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("feature: sql query %q: %w", q.Table, err)
	}
	defer rows.Close()
	return scanRows(rows, q.Fields)
}

// buildSelect renders a parameterized SELECT from Query's table/fields/
// filters. Filter values are always passed as bind parameters, never
// interpolated, so user-controlled filter values can't reach the query text.
func buildSelect(q Query) (string, []any) {
	fields := "*"
	if len(q.Fields) > 0 {
		fields = strings.Join(q.Fields, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", fields, q.Table)

	var args []any
	if len(q.Filters) > 0 {
		conds := make([]string, 0, len(q.Filters))
		for _, col := range value.SortedKeys(q.Filters) {
			args = append(args, q.Filters[col].Raw())
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	return b.String(), args
}

func scanRows(rows pgx.Rows, declaredFields []string) (QueryResult, error) {
	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	var out QueryResult
	out.Columns = columns
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return QueryResult{}, err
		}
		row := make(map[string]value.Value, len(columns))
		for i, col := range columns {
			if i < len(vals) {
				row[col] = value.FromRaw(vals[i])
			} else {
				row[col] = value.Null
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, err
	}
	return out, nil
}
