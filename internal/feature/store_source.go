package feature

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/riskline/decisionengine/internal/value"
)

// FeatureStoreSource answers the "feature_store" QueryType by reading a
// precomputed key-value feature store served over Redis, under the
// `feature:<tenant>:<name>:<key>` convention (spec §6 collaborator
// wiring). It returns a single-row QueryResult whose columns are whatever
// fields the stored JSON blob contains.
type FeatureStoreSource struct {
	client *redis.Client
}

func NewFeatureStoreSource(client *redis.Client) *FeatureStoreSource {
	return &FeatureStoreSource{client: client}
}

func (f *FeatureStoreSource) Query(ctx context.Context, q Query) (QueryResult, error) {
	tenant := "default"
	if v, ok := q.Filters["tenant"]; ok {
		tenant = v.String()
	}
	key := "default"
	if v, ok := q.Filters["key"]; ok {
		key = v.String()
	}
	redisKey := fmt.Sprintf("feature:%s:%s:%s", tenant, q.Table, key)

	raw, err := f.client.Get(ctx, redisKey).Bytes()
	if err == redis.Nil {
		return QueryResult{Columns: q.Fields}, nil
	}
	if err != nil {
		return QueryResult{}, fmt.Errorf("feature: feature-store get %q: %w", redisKey, err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return QueryResult{}, fmt.Errorf("feature: feature-store decode %q: %w", redisKey, err)
	}

	row := make(map[string]value.Value, len(decoded))
	columns := make([]string, 0, len(decoded))
	for k, v := range decoded {
		row[k] = value.FromRaw(v)
		columns = append(columns, k)
	}
	return QueryResult{Columns: columns, Rows: []map[string]value.Value{row}}, nil
}
