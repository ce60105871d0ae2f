package ast

// FeatureKind enumerates the three feature kinds from spec §4.6.
type FeatureKind int

const (
	FeatureDerived FeatureKind = iota
	FeatureAggregate
	FeatureLookup
)

// AggregateFn enumerates the aggregate functions an `aggregate` feature may
// compute over its declared window.
type AggregateFn int

const (
	AggCount AggregateFn = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func ParseAggregateFn(s string) (AggregateFn, bool) {
	switch s {
	case "count":
		return AggCount, true
	case "sum":
		return AggSum, true
	case "min":
		return AggMin, true
	case "max":
		return AggMax, true
	case "avg":
		return AggAvg, true
	default:
		return 0, false
	}
}

// AggregateSpec declares a windowed aggregate feature.
type AggregateSpec struct {
	Fn     string `yaml:"fn"`
	Field  string `yaml:"field"`
	Window string `yaml:"window"` // e.g. "5m", "24h", parsed by feature package
	Filter *Expr  `yaml:"filter,omitempty"`
	Source string `yaml:"source"` // data source name
	Table  string `yaml:"table"`
}

// LookupSpec declares a data-source-backed lookup feature.
type LookupSpec struct {
	Source  string           `yaml:"source"`
	Table   string           `yaml:"table"`
	Fields  []string         `yaml:"fields,omitempty"`
	Filters map[string]*Expr `yaml:"filters,omitempty"`
}

// CacheSpec controls the FeatureExtractor's cache strategy for this
// feature (spec §4.6: None | TTL(d) | RequestScoped).
type CacheSpec struct {
	Strategy   string `yaml:"strategy"` // "none" | "ttl" | "request_scoped"
	TTLSeconds int    `yaml:"ttl_seconds,omitempty"`
}

// FeatureDef is a named, cacheable derived value (spec §4.6).
type FeatureDef struct {
	ID         string         `yaml:"id"`
	KindStr    string         `yaml:"kind"` // "derived" | "aggregate" | "lookup"
	Expr       *Expr          `yaml:"expr,omitempty"`
	Aggregate  *AggregateSpec `yaml:"aggregate,omitempty"`
	Lookup     *LookupSpec    `yaml:"lookup,omitempty"`
	Cache      CacheSpec      `yaml:"cache,omitempty"`

	Kind FeatureKind `yaml:"-"`
}

func ParseFeatureKind(s string) (FeatureKind, bool) {
	switch s {
	case "derived":
		return FeatureDerived, true
	case "aggregate":
		return FeatureAggregate, true
	case "lookup":
		return FeatureLookup, true
	default:
		return 0, false
	}
}
