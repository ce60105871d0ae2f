package cli

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/riskline/decisionengine/internal/config"
	"github.com/riskline/decisionengine/internal/engine"
	"github.com/riskline/decisionengine/internal/feature"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/listsvc"
	"github.com/riskline/decisionengine/internal/pipeline"
	"github.com/riskline/decisionengine/internal/repository"
	"github.com/riskline/decisionengine/internal/semantic"
	"github.com/riskline/decisionengine/internal/servicecall"
	"github.com/riskline/decisionengine/internal/value"
)

// closers collects the collaborator connections buildEngine opened, closed
// in reverse order on shutdown.
type closers []func() error

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i]()
	}
}

// buildEngine wires an Engine from cfg: it compiles the DSL root, builds
// the ListService/FeatureExtractor/ServiceCaller collaborators per the
// backends cfg declares, and returns the engine plus a cleanup func.
func buildEngine(cfg *config.Config, log *zap.Logger) (*engine.Engine, closers, error) {
	var closed closers

	load := func() (*ir.ProgramSet, []*semantic.CompileError) {
		return repository.Load(cfg.DSLRoot)
	}
	initial, errs := load()
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("compile %s: %d error(s), first: %v", cfg.DSLRoot, len(errs), errs[0])
	}

	listBackend, err := buildListBackend(cfg.List)
	if err != nil {
		return nil, nil, fmt.Errorf("list backend: %w", err)
	}
	closed = append(closed, listBackend.Close)
	listService := listsvc.New(listBackend)

	sqlSource, olapSource, storeSource, dsClosers, err := buildDataSources(cfg.DataSource)
	if err != nil {
		return nil, nil, fmt.Errorf("data sources: %w", err)
	}
	closed = append(closed, dsClosers...)
	dataSource := feature.NewMultiSourceClient(sqlSource, olapSource, storeSource)

	featureCache, cacheCloser, err := buildFeatureCache(cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("feature cache: %w", err)
	}
	if cacheCloser != nil {
		closed = append(closed, cacheCloser)
	}

	extractor := feature.New(initial.Features, featureCache, dataSource)
	extractor.WithLogger(log)

	router := servicecall.NewRouter().Register("list", servicecall.NewListCaller(listService))
	if cfg.Services.LLMAPIKey != "" {
		model := cfg.Services.LLMModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		router.Register("llm", servicecall.NewLLMCaller(cfg.Services.LLMAPIKey, cfg.Services.LLMBaseURL, model))
	}
	if cfg.Services.HTTPBaseURL != "" {
		router.Register("service", servicecall.NewHTTPCaller(cfg.Services.HTTPBaseURL))
	}

	driver := &pipeline.Driver{Features: extractor, Services: router}

	env := make(map[string]value.Value, len(cfg.EnvAllowlist))
	for k, v := range cfg.ResolveEnv() {
		env[k] = value.String(v)
	}

	e := engine.New(initial, driver, cfg.ScoreMin, cfg.ScoreMax, env, load).WithLogger(log)
	return e, closed, nil
}

func buildListBackend(cfg config.ListConfig) (listsvc.Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return listsvc.NewMemoryBackend(), nil
	case "file":
		return listsvc.NewFileBackend(cfg.Path, logger)
	case "postgres":
		return listsvc.NewPostgresBackend(context.Background(), cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown list backend %q", cfg.Backend)
	}
}

// buildFeatureCache always wires a RequestScopedCache (no external
// dependency needed) behind a TieredCache, and additionally backs the
// "ttl" strategy with Redis whenever cfg.Backend is "ttl", whether or not
// cfg sets a DSN; features
// declaring cache strategy "none" fall through TieredCache's own
// no-op leg regardless of cfg.
func buildFeatureCache(cfg config.CacheConfig) (feature.Cache, func() error, error) {
	requestScoped := feature.NewRequestScopedCache()

	switch cfg.Backend {
	case "", "none", "request_scoped":
		return feature.NewTieredCache(nil, requestScoped), nil, nil
	case "ttl":
		client := redis.NewClient(&redis.Options{Addr: cfg.DSN})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		prefix := cfg.KeyPrefix
		if prefix == "" {
			prefix = "decisionengine:feature:"
		}
		ttl := feature.NewRedisTTLCache(client, prefix)
		return feature.NewTieredCache(ttl, requestScoped), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func buildDataSources(cfg config.DataSourceConfig) (feature.DataSourceClient, feature.DataSourceClient, feature.DataSourceClient, closers, error) {
	var closed closers
	var sqlSrc, olap, store feature.DataSourceClient

	if cfg.SQLDSN != "" {
		pool, err := pgxpool.New(context.Background(), cfg.SQLDSN)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect sql source: %w", err)
		}
		closed = append(closed, func() error { pool.Close(); return nil })
		sqlSrc = feature.NewSQLSource(pool)
	}

	if cfg.OLAPDSN != "" {
		conn, err := clickhouse.Open(&clickhouse.Options{Addr: []string{cfg.OLAPDSN}})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect olap source: %w", err)
		}
		closed = append(closed, func() error { return conn.Close() })
		olap = feature.NewOLAPSource(conn)
	}

	if cfg.FeatureStoreDSN != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.FeatureStoreDSN})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect feature store: %w", err)
		}
		closed = append(closed, client.Close)
		store = feature.NewFeatureStoreSource(client)
	}

	return sqlSrc, olap, store, closed, nil
}
