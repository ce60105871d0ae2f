// Package config loads the engine's Config struct from a YAML file plus
// environment overrides, adapted from the teacher's internal/config.Config
// and internal/config.Load (SPEC_FULL.md §4.9), generalized from a single
// policy-file path to a small typed settings object covering the DSL root,
// deadline, and collaborator backend selection.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir = ".decisionengine"
	DefaultAuditFile = "audit.jsonl"
)

// CacheConfig selects the feature cache backend and its connection string
// (spec §4.6 cache strategies, wired per-engine rather than per-feature).
type CacheConfig struct {
	Backend    string `yaml:"backend"` // "none" | "ttl" | "request_scoped"
	DSN        string `yaml:"dsn"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// ListConfig selects the ListService backend and its storage location
// (spec §4.7).
type ListConfig struct {
	Backend string `yaml:"backend"` // "memory" | "file" | "postgres"
	Path    string `yaml:"path"`    // file backend directory
	DSN     string `yaml:"dsn"`     // postgres backend connection string
}

// DataSourceConfig wires the SQL/OLAP/feature-store connection strings the
// FeatureExtractor's DataSourceClient multiplexes over (spec §4.6).
type DataSourceConfig struct {
	SQLDSN          string `yaml:"sql_dsn"`
	OLAPDSN         string `yaml:"olap_dsn"`
	FeatureStoreDSN string `yaml:"feature_store_dsn"`
}

// ServiceConfig configures the external collaborators a `service_call` or
// `llm_call` pipeline step reaches through servicecall.Router (spec §3's
// Step kind list). Both are optional; a step naming a prefix with no
// registered caller fails at dispatch time, not at compile time.
type ServiceConfig struct {
	LLMAPIKey   string `yaml:"llm_api_key"`
	LLMBaseURL  string `yaml:"llm_base_url"`
	LLMModel    string `yaml:"llm_model"`
	HTTPBaseURL string `yaml:"http_base_url"`
}

// Config is the engine's full settings object, loaded once at startup.
type Config struct {
	// DSLRoot is the directory ImportResolver treats as the virtual root
	// for `include:` directives (spec §4.1).
	DSLRoot string `yaml:"dsl_root"`

	// DefaultDeadlineMs is used when a Decide request's options omit a
	// deadline (spec §6 Decide options).
	DefaultDeadlineMs uint32 `yaml:"default_deadline_ms"`

	ScoreMin float64 `yaml:"score_min"`
	ScoreMax float64 `yaml:"score_max"`

	Cache      CacheConfig      `yaml:"cache"`
	List       ListConfig       `yaml:"list"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Services   ServiceConfig    `yaml:"services"`

	AuditPath string `yaml:"audit_path"`

	// EnvAllowlist names the environment variables exposed to the DSL's
	// `env.*` namespace; any variable not named here is invisible to rules
	// even if set in the process environment (spec §3 env.* namespace).
	EnvAllowlist []string `yaml:"env_allowlist"`

	ConfigDir string `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		DefaultDeadlineMs: 500,
		ScoreMin:          0,
		ScoreMax:          100,
		Cache:             CacheConfig{Backend: "none"},
		List:              ListConfig{Backend: "memory"},
	}
}

// Load reads path (if non-empty) as YAML into a Config seeded with
// defaults, then applies DECISIONENGINE_-prefixed environment overrides for
// the handful of settings most commonly overridden per-deployment (DSL
// root, audit path, cache/list DSNs) — mirroring the teacher's pattern of
// letting CLI flags and environment both feed the same settings object,
// generalized here to a full YAML document instead of three flag strings.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.DSLRoot == "" {
		return nil, fmt.Errorf("config: dsl_root is required")
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		cfg.ConfigDir = filepath.Join(homeDir, DefaultConfigDir)
		if err := ensureDir(cfg.ConfigDir); err != nil {
			return nil, fmt.Errorf("config: ensure config dir: %w", err)
		}
	}
	if cfg.AuditPath == "" && cfg.ConfigDir != "" {
		cfg.AuditPath = filepath.Join(cfg.ConfigDir, DefaultAuditFile)
	}

	return &cfg, nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DECISIONENGINE_DSL_ROOT"); v != "" {
		cfg.DSLRoot = v
	}
	if v := os.Getenv("DECISIONENGINE_AUDIT_PATH"); v != "" {
		cfg.AuditPath = v
	}
	if v := os.Getenv("DECISIONENGINE_CACHE_DSN"); v != "" {
		cfg.Cache.DSN = v
	}
	if v := os.Getenv("DECISIONENGINE_LIST_DSN"); v != "" {
		cfg.List.DSN = v
	}
	if v := os.Getenv("DECISIONENGINE_SQL_DSN"); v != "" {
		cfg.DataSource.SQLDSN = v
	}
}

// ResolveEnv builds the env.* namespace map from the process environment,
// restricted to EnvAllowlist (spec §3: "env.* ... a whitelisted
// environment mapping, resolved once at engine construction time").
func (c *Config) ResolveEnv() map[string]string {
	out := make(map[string]string, len(c.EnvAllowlist))
	for _, name := range c.EnvAllowlist {
		out[name] = os.Getenv(name)
	}
	return out
}
