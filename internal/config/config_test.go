package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", "dsl_root: /rules\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DSLRoot != "/rules" {
		t.Fatalf("expected dsl_root /rules, got %q", cfg.DSLRoot)
	}
	if cfg.DefaultDeadlineMs != 500 {
		t.Fatalf("expected default deadline 500, got %d", cfg.DefaultDeadlineMs)
	}
	if cfg.Cache.Backend != "none" || cfg.List.Backend != "memory" {
		t.Fatalf("expected default backends, got cache=%q list=%q", cfg.Cache.Backend, cfg.List.Backend)
	}
}

func TestLoadMissingDSLRootErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", "default_deadline_ms: 100\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when dsl_root is missing")
	}
}

func TestLoadOverridesCacheAndListBackends(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", `
dsl_root: /rules
cache:
  backend: ttl
  dsn: redis://localhost:6379
list:
  backend: postgres
  dsn: postgres://localhost/lists
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.Backend != "ttl" || cfg.Cache.DSN != "redis://localhost:6379" {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.List.Backend != "postgres" || cfg.List.DSN != "postgres://localhost/lists" {
		t.Fatalf("unexpected list config: %+v", cfg.List)
	}
}

func TestLoadEnvOverridesDSLRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "config.yaml", "dsl_root: /rules\n")

	t.Setenv("DECISIONENGINE_DSL_ROOT", "/override")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DSLRoot != "/override" {
		t.Fatalf("expected env override to win, got %q", cfg.DSLRoot)
	}
}

func TestResolveEnvRestrictsToAllowlist(t *testing.T) {
	t.Setenv("DE_TEST_ALLOWED", "yes")
	t.Setenv("DE_TEST_FORBIDDEN", "no")

	cfg := &Config{EnvAllowlist: []string{"DE_TEST_ALLOWED"}}
	env := cfg.ResolveEnv()

	if env["DE_TEST_ALLOWED"] != "yes" {
		t.Fatalf("expected allowed var to resolve, got %+v", env)
	}
	if _, ok := env["DE_TEST_FORBIDDEN"]; ok {
		t.Fatalf("expected forbidden var to be absent, got %+v", env)
	}
}
