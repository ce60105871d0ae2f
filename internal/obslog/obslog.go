// Package obslog wraps go.uber.org/zap to provide leveled, structured
// logging for engine lifecycle events (compile, reload, cache coalesce,
// deadline exceeded), adapted from the teacher's zap.NewProductionConfig
// CLI logger setup (SPEC_FULL.md §4.10). It is distinct from
// internal/audit, which persists one JSON line per decision for
// compliance/replay rather than operational logging.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-mode zap.Logger, switching to debug level when
// verbose is set, mirroring the teacher's root command logger init.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Fields constructs commonly-used structured fields so call sites stay
// consistent in naming (request_id, event_kind, etc.) across packages.
func RequestID(id string) zap.Field   { return zap.String("request_id", id) }
func EventKind(kind string) zap.Field { return zap.String("event_kind", kind) }
func Duration(ms int64) zap.Field     { return zap.Int64("duration_ms", ms) }
func ProgramCount(n int) zap.Field    { return zap.Int("program_count", n) }
func FeatureID(id string) zap.Field   { return zap.String("feature_id", id) }
