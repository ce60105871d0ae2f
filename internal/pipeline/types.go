// Package pipeline implements the step-orchestration half of C7: a
// worklist-based driver that dispatches ir.Program steps through package vm,
// handles routers/branches/merge strategies/error policies, and assembles
// the execution trace. The stack-machine half lives in package vm.
package pipeline

import (
	"context"
	"time"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/value"
)

// StepResult tags the outcome of one step dispatch (spec §3 StepTraceEntry
// "result" field and §4.5 state machine terminal states).
type StepResult int

const (
	ResultSuccess StepResult = iota
	ResultSkipped
	ResultError
	ResultRetry
	ResultDeadlineExceeded
)

func (r StepResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultSkipped:
		return "skipped"
	case ResultError:
		return "error"
	case ResultRetry:
		return "retry"
	case ResultDeadlineExceeded:
		return "deadline_exceeded"
	default:
		return "unknown"
	}
}

// StepTraceEntry is one row of the execution trace (spec §3).
type StepTraceEntry struct {
	StepID     string
	StartedAt  time.Time
	DurationMs int64
	Result     StepResult
	Attempt    int
	Merge      string // not filled by Driver; empty on every entry
	Error      string
}

// FeatureExtractor is the collaborator interface a feature step calls
// through (spec §4.6). Package feature implements it; pipeline only
// depends on the interface to avoid a direct compile-time dependency on the
// extractor's cache/datasource wiring. The running request's execution
// context is passed through so derived-feature expressions can read
// event/system/feature fields the same way a rule's VM program does.
type FeatureExtractor interface {
	Compute(ctx context.Context, featureID string, ectx *execctx.Context) (value.Value, error)
}

// ServiceCaller is the collaborator interface a service_call/llm_call step
// dispatches through.
type ServiceCaller interface {
	Call(ctx context.Context, service string, params map[string]value.Value, deadlineMs int) (map[string]value.Value, error)
}

// Options configures one Run (spec §6 Decide request options).
type Options struct {
	IncludeTrace bool
	DeadlineMs   uint32
}

// RunResult is everything the executor produced for one request.
type RunResult struct {
	Action         string
	Score          float64
	TriggeredRules []string
	Signals        []string
	Trace          []StepTraceEntry
	DeadlineHit    bool
}

// onErrorOutcome is what applying a step's ast.ErrorAction decided to do.
type onErrorOutcome int

const (
	outcomeFailFast onErrorOutcome = iota
	outcomeSkip
	outcomeDefaultValue
	outcomeRetry
)

func classifyOnError(a ast.ErrorAction) onErrorOutcome {
	switch a.Kind {
	case ast.ErrorSkip:
		return outcomeSkip
	case ast.ErrorDefaultValue:
		return outcomeDefaultValue
	case ast.ErrorRetry:
		return outcomeRetry
	default:
		return outcomeFailFast
	}
}
