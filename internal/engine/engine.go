// Package engine implements C8's DecisionEngine: the entry point that
// resolves an incoming event against the compiled program-set, runs it
// through the pipeline executor, and assembles a DecisionResult (spec
// §4.8).
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/obslog"
	"github.com/riskline/decisionengine/internal/pipeline"
	"github.com/riskline/decisionengine/internal/semantic"
	"github.com/riskline/decisionengine/internal/value"
)

// NoMatchingProgram is raised when no registry entry matches the request's
// event kind (spec §4.8 step 1).
type NoMatchingProgram struct {
	EventKind string
}

func (e *NoMatchingProgram) Error() string {
	return fmt.Sprintf("engine: no registry entry matches event kind %q", e.EventKind)
}

// Request is the transport-agnostic Decide input (spec §6).
type Request struct {
	Event      map[string]value.Value
	Metadata   map[string]string
	Options    Options
	RequestID  string
}

// Options mirrors the Decide request's options object.
type Options struct {
	IncludeTrace bool
	DeadlineMs   uint32
}

// Response is the transport-agnostic Decide output (spec §6).
type Response struct {
	RequestID       string
	Result          DecisionResult
	ProcessingTimeMs int64
	Trace           []pipeline.StepTraceEntry
}

// DecisionResult is the accumulated outcome of one Decide call (spec §3).
type DecisionResult struct {
	Action         string
	Score          float64
	TriggeredRules []string
	Signals        []string
	DeadlineHit    bool
}

// ReloadResult reports the outcome of ReloadRepository (spec §4.8,§6).
type ReloadResult struct {
	LoadedPrograms uint32
	Errors         []*semantic.CompileError
}

// loadedSet is the atomically-swappable unit holding the compiled program
// set. Swapped as one immutable value so in-flight requests never observe a
// half-updated set (spec §4.8 "Hot reload", §5 "Shared resources").
type loadedSet struct {
	programs *ir.ProgramSet
}

// Engine holds the current program-set behind an atomic pointer so reload
// never blocks or races with in-flight Decide calls (spec §5: "Compiled
// program-set: shared read-only reference, swapped atomically on reload").
type Engine struct {
	current atomic.Pointer[loadedSet]

	driver          *pipeline.Driver
	scoreMin        float64
	scoreMax        float64
	systemMetadata  map[string]value.Value
	env             map[string]value.Value
	defaultDeadline uint32

	// load recompiles the full source tree into a fresh ProgramSet; supplied
	// by the caller (package config/cli) since parsing and import
	// resolution live outside this package.
	load func() (*ir.ProgramSet, []*semantic.CompileError)

	log *zap.Logger
}

// New constructs an Engine from an already-compiled program set and the
// driver wired with its collaborators (features, services, branch-pipeline
// resolution). load is used by ReloadRepository to recompile from source.
// New starts with a no-op logger; attach one with WithLogger.
func New(initial *ir.ProgramSet, driver *pipeline.Driver, scoreMin, scoreMax float64, env map[string]value.Value, load func() (*ir.ProgramSet, []*semantic.CompileError)) *Engine {
	e := &Engine{
		driver:   driver,
		scoreMin: scoreMin,
		scoreMax: scoreMax,
		env:      env,
		load:     load,
		log:      zap.NewNop(),
	}
	e.current.Store(&loadedSet{programs: initial})
	if driver.ResolvePipeline == nil {
		driver.ResolvePipeline = e.resolvePipeline
	}
	return e
}

// WithLogger attaches a structured logger for lifecycle events (reload,
// deadline exceeded); New defaults to a no-op logger so tests need not
// supply one.
func (e *Engine) WithLogger(log *zap.Logger) *Engine {
	e.log = log
	return e
}

func (e *Engine) resolvePipeline(id string) (*ir.Program, bool) {
	set := e.current.Load()
	p, ok := set.programs.Pipelines[id]
	return p, ok
}

// Decide implements spec §4.8's four steps.
func (e *Engine) Decide(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	set := e.current.Load()

	eventKind := req.Event["kind"].String()
	entryID, ok := resolveEntry(set.programs, eventKind)
	if !ok {
		return nil, &NoMatchingProgram{EventKind: eventKind}
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	system := map[string]value.Value{"request_id": value.String(requestID)}
	for k, v := range e.systemMetadata {
		system[k] = v
	}
	for k, v := range req.Metadata {
		system[k] = value.String(v)
	}

	ectx := execctx.New(req.Event, system, e.env, e.scoreMin, e.scoreMax)

	deadline := req.Options.DeadlineMs
	if deadline == 0 {
		deadline = e.defaultDeadline
	}

	var runResult *pipeline.RunResult
	var err error
	if prog, ok := set.programs.Pipelines[entryID]; ok {
		runResult, err = e.driver.Run(ctx, prog, ectx, pipeline.Options{IncludeTrace: req.Options.IncludeTrace, DeadlineMs: deadline})
	} else if prog, ok := set.programs.Rulesets[entryID]; ok {
		runResult, err = e.runRuleset(ctx, prog, ectx)
	} else {
		return nil, &NoMatchingProgram{EventKind: eventKind}
	}
	if err != nil {
		return nil, err
	}

	resp := &Response{
		RequestID: requestID,
		Result: DecisionResult{
			Action:         runResult.Action,
			Score:          runResult.Score,
			TriggeredRules: runResult.TriggeredRules,
			Signals:        runResult.Signals,
			DeadlineHit:    runResult.DeadlineHit,
		},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if req.Options.IncludeTrace {
		resp.Trace = runResult.Trace
	}
	if runResult.DeadlineHit {
		e.log.Warn("decide: deadline exceeded", obslog.RequestID(requestID), obslog.EventKind(eventKind), obslog.Duration(resp.ProcessingTimeMs))
	}
	return resp, nil
}

// runRuleset wraps a bare ruleset entry (no pipeline wrapper declared) in a
// single-step synthetic run, since vm.Run already implements the full
// rule/ruleset evaluation semantics — no step orchestration is needed for a
// standalone ruleset entry.
func (e *Engine) runRuleset(ctx context.Context, prog *ir.Program, ectx *execctx.Context) (*pipeline.RunResult, error) {
	d := &pipeline.Driver{}
	synthetic := &ir.Program{
		Instructions: []ir.Instruction{{Op: ir.OpHalt}},
		Meta: ir.ProgramMetadata{
			Kind:        "pipeline",
			EntryStepID: "ruleset_entry",
			Steps: []ir.StepInfo{{
				ID: "ruleset_entry", Kind: "ruleset", Body: prog, Next: "end",
			}},
		},
	}
	return d.Run(ctx, synthetic, ectx, pipeline.Options{})
}

func resolveEntry(ps *ir.ProgramSet, eventKind string) (string, bool) {
	for _, reg := range ps.Registry {
		if id, ok := reg.Entries[eventKind]; ok {
			return id, true
		}
	}
	return "", false
}

// ReloadRepository re-parses the source tree into a new program-set and
// atomically swaps it; in-flight requests keep running against the old set
// they already loaded (spec §4.8).
func (e *Engine) ReloadRepository() ReloadResult {
	programs, errs := e.load()
	if len(errs) > 0 {
		e.log.Error("reload: compile failed", zap.Int("error_count", len(errs)))
		return ReloadResult{Errors: errs}
	}
	e.current.Store(&loadedSet{programs: programs})
	count := uint32(len(programs.Rules) + len(programs.Rulesets) + len(programs.Pipelines))
	e.log.Info("reload: program set swapped", obslog.ProgramCount(int(count)))
	return ReloadResult{LoadedPrograms: count}
}

// Health reports the engine's current program-set size (SPEC_FULL.md
// ambient "health" surface for the CLI/serve command).
type HealthStatus struct {
	Status        string
	ProgramCount  int
}

func (e *Engine) Health() HealthStatus {
	set := e.current.Load()
	count := len(set.programs.Rules) + len(set.programs.Rulesets) + len(set.programs.Pipelines)
	status := "ok"
	if count == 0 {
		status = "empty"
	}
	return HealthStatus{Status: status, ProgramCount: count}
}
