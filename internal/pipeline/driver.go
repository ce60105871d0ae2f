package pipeline

import (
	"context"
	"time"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/value"
	"github.com/riskline/decisionengine/internal/vm"
)

// Driver is C7's step-orchestration half. It is stateless and safe to share
// across concurrent requests; all per-request state lives in the
// execctx.Context and the trace slice built up during Run.
type Driver struct {
	Features        FeatureExtractor
	Services        ServiceCaller
	ResolvePipeline func(id string) (*ir.Program, bool)
}

// Run drives prog from its entry step to `end` or a terminal failure,
// implementing the step state machine from spec §4.5: "Pending -> Guarded
// -> Running -> (Success | Error | Skipped | Retry) -> Transitioning ->
// Terminal."
func (d *Driver) Run(ctx context.Context, prog *ir.Program, ectx *execctx.Context, opts Options) (*RunResult, error) {
	if opts.DeadlineMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.DeadlineMs)*time.Millisecond)
		defer cancel()
	}

	result := &RunResult{}
	stepID := prog.Meta.EntryStepID

	for stepID != ast.EndStepID {
		select {
		case <-ctx.Done():
			result.DeadlineHit = true
			result.Trace = append(result.Trace, StepTraceEntry{
				StepID: stepID, StartedAt: time.Now(), Result: ResultDeadlineExceeded,
				Error: ctx.Err().Error(),
			})
			d.finalize(result, ectx)
			return result, nil
		default:
		}

		info, ok := prog.StepAt(stepID)
		if !ok {
			result.Trace = append(result.Trace, StepTraceEntry{
				StepID: stepID, StartedAt: time.Now(), Result: ResultError,
				Error: "undefined step id " + stepID,
			})
			d.finalize(result, ectx)
			return result, nil
		}

		next, terminal, err := d.runStep(ctx, &info, ectx, opts, result)
		if terminal {
			d.finalize(result, ectx)
			return result, err
		}
		stepID = next
	}

	d.finalize(result, ectx)
	return result, nil
}

// runStep dispatches one step and returns the successor step id, or
// terminal=true if the pipeline should stop (fail_fast, deadline, or `end`
// reached directly).
func (d *Driver) runStep(ctx context.Context, info *ir.StepInfo, ectx *execctx.Context, opts Options, result *RunResult) (next string, terminal bool, err error) {
	ectx.BeginStep()
	started := time.Now()

	if info.Guard != nil {
		guardRes, gerr := vm.Run(info.Guard, ectx)
		if gerr != nil {
			result.Trace = append(result.Trace, traceEntry(info.ID, started, ResultError, gerr))
			return d.applyOnError(ctx, info, ectx, opts, result, gerr)
		}
		if guardRes.HasValue && !value.Truthy(guardRes.TopOfStack) {
			result.Trace = append(result.Trace, traceEntry(info.ID, started, ResultSkipped, nil))
			return info.Next, false, nil
		}
	}

	runErr := d.dispatch(ctx, info, ectx, opts)
	if runErr != nil {
		result.Trace = append(result.Trace, traceEntry(info.ID, started, ResultError, runErr))
		return d.applyOnError(ctx, info, ectx, opts, result, runErr)
	}

	result.Trace = append(result.Trace, traceEntry(info.ID, started, ResultSuccess, nil))
	return d.successor(info, ectx), false, nil
}

// dispatch runs the step body per kind (spec §4.5 step 2: "Dispatch on step
// kind to the corresponding IR block").
func (d *Driver) dispatch(ctx context.Context, info *ir.StepInfo, ectx *execctx.Context, opts Options) error {
	switch info.Kind {
	case "rule", "ruleset":
		if info.Body == nil {
			return nil
		}
		_, err := vm.Run(info.Body, ectx)
		return err

	case "feature":
		if d.Features == nil {
			return nil
		}
		v, err := d.Features.Compute(ctx, info.Ref, ectx)
		if err != nil {
			return err
		}
		return ectx.WriteFeature(info.Ref, v)

	case "service_call", "llm_call":
		if d.Services == nil || info.Service == nil {
			return nil
		}
		params := map[string]value.Value{}
		for _, name := range info.Service.ParamNames {
			params[name] = ectx.Lookup(name)
		}
		out, err := d.Services.Call(ctx, info.Service.Service, params, info.Service.DeadlineMs)
		if err != nil {
			return err
		}
		for k, v := range out {
			_ = ectx.WriteFeature(info.Ref+"."+k, v)
		}
		return nil

	case "router":
		return d.dispatchRouter(info, ectx)

	case "branch":
		return d.dispatchBranch(ctx, info, ectx, opts)

	default:
		return nil
	}
}

// dispatchRouter evaluates each route's condition in declaration order and
// records the first match via the context's synthetic next-step override,
// falling back to Default (spec §4.5 step 3, §8 "Route precedence").
func (d *Driver) dispatchRouter(info *ir.StepInfo, ectx *execctx.Context) error {
	for _, route := range info.Routes {
		res, err := vm.Run(route.Cond, ectx)
		if err != nil {
			return err
		}
		if res.HasValue && value.Truthy(res.TopOfStack) {
			ectx.NextStepOverride = route.Next
			return nil
		}
	}
	ectx.NextStepOverride = info.Default
	return nil
}

// successor computes the next step id following spec §4.5 step 3: a router
// override takes precedence when set; otherwise plain Next.
func (d *Driver) successor(info *ir.StepInfo, ectx *execctx.Context) string {
	if ectx.NextStepOverride != "" {
		return ectx.NextStepOverride
	}
	return info.Next
}

func traceEntry(stepID string, started time.Time, result StepResult, err error) StepTraceEntry {
	e := StepTraceEntry{
		StepID:     stepID,
		StartedAt:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Result:     result,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// finalize copies accumulated context state into the result; called once
// the pipeline reaches a terminal state.
func (d *Driver) finalize(result *RunResult, ectx *execctx.Context) {
	result.Action = ectx.Action
	result.Score = ectx.Score
	result.TriggeredRules = append([]string(nil), ectx.TriggeredRules...)
	result.Signals = nil
	seen := map[string]bool{}
	for _, s := range ectx.Signals {
		if !seen[s] {
			seen[s] = true
			result.Signals = append(result.Signals, s)
		}
	}
}
