package pipeline

import (
	"context"
	"time"

	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/vm"
)

// applyOnError implements spec §4.5 step 4's four on_error policies. It is
// only reached after dispatch (or the guard) has already failed once.
func (d *Driver) applyOnError(ctx context.Context, info *ir.StepInfo, ectx *execctx.Context, opts Options, result *RunResult, firstErr error) (next string, terminal bool, err error) {
	switch classifyOnError(info.OnError) {
	case outcomeSkip:
		return info.Next, false, nil

	case outcomeDefaultValue:
		if info.DefaultValue != nil {
			res, verr := vm.Run(info.DefaultValue, ectx)
			if verr == nil && res.HasValue && info.OnError.DefaultField != "" {
				_ = ectx.WriteFeature(info.OnError.DefaultField, res.TopOfStack)
			}
		}
		return info.Next, false, nil

	case outcomeRetry:
		attempts := info.OnError.Attempts
		if attempts < 1 {
			attempts = 1
		}
		backoff := time.Duration(info.OnError.BackoffMs) * time.Millisecond
		lastErr := firstErr
		for attempt := 2; attempt <= attempts; attempt++ {
			if backoff > 0 {
				select {
				case <-ctx.Done():
					result.DeadlineHit = true
					return "", true, nil
				case <-time.After(backoff):
				}
				backoff *= 2
			}
			started := time.Now()
			lastErr = d.dispatch(ctx, info, ectx, opts)
			if lastErr == nil {
				result.Trace = append(result.Trace, withAttempt(traceEntry(info.ID, started, ResultSuccess, nil), attempt))
				return d.successor(info, ectx), false, nil
			}
			result.Trace = append(result.Trace, withAttempt(traceEntry(info.ID, started, ResultRetry, lastErr), attempt))
		}
		// Exhausted retries: fall through to fail_fast below.
		ectx.SetAction(reviewIfUnset(ectx.Action))
		return "", true, lastErr

	default: // outcomeFailFast
		ectx.SetAction(reviewIfUnset(ectx.Action))
		return "", true, firstErr
	}
}

func reviewIfUnset(current string) string {
	if current == "" {
		return "review"
	}
	return current
}

func withAttempt(e StepTraceEntry, attempt int) StepTraceEntry {
	e.Attempt = attempt
	return e
}
