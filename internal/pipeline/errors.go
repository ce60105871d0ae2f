package pipeline

import "fmt"

// DeadlineExceeded describes a per-request deadline elapsing before the
// pipeline reaches a terminal step (spec §5 Cancellation & timeouts).
// Driver.Run does not return it: a deadline is reported through
// RunResult.DeadlineHit and a deadline_exceeded trace entry.
type DeadlineExceeded struct {
	StepID string
}

func (e *DeadlineExceeded) Error() string {
	return fmt.Sprintf("pipeline: deadline exceeded at step %q", e.StepID)
}

// UnresolvedBranchPipeline is an internal error: a branch arm referenced a
// named pipeline that the engine's program registry didn't resolve before
// Run was called — a defect in engine wiring, not a DSL authoring mistake,
// since semantic analysis already proved the reference exists.
type UnresolvedBranchPipeline struct {
	PipelineID string
}

func (e *UnresolvedBranchPipeline) Error() string {
	return fmt.Sprintf("pipeline: branch pipeline %q not resolved at run time", e.PipelineID)
}
