package pipeline

import (
	"context"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/ir"
)

// armOutcome is one branch arm's result, kept alongside its declared index.
// MergeAll/MergeWeighted combine outcomes in that declared order for
// reproducibility; MergeFirst instead honors whichever arm's goroutine
// actually finished first (spec §4.5: "first takes the first to finish"),
// tracked separately via dispatchBranch's firstWinner.
type armOutcome struct {
	index int
	id    string
	ectx  *execctx.Context
	res   *RunResult
	err   error
}

// dispatchBranch forks info's branch arms concurrently with deep-copied
// contexts, runs each through a nested Driver.Run, and merges per the
// declared MergeStrategy (spec §4.5 "Branches").
func (d *Driver) dispatchBranch(ctx context.Context, info *ir.StepInfo, ectx *execctx.Context, opts Options) error {
	if info.Fork == nil || len(info.Fork.BranchIDs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	outcomes := make([]armOutcome, len(info.Fork.BranchIDs))

	// firstWinner records the declared index of whichever arm's goroutine
	// completes first, for MergeFirst; -1 until one finishes. CAS picks the
	// genuine winner under concurrent completions.
	var firstWinner atomic.Int32
	firstWinner.Store(-1)

	for i := range info.Fork.BranchIDs {
		i := i
		outcomes[i] = armOutcome{index: i, id: info.Fork.BranchIDs[i]}
		prog := info.Fork.Programs[i]
		if prog == nil && d.ResolvePipeline != nil {
			if resolved, ok := d.ResolvePipeline(info.Fork.BranchIDs[i]); ok {
				prog = resolved
			}
		}
		if prog == nil {
			outcomes[i].err = &UnresolvedBranchPipeline{PipelineID: info.Fork.BranchIDs[i]}
			continue
		}
		forkedCtx := ectx.Fork()
		outcomes[i].ectx = forkedCtx
		g.Go(func() error {
			res, err := d.Run(gctx, prog, forkedCtx, opts)
			outcomes[i].res = res
			outcomes[i].err = err
			if err != nil {
				return err
			}
			switch info.Fork.Merge.Kind {
			case ast.MergeAny:
				if res != nil && res.Action != "" && res.Action != "continue" {
					return errArmDecided
				}
			case ast.MergeFirst:
				if firstWinner.CompareAndSwap(-1, int32(i)) {
					return errArmDecided
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && err != errArmDecided {
		return err
	}

	return mergeOutcomes(ectx, info.Fork.Merge, outcomes, int(firstWinner.Load()))
}

// errArmDecided is a sentinel used only to cancel sibling arms once a
// MergeAny branch gets its first decisive result or a MergeFirst arm is
// the first to finish; it is never surfaced to the caller.
var errArmDecided = &mergeSentinel{}

type mergeSentinel struct{}

func (*mergeSentinel) Error() string { return "pipeline: branch arm decided (any-merge)" }

// mergeOutcomes combines branch results into the parent context per the
// declared strategy (spec §4.5): all waits for every branch and combines
// signals/score; any takes the first non-continue action; first takes the
// first to finish (firstWinner, recorded by dispatchBranch as arms complete,
// not by declared index); weighted sums scores by declared branch weight.
func mergeOutcomes(parent *execctx.Context, merge ast.MergeStrategy, outcomes []armOutcome, firstWinner int) error {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	switch merge.Kind {
	case ast.MergeFirst:
		for _, o := range outcomes {
			if o.index == firstWinner && o.res != nil {
				mergeOne(parent, o)
				return nil
			}
		}
		return nil

	case ast.MergeAny:
		for _, o := range outcomes {
			if o.res != nil && o.res.Action != "" && o.res.Action != "continue" {
				mergeOne(parent, o)
				return nil
			}
		}
		for _, o := range outcomes {
			if o.res != nil {
				mergeOne(parent, o)
				return nil
			}
		}
		return nil

	case ast.MergeWeighted:
		var total float64
		for _, o := range outcomes {
			if o.res == nil {
				continue
			}
			w := merge.Weights[o.id]
			total += o.res.Score * w
			mergeSignals(parent, o)
		}
		parent.AddScore(total)
		return nil

	default: // ast.MergeAll
		for _, o := range outcomes {
			if o.res == nil {
				continue
			}
			mergeOne(parent, o)
		}
		return nil
	}
}

func mergeOne(parent *execctx.Context, o armOutcome) {
	if o.res == nil {
		return
	}
	parent.AddScore(o.res.Score)
	mergeSignals(parent, o)
	if o.res.Action != "" {
		parent.SetAction(o.res.Action)
	}
}

func mergeSignals(parent *execctx.Context, o armOutcome) {
	if o.res == nil {
		return
	}
	for _, s := range o.res.Signals {
		parent.EmitSignal(s)
	}
	for _, r := range o.res.TriggeredRules {
		parent.MarkRuleTriggered(r)
	}
}
