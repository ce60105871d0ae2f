package vm

import (
	"testing"

	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/value"
)

func TestRunSimpleArithmetic(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpPushConst, Const: value.Number(2)},
		{Op: ir.OpPushConst, Const: value.Number(3)},
		{Op: ir.OpBinary, Bin: value.OpAdd},
		{Op: ir.OpHalt},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	res, err := Run(prog, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasValue || res.TopOfStack.Number() != 5 {
		t.Fatalf("expected 5, got %+v", res)
	}
}

func TestRunDivisionByZero(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpPushConst, Const: value.Number(1)},
		{Op: ir.OpPushConst, Const: value.Number(0)},
		{Op: ir.OpBinary, Bin: value.OpDiv},
		{Op: ir.OpHalt},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	_, err := Run(prog, ctx)
	rtErr, ok := err.(*RuntimeError)
	if !ok || rtErr.Kind != "DivisionByZero" {
		t.Fatalf("expected DivisionByZero runtime error, got %v", err)
	}
}

func TestRunStackUnderflow(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpBinary, Bin: value.OpAdd},
		{Op: ir.OpHalt},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	_, err := Run(prog, ctx)
	rtErr, ok := err.(*RuntimeError)
	if !ok || rtErr.Kind != "StackUnderflow" {
		t.Fatalf("expected StackUnderflow, got %v", err)
	}
}

func TestRunPCOutOfBounds(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpJump, Addr: 99},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	_, err := Run(prog, ctx)
	rtErr, ok := err.(*RuntimeError)
	if !ok || rtErr.Kind != "PCOutOfBounds" {
		t.Fatalf("expected PCOutOfBounds, got %v", err)
	}
}

func TestRunJumpIfFalseShortCircuits(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpPushConst, Const: value.Bool(false)},
		{Op: ir.OpJumpIfFalse, Addr: 4},
		{Op: ir.OpPushConst, Const: value.String("unreachable")},
		{Op: ir.OpSetAction},
		{Op: ir.OpHalt},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	_, err := Run(prog, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Action != "" {
		t.Fatalf("expected action unset, got %q", ctx.Action)
	}
}

func TestRunNullAbsorbingCompareProducesFalse(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpLoadVar, Path: "event.missing"},
		{Op: ir.OpPushConst, Const: value.Number(5)},
		{Op: ir.OpCompare, Cmp: value.OpGt},
		{Op: ir.OpHalt},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	res, err := Run(prog, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TopOfStack.Bool() != false {
		t.Fatalf("expected false for Null-absorbing comparison, got %v", res.TopOfStack)
	}
}

func TestRunSuspendsOnCallFeature(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpCallFeature, FeatureID: "velocity"},
		{Op: ir.OpHalt},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	_, err := Run(prog, ctx)
	susp, ok := err.(*Suspension)
	if !ok {
		t.Fatalf("expected *Suspension, got %T: %v", err, err)
	}
	if susp.PC != 0 {
		t.Fatalf("expected suspension at pc 0, got %d", susp.PC)
	}
}

func TestRunEmitSignalAndAddScore(t *testing.T) {
	prog := &ir.Program{Instructions: []ir.Instruction{
		{Op: ir.OpEmitSignal, Path: "risky"},
		{Op: ir.OpPushConst, Const: value.Number(25)},
		{Op: ir.OpAddScore},
		{Op: ir.OpHalt},
	}}
	ctx := execctx.New(nil, nil, nil, 0, 100)
	_, err := Run(prog, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctx.Signals) != 1 || ctx.Signals[0] != "risky" {
		t.Fatalf("expected signal risky, got %v", ctx.Signals)
	}
	if ctx.Score != 25 {
		t.Fatalf("expected score 25, got %v", ctx.Score)
	}
}
