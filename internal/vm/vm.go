// Package vm implements the stack-machine half of C7: a bytecode
// interpreter over ir.Program that reads/writes an execctx.Context. The
// step-orchestration half (the step driver, branch fork/join, retries) lives
// in package pipeline, which calls VM.Run for each step's guard/body.
package vm

import (
	"fmt"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/execctx"
	"github.com/riskline/decisionengine/internal/ir"
	"github.com/riskline/decisionengine/internal/value"
)

// RuntimeError enumerates the §7 RuntimeError family this package can
// raise: TypeError, InvalidOperation, DivisionByZero, PCOutOfBounds,
// StackUnderflow. FieldNotFound never reaches here since execctx.Lookup
// already promotes absent fields to Null before the VM sees them.
type RuntimeError struct {
	Kind string
	Msg  string
}

func (e *RuntimeError) Error() string { return fmt.Sprintf("vm: %s: %s", e.Kind, e.Msg) }

func rtErr(kind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Result is what Run returns: the stack machine halted cleanly, possibly
// having produced a final Value left on the stack (used for guard/route
// condition programs, which end with a bare bool on the stack).
type Result struct {
	TopOfStack value.Value
	HasValue   bool
}

// Run executes prog against ctx to completion (a reached Halt) or a runtime
// error. Suspension points (CallFeature, CallService, Fork, Join) are NOT
// handled here: reaching one returns a *Suspension, from which RunFrom can
// continue. Package ir does not emit these instructions; package pipeline
// runs feature, service and branch steps itself.
func Run(prog *ir.Program, ctx *execctx.Context) (Result, error) {
	return RunFrom(prog, ctx, 0, nil)
}

// Suspension is returned (never as an error) when execution reaches an
// instruction the VM itself cannot resolve; a caller can resume by calling
// RunFrom with PC+1 and the stack snapshot after pushing the missing value
// onto it.
type Suspension struct {
	PC    int
	Instr ir.Instruction
	Stack []value.Value
}

func (s *Suspension) Error() string {
	return fmt.Sprintf("vm: suspended at pc=%d on %s", s.PC, s.Instr.Op)
}

// RunFrom executes prog starting at pc with an initial stack (nil for a
// fresh run), returning either a Result, a *Suspension, or a *RuntimeError.
func RunFrom(prog *ir.Program, ctx *execctx.Context, pc int, stack []value.Value) (Result, error) {
	instrs := prog.Instructions
	for {
		if pc < 0 || pc >= len(instrs) {
			return Result{}, rtErr("PCOutOfBounds", "pc=%d len=%d", pc, len(instrs))
		}
		instr := instrs[pc]

		switch instr.Op {
		case ir.OpHalt:
			if len(stack) > 0 {
				return Result{TopOfStack: stack[len(stack)-1], HasValue: true}, nil
			}
			return Result{}, nil

		case ir.OpPushConst:
			stack = append(stack, instr.Const)
			pc++

		case ir.OpLoadVar:
			stack = append(stack, ctx.Lookup(instr.Path))
			pc++

		case ir.OpUnary:
			v, rest, err := pop1(stack)
			if err != nil {
				return Result{}, err
			}
			var result value.Value
			switch instr.Unary {
			case ast.UnaryNot:
				result, err = value.Not(v)
			default: // ast.UnaryNeg
				result, err = value.Neg(v)
			}
			if err != nil {
				return Result{}, rtErr("TypeError", "%v", err)
			}
			stack = append(rest, result)
			pc++

		case ir.OpBinary:
			left, right, rest, err := pop2(stack)
			if err != nil {
				return Result{}, err
			}
			result, err := value.Arith(left, instr.Bin, right)
			if err != nil && err != value.ErrDivisionByZero {
				return Result{}, rtErr("TypeError", "%v", err)
			}
			if err == value.ErrDivisionByZero {
				return Result{}, rtErr("DivisionByZero", "%v", err)
			}
			stack = append(rest, result)
			pc++

		case ir.OpCompare:
			left, right, rest, err := pop2(stack)
			if err != nil {
				return Result{}, err
			}
			result, err := value.Compare(left, instr.Cmp, right)
			if err != nil {
				return Result{}, rtErr("TypeError", "%v", err)
			}
			stack = append(rest, value.Bool(result))
			pc++

		case ir.OpJump:
			pc = instr.Addr

		case ir.OpJumpIfFalse:
			v, rest, err := pop1(stack)
			if err != nil {
				return Result{}, err
			}
			stack = rest
			if !value.Truthy(v) {
				pc = instr.Addr
			} else {
				pc++
			}

		case ir.OpJumpIfTrue:
			v, rest, err := pop1(stack)
			if err != nil {
				return Result{}, err
			}
			stack = rest
			if value.Truthy(v) {
				pc = instr.Addr
			} else {
				pc++
			}

		case ir.OpEmitSignal:
			ctx.EmitSignal(instr.Path)
			pc++

		case ir.OpAddScore:
			v, rest, err := pop1(stack)
			if err != nil {
				return Result{}, err
			}
			stack = rest
			if v.Kind() != value.KindNumber {
				return Result{}, rtErr("TypeError", "add_score requires number, got %s", v.Kind())
			}
			ctx.AddScore(v.Number())
			pc++

		case ir.OpSetField:
			v, rest, err := pop1(stack)
			if err != nil {
				return Result{}, err
			}
			stack = rest
			if werr := ctx.WriteSyntheticField(instr.Path, v); werr != nil {
				return Result{}, rtErr("InvalidOperation", "%v", werr)
			}
			pc++

		case ir.OpSetAction:
			v, rest, err := pop1(stack)
			if err != nil {
				return Result{}, err
			}
			stack = rest
			if v.Kind() != value.KindString {
				return Result{}, rtErr("TypeError", "set_action requires string, got %s", v.Kind())
			}
			ctx.SetAction(v.String())
			pc++

		case ir.OpEnterStep, ir.OpLeaveStep:
			// Rule-within-ruleset bracketing; the pipeline step driver
			// records trace entries around whole steps, so these are no-ops
			// at the bare VM level except for marking the rule as
			// triggered, which the driver does by inspecting the produced
			// signals/score delta rather than this bracket — kept as an
			// explicit pair in the instruction stream for trace fidelity.
			if instr.Op == ir.OpEnterStep {
				ctx.MarkRuleTriggered(instr.Path)
			}
			pc++

		case ir.OpCallFeature, ir.OpCallService, ir.OpFork, ir.OpJoin:
			return Result{}, &Suspension{PC: pc, Instr: instr, Stack: stack}

		default:
			return Result{}, rtErr("Internal", "unknown opcode %v", instr.Op)
		}
	}
}

func pop1(stack []value.Value) (value.Value, []value.Value, error) {
	if len(stack) < 1 {
		return value.Null, stack, rtErr("StackUnderflow", "need 1, have %d", len(stack))
	}
	return stack[len(stack)-1], stack[:len(stack)-1], nil
}

func pop2(stack []value.Value) (value.Value, value.Value, []value.Value, error) {
	if len(stack) < 2 {
		return value.Null, value.Null, stack, rtErr("StackUnderflow", "need 2, have %d", len(stack))
	}
	right := stack[len(stack)-1]
	left := stack[len(stack)-2]
	return left, right, stack[:len(stack)-2], nil
}
