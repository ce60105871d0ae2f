// Package ir lowers a validated AST (post semantic analysis) into the
// stack-machine program the executor runs. Nothing in this package inspects
// an ast.Document that hasn't already passed semantic.AnalyzeUniverse. The
// lowering raises no CompileError of its own; a construct it does not
// lower (a function call) compiles to a Null constant.
package ir

import (
	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/value"
)

// Op enumerates the stack-machine instruction set (spec §3 Program (IR)).
type Op int

const (
	OpPushConst Op = iota
	OpLoadVar
	OpUnary
	OpBinary
	OpCompare
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCallFeature
	OpCallService
	OpEmitSignal
	OpAddScore
	OpSetField
	OpSetAction
	OpEnterStep
	OpLeaveStep
	OpFork
	OpJoin
	OpHalt
)

func (o Op) String() string {
	switch o {
	case OpPushConst:
		return "PushConst"
	case OpLoadVar:
		return "LoadVar"
	case OpUnary:
		return "Unary"
	case OpBinary:
		return "Binary"
	case OpCompare:
		return "Compare"
	case OpJump:
		return "Jump"
	case OpJumpIfFalse:
		return "JumpIfFalse"
	case OpJumpIfTrue:
		return "JumpIfTrue"
	case OpCallFeature:
		return "CallFeature"
	case OpCallService:
		return "CallService"
	case OpEmitSignal:
		return "EmitSignal"
	case OpAddScore:
		return "AddScore"
	case OpSetField:
		return "SetField"
	case OpSetAction:
		return "SetAction"
	case OpEnterStep:
		return "EnterStep"
	case OpLeaveStep:
		return "LeaveStep"
	case OpFork:
		return "Fork"
	case OpJoin:
		return "Join"
	case OpHalt:
		return "Halt"
	default:
		return "?"
	}
}

// ServiceCallSpec is the resolved operand of a CallService/CallLLM
// instruction: the param expressions have already been compiled to their
// own sub-programs evaluated just before the call.
type ServiceCallSpec struct {
	Service    string
	ParamNames []string // evaluation order; each value popped off the stack in reverse
	DeadlineMs int
}

// ForkSpec is the operand of a Fork instruction: one nested Program per
// branch arm, plus the merge strategy used to combine their results at Join.
type ForkSpec struct {
	BranchIDs []string
	Programs  []*Program
	Merge     ast.MergeStrategy
}

// Instruction is one stack-machine operation. Only the fields relevant to
// Op are populated; this mirrors the teacher's convention of a single tagged
// struct (policy.Match) over a sprawling interface hierarchy.
type Instruction struct {
	Op Op

	Const value.Value         // OpPushConst
	Path  string               // OpLoadVar, OpEnterStep/OpLeaveStep (step id), OpSetField (field name), OpEmitSignal (signal name)
	Unary ast.UnaryOp          // OpUnary
	Bin   value.BinaryArithOp  // OpBinary
	Cmp   value.CompareOp      // OpCompare
	Addr  int                  // OpJump, OpJumpIfFalse, OpJumpIfTrue: absolute target offset

	FeatureID string           // OpCallFeature
	Service   *ServiceCallSpec // OpCallService
	Fork      *ForkSpec        // OpFork
}
