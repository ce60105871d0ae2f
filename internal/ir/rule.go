package ir

import (
	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/value"
)

// CompileRule lowers a Rule per spec §4.3: "evaluate condition -> JumpIfFalse
// past the effect block -> emit effects." Else effects run in the
// complementary branch; both branches converge before Halt.
func CompileRule(r *ast.Rule) *Program {
	var buf []Instruction

	buf = compileExpr(buf, r.When)
	jumpToElse := len(buf)
	buf = append(buf, Instruction{Op: OpJumpIfFalse})

	buf = compileEffects(buf, r.Then)
	buf = compileSignals(buf, r.Signals)
	jumpToEnd := len(buf)
	buf = append(buf, Instruction{Op: OpJump})

	buf[jumpToElse].Addr = len(buf)
	buf = compileEffects(buf, r.Else)

	buf[jumpToEnd].Addr = len(buf)
	buf = append(buf, Instruction{Op: OpHalt})

	buf = optimize(buf)
	return &Program{
		Instructions: buf,
		Meta:         ProgramMetadata{ID: r.ID, Kind: "rule", EntryOffset: 0},
	}
}

func compileEffects(buf []Instruction, effects []ast.Effect) []Instruction {
	for _, eff := range effects {
		switch eff.Kind {
		case ast.EffectSetSignal:
			buf = append(buf, Instruction{Op: OpEmitSignal, Path: eff.Name})
		case ast.EffectAddScore:
			buf = compileExpr(buf, eff.Value)
			buf = append(buf, Instruction{Op: OpAddScore})
		case ast.EffectSetField:
			buf = compileExpr(buf, eff.Value)
			buf = append(buf, Instruction{Op: OpSetField, Path: eff.Name})
		case ast.EffectSetAction:
			buf = compileExpr(buf, eff.Value)
			buf = append(buf, Instruction{Op: OpSetAction})
		}
	}
	return buf
}

func compileSignals(buf []Instruction, signals []string) []Instruction {
	for _, s := range signals {
		buf = append(buf, Instruction{Op: OpEmitSignal, Path: s})
	}
	return buf
}

// CompileRuleset lowers a Ruleset per spec §4.3: "a sequence of rule blocks
// followed by the decision_logic lowering (a small decision tree on
// accumulated signals/score)." Rule sub-programs are inlined rather than
// called, since rules never recurse and the whole ruleset runs as one
// contiguous block under a single EnterStep/LeaveStep bracket per rule.
func CompileRuleset(rs *ast.Ruleset) *Program {
	var buf []Instruction

	for i := range rs.Rules {
		r := &rs.Rules[i]
		buf = append(buf, Instruction{Op: OpEnterStep, Path: r.ID})
		buf = inlineRuleBody(buf, r)
		buf = append(buf, Instruction{Op: OpLeaveStep, Path: r.ID})
	}

	if rs.DecisionLogic != nil {
		buf = compileDecisionLogic(buf, rs.DecisionLogic)
	}
	buf = append(buf, Instruction{Op: OpHalt})

	buf = optimize(buf)
	return &Program{
		Instructions: buf,
		Meta:         ProgramMetadata{ID: rs.ID, Kind: "ruleset", EntryOffset: 0},
	}
}

// inlineRuleBody compiles one rule's when/then/else without its own
// trailing Halt, for embedding inside a larger program.
func inlineRuleBody(buf []Instruction, r *ast.Rule) []Instruction {
	buf = compileExpr(buf, r.When)
	jumpToElse := len(buf)
	buf = append(buf, Instruction{Op: OpJumpIfFalse})

	buf = compileEffects(buf, r.Then)
	buf = compileSignals(buf, r.Signals)
	jumpToEnd := len(buf)
	buf = append(buf, Instruction{Op: OpJump})

	buf[jumpToElse].Addr = len(buf)
	buf = compileEffects(buf, r.Else)

	buf[jumpToEnd].Addr = len(buf)
	return buf
}

// compileDecisionLogic lowers conclusions into an ordered JumpIfFalse chain,
// mirroring the router compilation strategy (spec §4.3), terminating in the
// declared default action.
func compileDecisionLogic(buf []Instruction, dl *ast.DecisionLogic) []Instruction {
	var endJumps []int
	for _, c := range dl.Conclusions {
		buf = compileExpr(buf, c.When)
		skip := len(buf)
		buf = append(buf, Instruction{Op: OpJumpIfFalse})
		buf = append(buf, Instruction{Op: OpPushConst, Const: value.String(c.Action)})
		buf = append(buf, Instruction{Op: OpSetAction})
		endJumps = append(endJumps, len(buf))
		buf = append(buf, Instruction{Op: OpJump})
		buf[skip].Addr = len(buf)
	}
	if dl.Default != "" {
		buf = append(buf, Instruction{Op: OpPushConst, Const: value.String(dl.Default)})
		buf = append(buf, Instruction{Op: OpSetAction})
	}
	end := len(buf)
	for _, j := range endJumps {
		buf[j].Addr = end
	}
	return buf
}
