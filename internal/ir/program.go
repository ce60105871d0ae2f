package ir

import "github.com/riskline/decisionengine/internal/ast"

// RouteInfo is one compiled router arm: a condition program plus its
// successor step id, evaluated by the step driver in declaration order
// (spec's "Route precedence" testable property).
type RouteInfo struct {
	Cond *Program
	Next string
}

// StepInfo is one compiled pipeline step. Guard and Body (and a router's
// Routes) are independently compiled nested Program handles rather than
// inlined into one giant flat instruction stream — the same strategy spec
// §4.3 prescribes explicitly for branch sub-pipelines ("parallel
// sub-programs are stored as nested Program handles"), generalized here to
// every step kind so the step driver can invoke each piece through the same
// VM.Run(program, ctx) entry point.
type StepInfo struct {
	ID      string
	Kind    string // mirrors ast.StepKind as a string, for trace/debug output
	Ref     string // rule/ruleset/feature id this step runs, where applicable
	Guard   *Program
	Body    *Program // compiled rule/ruleset body, for StepRule/StepRuleset
	Next    string   // successor for plain steps (rule/ruleset/feature/service/llm)
	Routes  []RouteInfo
	Default string // router fallback successor
	OnError        ast.ErrorAction
	DefaultValue   *Program // compiled on_error.default_value expression, nil unless policy is default_value
	Service        *ServiceCallSpec
	Fork           *ForkSpec
}

// ProgramMetadata is the non-executable half of a compiled Program (spec §3:
// "Program (IR) — sequence of Instructions plus ProgramMetadata").
type ProgramMetadata struct {
	ID          string // rule/ruleset/pipeline id this program was compiled from
	Kind        string // "rule" | "ruleset" | "pipeline" | "expr"
	EntryOffset int    // instruction offset, for rule/ruleset programs
	EntryStepID string // first step to run, for pipeline programs
	Steps       []StepInfo        // empty for standalone rule/ruleset programs
	Symbols     map[string]string // variable path -> inferred type name; not filled by Compile, which discards the semantic symbol table
	Features    []string          // feature ids this program may invoke; not filled by Compile
}

// Program is an immutable compiled unit (spec §3 Invariants: "Compiled
// programs are immutable after compilation"). Once returned by Compile it is
// never mutated; concurrent executions share it read-only.
type Program struct {
	Instructions []Instruction
	Meta         ProgramMetadata
}

func (p *Program) StepAt(id string) (StepInfo, bool) {
	for _, s := range p.Meta.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepInfo{}, false
}
