package ast

// EndStepID is the reserved terminal step id (spec §3, §6).
const EndStepID = "end"

// StepKind enumerates the step kinds a Pipeline may declare.
type StepKind int

const (
	StepRule StepKind = iota
	StepRuleset
	StepRouter
	StepBranch
	StepFeature
	StepServiceCall
	StepLLMCall
)

func ParseStepKind(s string) (StepKind, bool) {
	switch s {
	case "rule":
		return StepRule, true
	case "ruleset":
		return StepRuleset, true
	case "router":
		return StepRouter, true
	case "branch":
		return StepBranch, true
	case "feature":
		return StepFeature, true
	case "service_call":
		return StepServiceCall, true
	case "llm_call":
		return StepLLMCall, true
	default:
		return 0, false
	}
}

// ErrorActionKind enumerates the step error-handling policies (spec §6).
type ErrorActionKind int

const (
	ErrorFailFast ErrorActionKind = iota
	ErrorSkip
	ErrorDefaultValue
	ErrorRetry
)

// ErrorAction is a step's on_error policy.
type ErrorAction struct {
	Kind         ErrorActionKind
	Attempts     int
	BackoffMs    int
	DefaultField string
	DefaultValue *Expr
}

type errorActionYAML struct {
	Policy       string `yaml:"policy"`
	Attempts     int    `yaml:"attempts,omitempty"`
	BackoffMs    int    `yaml:"backoff_ms,omitempty"`
	DefaultField string `yaml:"default_field,omitempty"`
	DefaultValue *Expr  `yaml:"default_value,omitempty"`
}

func (e *ErrorAction) UnmarshalYAML(unmarshal func(any) error) error {
	var raw errorActionYAML
	if err := unmarshal(&raw); err != nil {
		// Allow bare string form: on_error: fail_fast
		var s string
		if serr := unmarshal(&s); serr == nil {
			raw.Policy = s
		} else {
			return err
		}
	}
	switch raw.Policy {
	case "", "fail_fast":
		*e = ErrorAction{Kind: ErrorFailFast}
	case "skip":
		*e = ErrorAction{Kind: ErrorSkip}
	case "default_value":
		*e = ErrorAction{Kind: ErrorDefaultValue, DefaultField: raw.DefaultField, DefaultValue: raw.DefaultValue}
	case "retry":
		attempts := raw.Attempts
		if attempts <= 0 {
			attempts = 1
		}
		*e = ErrorAction{Kind: ErrorRetry, Attempts: attempts, BackoffMs: raw.BackoffMs}
	default:
		*e = ErrorAction{Kind: ErrorFailFast}
	}
	return nil
}

// Route is one arm of a router step, evaluated in declaration order; the
// first true When wins (spec testable property "Route precedence").
type Route struct {
	When *Expr  `yaml:"when"`
	Next string `yaml:"next"`
}

// MergeKind enumerates the branch-join merge strategies (spec §6).
type MergeKind int

const (
	MergeAll MergeKind = iota
	MergeAny
	MergeFirst
	MergeWeighted
)

// MergeStrategy configures how a branch step's parallel sub-pipelines join.
type MergeStrategy struct {
	Kind    MergeKind
	Weights map[string]float64 // branch id -> weight, only for MergeWeighted
}

type mergeYAML struct {
	Strategy string             `yaml:"strategy"`
	Weights  map[string]float64 `yaml:"weights,omitempty"`
}

func (m *MergeStrategy) UnmarshalYAML(unmarshal func(any) error) error {
	var raw mergeYAML
	if err := unmarshal(&raw); err != nil {
		var s string
		if serr := unmarshal(&s); serr == nil {
			raw.Strategy = s
		} else {
			return err
		}
	}
	switch raw.Strategy {
	case "", "all":
		*m = MergeStrategy{Kind: MergeAll}
	case "any":
		*m = MergeStrategy{Kind: MergeAny}
	case "first":
		*m = MergeStrategy{Kind: MergeFirst}
	case "weighted":
		*m = MergeStrategy{Kind: MergeWeighted, Weights: raw.Weights}
	default:
		*m = MergeStrategy{Kind: MergeAll}
	}
	return nil
}

// BranchArm is one parallel sub-pipeline of a branch step.
type BranchArm struct {
	ID       string `yaml:"id"`
	Pipeline string `yaml:"pipeline"` // id of a nested/referenced pipeline, or inline entry below
	Entry    string `yaml:"entry,omitempty"`
	Steps    []Step `yaml:"steps,omitempty"`
}

// ServiceCallSpec parametrizes a service_call/llm_call step.
type ServiceCallSpec struct {
	Service    string           `yaml:"service"`
	Params     map[string]*Expr `yaml:"params,omitempty"`
	DeadlineMs int              `yaml:"deadline_ms,omitempty"`
}

// Step is one node in a Pipeline's DAG (spec §3).
type Step struct {
	ID       string           `yaml:"id"`
	KindStr  string           `yaml:"kind"`
	Ref      string           `yaml:"ref,omitempty"` // rule/ruleset/feature id this step runs
	When     *Expr            `yaml:"when,omitempty"`
	OnError  ErrorAction      `yaml:"on_error,omitempty"`
	Next     string           `yaml:"next,omitempty"`
	Default  string           `yaml:"default,omitempty"`
	Routes   []Route          `yaml:"routes,omitempty"`
	Branches []BranchArm      `yaml:"branches,omitempty"`
	Merge    MergeStrategy    `yaml:"merge,omitempty"`
	Service  *ServiceCallSpec `yaml:"service,omitempty"`

	Kind StepKind `yaml:"-"` // resolved from KindStr by the parser
}

// Pipeline is a directed graph of Steps with a unique entry (spec §3).
type Pipeline struct {
	ID    string `yaml:"id"`
	Entry string `yaml:"entry"`
	Steps []Step `yaml:"steps"`
}

// Registry maps incoming event kinds to an entry program id (spec §4.8).
type Registry struct {
	ID      string            `yaml:"id"`
	Entries map[string]string `yaml:"entries"`
}

// Import is an `include:` directive, resolved relative to a virtual root
// directory by the ImportResolver (spec §4.1).
type Import struct {
	Include string `yaml:"include"`
}
