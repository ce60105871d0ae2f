package ast

// ParamSpec declares one parameter a Rule accepts, used by the semantic
// analyzer to type-check references to it inside When/Then.
type ParamSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "number", "string", "bool", "list", "object", or "" (Unknown)
}

// EffectKind tags the small effect list a rule may run once its condition
// is true (spec §3: "a pure predicate plus a small effect list").
type EffectKind int

const (
	EffectSetSignal EffectKind = iota
	EffectAddScore
	EffectSetField
	EffectSetAction
)

// Effect is one side-effecting instruction attached to a rule's `then`/`else`
// block.
type Effect struct {
	Kind  EffectKind
	Name  string // signal name / field name; unused for SetAction
	Value *Expr  // score delta, field value, or action name (as a literal/template)
}

// effectYAML is the on-the-wire shape decoded from a `then`/`else` list
// item; exactly one of its fields is populated per entry.
type effectYAML struct {
	SetSignal string `yaml:"set_signal,omitempty"`
	AddScore  *Expr  `yaml:"add_score,omitempty"`
	SetField  string `yaml:"set_field,omitempty"`
	Value     *Expr  `yaml:"value,omitempty"`
	SetAction *Expr  `yaml:"set_action,omitempty"`
}

func (e *Effect) UnmarshalYAML(unmarshal func(any) error) error {
	var raw effectYAML
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch {
	case raw.SetSignal != "":
		*e = Effect{Kind: EffectSetSignal, Name: raw.SetSignal}
	case raw.AddScore != nil:
		*e = Effect{Kind: EffectAddScore, Value: raw.AddScore}
	case raw.SetField != "":
		*e = Effect{Kind: EffectSetField, Name: raw.SetField, Value: raw.Value}
	case raw.SetAction != nil:
		*e = Effect{Kind: EffectSetAction, Value: raw.SetAction}
	}
	return nil
}

// Rule is a pure predicate plus effects (spec §3).
type Rule struct {
	ID      string      `yaml:"id"`
	Params  []ParamSpec `yaml:"params,omitempty"`
	When    *Expr       `yaml:"when"`
	Then    []Effect    `yaml:"then,omitempty"`
	Else    []Effect    `yaml:"else,omitempty"`
	Signals []string    `yaml:"signals,omitempty"` // shorthand for Then=[set_signal,...]
}

// Conclusion is one arm of a Ruleset's decision_logic, evaluated in
// declaration order like a router (spec §4.3).
type Conclusion struct {
	When   *Expr  `yaml:"when"`
	Action string `yaml:"action"`
}

// DecisionLogic maps accumulated signals/score to a final action.
type DecisionLogic struct {
	Conclusions []Conclusion `yaml:"conclusions"`
	Default     string       `yaml:"default,omitempty"`
}

// Ruleset is an ordered list of rules plus optional decision logic.
type Ruleset struct {
	ID            string         `yaml:"id"`
	Rules         []Rule         `yaml:"rules"`
	DecisionLogic *DecisionLogic `yaml:"decision_logic,omitempty"`
}
