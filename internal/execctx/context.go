// Package execctx implements C6: the flattened, name-resolved execution
// context the VM reads and writes against. Per spec §4.4 it holds four
// sub-namespaces as separate flat mappings queried in a fixed order:
// feature -> event -> system -> env.
package execctx

import (
	"fmt"
	"strings"
	"sync"

	"github.com/riskline/decisionengine/internal/value"
)

// InvalidOperation is raised when a step attempts a second write to the
// same feature.* key within one step (spec §4.4: idempotent writes).
type InvalidOperation struct {
	Path string
}

func (e *InvalidOperation) Error() string {
	return fmt.Sprintf("execctx: invalid operation: %q already written this step", e.Path)
}

// Context is a single request's execution state. It is not safe for
// concurrent use across goroutines except through the explicit Fork/Merge
// pair used at branch points (spec §5: contexts are deep-copied per fork).
type Context struct {
	mu sync.RWMutex

	event   map[string]value.Value
	feature map[string]value.Value
	system  map[string]value.Value
	env     map[string]value.Value

	writtenThisStep map[string]bool

	Signals         []string
	TriggeredRules  []string
	Score           float64
	ScoreMin        float64
	ScoreMax        float64
	Action          string
	NextStepOverride string // synthetic "__next_step" field written by router lowering
}

// New builds a Context from an event payload and system metadata (spec
// §4.8 Decide step 2: "Build ExecutionContext from the request's event
// payload plus system metadata"). env is the whitelisted environment
// mapping, resolved once at engine construction time, never per request.
func New(event map[string]value.Value, system map[string]value.Value, env map[string]value.Value, scoreMin, scoreMax float64) *Context {
	if event == nil {
		event = map[string]value.Value{}
	}
	if system == nil {
		system = map[string]value.Value{}
	}
	if env == nil {
		env = map[string]value.Value{}
	}
	return &Context{
		event:           event,
		feature:         map[string]value.Value{},
		system:          system,
		env:             env,
		writtenThisStep: map[string]bool{},
		ScoreMin:        scoreMin,
		ScoreMax:        scoreMax,
	}
}

// Lookup resolves a dotted path against its declared namespace (the
// leading "event."/"feature."/"system."/"env." segment), per spec §4.4's
// four sub-namespaces. A path given without one of those prefixes falls
// back to the fixed priority order feature -> event -> system -> env, so
// callers that already have an unqualified field name (e.g. cache keying)
// still resolve. Absent paths return Null rather than failing (spec §3).
func (c *Context) Lookup(path string) value.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if ns, rest, ok := strings.Cut(path, "."); ok {
		switch ns {
		case "feature":
			return c.feature[rest]
		case "event":
			return c.event[rest]
		case "system":
			return c.system[rest]
		case "env":
			return c.env[rest]
		}
	}

	if v, ok := c.feature[path]; ok {
		return v
	}
	if v, ok := c.event[path]; ok {
		return v
	}
	if v, ok := c.system[path]; ok {
		return v
	}
	if v, ok := c.env[path]; ok {
		return v
	}
	return value.Null
}

// BeginStep resets the per-step write-once tracking; called by the step
// driver before dispatching each step.
func (c *Context) BeginStep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writtenThisStep = map[string]bool{}
	c.NextStepOverride = ""
}

// WriteFeature sets feature.<path> exactly once per step (spec §4.4).
func (c *Context) WriteFeature(path string, v value.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := "feature." + path
	if c.writtenThisStep[key] {
		return &InvalidOperation{Path: key}
	}
	c.writtenThisStep[key] = true
	c.feature[path] = v
	return nil
}

// WriteSyntheticField handles the reserved `__next_step` path the IR's
// router lowering writes via SetField, and any other synthetic per-step
// output the VM produces through SetField that is not itself a feature.
func (c *Context) WriteSyntheticField(path string, v value.Value) error {
	if path == "__next_step" {
		c.mu.Lock()
		defer c.mu.Unlock()
		if s := v; s.Kind() == value.KindString {
			c.NextStepOverride = s.String()
		}
		return nil
	}
	return c.WriteFeature(path, v)
}

// AddScore accumulates delta with saturation at the configured bounds
// (spec §3: "score (f64 summed with saturation at configured bounds)").
func (c *Context) AddScore(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Score += delta
	if c.ScoreMax != 0 && c.Score > c.ScoreMax {
		c.Score = c.ScoreMax
	}
	if c.Score < c.ScoreMin {
		c.Score = c.ScoreMin
	}
}

// EmitSignal records a signal name; duplicates are removed when
// pipeline.Driver copies the signals into RunResult.Signals, from which
// DecisionResult.signals is formed (spec §3: "signals: set<string>").
func (c *Context) EmitSignal(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signals = append(c.Signals, name)
}

// MarkRuleTriggered records rule_id in the ordered-set of triggered rules
// (spec §3: "triggered_rules: ordered-set<rule_id>").
func (c *Context) MarkRuleTriggered(ruleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.TriggeredRules {
		if id == ruleID {
			return
		}
	}
	c.TriggeredRules = append(c.TriggeredRules, ruleID)
}

// SetAction overwrites the pending decision action.
func (c *Context) SetAction(action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Action = action
}

// Fork deep-copies the context for a parallel branch arm (spec §4.5:
// "the driver schedules each sub-pipeline concurrently with a forked
// context (deep-copied)"). Signals/score/triggered rules start empty in the
// fork and are merged back into the parent at Join by the pipeline package.
func (c *Context) Fork() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Context{
		event:           copyMap(c.event),
		feature:         copyMap(c.feature),
		system:          copyMap(c.system),
		env:             c.env, // env is whitelisted/immutable, shared not copied
		writtenThisStep: map[string]bool{},
		ScoreMin:        c.ScoreMin,
		ScoreMax:        c.ScoreMax,
		Action:          c.Action,
	}
}

func copyMap(m map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
