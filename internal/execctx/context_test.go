package execctx

import (
	"testing"

	"github.com/riskline/decisionengine/internal/value"
)

func TestLookupOrderFeatureBeatsEvent(t *testing.T) {
	c := New(map[string]value.Value{"amount": value.Number(1)}, nil, nil, 0, 100)
	if err := c.WriteFeature("amount", value.Number(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := c.Lookup("amount")
	if got.Number() != 2 {
		t.Fatalf("expected feature namespace to win, got %v", got)
	}
}

func TestLookupAbsentReturnsNull(t *testing.T) {
	c := New(nil, nil, nil, 0, 100)
	if !c.Lookup("nope").IsNull() {
		t.Fatal("expected Null for absent path")
	}
}

func TestWriteFeatureTwiceInSameStepRejected(t *testing.T) {
	c := New(nil, nil, nil, 0, 100)
	c.BeginStep()
	if err := c.WriteFeature("risk_score", value.Number(1)); err != nil {
		t.Fatalf("unexpected error on first write: %v", err)
	}
	err := c.WriteFeature("risk_score", value.Number(2))
	if err == nil {
		t.Fatal("expected InvalidOperation on second write within same step")
	}
	if _, ok := err.(*InvalidOperation); !ok {
		t.Fatalf("expected *InvalidOperation, got %T", err)
	}
}

func TestWriteFeatureAllowedAgainAfterBeginStep(t *testing.T) {
	c := New(nil, nil, nil, 0, 100)
	c.BeginStep()
	_ = c.WriteFeature("x", value.Number(1))
	c.BeginStep()
	if err := c.WriteFeature("x", value.Number(2)); err != nil {
		t.Fatalf("expected write to succeed after new step begins: %v", err)
	}
}

func TestAddScoreSaturatesAtBounds(t *testing.T) {
	c := New(nil, nil, nil, 0, 10)
	c.AddScore(7)
	c.AddScore(7)
	if c.Score != 10 {
		t.Fatalf("expected score saturated at 10, got %v", c.Score)
	}
}

func TestMarkRuleTriggeredDeduplicates(t *testing.T) {
	c := New(nil, nil, nil, 0, 100)
	c.MarkRuleTriggered("r1")
	c.MarkRuleTriggered("r1")
	if len(c.TriggeredRules) != 1 {
		t.Fatalf("expected 1 triggered rule, got %d", len(c.TriggeredRules))
	}
}

func TestForkIsolatesFeatureWrites(t *testing.T) {
	c := New(nil, nil, nil, 0, 100)
	_ = c.WriteFeature("a", value.Number(1))
	fork := c.Fork()
	_ = fork.WriteFeature("a", value.Number(2))
	if c.Lookup("a").Number() != 1 {
		t.Fatalf("expected parent context untouched by fork write, got %v", c.Lookup("a"))
	}
}
