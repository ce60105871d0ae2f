package dsl

import (
	"testing"

	"github.com/riskline/decisionengine/internal/ast"
	"github.com/riskline/decisionengine/internal/value"
)

func TestParseRuleShorthandCondition(t *testing.T) {
	src := []byte(`
kind: rule
id: high_amount
when: "amount > 1000"
then:
  - set_action: "block"
  - set_signal: high_amount
`)
	doc, err := ParseDocument("test.yaml", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Kind != ast.DocRule {
		t.Fatalf("expected DocRule, got %v", doc.Kind)
	}
	if doc.Rule.ID != "high_amount" {
		t.Fatalf("expected id high_amount, got %s", doc.Rule.ID)
	}
	if doc.Rule.When.Kind != ast.KindCompare {
		t.Fatalf("expected compare expr, got %v", doc.Rule.When.Kind)
	}
	if doc.Rule.When.CompareOp != value.OpGt {
		t.Fatalf("expected >, got %v", doc.Rule.When.CompareOp)
	}
	if len(doc.Rule.Then) != 2 {
		t.Fatalf("expected 2 effects, got %d", len(doc.Rule.Then))
	}
}

func TestParseRuleStructuredGroup(t *testing.T) {
	src := []byte(`
kind: rule
id: combo
when:
  all:
    - "amount > 100"
    - any:
        - "country == 'XX'"
        - "country == 'YY'"
then:
  - set_signal: combo
`)
	doc, err := ParseDocument("test.yaml", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Rule.When.Kind != ast.KindGroup || doc.Rule.When.GroupMode != ast.GroupAll {
		t.Fatalf("expected top-level all-group, got %+v", doc.Rule.When)
	}
	if len(doc.Rule.When.Items) != 2 {
		t.Fatalf("expected 2 items in all group, got %d", len(doc.Rule.When.Items))
	}
	inner := doc.Rule.When.Items[1]
	if inner.Kind != ast.KindGroup || inner.GroupMode != ast.GroupAny {
		t.Fatalf("expected nested any-group, got %+v", inner)
	}
}

func TestParseMissingKindRejected(t *testing.T) {
	_, err := ParseDocument("bad.yaml", []byte("id: x\n"))
	if err == nil {
		t.Fatal("expected error for missing kind")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Field != "kind" {
		t.Fatalf("expected field kind, got %s", pe.Field)
	}
}

func TestParseUnknownKindRejected(t *testing.T) {
	_, err := ParseDocument("bad.yaml", []byte("kind: bogus\n"))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseTemplateKindRejected(t *testing.T) {
	_, err := ParseDocument("bad.yaml", []byte("kind: template\n"))
	if err == nil {
		t.Fatal("expected template kind to be rejected per removed decision_template concept")
	}
}

func TestParsePipelineStepKinds(t *testing.T) {
	src := []byte(`
kind: pipeline
id: main
entry: check_amount
steps:
  - id: check_amount
    kind: rule
    ref: high_amount
    next: end
`)
	doc, err := ParseDocument("p.yaml", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Pipeline.Steps[0].Kind != ast.StepRule {
		t.Fatalf("expected StepRule, got %v", doc.Pipeline.Steps[0].Kind)
	}
}

func TestParsePipelineMissingEntry(t *testing.T) {
	src := []byte(`
kind: pipeline
id: main
steps:
  - id: a
    kind: rule
    next: end
`)
	_, err := ParseDocument("p.yaml", src)
	if err == nil {
		t.Fatal("expected error for missing entry")
	}
}
