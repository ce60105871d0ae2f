package dsl

import (
	"fmt"

	"github.com/riskline/decisionengine/internal/ast"
	"gopkg.in/yaml.v3"
)

// kindProbe decodes just enough of a YAML document to dispatch on its
// required `kind:` tag (spec §4.1), matching the teacher's pattern of
// peeking at a discriminator field before committing to a typed decode
// (see policy.Rule.Match, which picks a sub-matcher by which pointer is
// set, and AgentShield's own `kind`-less single-document model this
// generalizes away from toward the DSL's multi-kind documents).
type kindProbe struct {
	Kind    string `yaml:"kind"`
	Version string `yaml:"version,omitempty"`
}

// ParseDocument parses one YAML document (already split from its source
// file) into an ast.Document. path is used only for diagnostics.
func ParseDocument(path string, data []byte) (*ast.Document, error) {
	var probe kindProbe
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("dsl: %s: invalid YAML: %w", path, err)
	}
	if probe.Kind == "" {
		return nil, &ParseError{Path: path, Field: "kind", Expected: "one of rule|ruleset|pipeline|registry|template", Actual: "missing"}
	}

	kind, ok := ast.ParseDocKind(probe.Kind)
	if !ok {
		return nil, &ParseError{Path: path, Field: "kind", Expected: "one of rule|ruleset|pipeline|registry|template", Actual: probe.Kind}
	}

	doc := &ast.Document{Kind: kind, SourcePath: path}

	switch kind {
	case ast.DocRule:
		var body struct {
			ast.Rule `yaml:",inline"`
			Include  []ast.Import `yaml:"include,omitempty"`
		}
		if err := yaml.Unmarshal(data, &body); err != nil {
			return nil, &ParseError{Path: path, Field: "rule", Expected: "valid rule document", Actual: err.Error()}
		}
		if body.Rule.ID == "" {
			return nil, &ParseError{Path: path, Field: "id", Expected: "non-empty string", Actual: "empty"}
		}
		doc.Rule = &body.Rule
		doc.Imports = body.Include

	case ast.DocRuleset:
		var body struct {
			ast.Ruleset `yaml:",inline"`
			Include     []ast.Import `yaml:"include,omitempty"`
		}
		if err := yaml.Unmarshal(data, &body); err != nil {
			return nil, &ParseError{Path: path, Field: "ruleset", Expected: "valid ruleset document", Actual: err.Error()}
		}
		if body.Ruleset.ID == "" {
			return nil, &ParseError{Path: path, Field: "id", Expected: "non-empty string", Actual: "empty"}
		}
		doc.Ruleset = &body.Ruleset
		doc.Imports = body.Include

	case ast.DocPipeline:
		var body struct {
			ast.Pipeline `yaml:",inline"`
			Include      []ast.Import     `yaml:"include,omitempty"`
			Features     []ast.FeatureDef `yaml:"features,omitempty"`
		}
		if err := yaml.Unmarshal(data, &body); err != nil {
			return nil, &ParseError{Path: path, Field: "pipeline", Expected: "valid pipeline document", Actual: err.Error()}
		}
		if body.Pipeline.ID == "" {
			return nil, &ParseError{Path: path, Field: "id", Expected: "non-empty string", Actual: "empty"}
		}
		if body.Pipeline.Entry == "" {
			return nil, &ParseError{Path: path, Field: "entry", Expected: "non-empty step id", Actual: "empty"}
		}
		if err := resolveStepKinds(path, body.Pipeline.Steps); err != nil {
			return nil, err
		}
		if err := resolveFeatureKinds(path, body.Features); err != nil {
			return nil, err
		}
		doc.Pipeline = &body.Pipeline
		doc.Imports = body.Include
		doc.Features = body.Features

	case ast.DocRegistry:
		var body ast.Registry
		if err := yaml.Unmarshal(data, &body); err != nil {
			return nil, &ParseError{Path: path, Field: "registry", Expected: "valid registry document", Actual: err.Error()}
		}
		doc.Registry = &body

	case ast.DocTemplate:
		// spec §9: decision_template is a removed concept; a `kind: template`
		// document is rejected with a ParseError, its behavior never
		// implemented.
		return nil, &ParseError{Path: path, Field: "kind", Expected: "a supported kind", Actual: "template (unsupported, ignored)"}
	}

	return doc, nil
}

func resolveStepKinds(path string, steps []ast.Step) error {
	for i := range steps {
		if steps[i].ID == "" {
			return &ParseError{Path: path, Field: "steps[].id", Expected: "non-empty string", Actual: "empty"}
		}
		k, ok := ast.ParseStepKind(steps[i].KindStr)
		if !ok {
			return &ParseError{Path: path, Field: fmt.Sprintf("steps[%s].kind", steps[i].ID), Expected: "one of rule|ruleset|router|branch|feature|service_call|llm_call", Actual: steps[i].KindStr}
		}
		steps[i].Kind = k
		for b := range steps[i].Branches {
			if err := resolveStepKinds(path, steps[i].Branches[b].Steps); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveFeatureKinds(path string, features []ast.FeatureDef) error {
	for i := range features {
		k, ok := ast.ParseFeatureKind(features[i].KindStr)
		if !ok {
			return &ParseError{Path: path, Field: fmt.Sprintf("features[%s].kind", features[i].ID), Expected: "one of derived|aggregate|lookup", Actual: features[i].KindStr}
		}
		features[i].Kind = k
	}
	return nil
}
