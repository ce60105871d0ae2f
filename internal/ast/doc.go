package ast

// DocKind tags a top-level YAML document by its required `kind:` tag
// (spec §4.1).
type DocKind int

const (
	DocRule DocKind = iota
	DocRuleset
	DocPipeline
	DocRegistry
	DocTemplate // reserved; parsed only to be rejected with a ParseError, see spec §9
)

func ParseDocKind(s string) (DocKind, bool) {
	switch s {
	case "rule":
		return DocRule, true
	case "ruleset":
		return DocRuleset, true
	case "pipeline":
		return DocPipeline, true
	case "registry":
		return DocRegistry, true
	case "template":
		return DocTemplate, true
	default:
		return 0, false
	}
}

func (k DocKind) String() string {
	switch k {
	case DocRule:
		return "rule"
	case DocRuleset:
		return "ruleset"
	case DocPipeline:
		return "pipeline"
	case DocRegistry:
		return "registry"
	case DocTemplate:
		return "template"
	default:
		return "unknown"
	}
}

// Document is a single parsed top-level YAML document, tagged by Kind; at
// most one of the typed payload fields is populated. SourcePath records
// where it was loaded from, for import-cycle diagnostics.
type Document struct {
	Kind       DocKind
	SourcePath string

	Rule     *Rule
	Ruleset  *Ruleset
	Pipeline *Pipeline
	Registry *Registry

	Imports  []Import
	Features []FeatureDef
}
