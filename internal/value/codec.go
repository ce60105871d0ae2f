package value

import "encoding/json"

// UnmarshalYAML lets Value appear directly as a struct field in AST nodes
// decoded by gopkg.in/yaml.v3, the same library the teacher uses for its
// Policy/Rule/Match tree (see internal/policy/types.go's StringOrList).
func (v *Value) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*v = FromRaw(normalizeYAML(raw))
	return nil
}

// normalizeYAML recursively converts yaml.v3's map[string]interface{} (v3
// already normalizes map keys to strings, unlike v2) and nested slices into
// the shapes FromRaw expects.
func normalizeYAML(raw any) any {
	switch t := raw.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAML(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeYAML(item)
		}
		return out
	default:
		return t
	}
}

// MarshalJSON lets Value serialize cleanly into DecisionResult/trace JSON
// responses and into audit records.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// UnmarshalJSON lets Value decode directly from an incoming event payload
// (DecisionRequest.event is caller-supplied JSON).
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromRaw(raw)
	return nil
}
