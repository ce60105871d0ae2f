// Package value implements the dynamic Value variant that flows through the
// DSL, the compiled IR, and the execution context. Every operator site
// pattern-matches on Kind explicitly; there is no downcasting.
package value

import (
	"fmt"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the DSL's runtime types.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	obj  map[string]Value
}

// Null is the absorbing, always-present zero value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Number(n float64) Value     { return Value{kind: KindNumber, n: n} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func List(items []Value) Value   { return Value{kind: KindList, list: items} }
func Object(m map[string]Value) Value {
	return Value{kind: KindObject, obj: m}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool { return v.b }
func (v Value) Number() float64 { return v.n }
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	default:
		return fmt.Sprintf("%v", v.Raw())
	}
}
func (v Value) List() []Value { return v.list }
func (v Value) Object() map[string]Value { return v.obj }

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// Raw returns the Go-native representation, used for JSON re-encoding and
// for SQL and HTTP request parameters.
func (v Value) Raw() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Raw()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Raw()
		}
		return out
	default:
		return nil
	}
}

// FromRaw converts a Go-native value (as produced by encoding/json or
// gopkg.in/yaml.v3 into interface{}) into a Value.
func FromRaw(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromRaw(item)
		}
		return List(items)
	case []Value:
		return List(t)
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			obj[k] = FromRaw(item)
		}
		return Object(obj)
	case map[any]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			obj[fmt.Sprintf("%v", k)] = FromRaw(item)
		}
		return Object(obj)
	case Value:
		return t
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Equal implements value equality used by "==", "!=", and membership tests.
// Null is never equal to anything, including another Null, when reached via
// the comparison operators in ops.go — Equal itself is the structural
// notion used for "in" list membership, where Null-in-Null is defined true
// so that `null in [null]` behaves like ordinary set membership.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Truthy determines the boolean coercion used for `when` guards evaluated
// from a non-bool expression result (e.g. a bare variable path).
func Truthy(v Value) bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindObject:
		return len(v.obj) > 0
	default:
		return false
	}
}

// SortedKeys returns an Object's keys in deterministic order, used when the
// explanation builder or trace serializer needs reproducible output.
func SortedKeys(obj map[string]Value) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
