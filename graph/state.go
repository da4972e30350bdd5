package graph

import (
	"errors"
	"fmt"
)

// State is the shared mutable workflow state: a mapping from field name to
// value. Fields declared in the Schema are seeded with defaults at
// invocation time; updates to undeclared fields are merged by overwrite.
type State map[string]any

// Clone returns a shallow copy of the state. Container values (slices, maps)
// are shared between the original and the copy; nodes that mutate containers
// in place should return fresh values instead.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Reducer merges an existing state value with an incoming update value.
// When a field declares a reducer, the engine calls it instead of
// overwriting; a reducer error surfaces as a *ValidationError naming the
// field.
type Reducer func(existing, incoming any) (any, error)

// FieldSpec declares one state field: its name, the default seeded at
// invocation time, and an optional reducer controlling how updates merge.
type FieldSpec struct {
	Name    string
	Default any
	Reducer Reducer
}

// Schema is the set of recognized state fields. It replaces the original
// annotation-driven field discovery with an explicit declaration consulted
// directly by the engine.
type Schema struct {
	fields map[string]FieldSpec
	order  []string
}

// NewSchema builds a schema from field declarations.
//
// Returns a *ConfigError if a field name is empty or declared twice.
func NewSchema(fields ...FieldSpec) (*Schema, error) {
	s := &Schema{fields: make(map[string]FieldSpec, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, &ConfigError{Component: "schema", Message: "field name cannot be empty"}
		}
		if _, exists := s.fields[f.Name]; exists {
			return nil, &ConfigError{Component: "schema", Message: fmt.Sprintf("duplicate field %q", f.Name)}
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s, nil
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// initial seeds a fresh state from the schema defaults. Slice and map
// defaults are copied so independent invocations never share containers.
func (s *Schema) initial() State {
	state := make(State, len(s.order))
	for _, name := range s.order {
		state[name] = cloneValue(s.fields[name].Default)
	}
	return state
}

// apply merges an update into state. Fields with a declared reducer are
// combined via reducer(old, new); everything else is overwritten or created.
// The merge is not transactional: fields applied before a reducer failure
// stand.
func (s *Schema) apply(state State, update State) error {
	for key, value := range update {
		if spec, ok := s.fields[key]; ok && spec.Reducer != nil {
			merged, err := spec.Reducer(state[key], value)
			if err != nil {
				return &ValidationError{Field: key, Value: value, Cause: err}
			}
			state[key] = merged
			continue
		}
		state[key] = value
	}
	return nil
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		copy(out, val)
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	default:
		return v
	}
}

// AppendReducer merges list-valued fields by appending the incoming value(s)
// to the existing list. A nil existing value starts a fresh list; an
// incoming []any is appended element-wise, any other incoming value is
// appended as a single element.
func AppendReducer(existing, incoming any) (any, error) {
	var list []any
	switch ex := existing.(type) {
	case nil:
		list = []any{}
	case []any:
		list = make([]any, len(ex), len(ex)+1)
		copy(list, ex)
	default:
		return nil, fmt.Errorf("existing value is %T, not a list", existing)
	}

	switch in := incoming.(type) {
	case nil:
		return list, nil
	case []any:
		return append(list, in...), nil
	default:
		return append(list, in), nil
	}
}

// SumReducer merges numeric fields by addition. Integers and floats may be
// mixed; the result is float64 as soon as either side is a float.
func SumReducer(existing, incoming any) (any, error) {
	if existing == nil {
		return incoming, nil
	}
	if incoming == nil {
		return existing, nil
	}

	exInt, exIsInt, exFloat, exOK := asNumber(existing)
	inInt, inIsInt, inFloat, inOK := asNumber(incoming)
	if !exOK || !inOK {
		return nil, errors.New("both values must be numeric")
	}
	if exIsInt && inIsInt {
		return exInt + inInt, nil
	}
	return exFloat + inFloat, nil
}

func asNumber(v any) (i int, isInt bool, f float64, ok bool) {
	switch n := v.(type) {
	case int:
		return n, true, float64(n), true
	case int64:
		return int(n), true, float64(n), true
	case float64:
		return 0, false, n, true
	case float32:
		return 0, false, float64(n), true
	default:
		return 0, false, 0, false
	}
}
