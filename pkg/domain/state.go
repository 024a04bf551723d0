package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// State is the ordered key-value store a run threads through its nodes.
// Keys keep their insertion order; overwriting a key keeps its position.
//
// A nil *State behaves as an empty, read-only state.
type State struct {
	keys   []string
	values map[string]any
}

// NewState returns an empty state.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// StateFrom builds a state from a plain map. Map iteration order is random,
// so keys are inserted in sorted order to keep the result deterministic.
func StateFrom(m map[string]any) *State {
	s := NewState()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s.Set(k, m[k])
	}
	return s
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is present.
func (s *State) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key.
func (s *State) Set(key string, value any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Delete removes key. Missing keys are ignored.
func (s *State) Delete(key string) {
	if s == nil {
		return
	}
	if _, exists := s.values[key]; !exists {
		return
	}
	delete(s.values, key)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order.
func (s *State) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Len returns the number of keys.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Range calls fn for every entry in insertion order until fn returns false.
func (s *State) Range(fn func(key string, value any) bool) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		if !fn(k, s.values[k]) {
			return
		}
	}
}

// Merge copies every entry of other into s, in other's order.
func (s *State) Merge(other *State) {
	other.Range(func(k string, v any) bool {
		s.Set(k, deepCopy(v))
		return true
	})
}

// Clone returns a deep structural copy. Nested maps, slices and states are
// copied; other values are shared.
func (s *State) Clone() *State {
	out := &State{
		keys:   make([]string, 0, s.Len()),
		values: make(map[string]any, s.Len()),
	}
	s.Range(func(k string, v any) bool {
		out.keys = append(out.keys, k)
		out.values[k] = deepCopy(v)
		return true
	})
	return out
}

// Map returns a deep copy of the entries as a plain map.
func (s *State) Map() map[string]any {
	out := make(map[string]any, s.Len())
	s.Range(func(k string, v any) bool {
		out[k] = deepCopy(v)
		return true
	})
	return out
}

// Equal reports whether both states hold the same keys, in the same order,
// with deeply equal values.
func (s *State) Equal(other *State) bool {
	if s.Len() != other.Len() {
		return false
	}
	if !slices.Equal(s.Keys(), other.Keys()) {
		return false
	}
	for _, k := range s.Keys() {
		a, _ := s.Get(k)
		b, _ := other.Get(k)
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the state as a JSON object in key order.
func (s *State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	first := true
	s.Range(func(k string, v any) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = json.Marshal(v); err != nil {
			err = fmt.Errorf("state key %q: %w", k, err)
			return false
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order for
// top-level keys. JSON null decodes to an empty state.
func (s *State) UnmarshalJSON(data []byte) error {
	s.keys = nil
	s.values = make(map[string]any)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("state must be a JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected state key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("state key %q: %w", key, err)
		}
		s.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *State:
		if t == nil {
			return t
		}
		return t.Clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case string, bool, int, int64, float64:
		return t
	}
	return reflectCopy(reflect.ValueOf(v)).Interface()
}

func reflectCopy(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyElem(iter.Value(), rv.Type().Elem()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyElem(rv.Index(i), rv.Type().Elem()))
		}
		return out
	}
	return rv
}

func copyElem(v reflect.Value, elemType reflect.Type) reflect.Value {
	if elemType.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(elemType)
		}
		c := deepCopy(v.Interface())
		if c == nil {
			return reflect.Zero(elemType)
		}
		return reflect.ValueOf(c)
	}
	return reflectCopy(v)
}
