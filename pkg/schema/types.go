package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the type expression, e.g. "string", "[int]", "float?".
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// optional is implemented by types that accept an absent key.
type optional interface {
	Optional() bool
}

type basic struct {
	name  string
	check func(any) error
}

func (t *basic) Name() string             { return t.name }
func (t *basic) Validate(value any) error { return t.check(value) }

var (
	stringType = &basic{"string", func(v any) error {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		return nil
	}}
	intType = &basic{"int", func(v any) error {
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		case float64:
			// JSON numbers decode as float64
			if n == float64(int64(n)) {
				return nil
			}
			return fmt.Errorf("expected int, got float (not a whole number)")
		}
		return fmt.Errorf("expected int, got %T", v)
	}}
	floatType = &basic{"float", func(v any) error {
		switch v.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		}
		return fmt.Errorf("expected float, got %T", v)
	}}
	boolType = &basic{"bool", func(v any) error {
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		return nil
	}}
	anyType = &basic{"any", func(any) error { return nil }}
	mapType = &basic{"map", func(v any) error {
		if v == nil {
			return fmt.Errorf("expected map, got nil")
		}
		if reflect.ValueOf(v).Kind() != reflect.Map {
			return fmt.Errorf("expected map, got %T", v)
		}
		return nil
	}}
)

// String creates a string type validator.
func String() Type { return stringType }

// Int creates an integer type validator. Whole float64 values are accepted.
func Int() Type { return intType }

// Float creates a numeric type validator.
func Float() Type { return floatType }

// Bool creates a boolean type validator.
func Bool() Type { return boolType }

// Any accepts every present value.
func Any() Type { return anyType }

// Map accepts any map value.
func Map() Type { return mapType }

type sliceType struct {
	elem Type
}

// Slice creates a slice type validator for elements of the given type.
func Slice(elem Type) Type { return &sliceType{elem: elem} }

func (t *sliceType) Name() string { return "[" + t.elem.Name() + "]" }

func (t *sliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return fmt.Errorf("expected slice, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

type optionalType struct {
	Type
}

// Optional marks a field that may be absent. Present values must still match t.
func Optional(t Type) Type { return optionalType{t} }

func (t optionalType) Name() string   { return t.Type.Name() + "?" }
func (t optionalType) Optional() bool { return true }

type customType struct {
	name     string
	validate func(any) error
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &customType{name: name, validate: validate}
}

func (t *customType) Name() string             { return t.name }
func (t *customType) Validate(value any) error { return t.validate(value) }

// ParseType converts a type expression to a Type.
// Supported: string, int, float, bool, any, map, [T] and a trailing "?" for
// optional fields, e.g. "[string]?".
func ParseType(expr string) (Type, error) {
	expr = strings.TrimSpace(expr)
	if rest, ok := strings.CutSuffix(expr, "?"); ok {
		t, err := ParseType(rest)
		if err != nil {
			return nil, err
		}
		return Optional(t), nil
	}
	if len(expr) > 2 && expr[0] == '[' && expr[len(expr)-1] == ']' {
		elem, err := ParseType(expr[1 : len(expr)-1])
		if err != nil {
			return nil, err
		}
		return Slice(elem), nil
	}

	switch expr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float", "number":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "any":
		return Any(), nil
	case "map", "object":
		return Map(), nil
	}
	return nil, fmt.Errorf("unsupported type: %s", expr)
}

// ParseTypeMap converts a map of field names to type expressions into a Schema.
// Example: {"code": "string", "threshold": "float?"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema, len(typeMap))
	for key, expr := range typeMap {
		t, err := ParseType(expr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
