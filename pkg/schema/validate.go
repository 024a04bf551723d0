package schema

import (
	"slices"

	"github.com/aretw0/tendril/pkg/domain"
)

// Schema is a map of state keys to their expected types.
// Keys not named by the schema are ignored.
type Schema map[string]Type

// Keys returns the schema's field names in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Validate checks if data conforms to the schema.
// Keys are checked in sorted order and every failure is reported as
// Violations.
func Validate(schema Schema, data map[string]any) error {
	return validate(schema, func(key string) (any, bool) {
		v, ok := data[key]
		return v, ok
	})
}

// ValidateState checks a run state against the schema.
func ValidateState(schema Schema, state *domain.State) error {
	return validate(schema, state.Get)
}

func validate(schema Schema, lookup func(string) (any, bool)) error {
	if len(schema) == 0 {
		return nil
	}

	var errs Violations
	for _, key := range schema.Keys() {
		typ := schema[key]
		value, exists := lookup(key)
		if !exists {
			if o, ok := typ.(optional); ok && o.Optional() {
				continue
			}
			errs = append(errs, &KeyError{Key: key, Expected: typ.Name(), Missing: true})
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &KeyError{Key: key, Expected: typ.Name(), Value: value, Cause: err})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
