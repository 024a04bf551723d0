package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// KeyError reports one state key that does not conform to its declared type.
type KeyError struct {
	Key      string
	Expected string // type name, e.g. "[string]"
	Missing  bool
	Value    any
	Cause    error
}

func (e *KeyError) Error() string {
	if e.Missing {
		return fmt.Sprintf("state key %q is missing (want %s)", e.Key, e.Expected)
	}
	if e.Cause == nil {
		return fmt.Sprintf("state key %q: want %s, got %T", e.Key, e.Expected, e.Value)
	}
	return fmt.Sprintf("state key %q: %v", e.Key, e.Cause)
}

func (e *KeyError) Unwrap() error { return e.Cause }

// Violations lists every key of a state that failed its schema, in key order.
// It matches domain.ErrInvalidState.
type Violations []*KeyError

func (v Violations) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d state keys violate the schema: %s", len(v), strings.Join(parts, "; "))
}

func (v Violations) Is(target error) bool { return target == domain.ErrInvalidState }

// Keys returns the offending keys.
func (v Violations) Keys() []string {
	keys := make([]string, len(v))
	for i, e := range v {
		keys[i] = e.Key
	}
	return keys
}

// AsViolations returns the violations carried by err, or nil.
func AsViolations(err error) Violations {
	var v Violations
	if errors.As(err, &v) {
		return v
	}
	return nil
}
