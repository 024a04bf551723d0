package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// Middleware wraps a RunStore.
type Middleware func(ports.RunStore) ports.RunStore

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of state keys
// matching any of the patterns before they reach the store. Keys inside nested
// maps, states and slices are masked too. The engine's in-memory run is never modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, run *domain.Run) error {
	masked := run.Clone()

	m.maskState(masked.InitialState)
	m.maskState(masked.State)
	for i := range masked.Log {
		e := &masked.Log[i]
		m.maskState(e.Input)
		m.maskState(e.Output)
		if e.Changes != nil {
			m.maskMap(e.Changes.Set)
		}
	}

	return m.next.Save(ctx, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.Run, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]*domain.Run, error) {
	return m.next.List(ctx)
}

// maskState masks s in place; s is already a private clone.
func (m *piiMiddleware) maskState(s *domain.State) {
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		if m.matches(k) {
			s.Set(k, Mask)
			continue
		}
		m.maskValue(v)
	}
}

func (m *piiMiddleware) maskMap(values map[string]any) {
	for k, v := range values {
		if m.matches(k) {
			values[k] = Mask
			continue
		}
		m.maskValue(v)
	}
}

// maskValue descends into containers that can hold keyed values.
func (m *piiMiddleware) maskValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		m.maskMap(t)
	case *domain.State:
		if t != nil {
			m.maskState(t)
		}
	case []any:
		for _, item := range t {
			m.maskValue(item)
		}
	case []map[string]any:
		for _, item := range t {
			m.maskMap(item)
		}
	}
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
