package schema

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"gopkg.in/yaml.v3"
)

func TestValidate_Success(t *testing.T) {
	s := Schema{
		"code":      String(),
		"retries":   Int(),
		"threshold": Float(),
		"enabled":   Bool(),
		"tags":      Slice(String()),
		"meta":      Map(),
		"anything":  Any(),
		"maybe":     Optional(Int()),
	}

	data := map[string]any{
		"code":      "def foo(): pass",
		"retries":   3.0, // JSON number
		"threshold": 7,
		"enabled":   true,
		"tags":      []any{"prod", "critical"},
		"meta":      map[string]any{"k": 1},
		"anything":  nil,
	}

	if err := Validate(s, data); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_ReportsAllFailuresSorted(t *testing.T) {
	s := Schema{
		"code":    String(),
		"retries": Int(),
		"tags":    Slice(String()),
	}
	data := map[string]any{
		"retries": 2.5,
		"tags":    []any{"ok", 3},
	}

	err := Validate(s, data)
	if err == nil {
		t.Fatal("Validate() should return error")
	}

	errs := AsViolations(err)
	if len(errs) != 3 {
		t.Fatalf("Validate() = %d errors, want 3: %v", len(errs), err)
	}
	if got := errs.Keys(); !slices.Equal(got, []string{"code", "retries", "tags"}) {
		t.Errorf("Keys() = %v", got)
	}
	if !errs[0].Missing || errs[0].Expected != "string" {
		t.Errorf("missing key error = %+v", errs[0])
	}
	if errs[1].Missing || errs[1].Value != 2.5 || errs[1].Cause == nil {
		t.Errorf("mismatch error = %+v", errs[1])
	}
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Error("violations should match domain.ErrInvalidState")
	}
	if !strings.HasPrefix(err.Error(), "3 state keys violate the schema") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidateState(t *testing.T) {
	s := Schema{"code": String(), "threshold": Optional(Float())}

	ok := domain.NewState()
	ok.Set("code", "x")
	if err := ValidateState(s, ok); err != nil {
		t.Errorf("ValidateState() error = %v", err)
	}

	bad := domain.NewState()
	bad.Set("code", 42)
	bad.Set("threshold", "high")
	if errs := AsViolations(ValidateState(s, bad)); len(errs) != 2 {
		t.Errorf("ValidateState() = %v, want 2 errors", errs)
	}

	if err := ValidateState(nil, bad); err != nil {
		t.Errorf("nil schema should accept everything, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		expr    string
		name    string
		wantErr bool
	}{
		{"string", "string", false},
		{"int", "int", false},
		{"number", "float", false},
		{"object", "map", false},
		{"[string]", "[string]", false},
		{"[[int]]", "[[int]]", false},
		{"float?", "float?", false},
		{"[bool]?", "[bool]?", false},
		{"uuid", "", true},
		{"[uuid]", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			typ, err := ParseType(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if err == nil && typ.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", typ.Name(), tt.name)
			}
		})
	}
}

func TestSchema_Serialization(t *testing.T) {
	s := Schema{"code": String(), "threshold": Optional(Float())}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"code":"string","threshold":"float?"}` {
		t.Errorf("JSON = %s", data)
	}

	var back Schema
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back["threshold"].Name() != "float?" {
		t.Errorf("round trip lost optional marker: %s", back["threshold"].Name())
	}

	var fromYAML struct {
		Schema Schema `yaml:"schema"`
	}
	src := "schema:\n  code: string\n  tags: \"[string]\"\n"
	if err := yaml.Unmarshal([]byte(src), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if fromYAML.Schema["tags"].Name() != "[string]" {
		t.Errorf("YAML schema = %v", fromYAML.Schema)
	}
}

func TestCustom(t *testing.T) {
	positive := Custom("positive", func(v any) error {
		if f, ok := v.(float64); !ok || f <= 0 {
			return errors.New("must be positive")
		}
		return nil
	})

	if err := Validate(Schema{"n": positive}, map[string]any{"n": 2.0}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Validate(Schema{"n": positive}, map[string]any{"n": -1.0}); err == nil {
		t.Error("expected error for negative value")
	}
}
