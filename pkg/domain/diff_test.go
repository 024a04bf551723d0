package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		old      *State
		new      *State
		wantDiff *StateDiff // nil means no change
	}{
		{
			name:     "Initial Load (Old is Nil)",
			old:      nil,
			new:      StateFrom(map[string]any{"a": 1}),
			wantDiff: &StateDiff{Set: map[string]any{"a": 1}},
		},
		{
			name:     "No Changes",
			old:      StateFrom(map[string]any{"a": 1, "b": "x"}),
			new:      StateFrom(map[string]any{"a": 1, "b": "x"}),
			wantDiff: nil,
		},
		{
			name:     "Modified Value",
			old:      StateFrom(map[string]any{"a": 1, "b": "x"}),
			new:      StateFrom(map[string]any{"a": 2, "b": "x"}),
			wantDiff: &StateDiff{Set: map[string]any{"a": 2}},
		},
		{
			name:     "Added And Removed",
			old:      StateFrom(map[string]any{"a": 1, "gone": true}),
			new:      StateFrom(map[string]any{"a": 1, "fresh": []any{1, 2}}),
			wantDiff: &StateDiff{Set: map[string]any{"fresh": []any{1, 2}}, Removed: []string{"gone"}},
		},
		{
			name:     "Nested Change",
			old:      StateFrom(map[string]any{"cfg": map[string]any{"depth": 1}}),
			new:      StateFrom(map[string]any{"cfg": map[string]any{"depth": 2}}),
			wantDiff: &StateDiff{Set: map[string]any{"cfg": map[string]any{"depth": 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)

			if tt.wantDiff == nil {
				if !got.IsEmpty() {
					t.Errorf("Diff() = %+v, want nil/empty", got)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.wantDiff) {
				t.Errorf("Diff() = %+v, want %+v", got, tt.wantDiff)
			}
		})
	}
}

func TestStateDiff_JSON(t *testing.T) {
	d := Diff(StateFrom(map[string]any{"old": 1}), StateFrom(map[string]any{"new": 2}))

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"set":{"new":2},"removed":["old"]}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}
