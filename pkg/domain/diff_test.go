package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	term := StatusTerminated

	tests := []struct {
		name     string
		old      *State
		new      *State
		wantDiff *StateDiff // nil means no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &State{
				SessionID:     "sess-1",
				CurrentNodeID: "start",
				Status:        StatusActive,
				Results:       map[string]any{"destination": "Maui"},
				History:       []string{"start"},
			},
			wantDiff: &StateDiff{
				SessionID:     "sess-1",
				CurrentNodeID: ptr("start"),
				Status:        ptr(StatusActive),
				Results:       map[string]any{"destination": "Maui"},
				History:       &HistoryDelta{Appended: []string{"start"}},
			},
		},
		{
			name: "No Changes",
			old: &State{
				SessionID:     "sess-1",
				CurrentNodeID: "start",
				Status:        StatusActive,
				Results:       map[string]any{"destination": "Maui"},
				History:       []string{"start"},
			},
			new: &State{
				SessionID:     "sess-1",
				CurrentNodeID: "start",
				Status:        StatusActive,
				Results:       map[string]any{"destination": "Maui"},
				History:       []string{"start"},
			},
			wantDiff: nil,
		},
		{
			name: "Terminated",
			old:  &State{SessionID: "sess-1", CurrentNodeID: "end", Status: StatusActive},
			new:  &State{SessionID: "sess-1", CurrentNodeID: "end", Status: StatusTerminated},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Status:    &term,
			},
		},
		{
			name: "Results Overwritten By Revision",
			old: &State{
				SessionID: "sess-1",
				Results:   map[string]any{"check_in": "2025-06-01", "destination": "Maui"},
			},
			new: &State{
				SessionID: "sess-1",
				Results:   map[string]any{"check_in": "2025-07-01", "destination": "Maui"},
			},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Results:   map[string]any{"check_in": "2025-07-01"},
			},
		},
		{
			name: "History And Calls Append",
			old: &State{
				SessionID:     "sess-1",
				CurrentNodeID: "start",
				History:       []string{"start"},
			},
			new: &State{
				SessionID:     "sess-1",
				CurrentNodeID: "choose_beach",
				History:       []string{"start", "choose_beach"},
				Calls:         []CallRecord{{NodeID: "start", Function: "choose_beach"}},
			},
			wantDiff: &StateDiff{
				SessionID:     "sess-1",
				CurrentNodeID: ptr("choose_beach"),
				History:       &HistoryDelta{Appended: []string{"choose_beach"}},
				Calls:         []CallRecord{{NodeID: "start", Function: "choose_beach"}},
			},
		},
		{
			name:     "Results Deletion",
			old:      &State{Results: map[string]any{"a": 1, "b": 2}},
			new:      &State{Results: map[string]any{"a": 1}},
			wantDiff: &StateDiff{Results: map[string]any{"b": nil}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDiff, got)
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		diff := Diff(
			&State{Results: map[string]any{"a": 1, "b": 2}},
			&State{Results: map[string]any{"a": 1}},
		)
		require.NotNil(t, diff)

		bytes, err := json.Marshal(diff)
		require.NoError(t, err)
		assert.Contains(t, string(bytes), `"b":null`)
		assert.NotContains(t, string(bytes), `"history"`)
	})
}

func TestStateClone(t *testing.T) {
	s := NewState("s1", "start")
	s.Results["destination"] = "Maui"

	c := s.Clone()
	c.Results["destination"] = "Cancun"
	c.History = append(c.History, "choose_beach")

	assert.Equal(t, "Maui", s.Results["destination"])
	assert.Equal(t, []string{"start"}, s.History)
}

func ptr[T any](v T) *T { return &v }
