package domain

import (
	"reflect"
)

// StateDiff represents the changes between two states.
// It is serialized to JSON for partial updates pushed to stream clients.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string          `json:"current_node_id,omitempty"`
	Status        *ExecutionStatus `json:"status,omitempty"`

	// Results contains only changed or added keys.
	// Deleted keys are present with a nil value.
	Results map[string]any `json:"results,omitempty"`

	// History holds the nodes appended since the old state.
	History *HistoryDelta `json:"history,omitempty"`

	// Calls holds the call records appended since the old state.
	Calls []CallRecord `json:"calls,omitempty"`
}

// HistoryDelta represents changes to the history stack.
type HistoryDelta struct {
	Appended []string `json:"appended"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// It returns nil when nothing changed.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID {
		diff.CurrentNodeID = &newState.CurrentNodeID
	}
	if oldState == nil || oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}

	diff.Results = diffResults(oldState, newState)
	diff.History = diffHistory(oldState, newState)

	if oldState == nil {
		diff.Calls = newState.Calls
	} else if len(newState.Calls) > len(oldState.Calls) {
		diff.Calls = newState.Calls[len(oldState.Calls):]
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffResults(old *State, new *State) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Results {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.Results {
			oldVal, exists := old.Results[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.Results {
			if _, exists := new.Results[k]; !exists {
				delta[k] = nil
			}
		}
	}

	// nil lets omitempty drop the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes History is append-only.
func diffHistory(old *State, new *State) *HistoryDelta {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return &HistoryDelta{Appended: new.History}
	}
	if len(new.History) > len(old.History) {
		return &HistoryDelta{Appended: new.History[len(old.History):]}
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		len(d.Results) == 0 &&
		d.History == nil &&
		len(d.Calls) == 0
}
