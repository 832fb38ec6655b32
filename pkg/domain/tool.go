package domain

// FunctionSpec is the model-facing description of a callable function.
// Parameters holds a JSON Schema object ready to be handed to a tool-calling API.
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Briefing is what the session driver receives whenever the active node changes:
// the instructions for the model and exactly the functions that are now legal.
type Briefing struct {
	SessionID string         `json:"session_id,omitempty"`
	NodeID    string         `json:"node_id"`
	Messages  []Message      `json:"messages"`
	Functions []FunctionSpec `json:"functions"`
}

// CallRecord is one accepted function call in the session transcript.
type CallRecord struct {
	NodeID    string         `json:"node_id"`
	Function  string         `json:"function"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
}
