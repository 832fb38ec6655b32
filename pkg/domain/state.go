package domain

import (
	"maps"
	"slices"
	"time"
)

// ExecutionStatus defines the lifecycle stage of a session.
type ExecutionStatus string

const (
	StatusActive     ExecutionStatus = "active"     // Accepting function calls
	StatusTerminated ExecutionStatus = "terminated" // Sink reached, late events are ignored
)

// State represents the current snapshot of a conversation session.
type State struct {
	SessionID string `json:"session_id"`

	// CurrentNodeID is the identifier of the active node.
	CurrentNodeID string `json:"current_node_id"`

	Status ExecutionStatus `json:"status"`

	// RoleMessages is the persona currently in force.
	RoleMessages []Message `json:"role_messages,omitempty"`

	// Results accumulates handler output. Later calls overwrite earlier keys.
	Results map[string]any `json:"results"`

	// History is the path of visited nodes, initial node first.
	History []string `json:"history"`

	// Calls is the transcript of accepted function calls, arguments included.
	Calls []CallRecord `json:"calls,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a clean state starting at a specific node.
func NewState(sessionID, startNodeID string) *State {
	now := time.Now()
	return &State{
		SessionID:     sessionID,
		CurrentNodeID: startNodeID,
		Status:        StatusActive,
		Results:       make(map[string]any),
		History:       []string{startNodeID},
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Terminated reports whether the session reached a sink.
func (s *State) Terminated() bool {
	return s.Status == StatusTerminated
}

// Clone returns a copy that can be mutated without affecting s.
// Result values are copied shallowly; handlers own what they return.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.RoleMessages = slices.Clone(s.RoleMessages)
	c.Results = maps.Clone(s.Results)
	if c.Results == nil {
		c.Results = make(map[string]any)
	}
	c.History = slices.Clone(s.History)
	c.Calls = slices.Clone(s.Calls)
	return &c
}

// SessionRecord is the durable summary of a finished session.
type SessionRecord struct {
	SessionID string          `json:"session_id"`
	Flow      string          `json:"flow,omitempty"`
	FinalNode string          `json:"final_node"`
	Status    ExecutionStatus `json:"status"`
	Results   map[string]any  `json:"results"`
	History   []string        `json:"history"`
	Calls     []CallRecord    `json:"calls,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
}

// NewSessionRecord captures the final state of a session.
func NewSessionRecord(flow string, s *State, endedAt time.Time) *SessionRecord {
	return &SessionRecord{
		SessionID: s.SessionID,
		Flow:      flow,
		FinalNode: s.CurrentNodeID,
		Status:    s.Status,
		Results:   maps.Clone(s.Results),
		History:   slices.Clone(s.History),
		Calls:     slices.Clone(s.Calls),
		StartedAt: s.StartedAt,
		EndedAt:   endedAt,
	}
}
