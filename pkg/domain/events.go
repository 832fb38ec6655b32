package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart   EventType = "session_start"
	EventSessionEnd     EventType = "session_end"
	EventNodeEnter      EventType = "node_enter"
	EventNodeLeave      EventType = "node_leave"
	EventFunctionCall   EventType = "function_call"
	EventFunctionReturn EventType = "function_return"
	EventAction         EventType = "action"
	EventLate           EventType = "late_event"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent marks the start or the end of a session.
type SessionEvent struct {
	EventBase
	NodeID string          `json:"node_id"`
	Status ExecutionStatus `json:"status"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// FunctionEvent represents a function call and its return.
type FunctionEvent struct {
	EventBase
	NodeID   string         `json:"node_id"`
	Function string         `json:"function"`
	Args     map[string]any `json:"args,omitempty"`
	Outcome  OutcomeKind    `json:"outcome,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
	Err      error          `json:"-"`
}

// ActionEvent reports a pre- or post-action run.
type ActionEvent struct {
	EventBase
	NodeID string     `json:"node_id"`
	Kind   ActionKind `json:"kind"`
	Phase  string     `json:"phase"` // "pre" or "post"
	Err    error      `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnSessionStart   func(context.Context, *SessionEvent)
	OnSessionEnd     func(context.Context, *SessionEvent)
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnNodeLeave      func(context.Context, *NodeEvent)
	OnFunctionCall   func(context.Context, *FunctionEvent)
	OnFunctionReturn func(context.Context, *FunctionEvent)
	OnAction         func(context.Context, *ActionEvent)
	OnLateEvent      func(context.Context, *FunctionEvent)
}

// MergeHooks combines several hook sets; each callback fans out in order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range sets {
		merged.OnSessionStart = chain(merged.OnSessionStart, h.OnSessionStart)
		merged.OnSessionEnd = chain(merged.OnSessionEnd, h.OnSessionEnd)
		merged.OnNodeEnter = chain(merged.OnNodeEnter, h.OnNodeEnter)
		merged.OnNodeLeave = chain(merged.OnNodeLeave, h.OnNodeLeave)
		merged.OnFunctionCall = chain(merged.OnFunctionCall, h.OnFunctionCall)
		merged.OnFunctionReturn = chain(merged.OnFunctionReturn, h.OnFunctionReturn)
		merged.OnAction = chain(merged.OnAction, h.OnAction)
		merged.OnLateEvent = chain(merged.OnLateEvent, h.OnLateEvent)
	}
	return merged
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
