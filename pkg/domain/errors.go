package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID is not known to the hub.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when starting a session whose ID is already active.
var ErrSessionExists = errors.New("session already exists")

// ConfigurationError reports every problem found while loading a flow.
// It is fatal and only ever returned before a session starts.
type ConfigurationError struct {
	Flow     string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	name := e.Flow
	if name == "" {
		name = "flow"
	}
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid %s: %s", name, e.Problems[0])
	}
	return fmt.Sprintf("invalid %s: %d problems:\n- %s", name, len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// UnknownFunctionError is returned when the model calls a function that is not
// legal in the current node.
type UnknownFunctionError struct {
	NodeID    string
	Function  string
	Available []string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("function %q is not available in node %q (available: %s)",
		e.Function, e.NodeID, strings.Join(e.Available, ", "))
}

// FieldError is a single argument problem.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ArgumentValidationError is returned when a payload fails the function's schema.
type ArgumentValidationError struct {
	NodeID   string
	Function string
	Details  []FieldError
}

func (e *ArgumentValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		if d.Field == "" {
			parts = append(parts, d.Reason)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", d.Field, d.Reason))
	}
	return fmt.Sprintf("invalid arguments for %q: %s", e.Function, strings.Join(parts, "; "))
}

// HandlerExecutionError wraps a failure raised by a registered handler.
type HandlerExecutionError struct {
	NodeID   string
	Function string
	Err      error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler for %q in node %q failed: %v", e.Function, e.NodeID, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}

// LateEventError describes an event that arrived after the session terminated.
// It is logged and reported to hooks, never returned to callers.
type LateEventError struct {
	SessionID string
	Function  string
}

func (e *LateEventError) Error() string {
	return fmt.Sprintf("session %q already terminated, ignoring %q", e.SessionID, e.Function)
}

// ActionError wraps a failing pre- or post-action.
type ActionError struct {
	NodeID string
	Kind   ActionKind
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s on node %q failed: %v", e.Kind, e.NodeID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err leaves the session usable in its current node.
func IsRecoverable(err error) bool {
	var unknown *UnknownFunctionError
	var invalid *ArgumentValidationError
	var handler *HandlerExecutionError
	return errors.As(err, &unknown) || errors.As(err, &invalid) || errors.As(err, &handler)
}
