// Package runtime implements the per-session flow manager: the state machine that
// resolves model function calls against the active node, runs handlers and
// actions, and re-briefs the session driver whenever the node changes.
package runtime
