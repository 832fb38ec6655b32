/*
Package domain contains the core domain models of the voiceflow conversation engine.

It defines the static flow vocabulary (Nodes, Functions, Actions, FlowConfig) and the
runtime records of a session (State, Outcome, Briefing). The package is kept pure and
free of I/O so that it can be shared by the loader, the engine and every adapter.

# Key Entities

  - Node: one conversation state. It briefs the model and constrains which functions are legal.
  - Function: a callable declared by a node, with an argument schema, an optional handler and
    an optional transition target.
  - Action: a side effect run when a node is entered (pre) or left (post).
  - FlowConfig: every node plus the initial node name.
  - State: the per-session snapshot mutated by the engine.
  - Outcome: what happened to a single function call.
*/
package domain
