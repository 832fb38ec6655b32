package domain

// ActionKind identifies one of the side effects a node may declare.
type ActionKind string

const (
	// ActionSpeak hands a fixed phrase to the speech synthesizer.
	// Requires Text.
	ActionSpeak ActionKind = "tts_say"

	// ActionEndConversation tears the session down.
	ActionEndConversation ActionKind = "end_conversation"
)

// Known reports whether the kind belongs to the closed set of supported actions.
func (k ActionKind) Known() bool {
	switch k {
	case ActionSpeak, ActionEndConversation:
		return true
	}
	return false
}

// Action is a configuration-declared side effect run on node entry or exit.
type Action struct {
	Type ActionKind `json:"type" yaml:"type"`
	Text string     `json:"text,omitempty" yaml:"text,omitempty"`
}
