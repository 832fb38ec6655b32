package domain

// Message roles understood by the model adapters.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single instruction entry used to brief the language model.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Node represents one state of the conversation.
//
// RoleMessages set the persona of the assistant and are carried forward to later
// nodes that do not declare their own. TaskMessages describe what the model must
// accomplish while the node is active.
type Node struct {
	ID           string     `json:"id" yaml:"id"`
	RoleMessages []Message  `json:"role_messages,omitempty" yaml:"role_messages,omitempty"`
	TaskMessages []Message  `json:"task_messages,omitempty" yaml:"task_messages,omitempty"`
	Functions    []Function `json:"functions,omitempty" yaml:"functions,omitempty"`
	PreActions   []Action   `json:"pre_actions,omitempty" yaml:"pre_actions,omitempty"`
	PostActions  []Action   `json:"post_actions,omitempty" yaml:"post_actions,omitempty"`
}

// Function looks up a function by name within the node.
func (n *Node) Function(name string) (*Function, bool) {
	for i := range n.Functions {
		if n.Functions[i].Name == name {
			return &n.Functions[i], true
		}
	}
	return nil, false
}

// FunctionNames returns the names of every function the node exposes, in declared order.
func (n *Node) FunctionNames() []string {
	names := make([]string, 0, len(n.Functions))
	for _, fn := range n.Functions {
		names = append(names, fn.Name)
	}
	return names
}

// Terminates reports whether any post-action of the node ends the session.
func (n *Node) Terminates() bool {
	for _, a := range n.PostActions {
		if a.Type == ActionEndConversation {
			return true
		}
	}
	return false
}

// Function describes a callable the model may invoke while its node is active.
type Function struct {
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string            `json:"required,omitempty" yaml:"required,omitempty"`

	// Handler names an entry of the function registry. Empty means the function
	// is a pure transition trigger.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`

	// TransitionTo is the target node. Empty means "stay in the current node".
	TransitionTo string `json:"transition_to,omitempty" yaml:"transition_to,omitempty"`
}

// Property is the declaration of a single function argument.
// It mirrors the subset of JSON Schema understood by tool-calling models.
type Property struct {
	Type        string    `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []any     `json:"enum,omitempty" yaml:"enum,omitempty"`
	Format      string    `json:"format,omitempty" yaml:"format,omitempty"`
	Items       *Property `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems    *uint64   `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems    *uint64   `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty" yaml:"maximum,omitempty"`
}

// FlowConfig is the complete declarative description of a conversation.
type FlowConfig struct {
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	InitialNode string          `json:"initial_node" yaml:"initial_node"`
	Nodes       map[string]Node `json:"nodes" yaml:"nodes"`
}
