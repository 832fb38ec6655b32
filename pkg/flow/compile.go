package flow

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/aretw0/voiceflow/internal/logging"
	"github.com/aretw0/voiceflow/internal/validator"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/registry"
	"github.com/aretw0/voiceflow/pkg/schema"
)

// Flow is a validated, immutable conversation graph.
type Flow struct {
	name    string
	initial string
	config  *domain.FlowConfig
	nodes   map[string]*Node
}

// Node is a compiled node.
type Node struct {
	domain.Node
	functions map[string]*Function
	specs     []domain.FunctionSpec
	pre       []Executor
	post      []Executor
}

// Function is a compiled function: its argument validator and its handler.
type Function struct {
	domain.Function
	Args *schema.Arguments
	// Handler is nil for pure transition triggers.
	Handler registry.HandlerFunc
}

// Option configures Compile.
type Option func(*compiler)

type compiler struct {
	logger *slog.Logger
	name   string
}

// WithLogger sets the logger used for load-time warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *compiler) {
		c.logger = logger
	}
}

// WithName overrides the flow name.
func WithName(name string) Option {
	return func(c *compiler) {
		c.name = name
	}
}

// Compile validates cfg against reg and builds the runtime flow.
// All problems are reported together in a *domain.ConfigurationError.
// A nil registry is treated as empty.
func Compile(cfg *domain.FlowConfig, reg *registry.Registry, opts ...Option) (*Flow, error) {
	c := &compiler{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if cfg == nil {
		return nil, &domain.ConfigurationError{Flow: c.name, Problems: []string{"flow is empty"}}
	}
	if c.name == "" {
		c.name = cfg.Name
	}
	if reg == nil {
		reg = registry.NewRegistry()
	}

	report := validator.ValidateGraph(cfg)
	problems := slices.Clone(report.Problems)

	f := &Flow{
		name:    c.name,
		initial: cfg.InitialNode,
		config:  cfg,
		nodes:   make(map[string]*Node, len(cfg.Nodes)),
	}

	ids := make([]string, 0, len(cfg.Nodes))
	for id := range cfg.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		def := cfg.Nodes[id]
		def.ID = id
		node := &Node{
			Node:      def,
			functions: make(map[string]*Function, len(def.Functions)),
		}

		for _, fd := range def.Functions {
			args, err := schema.Compile(fd.Properties, fd.Required)
			if err != nil {
				problems = append(problems, fmt.Sprintf("node %q: function %q: %v", id, fd.Name, err))
				continue
			}
			handler, ok := reg.Resolve(id, fd.Name, fd.Handler)
			if !ok && fd.Handler != "" {
				problems = append(problems, fmt.Sprintf("node %q: function %q: handler %q is not registered", id, fd.Name, fd.Handler))
				continue
			}
			if _, dup := node.functions[fd.Name]; dup {
				continue
			}

			node.functions[fd.Name] = &Function{Function: fd, Args: args, Handler: handler}
			node.specs = append(node.specs, domain.FunctionSpec{
				Name:        fd.Name,
				Description: fd.Description,
				Parameters:  args.Parameters(),
			})
		}

		// Unknown kinds are already reported by the graph validator.
		for _, a := range def.PreActions {
			if ex, err := NewExecutor(a); err == nil {
				node.pre = append(node.pre, ex)
			}
		}
		for _, a := range def.PostActions {
			if ex, err := NewExecutor(a); err == nil {
				node.post = append(node.post, ex)
			}
		}

		f.nodes[id] = node
	}

	if len(problems) > 0 {
		return nil, &domain.ConfigurationError{Flow: c.name, Problems: problems}
	}

	for _, id := range report.Unreachable {
		c.logger.Warn("node is unreachable from the initial node", "flow", c.name, "node_id", id)
	}
	return f, nil
}

// Name returns the flow name.
func (f *Flow) Name() string { return f.name }

// InitialNode returns the ID of the node every session starts in.
func (f *Flow) InitialNode() string { return f.initial }

// Config returns the declaration the flow was compiled from. It must not be modified.
func (f *Flow) Config() *domain.FlowConfig { return f.config }

// Node looks up a compiled node.
func (f *Flow) Node(id string) (*Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// NodeIDs lists every node, sorted.
func (f *Flow) NodeIDs() []string {
	ids := make([]string, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Briefing builds what the model must be told on entering node id.
// inherited is the persona in force, used when the node declares none.
func (f *Flow) Briefing(id string, inherited []domain.Message) domain.Briefing {
	n, ok := f.nodes[id]
	if !ok {
		return domain.Briefing{NodeID: id}
	}
	role := n.RoleMessages
	if len(role) == 0 {
		role = inherited
	}
	msgs := make([]domain.Message, 0, len(role)+len(n.TaskMessages))
	msgs = append(msgs, role...)
	msgs = append(msgs, n.TaskMessages...)
	return domain.Briefing{
		NodeID:    id,
		Messages:  msgs,
		Functions: slices.Clone(n.specs),
	}
}

// Function resolves a function declared by the node.
func (n *Node) Function(name string) (*Function, bool) {
	fn, ok := n.functions[name]
	return fn, ok
}

// PreActions returns the entry actions, in declared order.
func (n *Node) PreActions() []Executor { return n.pre }

// PostActions returns the exit actions, in declared order.
func (n *Node) PostActions() []Executor { return n.post }

// IsSink reports whether entering the node ends the conversation:
// it offers no functions and one of its post-actions terminates.
func (n *Node) IsSink() bool {
	return len(n.functions) == 0 && n.Terminates()
}
