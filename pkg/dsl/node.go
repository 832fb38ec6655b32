package dsl

import (
	"fmt"
	"slices"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
	err     error
}

// Initial marks the node as the entry point of the flow.
func (n *NodeBuilder) Initial() *NodeBuilder {
	n.builder.initial = n.node.ID
	return n
}

// Role appends a system message that sets the assistant's persona.
func (n *NodeBuilder) Role(content string) *NodeBuilder {
	n.node.RoleMessages = append(n.node.RoleMessages, domain.Message{Role: domain.RoleSystem, Content: content})
	return n
}

// Task appends a user-role instruction for the node.
func (n *NodeBuilder) Task(content string) *NodeBuilder {
	n.node.TaskMessages = append(n.node.TaskMessages, domain.Message{Role: domain.RoleUser, Content: content})
	return n
}

// Say speaks a fixed phrase when the node is entered.
func (n *NodeBuilder) Say(text string) *NodeBuilder {
	n.node.PreActions = append(n.node.PreActions, domain.Action{Type: domain.ActionSpeak, Text: text})
	return n
}

// SayAfter speaks a fixed phrase when the node's post-actions run.
func (n *NodeBuilder) SayAfter(text string) *NodeBuilder {
	n.node.PostActions = append(n.node.PostActions, domain.Action{Type: domain.ActionSpeak, Text: text})
	return n
}

// EndConversation ends the session once the node's post-actions run.
func (n *NodeBuilder) EndConversation() *NodeBuilder {
	n.node.PostActions = append(n.node.PostActions, domain.Action{Type: domain.ActionEndConversation})
	return n
}

// Function declares a function and returns its builder.
func (n *NodeBuilder) Function(name, description string) *FunctionBuilder {
	n.node.Functions = append(n.node.Functions, domain.Function{Name: name, Description: description})
	return &FunctionBuilder{node: n, index: len(n.node.Functions) - 1}
}

// Build returns a copy of the node definition.
func (n *NodeBuilder) Build() domain.Node {
	node := n.node
	node.RoleMessages = slices.Clone(n.node.RoleMessages)
	node.TaskMessages = slices.Clone(n.node.TaskMessages)
	node.Functions = slices.Clone(n.node.Functions)
	node.PreActions = slices.Clone(n.node.PreActions)
	node.PostActions = slices.Clone(n.node.PostActions)
	return node
}

// FunctionBuilder configures one function of a node.
type FunctionBuilder struct {
	node  *NodeBuilder
	index int
}

func (f *FunctionBuilder) fn() *domain.Function {
	return &f.node.node.Functions[f.index]
}

// Param declares a required argument.
func (f *FunctionBuilder) Param(name string, p domain.Property) *FunctionBuilder {
	return f.param(name, p, true)
}

// Optional declares an argument the model may omit.
func (f *FunctionBuilder) Optional(name string, p domain.Property) *FunctionBuilder {
	return f.param(name, p, false)
}

func (f *FunctionBuilder) param(name string, p domain.Property, required bool) *FunctionBuilder {
	fn := f.fn()
	if fn.Properties == nil {
		fn.Properties = make(map[string]domain.Property)
	}
	if _, dup := fn.Properties[name]; dup && f.node.err == nil {
		f.node.err = fmt.Errorf("function %q: argument %q declared twice", fn.Name, name)
	}
	fn.Properties[name] = p
	if required {
		fn.Required = append(fn.Required, name)
	}
	return f
}

// String declares a required string argument, optionally limited to enum.
func (f *FunctionBuilder) String(name, description string, enum ...string) *FunctionBuilder {
	p := domain.Property{Type: "string", Description: description}
	for _, v := range enum {
		p.Enum = append(p.Enum, v)
	}
	return f.Param(name, p)
}

// Date declares a required YYYY-MM-DD argument.
func (f *FunctionBuilder) Date(name, description string) *FunctionBuilder {
	return f.Param(name, domain.Property{Type: "string", Format: "date", Description: description})
}

// List declares a required array of strings holding between min and max items.
// A zero max leaves the upper bound open.
func (f *FunctionBuilder) List(name, description string, min, max uint64) *FunctionBuilder {
	p := domain.Property{
		Type:        "array",
		Description: description,
		Items:       &domain.Property{Type: "string"},
	}
	if min > 0 {
		p.MinItems = &min
	}
	if max > 0 {
		p.MaxItems = &max
	}
	return f.Param(name, p)
}

// Handler names the registry entry run when the function is called.
func (f *FunctionBuilder) Handler(name string) *FunctionBuilder {
	f.fn().Handler = name
	return f
}

// To sets the transition target and returns the node builder.
func (f *FunctionBuilder) To(target string) *NodeBuilder {
	f.fn().TransitionTo = target
	return f.node
}

// Stay leaves the function without a transition and returns the node builder.
func (f *FunctionBuilder) Stay() *NodeBuilder {
	return f.node
}
