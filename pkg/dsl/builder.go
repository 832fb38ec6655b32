package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/registry"
)

// ErrNoInitialNode is returned when no node was marked as the entry point.
var ErrNoInitialNode = errors.New("no initial node")

// Builder manages the graph construction.
type Builder struct {
	name    string
	initial string
	order   []string
	nodes   map[string]*NodeBuilder
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
// The first node added is the initial node unless another one calls Initial.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	if b.initial == "" {
		b.initial = id
	}
	return nb
}

// Config assembles the flow configuration. It does not validate the graph.
func (b *Builder) Config() (*domain.FlowConfig, error) {
	if b.initial == "" {
		return nil, ErrNoInitialNode
	}
	cfg := &domain.FlowConfig{
		Name:        b.name,
		InitialNode: b.initial,
		Nodes:       make(map[string]domain.Node, len(b.nodes)),
	}
	for _, id := range b.order {
		nb := b.nodes[id]
		if nb.err != nil {
			return nil, fmt.Errorf("node %q: %w", id, nb.err)
		}
		cfg.Nodes[id] = nb.Build()
	}
	return cfg, nil
}

// Compile assembles the configuration and compiles it against reg.
func (b *Builder) Compile(reg *registry.Registry, opts ...flow.Option) (*flow.Flow, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return flow.Compile(cfg, reg, opts...)
}
