// Package validator performs the structural checks of a flow configuration.
package validator

import (
	"fmt"
	"sort"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// Report is the result of validating a flow graph.
type Report struct {
	// Problems make the flow unusable.
	Problems []string
	// Unreachable lists nodes no path from the initial node can reach.
	Unreachable []string
}

// OK reports whether the graph has no problems.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// ValidateGraph checks for broken links, duplicate functions, unknown actions and
// nodes where the conversation would stall, crawling from the initial node.
func ValidateGraph(cfg *domain.FlowConfig) *Report {
	r := &Report{}
	add := func(format string, args ...any) {
		r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
	}

	if cfg.InitialNode == "" {
		add("initial node is not set")
	} else if _, ok := cfg.Nodes[cfg.InitialNode]; !ok {
		add("initial node %q is not declared", cfg.InitialNode)
	}

	ids := make([]string, 0, len(cfg.Nodes))
	for id := range cfg.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := cfg.Nodes[id]
		if node.ID != "" && node.ID != id {
			add("node %q declares mismatching id %q", id, node.ID)
		}

		seen := make(map[string]bool, len(node.Functions))
		for _, fn := range node.Functions {
			if fn.Name == "" {
				add("node %q: function without a name", id)
				continue
			}
			if seen[fn.Name] {
				add("node %q: duplicate function %q", id, fn.Name)
			}
			seen[fn.Name] = true

			if fn.TransitionTo != "" {
				if _, ok := cfg.Nodes[fn.TransitionTo]; !ok {
					add("node %q: function %q transitions to missing node %q", id, fn.Name, fn.TransitionTo)
				}
			}
		}

		checkActions(id, "pre_actions", node.PreActions, add)
		checkActions(id, "post_actions", node.PostActions, add)
	}

	// Crawl
	visited := make(map[string]bool)
	if _, ok := cfg.Nodes[cfg.InitialNode]; ok {
		queue := []string{cfg.InitialNode}
		for len(queue) > 0 {
			currentID := queue[0]
			queue = queue[1:]

			if visited[currentID] {
				continue
			}
			visited[currentID] = true

			node, ok := cfg.Nodes[currentID]
			if !ok {
				// Already reported as a broken transition.
				continue
			}

			if len(node.Functions) == 0 && !node.Terminates() {
				add("node %q has no functions and never ends the conversation", currentID)
			}

			for _, fn := range node.Functions {
				if fn.TransitionTo != "" && !visited[fn.TransitionTo] {
					queue = append(queue, fn.TransitionTo)
				}
			}
		}
	}

	for _, id := range ids {
		if !visited[id] {
			r.Unreachable = append(r.Unreachable, id)
		}
	}

	return r
}

func checkActions(nodeID, field string, actions []domain.Action, add func(string, ...any)) {
	for i, a := range actions {
		if !a.Type.Known() {
			add("node %q: %s[%d] has unknown type %q", nodeID, field, i, a.Type)
			continue
		}
		if a.Type == domain.ActionSpeak && a.Text == "" {
			add("node %q: %s[%d] %s requires text", nodeID, field, i, a.Type)
		}
	}
}
