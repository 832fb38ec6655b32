// Package graph renders conversation flows as Mermaid flowcharts.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// GraphOverlay contains dynamic session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from a flow configuration.
// It applies semantic styling:
// - Initial node: ((Circle))
// - Terminal node (ends the conversation or has no functions): ([Stadium])
// - Default: [Rectangle]
//
// Transitions are labelled with the function that triggers them. Functions
// without a target are drawn as dotted self-loops.
func GenerateMermaid(cfg *domain.FlowConfig, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range orderedIDs(cfg) {
		node := cfg.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == cfg.InitialNode:
			opener, closer = "((", "))"
		case node.Terminates() || len(node.Functions) == 0:
			opener, closer = "([", "])"
		}

		label := id
		for _, a := range node.PreActions {
			if a.Type == domain.ActionSpeak {
				label += " <br/> 🔊 " + escapeLabel(a.Text)
			}
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, fn := range node.Functions {
			name := escapeLabel(fn.Name)
			if fn.TransitionTo == "" {
				fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", safeID, name, safeID)
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, name, sanitizeMermaidID(fn.TransitionTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// orderedIDs returns the initial node first, then the rest sorted.
func orderedIDs(cfg *domain.FlowConfig) []string {
	ids := make([]string, 0, len(cfg.Nodes))
	for id := range cfg.Nodes {
		if id != cfg.InitialNode {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if _, ok := cfg.Nodes[cfg.InitialNode]; ok {
		ids = append([]string{cfg.InitialNode}, ids...)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// "end" is a reserved word in Mermaid flowcharts.
	if s == "end" {
		s = "end_"
	}
	return s
}
