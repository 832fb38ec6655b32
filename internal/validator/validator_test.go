package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func fn(name, to string) domain.Function {
	return domain.Function{Name: name, TransitionTo: to}
}

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name        string
		cfg         domain.FlowConfig
		wantProblem string
		unreachable []string
	}{
		{
			name: "Valid Cycle",
			cfg: domain.FlowConfig{
				InitialNode: "a",
				Nodes: map[string]domain.Node{
					"a": {Functions: []domain.Function{fn("to_b", "b")}},
					"b": {Functions: []domain.Function{fn("to_a", "a"), fn("done", "end")}},
					"end": {
						PostActions: []domain.Action{{Type: domain.ActionEndConversation}},
					},
				},
			},
		},
		{
			name: "Missing Initial",
			cfg: domain.FlowConfig{
				InitialNode: "ghost",
				Nodes:       map[string]domain.Node{"a": {Functions: []domain.Function{fn("stay", "")}}},
			},
			wantProblem: `initial node "ghost" is not declared`,
			unreachable: []string{"a"},
		},
		{
			name: "Broken Link",
			cfg: domain.FlowConfig{
				InitialNode: "start",
				Nodes: map[string]domain.Node{
					"start": {Functions: []domain.Function{fn("go", "ghost_node")}},
				},
			},
			wantProblem: `transitions to missing node "ghost_node"`,
		},
		{
			name: "Duplicate Function",
			cfg: domain.FlowConfig{
				InitialNode: "start",
				Nodes: map[string]domain.Node{
					"start": {Functions: []domain.Function{fn("pick", ""), fn("pick", "")}},
				},
			},
			wantProblem: `duplicate function "pick"`,
		},
		{
			name: "Unknown Action",
			cfg: domain.FlowConfig{
				InitialNode: "start",
				Nodes: map[string]domain.Node{
					"start": {
						Functions:  []domain.Function{fn("stay", "")},
						PreActions: []domain.Action{{Type: "play_music"}},
					},
				},
			},
			wantProblem: `unknown type "play_music"`,
		},
		{
			name: "Speak Without Text",
			cfg: domain.FlowConfig{
				InitialNode: "start",
				Nodes: map[string]domain.Node{
					"start": {
						Functions:  []domain.Function{fn("stay", "")},
						PreActions: []domain.Action{{Type: domain.ActionSpeak}},
					},
				},
			},
			wantProblem: "requires text",
		},
		{
			name: "Stalling Node",
			cfg: domain.FlowConfig{
				InitialNode: "start",
				Nodes: map[string]domain.Node{
					"start": {Functions: []domain.Function{fn("go", "limbo")}},
					"limbo": {},
				},
			},
			wantProblem: `node "limbo" has no functions`,
		},
		{
			name: "Unreachable Stall Is Only Reported As Unreachable",
			cfg: domain.FlowConfig{
				InitialNode: "start",
				Nodes: map[string]domain.Node{
					"start":  {Functions: []domain.Function{fn("stay", "")}},
					"orphan": {},
				},
			},
			unreachable: []string{"orphan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ValidateGraph(&tt.cfg)
			if tt.wantProblem == "" {
				assert.True(t, r.OK(), "unexpected problems: %v", r.Problems)
			} else {
				assert.False(t, r.OK())
				assert.Contains(t, strings.Join(r.Problems, "\n"), tt.wantProblem)
			}
			assert.Equal(t, tt.unreachable, r.Unreachable)
		})
	}
}
