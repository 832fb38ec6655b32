// Package travel bundles the Summit and Sand Getaways booking flow.
package travel

import (
	_ "embed"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/registry"
)

//go:embed travel.yaml
var document []byte

// Document returns the raw flow document.
func Document() []byte {
	return document
}

// Config parses the bundled flow.
func Config() (*domain.FlowConfig, error) {
	return flow.Parse(document, flow.FormatYAML)
}

// Registry returns a registry holding the travel handlers.
func Registry() *registry.Registry {
	reg := registry.NewRegistry()
	Register(reg)
	return reg
}

// Compile parses and compiles the bundled flow with its handlers.
func Compile(opts ...flow.Option) (*flow.Flow, error) {
	cfg, err := Config()
	if err != nil {
		return nil, err
	}
	return flow.Compile(cfg, Registry(), opts...)
}
