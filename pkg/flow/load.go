package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/voiceflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a flow document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the document format from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads a flow document from disk.
func Load(path string) (*domain.FlowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow: %w", err)
	}
	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return cfg, nil
}

// Parse decodes a flow document. Unknown fields are rejected so that typos
// in the document surface as errors instead of silently dropped settings.
func Parse(data []byte, format Format) (*domain.FlowConfig, error) {
	var cfg domain.FlowConfig

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse flow json: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse flow yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported flow format %q", format)
	}

	for id, node := range cfg.Nodes {
		if node.ID == "" {
			node.ID = id
			cfg.Nodes[id] = node
		}
	}
	return &cfg, nil
}
