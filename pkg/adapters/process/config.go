package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HandlerConfig declares a function handler implemented by an external command.
type HandlerConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Timeout     time.Duration     `yaml:"timeout" json:"timeout"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of handlers.yaml
type ConfigFile struct {
	Handlers []HandlerConfig `yaml:"handlers" json:"handlers"`
}

// LoadHandlers reads a configuration file (YAML or JSON) and returns the declared handlers by name.
// A missing file yields no handlers.
func LoadHandlers(path string) (map[string]HandlerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]HandlerConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read handlers config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	handlers := make(map[string]HandlerConfig, len(cfg.Handlers))
	for _, h := range cfg.Handlers {
		if h.Name == "" {
			continue
		}
		if h.Command == "" {
			return nil, fmt.Errorf("handler %q has no command", h.Name)
		}
		if _, dup := handlers[h.Name]; dup {
			return nil, fmt.Errorf("handler %q declared twice", h.Name)
		}
		handlers[h.Name] = h
	}
	return handlers, nil
}
