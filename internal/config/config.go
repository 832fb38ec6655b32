// Package config loads the voiceflow runtime configuration.
//
// Values come from built-in defaults, then an optional YAML file, then the
// environment. Command-line flags are applied last by the caller.
package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted for the chat model.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds the voiceflow configuration.
type Config struct {
	Flow     string `yaml:"flow"`
	// Handlers points to a file declaring command-backed function handlers.
	Handlers string `yaml:"handlers"`
	LogLevel string `yaml:"log_level"`

	Server Server `yaml:"server"`
	Redis  Redis  `yaml:"redis"`
	Model  Model  `yaml:"model"`

	Records Records `yaml:"records"`

	// HandlerErrors is "fatal" (end the session) or "recoverable".
	HandlerErrors string `yaml:"handler_errors"`
}

// Server settings for the HTTP transport.
type Server struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Redis settings. An empty Addr disables Redis.
type Redis struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	RecordTTL time.Duration `yaml:"record_ttl"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

// Records controls how finished sessions are stored.
type Records struct {
	// Mask lists regular expressions; matching result and argument keys are masked.
	Mask []string `yaml:"mask"`
	// EncryptionKey is a base64 AES-256 key. Empty stores records in clear.
	EncryptionKey string `yaml:"encryption_key"`
}

// Key decodes the encryption key. It returns nil when encryption is off.
func (r Records) Key() ([]byte, error) {
	if r.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(r.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("records.encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("records.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Model settings for the chat agent.
type Model struct {
	Provider        string `yaml:"provider"`
	Name            string `yaml:"name"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
}

// APIKey returns the key of the configured provider.
func (m Model) APIKey() string {
	if m.Provider == ProviderOpenAI {
		return m.OpenAIAPIKey
	}
	return m.AnthropicAPIKey
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: Server{
			Host: "0.0.0.0",
			Port: 7860,
		},
		Redis: Redis{
			RecordTTL: 24 * time.Hour,
			LockTTL:   30 * time.Second,
		},
		Model: Model{
			Provider: ProviderAnthropic,
		},
		HandlerErrors: "fatal",
	}
}

// Load builds the configuration. path may be empty; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Flow = getEnv("VOICEFLOW_FLOW", cfg.Flow)
	cfg.Handlers = getEnv("VOICEFLOW_HANDLERS", cfg.Handlers)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.HandlerErrors = getEnv("VOICEFLOW_HANDLER_ERRORS", cfg.HandlerErrors)

	cfg.Server.Host = getEnv("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("FAST_API_PORT", cfg.Server.Port)
	cfg.Server.Token = getEnv("VOICEFLOW_TOKEN", cfg.Server.Token)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.RecordTTL = getEnvDuration("VOICEFLOW_RECORD_TTL", cfg.Redis.RecordTTL)

	if mask := os.Getenv("VOICEFLOW_RECORD_MASK"); mask != "" {
		cfg.Records.Mask = strings.Split(mask, ",")
	}
	cfg.Records.EncryptionKey = getEnv("VOICEFLOW_RECORD_KEY", cfg.Records.EncryptionKey)

	cfg.Model.Provider = strings.ToLower(getEnv("VOICEFLOW_PROVIDER", cfg.Model.Provider))
	cfg.Model.Name = getEnv("VOICEFLOW_MODEL", cfg.Model.Name)
	cfg.Model.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.Model.AnthropicAPIKey)
	cfg.Model.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.Model.OpenAIAPIKey)
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Model.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		problems = append(problems, fmt.Sprintf("model.provider %q is not one of anthropic, openai", c.Model.Provider))
	}
	switch c.HandlerErrors {
	case "fatal", "recoverable":
	default:
		problems = append(problems, fmt.Sprintf("handler_errors %q is not one of fatal, recoverable", c.HandlerErrors))
	}
	if _, err := c.Records.Key(); err != nil {
		problems = append(problems, err.Error())
	}
	for _, p := range c.Records.Mask {
		if _, err := regexp.Compile(p); err != nil {
			problems = append(problems, fmt.Sprintf("records.mask %q: %v", p, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
