// Package cli holds the implementations behind the voiceflow commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/voiceflow"
	"github.com/aretw0/voiceflow/internal/config"
	"github.com/aretw0/voiceflow/internal/logging"
	"github.com/aretw0/voiceflow/internal/travel"
	"github.com/aretw0/voiceflow/pkg/adapters/process"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/observability"
	"github.com/aretw0/voiceflow/pkg/persistence/middleware"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/aretw0/voiceflow/pkg/registry"
)

// NewLogger builds the stderr logger for cfg.LogLevel.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// LoadFlow reads the flow at path. An empty path selects the bundled travel flow.
func LoadFlow(path string) (*domain.FlowConfig, error) {
	if path == "" {
		return travel.Config()
	}
	return flow.Load(path)
}

// NewRegistry returns the built-in travel handlers plus the command-backed
// handlers declared in the file at handlersPath. Declared handlers win on name clashes.
func NewRegistry(handlersPath string) (*registry.Registry, error) {
	reg := travel.Registry()
	if handlersPath == "" {
		return reg, nil
	}
	handlers, err := process.LoadHandlers(handlersPath)
	if err != nil {
		return nil, err
	}
	process.NewRunner(process.WithBaseDir(filepath.Dir(handlersPath))).Register(reg, handlers)
	return reg, nil
}

// CompileFlow loads and compiles the flow configured in cfg.
func CompileFlow(cfg *config.Config, logger *slog.Logger) (*flow.Flow, error) {
	flowCfg, err := LoadFlow(cfg.Flow)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(cfg.Handlers)
	if err != nil {
		return nil, err
	}
	return flow.Compile(flowCfg, reg, flow.WithLogger(logger))
}

// wrapRecorder applies the masking and encryption configured in cfg.Records.
func wrapRecorder(cfg *config.Config, rec ports.Recorder) (ports.Recorder, error) {
	var mws []middleware.Middleware
	if len(cfg.Records.Mask) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Records.Mask))
	}
	key, err := cfg.Records.Key()
	if err != nil {
		return nil, err
	}
	if key != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(rec, mws...), nil
}

// createEngine initializes an engine with standard CLI conventions.
func createEngine(cfg *config.Config, logger *slog.Logger, extra ...voiceflow.Option) (*voiceflow.Engine, error) {
	flowCfg, err := LoadFlow(cfg.Flow)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(cfg.Handlers)
	if err != nil {
		return nil, err
	}

	opts := []voiceflow.Option{
		voiceflow.WithFlowConfig(flowCfg),
		voiceflow.WithRegistry(reg),
		voiceflow.WithLogger(logger),
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		opts = append(opts, voiceflow.WithLifecycleHooks(observability.LogHooks(logger)))
	}
	if cfg.HandlerErrors == "recoverable" {
		opts = append(opts, voiceflow.WithRecoverableHandlerErrors())
	}
	opts = append(opts, extra...)

	engine, err := voiceflow.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
