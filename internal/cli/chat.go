package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/voiceflow"
	"github.com/aretw0/voiceflow/internal/config"
	"github.com/aretw0/voiceflow/internal/presentation/tui"
	"github.com/aretw0/voiceflow/pkg/adapters/llm/anthropic"
	"github.com/aretw0/voiceflow/pkg/adapters/llm/openai"
	"github.com/aretw0/voiceflow/pkg/adapters/memory"
	"github.com/aretw0/voiceflow/pkg/agent"
	"github.com/aretw0/voiceflow/pkg/ports"
)

// NewModel returns the chat model selected by cfg.Model.
func NewModel(cfg *config.Config) (ports.Model, error) {
	m := cfg.Model
	switch m.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = m.AnthropicAPIKey
			if m.Name != "" {
				o.Model = m.Name
			}
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = m.OpenAIAPIKey
			if m.Name != "" {
				o.Model = m.Name
			}
		}), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", m.Provider)
}

// RunChat holds a text conversation on console, standing in for the voice pipeline.
// The session ends when the flow terminates, input ends, or the user types /quit.
func RunChat(ctx context.Context, cfg *config.Config, logger *slog.Logger, model ports.Model, console *tui.Console, sessionID string) error {
	rec, err := wrapRecorder(cfg, memory.NewRecorder())
	if err != nil {
		return err
	}
	bot := agent.New(model, console, agent.WithLogger(logger))
	engine, err := createEngine(cfg, logger,
		voiceflow.WithDriver(bot),
		voiceflow.WithRecorder(rec),
	)
	if err != nil {
		return err
	}
	defer engine.Close(context.WithoutCancel(ctx))
	bot.Bind(engine)

	conv, err := bot.Start(ctx, sessionID)
	if err != nil {
		return err
	}
	console.Notice("session %s with %s (type /quit to leave)", conv.SessionID(), model.Name())

	if _, err := conv.Greet(ctx); err != nil {
		return fmt.Errorf("greeting failed: %w", err)
	}

	for !conv.Done() {
		if ctx.Err() != nil {
			break
		}
		line, err := console.Prompt()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/quit", "/exit":
			return endChat(ctx, engine, conv, console)
		}

		if _, err := conv.Send(ctx, line); err != nil {
			if errors.Is(err, agent.ErrConversationOver) {
				break
			}
			if ctx.Err() != nil {
				break
			}
			console.Notice("error: %v", err)
		}
	}

	if conv.Done() {
		console.Notice("conversation ended")
		return nil
	}
	return endChat(ctx, engine, conv, console)
}

func endChat(ctx context.Context, engine *voiceflow.Engine, conv *agent.Conversation, console *tui.Console) error {
	console.Notice("leaving session %s", conv.SessionID())
	return engine.End(context.WithoutCancel(ctx), conv.SessionID())
}
