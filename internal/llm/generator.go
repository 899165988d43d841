// Package llm adapts Genkit-backed model providers to the agent's
// Generator interface. Tool declarations are registered with Genkit so
// the model can request them, but execution stays with the agent's
// executor: generation returns tool requests instead of running them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/config"
)

// Generator calls a Genkit model and hands tool requests back unexecuted.
type Generator struct {
	g         *genkit.Genkit
	modelName string
	tools     []ai.ToolRef
	logger    *slog.Logger
}

// New initializes Genkit with the configured provider and registers the
// registry's tool declarations.
func New(ctx context.Context, cfg *config.Config, registry *agent.Registry, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g, err := initGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tools := registry.Tools()
	refs := make([]ai.ToolRef, 0, len(tools))
	for _, t := range tools {
		refs = append(refs, t.Attach(g))
	}
	logger.Info("model provider ready",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"tools", len(refs),
	)

	return &Generator{
		g:         g,
		modelName: fullModelName(cfg),
		tools:     refs,
		logger:    logger,
	}, nil
}

// NewWithModel wraps an already-registered model, for tests that supply
// their own Genkit instance.
func NewWithModel(g *genkit.Genkit, modelName string, registry *agent.Registry, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	var refs []ai.ToolRef
	if registry != nil {
		for _, t := range registry.Tools() {
			refs = append(refs, t.Attach(g))
		}
	}
	return &Generator{g: g, modelName: modelName, tools: refs, logger: logger}
}

// Generate runs one model call. Tool requests come back in the Turn;
// nothing executes here.
func (gen *Generator) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.Turn, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(gen.modelName),
		ai.WithMessages(req.Messages...),
		ai.WithReturnToolRequests(true),
	}
	if len(gen.tools) > 0 {
		opts = append(opts, ai.WithTools(gen.tools...))
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if req.Stream != nil {
		opts = append(opts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				return req.Stream(text)
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating: %w", err)
	}

	return &agent.Turn{
		Message:      resp.Message,
		Text:         resp.Text(),
		ToolRequests: resp.ToolRequests(),
	}, nil
}

// initGenkit wires the provider plugin. Ollama needs explicit model
// registration; the cloud providers discover models themselves.
func initGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		plugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		return g, nil

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		return g, nil

	case config.ProviderGoogleAI, config.ProviderGemini, "":
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		return g, nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// fullModelName prefixes the configured model with its provider
// namespace, the form Genkit uses for lookup.
func fullModelName(cfg *config.Config) string {
	switch cfg.Provider {
	case config.ProviderOllama:
		return "ollama/" + cfg.ModelName
	case config.ProviderOpenAI:
		return "openai/" + cfg.ModelName
	default:
		return "googleai/" + cfg.ModelName
	}
}
