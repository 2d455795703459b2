// Package narration is the boundary to the external text-generation capability.
// Generators return raw text; callers own all validation.
package narration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/pinegate-backend/internal/observability"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/openai"
)

type Generator interface {
	Generate(ctx context.Context, system string, user string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, system string, user string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, system string, user string) (string, error) {
	return f(ctx, system, user)
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider string
	OpenAI   openai.Config
	Gemini   GeminiConfig
}

// New builds the generator for cfg.Provider. Missing credentials are a startup error.
func New(ctx context.Context, log *logger.Logger, cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		c, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return Observed(ProviderOpenAI, &OpenAIGenerator{Client: c}), nil
	case ProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return Observed(ProviderGemini, g), nil
	default:
		return nil, fmt.Errorf("unknown NARRATION_PROVIDER %q", cfg.Provider)
	}
}

// OpenAIGenerator requests JSON-object output from the Responses API.
type OpenAIGenerator struct {
	Client openai.Client
}

func (g *OpenAIGenerator) Generate(ctx context.Context, system string, user string) (string, error) {
	if g == nil || g.Client == nil {
		return "", fmt.Errorf("openai generator not configured")
	}
	return g.Client.GenerateJSONText(ctx, system, user)
}

// Observed wraps g with a span and call metrics labelled by provider.
func Observed(provider string, g Generator) Generator {
	return GeneratorFunc(func(ctx context.Context, system string, user string) (string, error) {
		ctx, span := observability.StartSpan(ctx, "narration.generate", "provider", provider)
		start := time.Now()
		out, err := g.Generate(ctx, system, user)
		status := "ok"
		if err != nil {
			status = "error"
		}
		observability.Current().ObserveGeneration(provider, status, time.Since(start))
		observability.EndSpan(span, err)
		return out, err
	})
}
