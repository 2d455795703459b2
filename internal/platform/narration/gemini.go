package narration

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/pinegate-backend/internal/observability"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature *float32
}

type GeminiGenerator struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, cfg: cfg}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, system string, user string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "gemini.generate_content", "model", g.cfg.Model)
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       g.cfg.Temperature,
	})
	if err != nil {
		err = fmt.Errorf("gemini generate: %w", err)
		observability.EndSpan(span, err)
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		err = fmt.Errorf("gemini returned no text")
		observability.EndSpan(span, err)
		return "", err
	}
	observability.EndSpan(span, nil)
	return text, nil
}
