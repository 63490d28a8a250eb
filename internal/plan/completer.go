package plan

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/pkg/anthropic"
	"github.com/sells-group/lead-cli/pkg/gemini"
)

// ModelConfig tunes a completion call.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

type anthropicCompleter struct {
	client anthropic.Client
	cfg    ModelConfig
}

// NewAnthropicCompleter adapts an Anthropic client to Completer.
func NewAnthropicCompleter(c anthropic.Client, cfg ModelConfig) Completer {
	return &anthropicCompleter{client: c, cfg: cfg}
}

func (a *anthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temp := a.cfg.Temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   int64(a.cfg.MaxTokens),
		System:      []anthropic.SystemBlock{{Text: system}},
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.Log(a.cfg.Model, "plan")

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("plan: empty response (stop reason %s)", resp.StopReason)
	}
	return text, nil
}

type geminiCompleter struct {
	client gemini.Client
	cfg    ModelConfig
}

// NewGeminiCompleter adapts a Gemini client to Completer.
func NewGeminiCompleter(c gemini.Client, cfg ModelConfig) Completer {
	return &geminiCompleter{client: c, cfg: cfg}
}

func (g *geminiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temp := float32(g.cfg.Temperature)
	return g.client.GenerateJSON(ctx, gemini.Request{
		Model:       g.cfg.Model,
		System:      system,
		Prompt:      user,
		Temperature: &temp,
		MaxTokens:   int32(g.cfg.MaxTokens),
	})
}
