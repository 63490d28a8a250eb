// Package gemini wraps Google's generative-ai-go SDK for JSON completions.
package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// Client generates JSON text from a system instruction and prompt.
type Client interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
	Close() error
}

// Request is a single JSON generation call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float32
	MaxTokens   int32
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini client. Extra options are passed to the SDK.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) GenerateJSON(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		return "", eris.New("gemini: model is required")
	}

	model := c.client.GenerativeModel(req.Model)
	model.ResponseMIMEType = "application/json"
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", eris.Wrap(err, "gemini: generate content")
	}

	return responseText(resp)
}

func (c *sdkClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", eris.New("gemini: no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", eris.New("gemini: no content in response")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", eris.New("gemini: no text parts in response")
	}
	return sb.String(), nil
}
