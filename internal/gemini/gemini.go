// Package gemini generates assistant replies with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rbright/damien/internal/assistant"
	"github.com/rbright/damien/internal/config"
	"google.golang.org/genai"
)

// DefaultModel is used when config leaves the model empty.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey indicates neither config nor environment supplied a key.
var ErrMissingAPIKey = errors.New("gemini api key is not set (gemini.api_key, GEMINI_API_KEY or GOOGLE_API_KEY)")

type generateFunc func(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// Client implements assistant.Generator.
type Client struct {
	model    string
	generate generateFunc
}

// New connects a Gemini client from config.
func New(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	apiKey := ResolveAPIKey(cfg)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWithGenerate(cfg.Model, client.Models.GenerateContent), nil
}

func newWithGenerate(model string, generate generateFunc) *Client {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{model: model, generate: generate}
}

// ResolveAPIKey prefers the configured key, then GEMINI_API_KEY, then GOOGLE_API_KEY.
func ResolveAPIKey(cfg config.GeminiConfig) string {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key
	}
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// Model reports the model used for generation.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt (file part first) with the assistant system instruction.
func (c *Client) Generate(ctx context.Context, prompt assistant.Prompt) (string, error) {
	parts := make([]*genai.Part, 0, 2)
	if prompt.Attachment != nil {
		parts = append(parts, genai.NewPartFromBytes(prompt.Attachment.Data, prompt.Attachment.MIMEType))
	}
	if prompt.Text != "" || len(parts) == 0 {
		parts = append(parts, genai.NewPartFromText(prompt.Text))
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.generate(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}
