package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/rbright/damien/internal/assistant"
	"github.com/rbright/damien/internal/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type captured struct {
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func fakeGenerate(reply string, err error, got *captured) generateFunc {
	return func(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		got.model = model
		got.contents = contents
		got.cfg = cfg
		if err != nil {
			return nil, err
		}
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(reply, genai.RoleModel)}},
		}, nil
	}
}

func TestGenerateTextPrompt(t *testing.T) {
	var got captured
	client := newWithGenerate("", fakeGenerate("Hello there!", nil, &got))

	reply, err := client.Generate(context.Background(), assistant.Prompt{Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "Hello there!", reply)

	require.Equal(t, DefaultModel, got.model)
	require.Len(t, got.contents, 1)
	require.Equal(t, genai.Role(genai.RoleUser), genai.Role(got.contents[0].Role))
	require.Len(t, got.contents[0].Parts, 1)
	require.Equal(t, "hi", got.contents[0].Parts[0].Text)

	require.NotNil(t, got.cfg.SystemInstruction)
	require.Contains(t, got.cfg.SystemInstruction.Parts[0].Text, "[ACTION: OPEN_APP, PAYLOAD: 'Spotify']")
	require.Contains(t, got.cfg.SystemInstruction.Parts[0].Text, "[SUGGESTION: 'Summarize the key points']")
}

func TestGeneratePutsFilePartFirst(t *testing.T) {
	var got captured
	client := newWithGenerate("gemini-2.5-pro", fakeGenerate("Summary.", nil, &got))

	_, err := client.Generate(context.Background(), assistant.Prompt{
		Text:       "What is this?",
		Attachment: &assistant.Attachment{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("hello")},
	})
	require.NoError(t, err)

	require.Equal(t, "gemini-2.5-pro", got.model)
	parts := got.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	require.Equal(t, "text/plain", parts[0].InlineData.MIMEType)
	require.Equal(t, []byte("hello"), parts[0].InlineData.Data)
	require.Equal(t, "What is this?", parts[1].Text)
}

func TestGenerateFileWithoutPromptSendsOnlyFile(t *testing.T) {
	var got captured
	client := newWithGenerate("", fakeGenerate("Summary.", nil, &got))

	_, err := client.Generate(context.Background(), assistant.Prompt{
		Attachment: &assistant.Attachment{Name: "a.png", MIMEType: "image/png", Data: []byte{0x89}},
	})
	require.NoError(t, err)
	require.Len(t, got.contents[0].Parts, 1)
	require.NotNil(t, got.contents[0].Parts[0].InlineData)
}

func TestGenerateWrapsErrors(t *testing.T) {
	var got captured
	client := newWithGenerate("", fakeGenerate("", errors.New("permission denied"), &got))

	_, err := client.Generate(context.Background(), assistant.Prompt{Text: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "generate response")
	require.Contains(t, err.Error(), "permission denied")
}

func TestResolveAPIKeyPrecedence(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	require.Empty(t, ResolveAPIKey(config.GeminiConfig{}))

	t.Setenv("GOOGLE_API_KEY", "google-key")
	require.Equal(t, "google-key", ResolveAPIKey(config.GeminiConfig{}))

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	require.Equal(t, "gemini-key", ResolveAPIKey(config.GeminiConfig{}))

	require.Equal(t, "configured", ResolveAPIKey(config.GeminiConfig{APIKey: " configured "}))
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := New(context.Background(), config.GeminiConfig{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}
