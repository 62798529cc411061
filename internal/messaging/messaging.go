package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/yourusername/linkedin-connect/internal/config"
	"github.com/yourusername/linkedin-connect/internal/logger"
)

const (
	MaxNoteLength = 300 // LinkedIn's character limit for connection notes

	DefaultModel = "gpt-4"

	systemPrompt = "You write concise LinkedIn invites."
)

// NoteRequest describes who the invitation is from and to.
type NoteRequest struct {
	SenderName       string
	RecipientName    string
	RecipientCompany string
	Position         string
	Context          string
}

// Generator drafts connection notes with a chat completion model.
type Generator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewGenerator creates a Generator from the openai config section.
func NewGenerator(cfg config.OpenAIConfig) *Generator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(60 * time.Second),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
	}
}

// Generate drafts a note for req, truncated to MaxNoteLength characters.
func (g *Generator) Generate(ctx context.Context, req NoteRequest) (string, error) {
	logger.Debug("Generating connection note", "recipient", req.RecipientName, "company", req.RecipientCompany, "model", g.model)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(RenderPrompt(req)),
		},
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%s error: %w", g.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", g.model)
	}

	note := Truncate(strings.TrimSpace(resp.Choices[0].Message.Content), MaxNoteLength)
	logger.Info("Connection note generated", "recipient", req.RecipientName, "length", len([]rune(note)))
	return note, nil
}

// RenderPrompt builds the user prompt for req
func RenderPrompt(req NoteRequest) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant drafting a LinkedIn connection note.\n\n")
	fmt.Fprintf(&b, "Sender: %s\n", req.SenderName)
	fmt.Fprintf(&b, "Recipient: %s\n", req.RecipientName)
	fmt.Fprintf(&b, "Company: %s\n", req.RecipientCompany)
	if req.Position != "" {
		fmt.Fprintf(&b, "Position: %s\n", req.Position)
	}
	fmt.Fprintf(&b, "Context: %s\n\n", req.Context)
	fmt.Fprintf(&b, "Write a short (≤%d chars), conversational, professional invite that:\n", MaxNoteLength)
	b.WriteString("- Mentions the context\n")
	b.WriteString("- Shows genuine interest in connecting\n")
	return b.String()
}

// Truncate shortens s to at most max characters, ending in "..." when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
