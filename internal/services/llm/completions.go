package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a multi-turn conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteJSON issues a JSON-only chat completion request with the supplied prompts.
// It returns the raw JSON payload produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("llm complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm complete: api key required")
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []wireMessage{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	return c.completionContentWithRetry(ctx, payload, "llm complete")
}

// CompleteVisionJSON sends the prompt together with an inline image and
// returns the model's JSON payload. The image travels as a base64 data URI.
func (c *Client) CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	mimeType = strings.TrimSpace(mimeType)
	if systemPrompt == "" {
		return "", errors.New("llm vision: system prompt required")
	}
	if len(image) == 0 {
		return "", errors.New("llm vision: image required")
	}
	if mimeType == "" {
		return "", errors.New("llm vision: mime type required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm vision: api key required")
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	parts := []contentPart{{Type: "image_url", ImageURL: &imageURL{URL: dataURI}}}
	if userPrompt != "" {
		parts = append([]contentPart{{Type: "text", Text: userPrompt}}, parts...)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []wireMessage{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: parts},
		},
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	return c.completionContentWithRetry(ctx, payload, "llm vision")
}

// Chat sends the whole transcript and returns the assistant's free-text reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("llm chat: messages required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm chat: api key required")
	}
	wire := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		if role == "" {
			role = RoleUser
		}
		wire = append(wire, wireMessage{Role: role, Content: msg.Content})
	}
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    wire,
		Temperature: 0.7,
	}
	return c.completionContentWithRetry(ctx, payload, "llm chat")
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
