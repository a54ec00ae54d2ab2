package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client wraps the Anthropic API for issue enrichment.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// EnrichedIssue holds the LLM-generated enrichment for an issue.
type EnrichedIssue struct {
	Description string `json:"description"`
}

// buildEnrichPrompt constructs the system and user prompts for issue enrichment.
func buildEnrichPrompt(title, description string) (system string, user string) {
	system = `You improve issue descriptions for an issue tracker. Given an issue's title and current description, return a JSON object with exactly one field:

- "description": A clear, well-structured description of the issue, 2-6 sentences. Preserve all facts from the original description; improve clarity, add reasonable reproduction or acceptance detail only when it is clearly implied by the title.

Rules:
- Return valid JSON only, no markdown fencing or explanation
- Never invent facts that contradict the original description
- The description should be suitable for display in an issue tracker`

	var sb strings.Builder
	sb.WriteString("Issue title: ")
	sb.WriteString(title)
	sb.WriteString("\n\nCurrent description:\n")
	sb.WriteString(description)
	user = sb.String()
	return
}

// EnrichIssue sends issue data to the LLM and returns an improved description.
func (c *Client) EnrichIssue(ctx context.Context, title, description string) (*EnrichedIssue, error) {
	systemPrompt, userPrompt := buildEnrichPrompt(title, description)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	// Strip markdown fencing if present
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var enriched EnrichedIssue
	if err := json.Unmarshal([]byte(text), &enriched); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}

	return &enriched, nil
}
