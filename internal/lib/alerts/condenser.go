package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Condenser shortens verbose NWS alert descriptions into a single line for
// the segment list. It is optional: a nil Condenser (or one built without an
// API key) leaves alerts untouched.
type Condenser struct {
	client *openai.Client
	model  string
}

// NewCondenser creates a Condenser. With an empty apiKey the returned
// Condenser is inert and Condense returns an error for every call.
func NewCondenser(apiKey, model string) *Condenser {
	if apiKey == "" {
		return &Condenser{client: nil, model: model}
	}
	return &Condenser{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Enabled reports whether the condenser has a usable client.
func (c *Condenser) Enabled() bool {
	return c != nil && c.client != nil
}

// Condense produces a one-line summary (under 120 characters) of an alert.
func (c *Condenser) Condense(ctx context.Context, alert Alert) (string, error) {
	if !c.Enabled() {
		return "", errors.New("condenser not configured")
	}

	prompt := fmt.Sprintf(
		"Condense this weather alert into a single plain-language line under 120 characters for a driver. "+
			"Keep the hazard, area and timing; drop boilerplate.\n\nHeadline: %s\nSeverity: %s\nDescription: %s",
		alert.Headline, alert.Severity, alert.Description)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   80,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI API")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	summary = strings.Trim(summary, `"`)
	if len(summary) > 150 {
		summary = summary[:147] + "..."
	}
	return summary, nil
}

// CondenseAll annotates each alert with a condensed summary, leaving alerts
// unchanged when the lookup fails. Safe to call on a disabled condenser.
func (c *Condenser) CondenseAll(ctx context.Context, list []Alert) {
	if !c.Enabled() {
		return
	}
	for i := range list {
		summary, err := c.Condense(ctx, list[i])
		if err != nil {
			continue
		}
		list[i].CondensedSummary = summary
	}
}
