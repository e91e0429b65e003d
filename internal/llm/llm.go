// Package llm drafts question papers with an OpenAI-compatible model. A
// draft only prefills the admin's ingest form; it is validated and saved
// through the same path as hand-written JSON.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable before the server starts.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// DraftPaper asks the model for a paper skeleton on the given subject. It
// returns the raw JSON text for the admin to review and edit; nothing is
// stored here.
func (c *Client) DraftPaper(ctx context.Context, subject string, numQuestions int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildDraftSystemPrompt(subject, numQuestions)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Write the %s paper now.", subject)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM draft", "subject", subject, "raw", raw)

	// Reject replies that are not even JSON; everything else is left for
	// the admin and the ingest validation to judge.
	if !json.Valid([]byte(raw)) {
		return "", fmt.Errorf("LLM draft is not valid JSON")
	}

	return raw, nil
}

func buildDraftSystemPrompt(subject string, numQuestions int) string {
	var sb strings.Builder
	sb.WriteString("You are an exam author writing multiple-choice question papers.\n\n")
	sb.WriteString("SUBJECT: " + subject + "\n")
	sb.WriteString(fmt.Sprintf("NUMBER OF QUESTIONS: %d\n\n", numQuestions))

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Each question has exactly 4 options and exactly one correct option.\n")
	sb.WriteString("- \"answer\" is the 0-based index of the correct option.\n")
	sb.WriteString("- Include a short explanation for every question.\n")
	sb.WriteString("- Use the subject as the paper title.\n")
	sb.WriteString("\nRespond ONLY with a JSON object in this shape:\n")
	sb.WriteString(`{"title": "<subject>", "questions": [{"question": "<text>", "options": ["<a>", "<b>", "<c>", "<d>"], "answer": <0-3>, "explanation": "<why>"}]}`)
	sb.WriteString("\n")

	return sb.String()
}
