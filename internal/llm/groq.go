package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weekrep/weekrep/internal/report"
)

// Groq talks to Groq's OpenAI-compatible chat completions endpoint.
type Groq struct {
	APIKey     string
	Model      string
	BaseURL    string
	httpClient *http.Client
}

var _ report.Summarizer = (*Groq)(nil)

func NewGroq(apiKey string) *Groq {
	return &Groq{
		APIKey:     apiKey,
		Model:      "gemma2-9b-it",
		BaseURL:    "https://api.groq.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatRequest struct {
	Model    string        `json:"model"`
	Messages []groqMessage `json:"messages"`
}

type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *Groq) Summarize(ctx context.Context, content string) (string, error) {
	reqBody, err := json.Marshal(groqChatRequest{
		Model: g.Model,
		Messages: []groqMessage{
			{Role: "user", Content: summaryPrompt(content)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/openai/v1/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result groqChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	summary := strings.TrimSpace(result.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("empty completion")
	}

	return summary, nil
}
