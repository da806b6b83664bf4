package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/weekrep/weekrep/internal/report"
)

// Gemini talks to the Google Generative Language REST API.
type Gemini struct {
	APIKey     string
	Model      string
	BaseURL    string
	httpClient *http.Client
}

var _ report.Summarizer = (*Gemini)(nil)

func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		APIKey:     apiKey,
		Model:      "gemini-1.5-flash",
		BaseURL:    "https://generativelanguage.googleapis.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Summarize(ctx context.Context, content string) (string, error) {
	reqBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: summaryPrompt(content)}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.BaseURL, g.Model, url.QueryEscape(g.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
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

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	var parts []string
	for _, part := range result.Candidates[0].Content.Parts {
		parts = append(parts, part.Text)
	}
	summary := strings.TrimSpace(strings.Join(parts, ""))
	if summary == "" {
		return "", fmt.Errorf("empty completion")
	}

	return summary, nil
}
