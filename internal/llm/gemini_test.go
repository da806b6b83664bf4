package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiSummarize(t *testing.T) {
	var captured geminiRequest
	var key string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		key = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"* Fixed"},{"text":" the bug\n"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("key123")
	g.BaseURL = srv.URL

	summary, err := g.Summarize(context.Background(), "* Fix bug [api#42](u)")
	require.NoError(t, err)

	assert.Equal(t, "* Fixed the bug", summary)
	assert.Equal(t, "key123", key)
	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 1)
	assert.Contains(t, captured.Contents[0].Parts[0].Text, "Summarize the commit messages")
	assert.Contains(t, captured.Contents[0].Parts[0].Text, "* Fix bug [api#42](u)")
}

func TestGeminiSummarize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGemini("key123")
	g.BaseURL = srv.URL

	_, err := g.Summarize(context.Background(), "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (status 429)")
}

func TestGeminiSummarize_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("key123")
	g.BaseURL = srv.URL

	_, err := g.Summarize(context.Background(), "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestSummaryPromptKeepsRules(t *testing.T) {
	prompt := summaryPrompt("CONTENT")
	assert.Contains(t, prompt, "Here are the PRs you need to summarize:")
	assert.Contains(t, prompt, "CONTENT")
	assert.Greater(t, len(prompt), len("CONTENT"))
}
