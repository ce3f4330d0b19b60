package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionscope/scanner/internal/resilience"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  string
		wantText string
		wantURLs []string
	}{
		{
			name:   "success_with_annotations",
			status: http.StatusOK,
			body: `{
				"id": "chatcmpl-1",
				"choices": [{"index": 0, "message": {
					"role": "assistant",
					"content": "Top picks include Acme.",
					"annotations": [
						{"type": "url_citation", "url_citation": {"url": "https://a.example", "title": "A"}},
						{"type": "url_citation", "url_citation": {"url": "https://a.example", "title": "A dup"}},
						{"type": "url_citation", "url_citation": {"url": "https://b.example", "title": "B"}}
					]
				}}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 8}
			}`,
			wantText: "Top picks include Acme.",
			wantURLs: []string{"https://a.example", "https://b.example"},
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": {"message": "boom"}}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL),
				WithRetryConfig(resilience.RetryConfig{MaxAttempts: 1}))

			resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages:         []Message{{Role: "user", Content: "Best plumber in Leeds?"}},
				WebSearchOptions: &WebSearchOptions{},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Text())
			assert.Equal(t, tt.wantURLs, resp.CitedURLs())
		})
	}
}

func TestChatCompletionRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL),
		WithRetryConfig(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}))

	resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatCompletionDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL),
		WithRetryConfig(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}))

	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "Hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatCompletionSendsSearchOptions(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages:         []Message{{Role: "user", Content: "Hi"}},
		WebSearchOptions: &WebSearchOptions{SearchContextSize: "low"},
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-search-preview", got["model"])
	opts, ok := got["web_search_options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "low", opts["search_context_size"])
}
