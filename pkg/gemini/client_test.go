package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionscope/scanner/internal/resilience"
)

func TestGenerateContent(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  string
		wantText string
		wantURLs []string
	}{
		{
			name:   "success_grounded",
			status: http.StatusOK,
			body: `{
				"candidates": [{
					"content": {"role": "model", "parts": [{"text": "Acme leads "}, {"text": "the Leeds market."}]},
					"finishReason": "STOP",
					"groundingMetadata": {"groundingChunks": [
						{"web": {"uri": "https://a.example", "title": "A"}},
						{"web": {"uri": "https://a.example", "title": "A dup"}},
						{"web": {"uri": "https://b.example", "title": "B"}}
					]}
				}],
				"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 7}
			}`,
			wantText: "Acme leads the Leeds market.",
			wantURLs: []string{"https://a.example", "https://b.example"},
		},
		{
			name:    "quota_exceeded",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"status": "RESOURCE_EXHAUSTED"}}`,
			wantErr: "unexpected status 429",
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
				assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL),
				WithRetryConfig(resilience.RetryConfig{MaxAttempts: 1}))

			resp, err := client.GenerateContent(context.Background(), GenerateContentRequest{
				Contents: []Content{{Role: "user", Parts: []Part{{Text: "Best plumber in Leeds?"}}}},
				Tools:    []Tool{{GoogleSearch: &GoogleSearch{}}},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, resp.Text())
			assert.Equal(t, tt.wantURLs, resp.GroundingURLs())
		})
	}
}

func TestGenerateContentRetriesQuotaErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL),
		WithRetryConfig(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}))

	resp, err := client.GenerateContent(context.Background(), GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: "Hi"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateContentModelOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-pro:generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.GenerateContent(context.Background(), GenerateContentRequest{
		Model:    "gemini-2.5-pro",
		Contents: []Content{{Parts: []Part{{Text: "Hi"}}}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Text())
	assert.Nil(t, resp.GroundingURLs())
}
