// Package gemini is a minimal client for the Gemini generateContent API with
// Google Search grounding.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/resilience"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
)

// Client performs content generation against the Gemini API.
type Client interface {
	GenerateContent(ctx context.Context, req GenerateContentRequest) (*GenerateContentResponse, error)
}

// GenerateContentRequest is the request body for models/{model}:generateContent.
type GenerateContentRequest struct {
	Model             string            `json:"-"`
	Contents          []Content         `json:"contents"`
	Tools             []Tool            `json:"tools,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a turn in the conversation.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is a content fragment; we only use text.
type Part struct {
	Text string `json:"text"`
}

// Tool enables a built-in tool. An empty GoogleSearch struct turns on
// search grounding.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"google_search,omitempty"`
}

// GoogleSearch is the search grounding tool. No configuration fields.
type GoogleSearch struct{}

// GenerationConfig bounds the generation.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// GenerateContentResponse is the response body.
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GroundingMetadata carries the web sources a grounded answer used.
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// GroundingChunk is one grounding source.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// WebSource is a web page used for grounding.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// UsageMetadata reports token consumption.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

// Text concatenates the first candidate's text parts, or "".
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// GroundingURLs returns the distinct grounding source URLs of the first
// candidate, in order.
func (r *GenerateContentResponse) GroundingURLs() []string {
	if len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, chunk := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		out = append(out, chunk.Web.URI)
	}
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetryConfig overrides the retry behavior for transient failures.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a Gemini API client. Rate-limit and server errors are
// retried with backoff.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("gemini", "generate_content")
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		retry:   retry,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) GenerateContent(ctx context.Context, req GenerateContentRequest) (*GenerateContentResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: marshal request")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*GenerateContentResponse, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "gemini: create request")
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, eris.Wrap(err, "gemini: send request")
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "gemini: read response")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("gemini: unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		var result GenerateContentResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, eris.Wrap(err, "gemini: unmarshal response")
		}

		return &result, nil
	})
}
