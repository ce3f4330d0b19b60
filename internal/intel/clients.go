// Package intel wraps every AI call the pipeline makes: content analysis,
// query research, platform visibility probing, brand awareness, and the
// enrichment generators. Parsing of model output is kept in pure functions
// so the contracts are testable without network access.
package intel

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/pkg/anthropic"
	"github.com/mentionscope/scanner/pkg/gemini"
	"github.com/mentionscope/scanner/pkg/openai"
	"github.com/mentionscope/scanner/pkg/perplexity"
)

// Clients bundles the per-platform API clients. AnthropicModel is the
// haiku-class model used for platform queries and extraction; the heavier
// generators take their model explicitly.
type Clients struct {
	Anthropic      anthropic.Client
	AnthropicModel string
	OpenAI         openai.Client
	Perplexity     perplexity.Client
	Gemini         gemini.Client
}

const defaultMaxTokens = 2048

// askPlatform sends one question to one platform and returns the answer text
// plus any web sources the platform grounded on. withSearch only affects
// platforms where search is optional; Perplexity always searches.
func askPlatform(ctx context.Context, ai Clients, platform model.Platform, system, user string, withSearch bool) (string, []string, error) {
	switch platform {
	case model.PlatformChatGPT:
		req := openai.ChatCompletionRequest{
			Messages: buildChatMessages(system, user),
		}
		if withSearch {
			req.WebSearchOptions = &openai.WebSearchOptions{}
		}
		resp, err := ai.OpenAI.ChatCompletion(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return resp.Text(), resp.CitedURLs(), nil

	case model.PlatformClaude:
		req := anthropic.MessageRequest{
			Model:     ai.AnthropicModel,
			MaxTokens: defaultMaxTokens,
			Messages:  []anthropic.Message{{Role: "user", Content: user}},
			WebSearch: withSearch,
		}
		if system != "" {
			req.System = []anthropic.SystemBlock{{Text: system}}
		}
		resp, err := ai.Anthropic.CreateMessage(ctx, req)
		if err != nil {
			return "", nil, err
		}
		var sources []string
		for _, c := range resp.Citations {
			sources = append(sources, c.URL)
		}
		return resp.Text(), sources, nil

	case model.PlatformPerplexity:
		resp, err := ai.Perplexity.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: buildPerplexityMessages(system, user),
		})
		if err != nil {
			return "", nil, err
		}
		return resp.Text(), resp.Citations, nil

	case model.PlatformGemini:
		req := gemini.GenerateContentRequest{
			Contents: []gemini.Content{{Role: "user", Parts: []gemini.Part{{Text: user}}}},
		}
		if system != "" {
			req.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: system}}}
		}
		if withSearch {
			req.Tools = []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}}
		}
		resp, err := ai.Gemini.GenerateContent(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return resp.Text(), resp.GroundingURLs(), nil
	}

	return "", nil, eris.Errorf("intel: unknown platform %q", platform)
}

func buildChatMessages(system, user string) []openai.Message {
	var msgs []openai.Message
	if system != "" {
		msgs = append(msgs, openai.Message{Role: "system", Content: system})
	}
	return append(msgs, openai.Message{Role: "user", Content: user})
}

func buildPerplexityMessages(system, user string) []perplexity.Message {
	var msgs []perplexity.Message
	if system != "" {
		msgs = append(msgs, perplexity.Message{Role: "system", Content: system})
	}
	return append(msgs, perplexity.Message{Role: "user", Content: user})
}

// decodeJSON extracts the first JSON object or array from model output and
// unmarshals it. Models wrap JSON in prose and code fences often enough that
// a bare Unmarshal is not good enough.
func decodeJSON(raw string, out any) error {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return eris.Errorf("intel: no JSON found in model output (%d chars)", len(raw))
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return eris.Wrap(err, "intel: unmarshal model output")
	}
	return nil
}

func extractJSONPayload(raw string) string {
	raw = strings.TrimSpace(raw)

	// Prefer a fenced block when present.
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			raw = strings.TrimSpace(rest[:end])
		}
	}

	objStart := strings.IndexAny(raw, "{[")
	if objStart < 0 {
		return ""
	}

	var closer byte = '}'
	if raw[objStart] == '[' {
		closer = ']'
	}
	objEnd := strings.LastIndexByte(raw, closer)
	if objEnd <= objStart {
		return ""
	}
	return raw[objStart : objEnd+1]
}
