package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponseText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "Hello "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "Hello world", resp.Text())
}

func TestEstimateCostKnownModel(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              1_000_000,
		OutputTokens:             500_000,
		CacheCreationInputTokens: 100_000,
		CacheReadInputTokens:     200_000,
	}

	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	// 0.80 in + 2.00 out + 0.10 cache write + 0.016 cache read
	assert.InDelta(t, 2.916, cost, 0.001)
}

func TestEstimateCostUnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000}
	assert.Zero(t, usage.EstimateCost("made-up-model"))
}

func TestToSDKMessagesRoles(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
	})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}

func TestToSDKSystemBlocksCacheControl(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{
		{Text: "plain"},
		{Text: "cached", CacheControl: &CacheControl{TTL: "1h"}},
	})
	assert.Len(t, blocks, 2)
	assert.Equal(t, "plain", blocks[0].Text)
	assert.Equal(t, "cached", blocks[1].Text)
	assert.Equal(t, "1h", string(blocks[1].CacheControl.TTL))
}
