package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mentionscope/scanner/internal/model"
)

func resp(p model.Platform, mentioned bool, errMsg string) model.PlatformResponse {
	return model.PlatformResponse{Platform: p, DomainMentioned: mentioned, Error: errMsg}
}

func TestScoreVisibility(t *testing.T) {
	responses := []model.PlatformResponse{
		resp(model.PlatformChatGPT, true, ""),
		resp(model.PlatformChatGPT, false, ""),
		resp(model.PlatformClaude, true, ""),
		resp(model.PlatformClaude, true, ""),
		resp(model.PlatformPerplexity, false, ""),
	}

	got := ScoreVisibility(responses, nil)

	byPlatform := make(map[model.Platform]model.PlatformScore)
	for _, ps := range got.PlatformScores {
		byPlatform[ps.Platform] = ps
	}

	assert.Equal(t, 50.0, byPlatform[model.PlatformChatGPT].Score)
	assert.Equal(t, 100.0, byPlatform[model.PlatformClaude].Score)
	assert.Equal(t, 0.0, byPlatform[model.PlatformPerplexity].Score)

	// Gemini never attempted: reported, but excluded from the weighting.
	gem := byPlatform[model.PlatformGemini]
	assert.Equal(t, 0, gem.Attempted)
	assert.Equal(t, 0.0, gem.Score)

	// Weights renormalized over chatgpt(0.60) + claude(0.10) + perplexity(0.15):
	// (0.60*50 + 0.10*100 + 0.15*0) / 0.85 = 47.06.
	assert.InDelta(t, 47.06, got.OverallScore, 0.01)
}

func TestScoreVisibilityErrorCountsAsAttemptedNonMention(t *testing.T) {
	responses := []model.PlatformResponse{
		resp(model.PlatformChatGPT, true, ""),
		resp(model.PlatformChatGPT, true, "rate limited"),
	}

	got := ScoreVisibility(responses, nil)

	assert.Equal(t, model.PlatformChatGPT, got.PlatformScores[0].Platform)
	assert.Equal(t, 2, got.PlatformScores[0].Attempted)
	assert.Equal(t, 1, got.PlatformScores[0].Mentions)
	assert.Equal(t, 50.0, got.PlatformScores[0].Score)
}

func TestScoreVisibilityNoResponses(t *testing.T) {
	got := ScoreVisibility(nil, nil)
	assert.Equal(t, 0.0, got.OverallScore)
	assert.Len(t, got.PlatformScores, len(model.AllPlatforms()))
}

func TestScoreVisibilityDeterministic(t *testing.T) {
	responses := []model.PlatformResponse{
		resp(model.PlatformGemini, true, ""),
		resp(model.PlatformChatGPT, false, ""),
		resp(model.PlatformPerplexity, true, ""),
	}
	first := ScoreVisibility(responses, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ScoreVisibility(responses, nil))
	}
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(map[string]float64{
		"chatgpt": 0.4,
		"bogus":   0.9,
		"gemini":  -1, // negative ignored
	})
	assert.Equal(t, 0.4, w[model.PlatformChatGPT])
	assert.Equal(t, DefaultWeights()[model.PlatformGemini], w[model.PlatformGemini])
	assert.NotContains(t, w, model.Platform("bogus"))
}
