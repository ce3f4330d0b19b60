package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mentionscope/scanner/internal/model"
)

func withCompetitors(names ...string) model.PlatformResponse {
	return model.PlatformResponse{CompetitorsMentioned: names}
}

func TestRankCompetitors(t *testing.T) {
	responses := []model.PlatformResponse{
		withCompetitors("Bob's Plumbing", "City Pipes"),
		withCompetitors("bob's  plumbing", "Drain Masters"),
		withCompetitors("City Pipes", "bob's plumbing"),
	}

	got := RankCompetitors(responses, 10)

	assert.Equal(t, []model.CompetitorMention{
		{Name: "Bob's Plumbing", Count: 3}, // first-seen spelling wins
		{Name: "City Pipes", Count: 2},
		{Name: "Drain Masters", Count: 1},
	}, got)
}

func TestRankCompetitorsTieBreaksFirstSeen(t *testing.T) {
	responses := []model.PlatformResponse{
		withCompetitors("Zeta Co", "Alpha Co"),
	}

	got := RankCompetitors(responses, 10)
	assert.Equal(t, "Zeta Co", got[0].Name)
	assert.Equal(t, "Alpha Co", got[1].Name)
}

func TestRankCompetitorsTopN(t *testing.T) {
	responses := []model.PlatformResponse{
		withCompetitors("A", "A", "B", "C", "D"),
	}

	got := RankCompetitors(responses, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, 2, got[0].Count)
}

func TestRankCompetitorsSkipsEmptyNames(t *testing.T) {
	got := RankCompetitors([]model.PlatformResponse{withCompetitors("  ", "Real Co")}, 10)
	assert.Equal(t, []model.CompetitorMention{{Name: "Real Co", Count: 1}}, got)
}

func TestBuildSummary(t *testing.T) {
	result := ScoreVisibility([]model.PlatformResponse{
		resp(model.PlatformChatGPT, true, ""),
		resp(model.PlatformChatGPT, true, ""),
		resp(model.PlatformGemini, false, ""),
	}, nil)

	summary := BuildSummary("acme.example", result, []model.CompetitorMention{
		{Name: "Bob's Plumbing", Count: 3},
		{Name: "City Pipes", Count: 1},
	})

	assert.Contains(t, summary, "acme.example scores")
	assert.Contains(t, summary, "Strongest on ChatGPT (100%, 2 of 2 answers)")
	assert.Contains(t, summary, "weakest on Gemini (0%)")
	assert.Contains(t, summary, "Most-mentioned competitors: Bob's Plumbing, City Pipes.")
}

func TestBuildSummaryNoData(t *testing.T) {
	summary := BuildSummary("acme.example", ScoreVisibility(nil, nil), nil)
	assert.Equal(t, "acme.example scores 0/100 for AI assistant visibility.", summary)
}
