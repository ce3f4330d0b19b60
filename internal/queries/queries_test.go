package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mentionscope/scanner/internal/model"
)

func sugg(text string, score float64) model.RawQuerySuggestion {
	return model.RawQuerySuggestion{Text: text, Category: "best_of", Score: score}
}

func TestRankDedupesAcrossPlatforms(t *testing.T) {
	raw := []model.RawQuerySuggestion{
		sugg("What is the best plumber in Leeds?", 0.5),
		sugg("what is the best plumber in leeds", 0.5), // same modulo case/punctuation
		sugg("How much does a boiler cost?", 0.9),
	}

	got := Rank(raw, 7)

	assert.Len(t, got, 2)
	// Duplicate suggestion gains a cross-platform boost (0.5 + 0.5 + 1 > 0.9)
	// and keeps the first-seen spelling.
	assert.Equal(t, "What is the best plumber in Leeds?", got[0].Text)
	assert.Equal(t, "How much does a boiler cost?", got[1].Text)
}

func TestRankCapsAndBreaksTiesFirstSeen(t *testing.T) {
	raw := []model.RawQuerySuggestion{
		sugg("q one", 0.5),
		sugg("q two", 0.5),
		sugg("q three", 0.5),
	}

	got := Rank(raw, 2)

	assert.Len(t, got, 2)
	assert.Equal(t, "q one", got[0].Text)
	assert.Equal(t, "q two", got[1].Text)
}

func TestRankSkipsBlankAndNormalizesWhitespace(t *testing.T) {
	raw := []model.RawQuerySuggestion{
		sugg("   ", 1),
		sugg("best   emergency   plumber", 0.5),
	}

	got := Rank(raw, 7)

	assert.Len(t, got, 1)
	assert.Equal(t, "best emergency plumber", got[0].Text)
}

func TestRankDefaultCount(t *testing.T) {
	var raw []model.RawQuerySuggestion
	for _, text := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		raw = append(raw, sugg(text, 0.5))
	}
	assert.Len(t, Rank(raw, 0), DefaultPromptCount)
}

func TestFallbackUsesServicesFirst(t *testing.T) {
	analysis := model.SiteAnalysis{
		BusinessType: "plumber",
		Location:     "Leeds",
		Services:     []string{"Boiler Repair", "Drain Cleaning", "Tiling"},
	}

	got := Fallback(analysis, 4)

	assert.Len(t, got, 4)
	assert.Equal(t, "Who offers the best boiler repair in Leeds?", got[0].Text)
	assert.Equal(t, "Who offers the best drain cleaning in Leeds?", got[1].Text)
	// At most two service templates, then the generic ones.
	assert.Equal(t, "What is the best plumber in Leeds?", got[2].Text)
}

func TestFallbackEmptyAnalysis(t *testing.T) {
	got := Fallback(model.SiteAnalysis{}, 0)

	assert.Len(t, got, DefaultPromptCount)
	assert.Equal(t, "What is the best business?", got[0].Text)
}

func TestFallbackIndustryWhenNoBusinessType(t *testing.T) {
	got := Fallback(model.SiteAnalysis{Industry: "home services"}, 1)
	assert.Equal(t, "What is the best home services?", got[0].Text)
}

func TestFallbackDeterministic(t *testing.T) {
	analysis := model.SiteAnalysis{BusinessType: "plumber", Location: "Leeds"}
	assert.Equal(t, Fallback(analysis, 7), Fallback(analysis, 7))
}
