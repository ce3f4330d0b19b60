package intel

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/model"
)

const researchSystemPrompt = `You suggest realistic questions a potential customer would ask an AI
assistant when looking for a business like the one described, WITHOUT knowing
the business exists. Questions must be generic ("best X in Y", "how do I
choose...", "what should X cost"), never naming the business itself.
Respond with a JSON array and nothing else:
[{"question": string, "category": string}]
Categories: best_of, recommendation, comparison, pricing, reputation, reviews, service.`

// Researcher proposes candidate customer-style questions, one call per
// platform so each assistant contributes its own idea of what users ask it.
type Researcher struct {
	ai    Clients
	count int
}

// NewResearcher creates a researcher that requests count suggestions per
// platform call.
func NewResearcher(ai Clients, count int) *Researcher {
	if count <= 0 {
		count = 7
	}
	return &Researcher{ai: ai, count: count}
}

// Research asks one platform for question suggestions. Central dedup and
// ranking happen elsewhere; every suggestion starts with the same base score.
func (r *Researcher) Research(ctx context.Context, platform model.Platform, profile model.SiteAnalysis) ([]model.RawQuerySuggestion, error) {
	text, _, err := askPlatform(ctx, r.ai, platform, researchSystemPrompt, buildResearchRequest(profile, r.count), false)
	if err != nil {
		return nil, eris.Wrapf(err, "researcher: %s", platform)
	}

	var wire []struct {
		Question string `json:"question"`
		Category string `json:"category"`
	}
	if err := decodeJSON(text, &wire); err != nil {
		return nil, eris.Wrapf(err, "researcher: %s", platform)
	}

	var out []model.RawQuerySuggestion
	for _, w := range wire {
		q := strings.TrimSpace(w.Question)
		if q == "" {
			continue
		}
		out = append(out, model.RawQuerySuggestion{
			Text:     q,
			Category: w.Category,
			Platform: platform,
			Score:    1,
		})
	}
	return out, nil
}

func buildResearchRequest(profile model.SiteAnalysis, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d questions for this business:\n", count)
	fmt.Fprintf(&b, "Type: %s\n", profile.BusinessType)
	if profile.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", profile.Industry)
	}
	if len(profile.Services) > 0 {
		fmt.Fprintf(&b, "Services: %s\n", strings.Join(profile.Services, ", "))
	}
	if len(profile.Products) > 0 {
		fmt.Fprintf(&b, "Products: %s\n", strings.Join(profile.Products, ", "))
	}
	if profile.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", profile.Location)
	}
	if profile.TargetAudience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", profile.TargetAudience)
	}
	if len(profile.KeyPhrases) > 0 {
		fmt.Fprintf(&b, "Key phrases: %s\n", strings.Join(profile.KeyPhrases, ", "))
	}
	return b.String()
}
