package scoring

import (
	"fmt"
	"strings"

	"github.com/mentionscope/scanner/internal/model"
)

// BuildSummary renders a human-readable report summary from the scores and
// top competitors.
func BuildSummary(domain string, result VisibilityResult, competitors []model.CompetitorMention) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s scores %.0f/100 for AI assistant visibility.", domain, result.OverallScore)

	var best, worst *model.PlatformScore
	for i := range result.PlatformScores {
		ps := &result.PlatformScores[i]
		if ps.Attempted == 0 {
			continue
		}
		if best == nil || ps.Score > best.Score {
			best = ps
		}
		if worst == nil || ps.Score < worst.Score {
			worst = ps
		}
	}
	if best != nil {
		fmt.Fprintf(&b, " Strongest on %s (%.0f%%, %d of %d answers)",
			platformLabel(best.Platform), best.Score, best.Mentions, best.Attempted)
		if worst != nil && worst.Platform != best.Platform {
			fmt.Fprintf(&b, ", weakest on %s (%.0f%%)", platformLabel(worst.Platform), worst.Score)
		}
		b.WriteString(".")
	}

	if len(competitors) > 0 {
		names := make([]string, 0, 3)
		for i, c := range competitors {
			if i == 3 {
				break
			}
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, " Most-mentioned competitors: %s.", strings.Join(names, ", "))
	}

	return b.String()
}

func platformLabel(p model.Platform) string {
	switch p {
	case model.PlatformChatGPT:
		return "ChatGPT"
	case model.PlatformClaude:
		return "Claude"
	case model.PlatformPerplexity:
		return "Perplexity"
	case model.PlatformGemini:
		return "Gemini"
	}
	return string(p)
}
