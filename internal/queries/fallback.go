package queries

import (
	"fmt"
	"strings"

	"github.com/mentionscope/scanner/internal/model"
)

// Fallback generates a deterministic template-based prompt set when the
// research calls produced zero usable suggestions. The scan must never fail
// for lack of questions.
func Fallback(analysis model.SiteAnalysis, count int) []Selected {
	if count <= 0 {
		count = DefaultPromptCount
	}

	what := strings.TrimSpace(analysis.BusinessType)
	if what == "" {
		what = strings.TrimSpace(analysis.Industry)
	}
	if what == "" {
		what = "business"
	}

	loc := strings.TrimSpace(analysis.Location)
	in := ""
	if loc != "" {
		in = " in " + loc
	}

	templates := []Selected{
		{Text: fmt.Sprintf("What is the best %s%s?", what, in), Category: "best_of"},
		{Text: fmt.Sprintf("Can you recommend a %s%s?", what, in), Category: "recommendation"},
		{Text: fmt.Sprintf("Who are the top rated %s providers%s?", what, in), Category: "best_of"},
		{Text: fmt.Sprintf("How do I choose a %s%s?", what, in), Category: "comparison"},
		{Text: fmt.Sprintf("What should a good %s%s cost?", what, in), Category: "pricing"},
		{Text: fmt.Sprintf("Which %s%s do customers trust most?", what, in), Category: "reputation"},
		{Text: fmt.Sprintf("Where can I find reviews of %s services%s?", what, in), Category: "reviews"},
	}

	// Service-specific templates take priority when the analyzer found them.
	var out []Selected
	for i, svc := range analysis.Services {
		if i == 2 {
			break
		}
		out = append(out, Selected{
			Text:     fmt.Sprintf("Who offers the best %s%s?", strings.ToLower(strings.TrimSpace(svc)), in),
			Category: "service",
		})
	}

	for _, t := range templates {
		if len(out) >= count {
			break
		}
		out = append(out, t)
	}
	if len(out) > count {
		out = out[:count]
	}
	return out
}
