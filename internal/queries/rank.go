// Package queries turns raw researcher suggestions into the final prompt set
// for a scan: dedup, rank, cap, and a deterministic template fallback when
// research yields nothing usable.
package queries

import (
	"sort"
	"strings"

	"github.com/mentionscope/scanner/internal/model"
)

// DefaultPromptCount is how many prompts a scan asks per platform.
const DefaultPromptCount = 7

// Selected is one chosen question ready to persist as a ScanPrompt.
type Selected struct {
	Text     string
	Category string
}

// Rank dedupes raw suggestions across platforms (case/whitespace-insensitive)
// and returns the top count by score, ties broken by first-seen order so the
// output is deterministic for a given input order.
func Rank(raw []model.RawQuerySuggestion, count int) []Selected {
	if count <= 0 {
		count = DefaultPromptCount
	}

	type entry struct {
		sel   Selected
		score float64
		order int
	}

	byKey := make(map[string]*entry)
	next := 0
	for _, s := range raw {
		text := strings.Join(strings.Fields(s.Text), " ")
		if text == "" {
			continue
		}
		key := strings.ToLower(strings.TrimRight(text, "?.! "))
		e, ok := byKey[key]
		if !ok {
			byKey[key] = &entry{
				sel:   Selected{Text: text, Category: s.Category},
				score: s.Score,
				order: next,
			}
			next++
			continue
		}
		// A question suggested by multiple platforms is a stronger signal.
		e.score += s.Score + 1
	}

	entries := make([]*entry, 0, len(byKey))
	for _, e := range byKey {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	if len(entries) > count {
		entries = entries[:count]
	}

	out := make([]Selected, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.sel)
	}
	return out
}
