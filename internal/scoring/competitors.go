package scoring

import (
	"sort"
	"strings"

	"github.com/mentionscope/scanner/internal/model"
)

// RankCompetitors aggregates competitor mentions across all responses into a
// frequency-ranked, deduplicated list. Names are compared case- and
// whitespace-insensitively; the first-seen spelling wins and ties rank in
// first-seen order.
func RankCompetitors(responses []model.PlatformResponse, topN int) []model.CompetitorMention {
	type entry struct {
		display string
		count   int
		order   int
	}

	byKey := make(map[string]*entry)
	next := 0
	for _, r := range responses {
		for _, name := range r.CompetitorsMentioned {
			display := strings.Join(strings.Fields(name), " ")
			if display == "" {
				continue
			}
			key := strings.ToLower(display)
			e, ok := byKey[key]
			if !ok {
				e = &entry{display: display, order: next}
				next++
				byKey[key] = e
			}
			e.count++
		}
	}

	entries := make([]*entry, 0, len(byKey))
	for _, e := range byKey {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].order < entries[j].order
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	out := make([]model.CompetitorMention, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.CompetitorMention{Name: e.display, Count: e.count})
	}
	return out
}
