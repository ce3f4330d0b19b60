package scoring

import (
	"math"
	"sort"

	"github.com/mentionscope/scanner/internal/model"
)

// Weights maps a platform to its estimated real-world usage share. Values
// are renormalized over the platforms that actually attempted queries, so a
// platform with no data never drags the overall score down.
type Weights map[model.Platform]float64

// DefaultWeights returns the built-in reach weighting. Coefficients are a
// business parameter and overridable via config.
func DefaultWeights() Weights {
	return Weights{
		model.PlatformChatGPT:    0.60,
		model.PlatformClaude:     0.10,
		model.PlatformPerplexity: 0.15,
		model.PlatformGemini:     0.15,
	}
}

// WeightsFromConfig builds Weights from a string-keyed config map, falling
// back to defaults for platforms the map omits.
func WeightsFromConfig(raw map[string]float64) Weights {
	w := DefaultWeights()
	for name, v := range raw {
		p := model.Platform(name)
		if p.Valid() && v >= 0 {
			w[p] = v
		}
	}
	return w
}

// VisibilityResult is the scorer's output.
type VisibilityResult struct {
	OverallScore   float64
	PlatformScores []model.PlatformScore
}

// ScoreVisibility converts raw platform responses into a 0-100 overall score
// and per-platform scores. Error-flagged responses count as attempted
// non-mentions; a platform absent from the input is reported with
// Attempted=0 and score 0 so the presentation layer can show "no data".
// Deterministic: same input always yields the same output.
func ScoreVisibility(responses []model.PlatformResponse, weights Weights) VisibilityResult {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	type tally struct {
		attempted int
		mentions  int
	}
	tallies := make(map[model.Platform]*tally)
	for _, p := range model.AllPlatforms() {
		tallies[p] = &tally{}
	}

	for _, r := range responses {
		t, ok := tallies[r.Platform]
		if !ok {
			continue
		}
		t.attempted++
		if r.DomainMentioned && r.Error == "" {
			t.mentions++
		}
	}

	var (
		scores      []model.PlatformScore
		weightedSum float64
		weightTotal float64
	)
	for _, p := range model.AllPlatforms() {
		t := tallies[p]
		ps := model.PlatformScore{Platform: p, Mentions: t.mentions, Attempted: t.attempted}
		if t.attempted > 0 {
			ps.Score = round2(float64(t.mentions) / float64(t.attempted) * 100)
			weightedSum += weights[p] * ps.Score
			weightTotal += weights[p]
		}
		scores = append(scores, ps)
	}

	overall := 0.0
	if weightTotal > 0 {
		overall = round2(weightedSum / weightTotal)
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	return VisibilityResult{OverallScore: overall, PlatformScores: scores}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
