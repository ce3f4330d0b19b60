package intel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mentionscope/scanner/internal/model"
)

// maxComparisonProbes caps how many competitor-comparison probes a run asks
// per platform.
const maxComparisonProbes = 3

// Probe is one brand-awareness question before it is asked.
type Probe struct {
	Query     string
	QueryType string // "direct" or "comparison"
}

// BuildProbes produces the probe set for a business: one direct probe plus a
// comparison probe per known competitor, capped. Deterministic for a given
// input.
func BuildProbes(businessName, domain string, competitors []model.CompetitorMention) []Probe {
	probes := []Probe{{
		Query:     fmt.Sprintf("What do you know about %s (%s)?", businessName, domain),
		QueryType: "direct",
	}}

	for i, c := range competitors {
		if i == maxComparisonProbes {
			break
		}
		probes = append(probes, Probe{
			Query:     fmt.Sprintf("How does %s compare to %s?", businessName, c.Name),
			QueryType: "comparison",
		})
	}
	return probes
}

// BrandProber asks platforms directly about the business, as opposed to the
// organic customer-style questions of the main scan.
type BrandProber struct {
	ai Clients
}

// NewBrandProber creates a brand-awareness prober.
func NewBrandProber(ai Clients) *BrandProber {
	return &BrandProber{ai: ai}
}

// Ask runs one probe against one platform. Like the organic querier, it
// never returns an error; failures become error-flagged results.
func (p *BrandProber) Ask(ctx context.Context, platform model.Platform, probe Probe, businessName, domain string) model.BrandAwarenessResult {
	start := time.Now()
	text, _, err := askPlatform(ctx, p.ai, platform, "", probe.Query, true)
	elapsed := time.Since(start).Milliseconds()

	result := model.BrandAwarenessResult{
		Platform:       platform,
		Query:          probe.Query,
		QueryType:      probe.QueryType,
		ResponseTimeMs: elapsed,
	}

	if err != nil {
		zap.L().Warn("brand: probe failed",
			zap.String("platform", string(platform)),
			zap.String("query_type", probe.QueryType),
			zap.Error(err),
		)
		result.Error = err.Error()
		return result
	}

	result.ResponseText = text
	result.BrandKnown = KnowsBrand(text, businessName, domain)
	return result
}

// Phrases that signal the model has nothing on the brand even though it
// echoes the name back.
var ignorancePhrases = []string{
	"i don't have any information",
	"i don't have information",
	"i'm not aware of",
	"i am not aware of",
	"i couldn't find",
	"could not find any information",
	"no information available",
	"not familiar with",
	"i don't have specific",
	"unable to find",
}

// KnowsBrand judges whether a probe response shows real knowledge of the
// business: the name or domain appears, and the response isn't a polite
// admission of ignorance.
func KnowsBrand(text, businessName, domain string) bool {
	lower := strings.ToLower(text)
	if !containsAny(lower, mentionNeedles(domain, businessName)) {
		return false
	}
	for _, phrase := range ignorancePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
