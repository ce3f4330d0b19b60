package intel

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/pkg/anthropic"
)

const querySystemPrompt = `Answer as you would for any user asking this question. Recommend specific
businesses when relevant. Do not mention that this is a test.`

const extractSystemPrompt = `You extract business names from text. Respond with a JSON array of the
distinct business or brand names mentioned in the text, and nothing else.
Exclude generic terms, product categories, and the business named in the
instruction.`

// Querier asks AI platforms customer-style questions with web search enabled
// and judges whether the target business was organically mentioned.
type Querier struct {
	ai Clients
}

// NewQuerier creates a platform querier.
func NewQuerier(ai Clients) *Querier {
	return &Querier{ai: ai}
}

// Query asks one platform one question. It never returns an error: a failed
// call produces an error-flagged response so the caller can persist it and
// downstream scoring treats it as a non-mention.
func (q *Querier) Query(ctx context.Context, platform model.Platform, question, domain, businessName, location string) *model.PlatformResponse {
	user := question
	if location != "" {
		user = fmt.Sprintf("%s (I'm in %s.)", question, location)
	}

	start := time.Now()
	text, sources, err := askPlatform(ctx, q.ai, platform, querySystemPrompt, user, true)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		zap.L().Warn("querier: platform call failed",
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
		return &model.PlatformResponse{
			Platform:       platform,
			ResponseTimeMs: elapsed,
			Error:          err.Error(),
		}
	}

	mentioned, position := DetectMention(text, sources, domain, businessName)

	resp := &model.PlatformResponse{
		Platform:        platform,
		ResponseText:    text,
		DomainMentioned: mentioned,
		MentionPosition: position,
		Sources:         sources,
		ResponseTimeMs:  elapsed,
	}

	// Competitor extraction is supplementary; a failure costs us competitor
	// data for this response, nothing else.
	competitors, err := q.extractCompetitors(ctx, text, businessName, domain)
	if err != nil {
		zap.L().Debug("querier: competitor extraction failed",
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
	}
	resp.CompetitorsMentioned = competitors

	return resp
}

func (q *Querier) extractCompetitors(ctx context.Context, text, businessName, domain string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := q.ai.Anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     q.ai.AnthropicModel,
		MaxTokens: 512,
		System:    []anthropic.SystemBlock{{Text: extractSystemPrompt}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("The business being measured is %q (%s). Text:\n\n%s", businessName, domain, text),
		}},
	})
	if err != nil {
		return nil, err
	}

	var names []string
	if err := decodeJSON(resp.Text(), &names); err != nil {
		return nil, err
	}

	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || isTargetBusiness(name, businessName, domain) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

var listItemRe = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*•])\s+`)

// DetectMention reports whether the response organically references the
// target business, and where. Position is the 1-based ordinal of the list
// item containing the first mention, or 1 for a prose-only mention, or 0
// when not mentioned.
func DetectMention(text string, sources []string, domain, businessName string) (bool, int) {
	needles := mentionNeedles(domain, businessName)
	if len(needles) == 0 {
		return false, 0
	}

	lower := strings.ToLower(text)
	inText := containsAny(lower, needles)

	inSources := false
	host := bareHost(domain)
	for _, src := range sources {
		if host != "" && strings.Contains(strings.ToLower(src), host) {
			inSources = true
			break
		}
	}

	if !inText && !inSources {
		return false, 0
	}
	if !inText {
		// Cited but never named: counts as a mention at no particular rank.
		return true, 1
	}

	// Walk the list items; the mention's ordinal is its rank.
	items := listItemRe.Split(text, -1)
	if len(items) > 1 {
		for i, item := range items[1:] {
			if containsAny(strings.ToLower(item), needles) {
				return true, i + 1
			}
		}
	}
	return true, 1
}

func mentionNeedles(domain, businessName string) []string {
	var needles []string
	if host := bareHost(domain); host != "" {
		needles = append(needles, host)
	}
	name := strings.ToLower(strings.TrimSpace(businessName))
	// Very short names false-positive on ordinary words.
	if len(name) > 2 {
		needles = append(needles, name)
	}
	return needles
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// bareHost reduces a domain to its comparable form: no scheme, no www, no
// path, lowercased.
func bareHost(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if idx := strings.IndexByte(d, '/'); idx >= 0 {
		d = d[:idx]
	}
	return d
}

func isTargetBusiness(name, businessName, domain string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == strings.ToLower(strings.TrimSpace(businessName)) {
		return true
	}
	host := bareHost(domain)
	return host != "" && (n == host || strings.Contains(n, host))
}
