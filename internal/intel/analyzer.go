package intel

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/pkg/anthropic"
)

// maxCorpusChars bounds how much crawled text goes into one analysis call.
const maxCorpusChars = 24000

const analyzerSystemPrompt = `You extract structured business facts from website content.
Respond with a single JSON object and nothing else, using exactly these keys:
{"business_name": string, "business_type": string, "industry": string,
"services": [string], "products": [string], "target_audience": string,
"key_phrases": [string], "location": string}
Use "" or [] for anything the content does not establish. business_type is a
short generic descriptor like "plumber" or "accounting firm". location is the
city/region the business operates in, if stated. key_phrases are up to 8
phrases a customer might search for.`

// ContentAnalyzer turns crawled site text into a structured business profile.
type ContentAnalyzer struct {
	client anthropic.Client
	model  string
}

// NewContentAnalyzer creates an analyzer using the given haiku-class model.
func NewContentAnalyzer(client anthropic.Client, model string) *ContentAnalyzer {
	return &ContentAnalyzer{client: client, model: model}
}

// Analyze builds one corpus from the crawl and extracts the business profile.
func (a *ContentAnalyzer) Analyze(ctx context.Context, domain string, crawl *model.CrawlResult) (*model.BusinessProfile, error) {
	if crawl == nil || len(crawl.Pages) == 0 {
		return nil, eris.New("analyzer: no crawled pages to analyze")
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: defaultMaxTokens,
		// Static prompt, reused across every scan.
		System:   []anthropic.SystemBlock{{Text: analyzerSystemPrompt, CacheControl: &anthropic.CacheControl{TTL: "1h"}}},
		Messages: []anthropic.Message{{Role: "user", Content: buildAnalysisRequest(domain, crawl)}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: analyze content")
	}
	resp.Usage.LogCost(a.model, "analyze-content")

	var profile model.BusinessProfile
	if err := decodeJSON(resp.Text(), &profile); err != nil {
		return nil, eris.Wrap(err, "analyzer: parse profile")
	}
	if profile.BusinessName == "" {
		profile.BusinessName = domain
	}
	return &profile, nil
}

// buildAnalysisRequest assembles the user message: domain, pre-AI structured
// signals, then page content until the corpus budget runs out.
func buildAnalysisRequest(domain string, crawl *model.CrawlResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Domain: %s\n", domain)

	sig := crawl.Signals
	if len(sig.SchemaTypes) > 0 {
		fmt.Fprintf(&b, "Schema types: %s\n", strings.Join(sig.SchemaTypes, ", "))
	}
	if len(sig.Locations) > 0 {
		fmt.Fprintf(&b, "Structured-data locations: %s\n", strings.Join(sig.Locations, "; "))
	}
	if len(sig.ServiceNames) > 0 {
		fmt.Fprintf(&b, "Structured-data services: %s\n", strings.Join(sig.ServiceNames, "; "))
	}
	if len(sig.ProductNames) > 0 {
		fmt.Fprintf(&b, "Structured-data products: %s\n", strings.Join(sig.ProductNames, "; "))
	}

	b.WriteString("\nWebsite content:\n")
	for _, page := range crawl.Pages {
		if b.Len() >= maxCorpusChars {
			break
		}
		fmt.Fprintf(&b, "\n--- %s\n", page.URL)
		if page.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", page.Title)
		}
		if page.MetaDescription != "" {
			fmt.Fprintf(&b, "Description: %s\n", page.MetaDescription)
		}
		if page.H1 != "" {
			fmt.Fprintf(&b, "H1: %s\n", page.H1)
		}
		if len(page.Headings) > 0 {
			fmt.Fprintf(&b, "Headings: %s\n", strings.Join(page.Headings, " | "))
		}
		if page.BodyText != "" {
			remaining := maxCorpusChars - b.Len()
			if remaining <= 0 {
				break
			}
			body := page.BodyText
			if len(body) > remaining {
				body = body[:remaining]
			}
			b.WriteString(body)
			b.WriteString("\n")
		}
	}

	return b.String()
}
