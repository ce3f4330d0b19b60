package intel

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/pkg/anthropic"
)

// Generators holds the sonnet-class generator calls of the enrichment
// workflow: competitive summary, action plan, PRD.
type Generators struct {
	client anthropic.Client
	model  string
}

// NewGenerators creates the enrichment generators using the given
// sonnet-class model.
func NewGenerators(client anthropic.Client, model string) *Generators {
	return &Generators{client: client, model: model}
}

func (g *Generators) generate(ctx context.Context, phase, system, user string, out any) error {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: 4096,
		System:    []anthropic.SystemBlock{{Text: system}},
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return eris.Wrapf(err, "generators: %s", phase)
	}
	resp.Usage.LogCost(g.model, phase)

	if out == nil {
		return nil
	}
	if err := decodeJSON(resp.Text(), out); err != nil {
		return eris.Wrapf(err, "generators: %s", phase)
	}
	return nil
}

// --- competitive summary ---

const summarySystemPrompt = `You write a concise competitive positioning summary (3-5 sentences) from
AI-assistant comparison answers. Cover where the business is stronger, where
competitors lead, and one opportunity. Plain prose, no markdown, no JSON.`

// CompetitiveSummary synthesizes a strengths/weaknesses summary from the
// comparison probe results. Caller skips this when no comparisons exist.
func (g *Generators) CompetitiveSummary(ctx context.Context, businessName string, comparisons []model.BrandAwarenessResult) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s\n\nComparison answers:\n", businessName)
	for _, c := range comparisons {
		if c.Error != "" || c.ResponseText == "" {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] Q: %s\nA: %s\n", c.Platform, c.Query, c.ResponseText)
	}

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: 1024,
		System:    []anthropic.SystemBlock{{Text: summarySystemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: b.String()}},
	})
	if err != nil {
		return "", eris.Wrap(err, "generators: competitive summary")
	}
	resp.Usage.LogCost(g.model, "competitive-summary")

	return strings.TrimSpace(resp.Text()), nil
}

// --- action plan ---

const planSystemPrompt = `You produce a prioritized AI-visibility action plan for a business from its
scan evidence. Respond with a single JSON object and nothing else:
{"summary": string, "items": [{"title": string, "description": string,
"priority": number, "impact": "high"|"medium"|"low",
"effort": "high"|"medium"|"low"}]}
5 to 8 items, priority 1 is most urgent. Titles must be short imperative
phrases. Never suggest anything in the excluded-titles list; that work is
already done.`

// PlanInput is everything the action plan generator sees.
type PlanInput struct {
	Analysis           model.SiteAnalysis
	Pages              []model.CrawledPage
	Responses          []model.PlatformResponse
	Report             model.Report
	BrandAwareness     []model.BrandAwarenessResult
	CompetitiveSummary string
	ExcludeTitles      []string
}

// GeneratedPlan is the parsed generator output before persistence.
type GeneratedPlan struct {
	Summary string          `json:"summary"`
	Items   []GeneratedItem `json:"items"`
}

// GeneratedItem is one proposed action before the local de-dup filter runs.
type GeneratedItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Impact      string `json:"impact"`
	Effort      string `json:"effort"`
}

// ActionPlan generates the improvement plan. The exclusion list is the first
// line of de-dup defense; callers still apply the normalized-title filter to
// the result.
func (g *Generators) ActionPlan(ctx context.Context, in PlanInput) (*GeneratedPlan, error) {
	var plan GeneratedPlan
	if err := g.generate(ctx, "action-plan", planSystemPrompt, buildPlanRequest(in), &plan); err != nil {
		return nil, err
	}
	if len(plan.Items) == 0 {
		return nil, eris.New("generators: action plan has no items")
	}
	return &plan, nil
}

func buildPlanRequest(in PlanInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Business: %s (%s, %s)\n", in.Analysis.BusinessName, in.Analysis.BusinessType, in.Analysis.Location)
	fmt.Fprintf(&b, "Overall visibility score: %.1f/100\n", in.Report.OverallScore)
	for _, ps := range in.Report.PlatformScores {
		fmt.Fprintf(&b, "  %s: %.1f (%d/%d mentions)\n", ps.Platform, ps.Score, ps.Mentions, ps.Attempted)
	}

	if len(in.Report.TopCompetitors) > 0 {
		b.WriteString("Top competitors: ")
		for i, c := range in.Report.TopCompetitors {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%d)", c.Name, c.Count)
		}
		b.WriteString("\n")
	}

	known, unknown := 0, 0
	for _, ba := range in.BrandAwareness {
		if ba.QueryType != "direct" || ba.Error != "" {
			continue
		}
		if ba.BrandKnown {
			known++
		} else {
			unknown++
		}
	}
	fmt.Fprintf(&b, "Brand known on %d platforms, unknown on %d\n", known, unknown)

	if in.CompetitiveSummary != "" {
		fmt.Fprintf(&b, "\nCompetitive summary:\n%s\n", in.CompetitiveSummary)
	}

	misses := 0
	for _, r := range in.Responses {
		if !r.DomainMentioned && r.Error == "" {
			misses++
		}
	}
	fmt.Fprintf(&b, "\n%d of %d organic answers did not mention the business.\n", misses, len(in.Responses))

	fmt.Fprintf(&b, "\nSite has %d crawled pages", len(in.Pages))
	var withSchema int
	for _, p := range in.Pages {
		if len(p.StructuredData) > 0 {
			withSchema++
		}
	}
	fmt.Fprintf(&b, ", %d with structured data.\n", withSchema)

	if len(in.ExcludeTitles) > 0 {
		b.WriteString("\nExcluded titles (already completed, never re-suggest):\n")
		for _, t := range in.ExcludeTitles {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	return b.String()
}

// --- PRD ---

const prdSystemPrompt = `You turn an AI-visibility action plan into a technical PRD for developers.
Respond with a single JSON object and nothing else:
{"title": string, "overview": string, "tasks": [{"title": string,
"description": string, "acceptance": string}]}
Tasks must be concrete, implementation-oriented, and ordered. Never include
a task whose title is in the excluded-titles list.`

// PrdInput is everything the PRD generator sees.
type PrdInput struct {
	Analysis      model.SiteAnalysis
	Plan          model.ActionPlan
	Items         []model.ActionItem
	ExcludeTitles []string
}

// GeneratedPrd is the parsed generator output before persistence.
type GeneratedPrd struct {
	Title    string          `json:"title"`
	Overview string          `json:"overview"`
	Tasks    []GeneratedTask `json:"tasks"`
}

// GeneratedTask is one proposed PRD task before the de-dup filter runs.
type GeneratedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Acceptance  string `json:"acceptance"`
}

// Prd generates the developer task document from an existing action plan.
func (g *Generators) Prd(ctx context.Context, in PrdInput) (*GeneratedPrd, error) {
	var prd GeneratedPrd
	if err := g.generate(ctx, "prd", prdSystemPrompt, buildPrdRequest(in), &prd); err != nil {
		return nil, err
	}
	if len(prd.Tasks) == 0 {
		return nil, eris.New("generators: prd has no tasks")
	}
	return &prd, nil
}

func buildPrdRequest(in PrdInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business: %s (%s)\n", in.Analysis.BusinessName, in.Analysis.BusinessType)
	fmt.Fprintf(&b, "\nAction plan summary:\n%s\n\nAction items:\n", in.Plan.Summary)
	for _, item := range in.Items {
		fmt.Fprintf(&b, "%d. %s — %s (impact %s, effort %s)\n", item.Priority, item.Title, item.Description, item.Impact, item.Effort)
	}
	if len(in.ExcludeTitles) > 0 {
		b.WriteString("\nExcluded titles (already completed, never re-suggest):\n")
		for _, t := range in.ExcludeTitles {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	return b.String()
}
