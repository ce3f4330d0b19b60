package workflow

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mentionscope/scanner/internal/intel"
	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/internal/resilience"
	"github.com/mentionscope/scanner/internal/titles"
)

// EnrichContext is everything the enrichment workflow needs up front.
type EnrichContext struct {
	Run          model.ScanRun      `json:"run"`
	Flags        model.FeatureFlags `json:"flags"`
	Domain       string             `json:"domain"`
	BusinessName string             `json:"business_name"`
	Probes       []intel.Probe      `json:"probes"`
}

// SetupEnrichment loads the run, verifies the lead's tier still unlocks
// enrichment, and waits for the site analysis, which may lag when enrichment
// is started independently of a scan.
func (a *Activities) SetupEnrichment(ctx context.Context, in EnrichInput) (*EnrichContext, error) {
	run, err := a.Store.GetScanRun(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	lead, err := a.Store.GetLead(ctx, run.LeadID)
	if err != nil {
		return nil, err
	}
	flags := model.FlagsForTier(lead.Tier)
	if !flags.Enrichment {
		return nil, eris.Errorf("enrichment: tier %s does not include it", lead.Tier)
	}

	// Domain priority: subscription, then the run's own record, then the
	// lead's legacy single domain.
	domain := run.Domain
	if run.DomainSubscriptionID != "" {
		sub, err := a.Store.GetDomainSubscription(ctx, run.DomainSubscriptionID)
		if err != nil {
			return nil, err
		}
		domain = sub.Domain
	}
	if domain == "" {
		domain = lead.Domain
	}
	if domain == "" {
		return nil, eris.Errorf("enrichment: no domain for run %s", in.RunID)
	}

	attempts := in.Config.AnalysisWaitAttempts
	delay := time.Duration(in.Config.AnalysisWaitDelayMs) * time.Millisecond
	analysis, err := resilience.WaitFor(ctx, attempts, delay, "site analysis",
		func(ctx context.Context) (*model.SiteAnalysis, error) {
			return a.Store.GetSiteAnalysis(ctx, in.RunID)
		})
	if err != nil {
		return nil, err
	}

	businessName := analysis.BusinessName
	if businessName == "" {
		businessName = domain
	}

	var competitors []model.CompetitorMention
	report, err := a.Store.GetReportByRun(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	if report != nil {
		competitors = report.TopCompetitors
	}

	return &EnrichContext{
		Run:          *run,
		Flags:        flags,
		Domain:       domain,
		BusinessName: businessName,
		Probes:       intel.BuildProbes(businessName, domain, competitors),
	}, nil
}

// ProbeInput runs the brand-awareness probe set against one platform.
type ProbeInput struct {
	RunID        string         `json:"run_id"`
	Platform     model.Platform `json:"platform"`
	Probes       []intel.Probe  `json:"probes"`
	BusinessName string         `json:"business_name"`
	Domain       string         `json:"domain"`
}

// ProbePlatform asks every probe on one platform. Like the organic fan-out,
// per-probe failures become error-flagged results, never activity errors.
func (a *Activities) ProbePlatform(ctx context.Context, in ProbeInput) ([]model.BrandAwarenessResult, error) {
	results := make([]model.BrandAwarenessResult, 0, len(in.Probes))
	for _, probe := range in.Probes {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "probe: rate limit wait")
		}
		r := a.Prober.Ask(ctx, in.Platform, probe, in.BusinessName, in.Domain)
		r.ScanRunID = in.RunID
		results = append(results, r)
	}
	return results, nil
}

func (a *Activities) SaveBrandAwareness(ctx context.Context, runID string, results []model.BrandAwarenessResult) error {
	return a.Store.ReplaceBrandAwareness(ctx, runID, results)
}

// BuildCompetitiveSummary writes a prose comparison onto the report. Returns
// false when there was nothing to compare, which is a skip, not a failure.
func (a *Activities) BuildCompetitiveSummary(ctx context.Context, runID, businessName string) (bool, error) {
	results, err := a.Store.ListBrandAwareness(ctx, runID)
	if err != nil {
		return false, err
	}

	var comparisons []model.BrandAwarenessResult
	for _, r := range results {
		if r.QueryType == "comparison" && r.Error == "" && r.ResponseText != "" {
			comparisons = append(comparisons, r)
		}
	}
	if len(comparisons) == 0 {
		zap.L().Info("no comparison material, skipping competitive summary",
			zap.String("run_id", runID))
		return false, nil
	}

	summary, err := a.Generators.CompetitiveSummary(ctx, businessName, comparisons)
	if err != nil {
		return false, err
	}
	if err := a.Store.SetCompetitiveSummary(ctx, runID, summary); err != nil {
		return false, err
	}
	return true, nil
}

// PlanActivityInput identifies whose resolved history to archive and exclude.
type PlanActivityInput struct {
	RunID                string `json:"run_id"`
	LeadID               string `json:"lead_id"`
	DomainSubscriptionID string `json:"domain_subscription_id"`
}

// BuildActionPlan archives resolved items from earlier plans, generates a new
// plan excluding that history, applies the normalized-title safety net, and
// persists the result. Returns the number of items kept.
func (a *Activities) BuildActionPlan(ctx context.Context, in PlanActivityInput) (int, error) {
	archived, err := a.Store.ArchiveResolvedActionItems(ctx, in.LeadID, in.DomainSubscriptionID)
	if err != nil {
		return 0, err
	}
	if archived > 0 {
		zap.L().Info("archived resolved action items",
			zap.String("lead_id", in.LeadID),
			zap.Int("archived", archived))
	}
	exclude, err := a.Store.CompletedActionTitles(ctx, in.LeadID, in.DomainSubscriptionID)
	if err != nil {
		return 0, err
	}

	analysis, err := a.Store.GetSiteAnalysis(ctx, in.RunID)
	if err != nil {
		return 0, err
	}
	if analysis == nil {
		return 0, eris.Errorf("action plan: no analysis for run %s", in.RunID)
	}
	pages, err := a.Store.ListCrawledPages(ctx, in.RunID)
	if err != nil {
		return 0, err
	}
	responses, err := a.Store.ListPlatformResponses(ctx, in.RunID)
	if err != nil {
		return 0, err
	}
	report, err := a.Store.GetReportByRun(ctx, in.RunID)
	if err != nil {
		return 0, err
	}
	if report == nil {
		return 0, eris.Errorf("action plan: no report for run %s", in.RunID)
	}
	brand, err := a.Store.ListBrandAwareness(ctx, in.RunID)
	if err != nil {
		return 0, err
	}

	generated, err := a.Generators.ActionPlan(ctx, intel.PlanInput{
		Analysis:           *analysis,
		Pages:              pages,
		Responses:          responses,
		Report:             *report,
		BrandAwareness:     brand,
		CompetitiveSummary: report.CompetitiveSummary,
		ExcludeTitles:      exclude,
	})
	if err != nil {
		return 0, err
	}

	// The generator is told to avoid the exclusion list, but it is not
	// trusted to: the matcher drops anything resolved before.
	matcher := titles.NewMatcher(exclude)
	var items []model.ActionItem
	for _, gi := range generated.Items {
		if matcher.Seen(gi.Title) {
			continue
		}
		matcher.Add(gi.Title)
		items = append(items, model.ActionItem{
			Title:       gi.Title,
			Description: gi.Description,
			Priority:    gi.Priority,
			Impact:      gi.Impact,
			Effort:      gi.Effort,
		})
	}
	if len(items) == 0 {
		return 0, eris.Errorf("action plan: every generated item was already resolved for run %s", in.RunID)
	}

	plan := model.ActionPlan{ScanRunID: in.RunID, Summary: generated.Summary}
	if err := a.Store.ReplaceActionPlan(ctx, &plan, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// PrdOutcome reports what the PRD step did. A skip carries its reason.
type PrdOutcome struct {
	Tasks      int    `json:"tasks"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// BuildPrd derives the developer task document from the current action plan.
func (a *Activities) BuildPrd(ctx context.Context, in PlanActivityInput) (*PrdOutcome, error) {
	plan, items, err := a.Store.GetActionPlan(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	if plan == nil || len(items) == 0 {
		return &PrdOutcome{SkipReason: "no_action_plan"}, nil
	}

	analysis, err := a.Store.GetSiteAnalysis(ctx, in.RunID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return &PrdOutcome{SkipReason: "no_analysis"}, nil
	}

	// Archives resolved tasks before the document goes away.
	if err := a.Store.DeletePrd(ctx, in.RunID); err != nil {
		return nil, err
	}
	exclude, err := a.Store.CompletedPrdTaskTitles(ctx, in.LeadID, in.DomainSubscriptionID)
	if err != nil {
		return nil, err
	}

	generated, err := a.Generators.Prd(ctx, intel.PrdInput{
		Analysis:      *analysis,
		Plan:          *plan,
		Items:         items,
		ExcludeTitles: exclude,
	})
	if err != nil {
		return nil, err
	}

	matcher := titles.NewMatcher(exclude)
	var tasks []model.PrdTask
	for _, gt := range generated.Tasks {
		if matcher.Seen(gt.Title) {
			continue
		}
		matcher.Add(gt.Title)
		tasks = append(tasks, model.PrdTask{
			Title:       gt.Title,
			Description: gt.Description,
			Acceptance:  gt.Acceptance,
		})
	}
	if len(tasks) == 0 {
		return &PrdOutcome{SkipReason: "all_tasks_resolved"}, nil
	}

	doc := model.PrdDocument{
		ScanRunID: in.RunID,
		Title:     generated.Title,
		Overview:  generated.Overview,
	}
	if err := a.Store.ReplacePrd(ctx, &doc, tasks); err != nil {
		return nil, err
	}
	return &PrdOutcome{Tasks: len(tasks)}, nil
}
