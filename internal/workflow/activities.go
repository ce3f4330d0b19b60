package workflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mentionscope/scanner/internal/config"
	"github.com/mentionscope/scanner/internal/crawler"
	"github.com/mentionscope/scanner/internal/geo"
	"github.com/mentionscope/scanner/internal/intel"
	"github.com/mentionscope/scanner/internal/model"
	"github.com/mentionscope/scanner/internal/queries"
	"github.com/mentionscope/scanner/internal/scoring"
	"github.com/mentionscope/scanner/internal/store"
	"github.com/mentionscope/scanner/pkg/sendgrid"
)

// Activities binds every workflow step to its dependencies. One instance is
// shared by all workers, so the rate limiter below throttles platform
// queries process-wide.
type Activities struct {
	Store      store.Store
	Crawler    *crawler.Crawler
	Analyzer   *intel.ContentAnalyzer
	Researcher *intel.Researcher
	Querier    *intel.Querier
	Prober     *intel.BrandProber
	Generators *intel.Generators
	Email      sendgrid.Client
	Cfg        *config.Config

	limiter *rate.Limiter
}

func NewActivities(
	st store.Store,
	cr *crawler.Crawler,
	analyzer *intel.ContentAnalyzer,
	researcher *intel.Researcher,
	querier *intel.Querier,
	prober *intel.BrandProber,
	generators *intel.Generators,
	email sendgrid.Client,
	cfg *config.Config,
) *Activities {
	qps := cfg.Scan.QueriesPerSecond
	if qps <= 0 {
		qps = 0.5
	}
	return &Activities{
		Store:      st,
		Crawler:    cr,
		Analyzer:   analyzer,
		Researcher: researcher,
		Querier:    querier,
		Prober:     prober,
		Generators: generators,
		Email:      email,
		Cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(qps), 1),
	}
}

// SetupResult is the resolved identity for a scan run.
type SetupResult struct {
	Run   model.ScanRun      `json:"run"`
	Lead  model.Lead         `json:"lead"`
	Flags model.FeatureFlags `json:"flags"`
}

// SetupScan resolves the lead and domain for the request and registers the
// run. Unknown emails become fresh free-tier leads.
func (a *Activities) SetupScan(ctx context.Context, in ScanInput) (*SetupResult, error) {
	req := in.Request

	var lead *model.Lead
	var err error
	switch {
	case req.LeadID != "":
		lead, err = a.Store.GetLead(ctx, req.LeadID)
		if err != nil {
			return nil, err
		}
	case req.Email != "":
		lead, err = a.Store.GetLeadByEmail(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if lead == nil {
			lead, err = a.Store.CreateLead(ctx, req.Email, req.Domain)
			if err != nil {
				return nil, err
			}
			zap.L().Info("created lead", zap.String("lead_id", lead.ID), zap.String("domain", req.Domain))
		}
	default:
		return nil, eris.New("setup: request has neither lead_id nor email")
	}

	domain := req.Domain
	if req.DomainSubscriptionID != "" {
		sub, err := a.Store.GetDomainSubscription(ctx, req.DomainSubscriptionID)
		if err != nil {
			return nil, err
		}
		if sub.LeadID != lead.ID {
			return nil, eris.Errorf("setup: domain subscription %s does not belong to lead %s", sub.ID, lead.ID)
		}
		domain = sub.Domain
	}
	if domain == "" {
		domain = lead.Domain
	}
	if domain == "" {
		return nil, eris.New("setup: no domain to scan")
	}

	flags := model.FlagsForTier(lead.Tier)
	enrichment := model.EnrichmentNotApplicable
	if flags.Enrichment {
		enrichment = model.EnrichmentPending
	}

	run := model.ScanRun{
		ID:                   in.RunID,
		LeadID:               lead.ID,
		DomainSubscriptionID: req.DomainSubscriptionID,
		Domain:               domain,
		Status:               model.ScanStatusCrawling,
		Progress:             5,
		EnrichmentStatus:     enrichment,
	}
	if err := a.Store.UpsertScanRun(ctx, &run); err != nil {
		return nil, err
	}
	return &SetupResult{Run: run, Lead: *lead, Flags: flags}, nil
}

// CrawlOutput is what later steps need from the crawl; pages themselves
// stay in the store.
type CrawlOutput struct {
	PageCount int               `json:"page_count"`
	Signals   model.SiteSignals `json:"signals"`
}

func (a *Activities) CrawlSite(ctx context.Context, runID, domain string) (*CrawlOutput, error) {
	result, err := a.Crawler.Crawl(ctx, domain)
	if err != nil {
		return nil, err
	}
	n, err := a.Store.ReplaceCrawledPages(ctx, runID, result.Pages)
	if err != nil {
		return nil, err
	}
	zap.L().Info("crawl complete",
		zap.String("run_id", runID),
		zap.String("domain", domain),
		zap.Int("pages", n))
	return &CrawlOutput{PageCount: n, Signals: result.Signals}, nil
}

// AnalyzeContent runs the content analyzer over the stored pages and merges
// its location guess with the site's own signals.
func (a *Activities) AnalyzeContent(ctx context.Context, runID, domain string, signals model.SiteSignals) (*model.SiteAnalysis, error) {
	pages, err := a.Store.ListCrawledPages(ctx, runID)
	if err != nil {
		return nil, err
	}

	profile, err := a.Analyzer.Analyze(ctx, domain, &model.CrawlResult{Pages: pages, Signals: signals})
	if err != nil {
		return nil, err
	}

	resolution := geo.Resolve(domain, signals, profile.Location)
	analysis := model.SiteAnalysis{
		ScanRunID:          runID,
		BusinessName:       profile.BusinessName,
		BusinessType:       profile.BusinessType,
		Industry:           profile.Industry,
		Services:           profile.Services,
		Products:           profile.Products,
		TargetAudience:     profile.TargetAudience,
		KeyPhrases:         profile.KeyPhrases,
		Location:           resolution.Location,
		LocationConfidence: resolution.Confidence,
	}
	if err := a.Store.UpsertSiteAnalysis(ctx, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ResearchPlatform asks one platform for customer-style questions. Research
// failures are tolerated: ranking works with whatever came back, and the
// fallback generator covers a total blank.
func (a *Activities) ResearchPlatform(ctx context.Context, runID string, platform model.Platform) ([]model.RawQuerySuggestion, error) {
	analysis, err := a.Store.GetSiteAnalysis(ctx, runID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, eris.Errorf("research: no analysis for run %s", runID)
	}

	suggestions, err := a.Researcher.Research(ctx, platform, *analysis)
	if err != nil {
		zap.L().Warn("query research failed",
			zap.String("run_id", runID),
			zap.String("platform", platform.String()),
			zap.Error(err))
		return nil, nil
	}
	return suggestions, nil
}

func (a *Activities) CountActiveQuestions(ctx context.Context, leadID, domainSubscriptionID string) (int, error) {
	qs, err := a.Store.ListActiveQuestions(ctx, leadID, domainSubscriptionID)
	if err != nil {
		return 0, err
	}
	return len(qs), nil
}

// SavePromptsInput selects the run's final prompt set. When UseSubscriber is
// set the lead's question library replaces the researched candidates.
type SavePromptsInput struct {
	RunID                string                     `json:"run_id"`
	LeadID               string                     `json:"lead_id"`
	DomainSubscriptionID string                     `json:"domain_subscription_id"`
	Suggestions          []model.RawQuerySuggestion `json:"suggestions"`
	Count                int                        `json:"count"`
	UseSubscriber        bool                       `json:"use_subscriber"`
	SeedLibrary          bool                       `json:"seed_library"`
}

func (a *Activities) SavePrompts(ctx context.Context, in SavePromptsInput) ([]model.ScanPrompt, error) {
	var prompts []model.ScanPrompt

	if in.UseSubscriber {
		qs, err := a.Store.ListActiveQuestions(ctx, in.LeadID, in.DomainSubscriptionID)
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			prompts = append(prompts, model.ScanPrompt{
				Text:     q.Text,
				Category: q.Category,
				Source:   model.PromptSourceSubscriber,
			})
		}
	} else {
		selected := queries.Rank(in.Suggestions, in.Count)
		if len(selected) < in.Count {
			analysis, err := a.Store.GetSiteAnalysis(ctx, in.RunID)
			if err != nil {
				return nil, err
			}
			if analysis != nil {
				selected = fillFromFallback(selected, *analysis, in.Count)
			}
		}
		for _, sel := range selected {
			prompts = append(prompts, model.ScanPrompt{
				Text:     sel.Text,
				Category: sel.Category,
				Source:   model.PromptSourceResearched,
			})
		}
	}

	if len(prompts) == 0 {
		return nil, eris.Errorf("prompts: nothing to ask for run %s", in.RunID)
	}

	saved, err := a.Store.ReplaceScanPrompts(ctx, in.RunID, prompts)
	if err != nil {
		return nil, err
	}

	// First paying scan seeds the question library from the researched set,
	// so the lead has something to edit.
	if in.SeedLibrary && !in.UseSubscriber {
		n, err := a.Store.CountQuestions(ctx, in.LeadID, in.DomainSubscriptionID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			seed := make([]model.SubscriberQuestion, 0, len(saved))
			for _, p := range saved {
				seed = append(seed, model.SubscriberQuestion{
					LeadID:               in.LeadID,
					DomainSubscriptionID: in.DomainSubscriptionID,
					Text:                 p.Text,
					Category:             p.Category,
					Source:               "seeded",
				})
			}
			if err := a.Store.SeedQuestions(ctx, seed); err != nil {
				return nil, err
			}
			zap.L().Info("seeded question library",
				zap.String("lead_id", in.LeadID),
				zap.Int("questions", len(seed)))
		}
	}
	return saved, nil
}

// fillFromFallback tops up a short selection with template questions,
// skipping texts already selected.
func fillFromFallback(selected []queries.Selected, analysis model.SiteAnalysis, count int) []queries.Selected {
	seen := make(map[string]bool, len(selected))
	for _, s := range selected {
		seen[s.Text] = true
	}
	for _, f := range queries.Fallback(analysis, count) {
		if len(selected) >= count {
			break
		}
		if !seen[f.Text] {
			selected = append(selected, f)
			seen[f.Text] = true
		}
	}
	return selected
}

// QueryOneInput is one (prompt, platform) cell of the fan-out.
type QueryOneInput struct {
	RunID        string         `json:"run_id"`
	PromptID     string         `json:"prompt_id"`
	Platform     model.Platform `json:"platform"`
	Question     string         `json:"question"`
	Domain       string         `json:"domain"`
	BusinessName string         `json:"business_name"`
	Location     string         `json:"location"`
}

// QueryOne asks one platform one question and persists the outcome. The
// querier never fails; an API error becomes an error-flagged row, so one bad
// cell never takes down the fan-out.
func (a *Activities) QueryOne(ctx context.Context, in QueryOneInput) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "query: rate limit wait")
	}
	resp := a.Querier.Query(ctx, in.Platform, in.Question, in.Domain, in.BusinessName, in.Location)
	resp.ScanRunID = in.RunID
	resp.PromptID = in.PromptID
	return a.Store.SavePlatformResponse(ctx, resp)
}

// QueryBatchInput runs every prompt against one platform inside a single
// activity. Used for the platforms not worth per-query step granularity.
type QueryBatchInput struct {
	RunID        string             `json:"run_id"`
	Platform     model.Platform     `json:"platform"`
	Domain       string             `json:"domain"`
	BusinessName string             `json:"business_name"`
	Location     string             `json:"location"`
	Prompts      []model.ScanPrompt `json:"prompts"`
}

func (a *Activities) QueryBatch(ctx context.Context, in QueryBatchInput) error {
	for _, p := range in.Prompts {
		if err := a.QueryOne(ctx, QueryOneInput{
			RunID:        in.RunID,
			PromptID:     p.ID,
			Platform:     in.Platform,
			Question:     p.Text,
			Domain:       in.Domain,
			BusinessName: in.BusinessName,
			Location:     in.Location,
		}); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeInput identifies the run to score. VerificationToken is the
// caller-supplied token from the start-scan request, if any; free-tier runs
// without one get a fresh token minted here.
type FinalizeInput struct {
	RunID             string `json:"run_id"`
	VerificationToken string `json:"verification_token,omitempty"`
}

// FinalizeResult feeds the scan workflow's return value and the email step.
type FinalizeResult struct {
	OverallScore float64  `json:"overall_score"`
	AccessToken  string   `json:"access_token"`
	Delta        *float64 `json:"delta,omitempty"`
}

// FinalizeReport scores the responses and writes the report and snapshot.
// Safe to retry: the report upsert keeps the original tokens and the
// snapshot is keyed by run.
func (a *Activities) FinalizeReport(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	runID := in.RunID
	run, err := a.Store.GetScanRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	lead, err := a.Store.GetLead(ctx, run.LeadID)
	if err != nil {
		return nil, err
	}
	flags := model.FlagsForTier(lead.Tier)

	responses, err := a.Store.ListPlatformResponses(ctx, runID)
	if err != nil {
		return nil, err
	}

	weights := scoring.WeightsFromConfig(a.Cfg.Scoring.ReachWeights)
	visibility := scoring.ScoreVisibility(responses, weights)
	topN := a.Cfg.Scoring.TopN
	if topN <= 0 {
		topN = 10
	}
	competitors := scoring.RankCompetitors(responses, topN)

	token, err := newAccessToken()
	if err != nil {
		return nil, err
	}
	report := model.Report{
		ScanRunID:      runID,
		OverallScore:   visibility.OverallScore,
		PlatformScores: visibility.PlatformScores,
		TopCompetitors: competitors,
		Summary:        scoring.BuildSummary(run.Domain, visibility, competitors),
		AccessToken:    token,
	}
	if flags.ReportExpires && a.Cfg.Report.ExpiryDays > 0 {
		exp := time.Now().UTC().AddDate(0, 0, a.Cfg.Report.ExpiryDays)
		report.ExpiresAt = &exp
	}
	// Free-tier reports are gated behind email verification; paying leads
	// already verified at signup.
	if !lead.Tier.Paying() {
		report.VerificationToken = in.VerificationToken
		if report.VerificationToken == "" {
			report.VerificationToken, err = newAccessToken()
			if err != nil {
				return nil, err
			}
		}
	}
	if err := a.Store.SaveReport(ctx, &report); err != nil {
		return nil, err
	}

	if err := a.Store.UpsertScoreSnapshot(ctx, &model.ScoreSnapshot{
		ScanRunID:            runID,
		LeadID:               run.LeadID,
		DomainSubscriptionID: run.DomainSubscriptionID,
		OverallScore:         visibility.OverallScore,
	}); err != nil {
		return nil, err
	}

	result := FinalizeResult{
		OverallScore: visibility.OverallScore,
		AccessToken:  report.AccessToken,
	}
	prev, err := a.Store.PreviousSnapshot(ctx, run.LeadID, run.DomainSubscriptionID, runID)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		delta := visibility.OverallScore - prev.OverallScore
		result.Delta = &delta
	}
	return &result, nil
}

func newAccessToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", eris.Wrap(err, "report: generate access token")
	}
	return hex.EncodeToString(buf), nil
}

// SendReportEmail mails the scan outcome. A gated report (free tier, not yet
// verified) gets a verification email instead of the report link. The
// workflow treats a failure here as non-fatal; the report itself is already
// persisted.
func (a *Activities) SendReportEmail(ctx context.Context, runID string) error {
	run, err := a.Store.GetScanRun(ctx, runID)
	if err != nil {
		return err
	}
	lead, err := a.Store.GetLead(ctx, run.LeadID)
	if err != nil {
		return err
	}
	if lead.Email == "" {
		return nil
	}
	report, err := a.Store.GetReportByRun(ctx, runID)
	if err != nil {
		return err
	}
	if report == nil {
		return eris.Errorf("email: no report for run %s", runID)
	}

	if report.VerificationToken != "" && report.VerifiedAt == nil {
		return a.sendVerificationEmail(ctx, run, lead, report)
	}

	body := fmt.Sprintf("Your AI visibility scan for %s is complete.\n\nOverall score: %.1f/100.\n",
		run.Domain, report.OverallScore)
	prev, err := a.Store.PreviousSnapshot(ctx, run.LeadID, run.DomainSubscriptionID, runID)
	if err != nil {
		return err
	}
	if prev != nil {
		body += fmt.Sprintf("Change since last scan: %+.1f points.\n", report.OverallScore-prev.OverallScore)
	}
	body += fmt.Sprintf("\nView the full report: %s/reports/%s\n", a.Cfg.Report.BaseURL, report.AccessToken)
	if report.ExpiresAt != nil {
		body += fmt.Sprintf("The link expires on %s.\n", report.ExpiresAt.Format("2 January 2006"))
	}

	result, err := a.Email.Send(ctx, sendgrid.Mail{
		To:      []sendgrid.Address{{Email: lead.Email}},
		Subject: fmt.Sprintf("AI visibility report for %s", run.Domain),
		Text:    body,
	})
	if err != nil {
		return err
	}
	zap.L().Info("report email sent",
		zap.String("run_id", runID),
		zap.String("message_id", result.MessageID))
	return nil
}

// sendVerificationEmail mails the verification link instead of the report.
// The score and the report link stay out of the body until the address is
// confirmed.
func (a *Activities) sendVerificationEmail(ctx context.Context, run *model.ScanRun, lead *model.Lead, report *model.Report) error {
	body := fmt.Sprintf("Your AI visibility scan for %s is complete.\n\nConfirm your email address to view the report: %s/verify/%s\n",
		run.Domain, a.Cfg.Report.BaseURL, report.VerificationToken)
	if report.ExpiresAt != nil {
		body += fmt.Sprintf("The report is available until %s.\n", report.ExpiresAt.Format("2 January 2006"))
	}

	result, err := a.Email.Send(ctx, sendgrid.Mail{
		To:      []sendgrid.Address{{Email: lead.Email}},
		Subject: fmt.Sprintf("Confirm your email to view your %s report", run.Domain),
		Text:    body,
	})
	if err != nil {
		return err
	}
	zap.L().Info("verification email sent",
		zap.String("run_id", run.ID),
		zap.String("message_id", result.MessageID))
	return nil
}

func (a *Activities) SetScanStatus(ctx context.Context, runID string, status model.ScanStatus, progress int) error {
	return a.Store.UpdateScanStatus(ctx, runID, status, progress)
}

func (a *Activities) SetEnrichStatus(ctx context.Context, runID string, status model.EnrichmentStatus) error {
	return a.Store.UpdateEnrichmentStatus(ctx, runID, status)
}
