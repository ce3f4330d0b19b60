package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mentionscope/scanner/internal/model"
)

// ScanWorkflow runs the full scan pipeline: crawl, analyze, select prompts,
// fan out to the platforms, score, enrich paying tiers, email. Every step is
// an activity writing idempotently to the store, so a retried or replayed
// step converges on the same rows.
func ScanWorkflow(ctx workflow.Context, in ScanInput) (*ScanResult, error) {
	logger := workflow.GetLogger(ctx)

	attempts := int32(in.Config.StepMaxAttempts)
	if attempts <= 0 {
		attempts = 3
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: attempts},
	})

	var setup SetupResult
	if err := workflow.ExecuteActivity(ctx, ActivitySetupScan, in).Get(ctx, &setup); err != nil {
		return nil, err
	}
	run := setup.Run

	fail := func(err error) (*ScanResult, error) {
		if statusErr := workflow.ExecuteActivity(ctx, ActivitySetScanStatus,
			run.ID, model.ScanStatusFailed, 100).Get(ctx, nil); statusErr != nil {
			logger.Warn("could not mark run failed", "run_id", run.ID, "error", statusErr)
		}
		return nil, err
	}
	setStatus := func(status model.ScanStatus, progress int) error {
		return workflow.ExecuteActivity(ctx, ActivitySetScanStatus, run.ID, status, progress).Get(ctx, nil)
	}

	// Crawl.
	var crawl CrawlOutput
	if err := workflow.ExecuteActivity(ctx, ActivityCrawlSite, run.ID, run.Domain).Get(ctx, &crawl); err != nil {
		return fail(err)
	}

	// Analyze.
	if err := setStatus(model.ScanStatusAnalyzing, 25); err != nil {
		return fail(err)
	}
	var analysis model.SiteAnalysis
	if err := workflow.ExecuteActivity(ctx, ActivityAnalyzeContent,
		run.ID, run.Domain, crawl.Signals).Get(ctx, &analysis); err != nil {
		return fail(err)
	}

	// Prompt selection. A paying lead with an edited question library skips
	// research entirely; their questions are the scan.
	if err := setStatus(model.ScanStatusResearching, 40); err != nil {
		return fail(err)
	}
	useSubscriber := false
	if setup.Flags.SubscriberQuestions {
		var active int
		if err := workflow.ExecuteActivity(ctx, ActivityCountQuestions,
			run.LeadID, run.DomainSubscriptionID).Get(ctx, &active); err != nil {
			return fail(err)
		}
		useSubscriber = active > 0
	}

	var suggestions []model.RawQuerySuggestion
	if !useSubscriber {
		platforms := model.AllPlatforms()
		futures := make([]workflow.Future, len(platforms))
		for i, p := range platforms {
			futures[i] = workflow.ExecuteActivity(ctx, ActivityResearchPlatform, run.ID, p)
		}
		for i, f := range futures {
			var batch []model.RawQuerySuggestion
			if err := f.Get(ctx, &batch); err != nil {
				logger.Warn("research future failed", "platform", platforms[i], "error", err)
				continue
			}
			suggestions = append(suggestions, batch...)
		}
	}

	if err := setStatus(model.ScanStatusGenerating, 50); err != nil {
		return fail(err)
	}
	var prompts []model.ScanPrompt
	if err := workflow.ExecuteActivity(ctx, ActivitySavePrompts, SavePromptsInput{
		RunID:                run.ID,
		LeadID:               run.LeadID,
		DomainSubscriptionID: run.DomainSubscriptionID,
		Suggestions:          suggestions,
		Count:                in.Config.PromptCount,
		UseSubscriber:        useSubscriber,
		SeedLibrary:          setup.Flags.SubscriberQuestions,
	}).Get(ctx, &prompts); err != nil {
		return fail(err)
	}

	// Platform fan-out. Platforms named in PerQueryPlatforms get one
	// activity per prompt so a retry replays a single query; the rest run
	// all prompts inside one activity.
	if err := setStatus(model.ScanStatusQuerying, 60); err != nil {
		return fail(err)
	}
	queryTimeout := time.Duration(in.Config.QueryTimeoutSecs) * time.Second
	if queryTimeout <= 0 {
		queryTimeout = time.Minute
	}
	perQueryCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: queryTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: attempts},
	})
	batchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: queryTimeout * time.Duration(len(prompts)+1),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: attempts},
	})

	perQuery := make(map[model.Platform]bool, len(in.Config.PerQueryPlatforms))
	for _, p := range in.Config.PerQueryPlatforms {
		perQuery[model.Platform(p)] = true
	}

	var queryFutures []workflow.Future
	for _, platform := range model.AllPlatforms() {
		if perQuery[platform] {
			for _, prompt := range prompts {
				queryFutures = append(queryFutures, workflow.ExecuteActivity(perQueryCtx, ActivityQueryOne, QueryOneInput{
					RunID:        run.ID,
					PromptID:     prompt.ID,
					Platform:     platform,
					Question:     prompt.Text,
					Domain:       run.Domain,
					BusinessName: analysis.BusinessName,
					Location:     analysis.Location,
				}))
			}
		} else {
			queryFutures = append(queryFutures, workflow.ExecuteActivity(batchCtx, ActivityQueryBatch, QueryBatchInput{
				RunID:        run.ID,
				Platform:     platform,
				Domain:       run.Domain,
				BusinessName: analysis.BusinessName,
				Location:     analysis.Location,
				Prompts:      prompts,
			}))
		}
	}
	for _, f := range queryFutures {
		if err := f.Get(ctx, nil); err != nil {
			return fail(err)
		}
	}

	// Score and report.
	if err := setStatus(model.ScanStatusGenerating, 85); err != nil {
		return fail(err)
	}
	var finalized FinalizeResult
	finalizeIn := FinalizeInput{RunID: run.ID, VerificationToken: in.Request.VerificationToken}
	if err := workflow.ExecuteActivity(ctx, ActivityFinalizeReport, finalizeIn).Get(ctx, &finalized); err != nil {
		return fail(err)
	}

	// Enrichment runs as a child workflow so it shows up as its own
	// execution, but the scan waits for it: the report email should land
	// after the plan exists. A failed enrichment does not fail the scan.
	enriched := false
	if setup.Flags.Enrichment {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: EnrichWorkflowID(run.ID),
		})
		var enrichResult EnrichResult
		if err := workflow.ExecuteChildWorkflow(childCtx, EnrichWorkflowName, EnrichInput{
			RunID:  run.ID,
			Config: in.Config,
		}).Get(childCtx, &enrichResult); err != nil {
			logger.Warn("enrichment failed", "run_id", run.ID, "error", err)
		} else {
			enriched = true
		}
	}

	if !in.Request.SkipEmail {
		if err := workflow.ExecuteActivity(ctx, ActivitySendReportEmail, run.ID).Get(ctx, nil); err != nil {
			logger.Warn("report email failed", "run_id", run.ID, "error", err)
		}
	}

	if err := setStatus(model.ScanStatusComplete, 100); err != nil {
		return fail(err)
	}

	return &ScanResult{
		RunID:        run.ID,
		OverallScore: finalized.OverallScore,
		AccessToken:  finalized.AccessToken,
		Enriched:     enriched,
	}, nil
}
