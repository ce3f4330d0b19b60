package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mentionscope/scanner/internal/model"
)

// EnrichWorkflow runs the paying-tier deep dive for an already-scanned run:
// brand-awareness probes, a competitive summary, the action plan, and the
// PRD. It owns the run's enrichment status from processing to its terminal
// state. The later generator steps tolerate partial failure: brand probes
// that landed are kept even when the plan cannot be built.
func EnrichWorkflow(ctx workflow.Context, in EnrichInput) (*EnrichResult, error) {
	logger := workflow.GetLogger(ctx)

	attempts := int32(in.Config.StepMaxAttempts)
	if attempts <= 0 {
		attempts = 3
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: attempts},
	})

	setStatus := func(status model.EnrichmentStatus) {
		if err := workflow.ExecuteActivity(ctx, ActivitySetEnrichStatus, in.RunID, status).Get(ctx, nil); err != nil {
			logger.Warn("could not set enrichment status", "run_id", in.RunID, "status", status, "error", err)
		}
	}
	setStatus(model.EnrichmentProcessing)

	var ec EnrichContext
	if err := workflow.ExecuteActivity(ctx, ActivitySetupEnrichment, in).Get(ctx, &ec); err != nil {
		setStatus(model.EnrichmentFailed)
		return nil, err
	}

	result := EnrichResult{RunID: in.RunID}

	// Brand awareness: every platform answers every probe, in parallel per
	// platform. Probe failures are rows, not errors; only a store failure
	// surfaces here.
	platforms := model.AllPlatforms()
	futures := make([]workflow.Future, len(platforms))
	for i, p := range platforms {
		futures[i] = workflow.ExecuteActivity(ctx, ActivityProbePlatform, ProbeInput{
			RunID:        in.RunID,
			Platform:     p,
			Probes:       ec.Probes,
			BusinessName: ec.BusinessName,
			Domain:       ec.Domain,
		})
	}
	var awareness []model.BrandAwarenessResult
	for _, f := range futures {
		var batch []model.BrandAwarenessResult
		if err := f.Get(ctx, &batch); err != nil {
			setStatus(model.EnrichmentFailed)
			return nil, err
		}
		awareness = append(awareness, batch...)
	}
	if err := workflow.ExecuteActivity(ctx, ActivitySaveBrandAwareness, in.RunID, awareness).Get(ctx, nil); err != nil {
		setStatus(model.EnrichmentFailed)
		return nil, err
	}
	result.BrandProbes = len(awareness)

	// Competitive summary. Skipping (no comparison material) and failing
	// both leave the report's summary empty; only the former is normal.
	var wroteSummary bool
	if err := workflow.ExecuteActivity(ctx, ActivityCompetitiveSummary,
		in.RunID, ec.BusinessName).Get(ctx, &wroteSummary); err != nil {
		logger.Warn("competitive summary failed", "run_id", in.RunID, "error", err)
	}
	result.CompetitiveSummary = wroteSummary

	// Action plan. Without one there is nothing to derive a PRD from.
	planFailed := false
	var itemCount int
	if err := workflow.ExecuteActivity(ctx, ActivityBuildActionPlan, PlanActivityInput{
		RunID:                in.RunID,
		LeadID:               ec.Run.LeadID,
		DomainSubscriptionID: ec.Run.DomainSubscriptionID,
	}).Get(ctx, &itemCount); err != nil {
		logger.Warn("action plan failed", "run_id", in.RunID, "error", err)
		planFailed = true
	}
	result.ActionItems = itemCount

	switch {
	case !ec.Flags.ShowPrdTasks:
		result.PrdSkipReason = "tier_excluded"
	case planFailed:
		result.PrdSkipReason = "no_action_plan"
	default:
		var prd PrdOutcome
		if err := workflow.ExecuteActivity(ctx, ActivityBuildPrd, PlanActivityInput{
			RunID:                in.RunID,
			LeadID:               ec.Run.LeadID,
			DomainSubscriptionID: ec.Run.DomainSubscriptionID,
		}).Get(ctx, &prd); err != nil {
			logger.Warn("prd generation failed", "run_id", in.RunID, "error", err)
			result.PrdSkipReason = "generation_failed"
		} else {
			result.PrdTasks = prd.Tasks
			result.PrdSkipReason = prd.SkipReason
		}
	}

	if planFailed {
		setStatus(model.EnrichmentFailed)
	} else {
		setStatus(model.EnrichmentComplete)
	}
	return &result, nil
}
