package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	sdkworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

// Runner hosts a Temporal worker polling the scanner task queue.
type Runner struct {
	tc        client.Client
	taskQueue string
	acts      *Activities
}

func NewRunner(tc client.Client, taskQueue string, acts *Activities) (*Runner, error) {
	if tc == nil {
		return nil, eris.New("worker: temporal client not configured")
	}
	if acts == nil {
		return nil, eris.New("worker: activities not configured")
	}
	return &Runner{tc: tc, taskQueue: taskQueue, acts: acts}, nil
}

// Run starts the worker and blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	w := worker.New(r.tc, r.taskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(ScanWorkflow, sdkworkflow.RegisterOptions{Name: ScanWorkflowName})
	w.RegisterWorkflowWithOptions(EnrichWorkflow, sdkworkflow.RegisterOptions{Name: EnrichWorkflowName})
	RegisterActivities(w, r.acts)

	if err := w.Start(); err != nil {
		return eris.Wrap(err, "worker: start")
	}
	zap.L().Info("worker started", zap.String("task_queue", r.taskQueue))

	<-ctx.Done()
	w.Stop()
	zap.L().Info("worker stopped")
	return nil
}

// RegisterActivities binds every activity under its wire name. Shared with
// the workflow test environment.
func RegisterActivities(w worker.ActivityRegistry, a *Activities) {
	register := func(name string, fn any) {
		w.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
	}
	register(ActivitySetupScan, a.SetupScan)
	register(ActivityCrawlSite, a.CrawlSite)
	register(ActivityAnalyzeContent, a.AnalyzeContent)
	register(ActivityResearchPlatform, a.ResearchPlatform)
	register(ActivityCountQuestions, a.CountActiveQuestions)
	register(ActivitySavePrompts, a.SavePrompts)
	register(ActivityQueryOne, a.QueryOne)
	register(ActivityQueryBatch, a.QueryBatch)
	register(ActivityFinalizeReport, a.FinalizeReport)
	register(ActivitySendReportEmail, a.SendReportEmail)
	register(ActivitySetScanStatus, a.SetScanStatus)
	register(ActivitySetEnrichStatus, a.SetEnrichStatus)

	register(ActivitySetupEnrichment, a.SetupEnrichment)
	register(ActivityProbePlatform, a.ProbePlatform)
	register(ActivitySaveBrandAwareness, a.SaveBrandAwareness)
	register(ActivityCompetitiveSummary, a.BuildCompetitiveSummary)
	register(ActivityBuildActionPlan, a.BuildActionPlan)
	register(ActivityBuildPrd, a.BuildPrd)
}
