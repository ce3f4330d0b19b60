package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	sdkworkflow "go.temporal.io/sdk/workflow"

	"github.com/mentionscope/scanner/internal/intel"
	"github.com/mentionscope/scanner/internal/model"
)

func newTestEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *Activities) {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(ScanWorkflow, sdkworkflow.RegisterOptions{Name: ScanWorkflowName})
	env.RegisterWorkflowWithOptions(EnrichWorkflow, sdkworkflow.RegisterOptions{Name: EnrichWorkflowName})

	a := &Activities{}
	RegisterActivities(env, a)
	return env, a
}

func testStepConfig() StepConfig {
	return StepConfig{
		PromptCount:          2,
		PerQueryPlatforms:    []string{"chatgpt"},
		StepMaxAttempts:      1,
		QueryTimeoutSecs:     30,
		AnalysisWaitAttempts: 2,
		AnalysisWaitDelayMs:  10,
	}
}

func testSetup(tier model.Tier) *SetupResult {
	return &SetupResult{
		Run: model.ScanRun{
			ID:     "run-1",
			LeadID: "lead-1",
			Domain: "acme.example",
			Status: model.ScanStatusCrawling,
		},
		Lead:  model.Lead{ID: "lead-1", Email: "owner@acme.example", Tier: tier},
		Flags: model.FlagsForTier(tier),
	}
}

func testPrompts() []model.ScanPrompt {
	return []model.ScanPrompt{
		{ID: "p1", ScanRunID: "run-1", Text: "best plumber in leeds", Position: 0},
		{ID: "p2", ScanRunID: "run-1", Text: "emergency boiler repair leeds", Position: 1},
	}
}

func TestScanWorkflow_FreeTier(t *testing.T) {
	env, a := newTestEnv(t)

	env.OnActivity(a.SetupScan, mock.Anything, mock.Anything).Return(testSetup(model.TierFree), nil)
	env.OnActivity(a.SetScanStatus, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.CrawlSite, mock.Anything, "run-1", "acme.example").
		Return(&CrawlOutput{PageCount: 12, Signals: model.SiteSignals{HasSitemap: true}}, nil)
	env.OnActivity(a.AnalyzeContent, mock.Anything, "run-1", "acme.example", mock.Anything).
		Return(&model.SiteAnalysis{ScanRunID: "run-1", BusinessName: "Acme Plumbing", Location: "Leeds, UK"}, nil)
	env.OnActivity(a.ResearchPlatform, mock.Anything, "run-1", mock.Anything).
		Return([]model.RawQuerySuggestion{{Text: "best plumber in leeds", Score: 1}}, nil).Times(4)
	env.OnActivity(a.SavePrompts, mock.Anything, mock.Anything).Return(testPrompts(), nil)

	// chatgpt is the only per-query platform: one activity per prompt. The
	// other three platforms run as single batches.
	env.OnActivity(a.QueryOne, mock.Anything, mock.Anything).Return(nil).Times(2)
	env.OnActivity(a.QueryBatch, mock.Anything, mock.Anything).Return(nil).Times(3)

	var finalizeIn FinalizeInput
	env.OnActivity(a.FinalizeReport, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			finalizeIn = args.Get(1).(FinalizeInput)
		}).
		Return(&FinalizeResult{OverallScore: 37.5, AccessToken: "tok-1"}, nil)
	env.OnActivity(a.SendReportEmail, mock.Anything, "run-1").Return(nil)

	env.ExecuteWorkflow(ScanWorkflowName, ScanInput{
		RunID:   "run-1",
		Request: model.ScanRequest{Email: "owner@acme.example", Domain: "acme.example", VerificationToken: "vt-1"},
		Config:  testStepConfig(),
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ScanResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "run-1", result.RunID)
	assert.InDelta(t, 37.5, result.OverallScore, 0.001)
	assert.Equal(t, "tok-1", result.AccessToken)
	assert.False(t, result.Enriched)
	assert.Equal(t, FinalizeInput{RunID: "run-1", VerificationToken: "vt-1"}, finalizeIn,
		"the inbound verification token reaches the finalize step")
	env.AssertExpectations(t)
}

func TestScanWorkflow_SubscriberQuestionsSkipResearch(t *testing.T) {
	env, a := newTestEnv(t)

	setup := testSetup(model.TierStart)
	env.OnActivity(a.SetupScan, mock.Anything, mock.Anything).Return(setup, nil)
	env.OnActivity(a.SetScanStatus, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.CrawlSite, mock.Anything, "run-1", "acme.example").
		Return(&CrawlOutput{PageCount: 3}, nil)
	env.OnActivity(a.AnalyzeContent, mock.Anything, "run-1", "acme.example", mock.Anything).
		Return(&model.SiteAnalysis{ScanRunID: "run-1", BusinessName: "Acme Plumbing"}, nil)
	env.OnActivity(a.CountActiveQuestions, mock.Anything, "lead-1", "").Return(3, nil)

	var savedInput SavePromptsInput
	env.OnActivity(a.SavePrompts, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedInput = args.Get(1).(SavePromptsInput)
		}).
		Return(testPrompts(), nil)

	env.OnActivity(a.QueryOne, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.QueryBatch, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.FinalizeReport, mock.Anything, FinalizeInput{RunID: "run-1"}).
		Return(&FinalizeResult{OverallScore: 50, AccessToken: "tok-2"}, nil)

	// Paying tier: the enrichment child workflow runs before the email.
	env.OnActivity(a.SetEnrichStatus, mock.Anything, "run-1", mock.Anything).Return(nil)
	env.OnActivity(a.SetupEnrichment, mock.Anything, mock.Anything).
		Return(&EnrichContext{Run: setup.Run, Flags: setup.Flags, Domain: "acme.example", BusinessName: "Acme Plumbing",
			Probes: []intel.Probe{{Query: "What do you know about Acme Plumbing (acme.example)?", QueryType: "direct"}}}, nil)
	env.OnActivity(a.ProbePlatform, mock.Anything, mock.Anything).
		Return([]model.BrandAwarenessResult{{Platform: model.PlatformChatGPT, BrandKnown: true}}, nil)
	env.OnActivity(a.SaveBrandAwareness, mock.Anything, "run-1", mock.Anything).Return(nil)
	env.OnActivity(a.BuildCompetitiveSummary, mock.Anything, "run-1", "Acme Plumbing").Return(false, nil)
	env.OnActivity(a.BuildActionPlan, mock.Anything, mock.Anything).Return(6, nil)
	env.OnActivity(a.SendReportEmail, mock.Anything, "run-1").Return(nil)

	env.ExecuteWorkflow(ScanWorkflowName, ScanInput{
		RunID:   "run-1",
		Request: model.ScanRequest{LeadID: "lead-1", Domain: "acme.example"},
		Config:  testStepConfig(),
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	assert.True(t, savedInput.UseSubscriber, "library questions should replace research")
	env.AssertNotCalled(t, "research-platform")

	var result ScanResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.True(t, result.Enriched)
}

func TestScanWorkflow_CrawlFailureMarksRunFailed(t *testing.T) {
	env, a := newTestEnv(t)

	env.OnActivity(a.SetupScan, mock.Anything, mock.Anything).Return(testSetup(model.TierFree), nil)
	env.OnActivity(a.CrawlSite, mock.Anything, "run-1", "acme.example").
		Return(nil, assert.AnError)

	statusCalls := []model.ScanStatus{}
	env.OnActivity(a.SetScanStatus, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			statusCalls = append(statusCalls, args.Get(2).(model.ScanStatus))
		}).
		Return(nil)

	env.ExecuteWorkflow(ScanWorkflowName, ScanInput{
		RunID:   "run-1",
		Request: model.ScanRequest{LeadID: "lead-1", Domain: "acme.example"},
		Config:  testStepConfig(),
	})

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	require.NotEmpty(t, statusCalls)
	assert.Equal(t, model.ScanStatusFailed, statusCalls[len(statusCalls)-1])
}

func TestScanWorkflow_EmailFailureIsNonFatal(t *testing.T) {
	env, a := newTestEnv(t)

	env.OnActivity(a.SetupScan, mock.Anything, mock.Anything).Return(testSetup(model.TierFree), nil)
	env.OnActivity(a.SetScanStatus, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.CrawlSite, mock.Anything, "run-1", "acme.example").
		Return(&CrawlOutput{PageCount: 1}, nil)
	env.OnActivity(a.AnalyzeContent, mock.Anything, "run-1", "acme.example", mock.Anything).
		Return(&model.SiteAnalysis{ScanRunID: "run-1"}, nil)
	env.OnActivity(a.ResearchPlatform, mock.Anything, "run-1", mock.Anything).
		Return([]model.RawQuerySuggestion(nil), nil)
	env.OnActivity(a.SavePrompts, mock.Anything, mock.Anything).Return(testPrompts(), nil)
	env.OnActivity(a.QueryOne, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.QueryBatch, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.FinalizeReport, mock.Anything, FinalizeInput{RunID: "run-1"}).
		Return(&FinalizeResult{OverallScore: 10, AccessToken: "tok-3"}, nil)
	env.OnActivity(a.SendReportEmail, mock.Anything, "run-1").Return(assert.AnError)

	env.ExecuteWorkflow(ScanWorkflowName, ScanInput{
		RunID:   "run-1",
		Request: model.ScanRequest{LeadID: "lead-1", Domain: "acme.example"},
		Config:  testStepConfig(),
	})

	require.True(t, env.IsWorkflowCompleted())
	assert.NoError(t, env.GetWorkflowError(), "a bounced email must not fail the scan")
}
