// Package workflow orchestrates the scan and enrichment pipelines on
// Temporal. Workflows carry only identifiers and small config snapshots;
// every artifact lives in the store, written idempotently so step retries
// are safe.
package workflow

import (
	"fmt"

	"github.com/mentionscope/scanner/internal/model"
)

const (
	ScanWorkflowName   = "scan"
	EnrichWorkflowName = "enrich"
)

// Activity names. Registered explicitly so workflow code can reference
// activities without importing the instance they are bound to.
const (
	ActivitySetupScan        = "setup-scan"
	ActivityCrawlSite        = "crawl-site"
	ActivityAnalyzeContent   = "analyze-content"
	ActivityResearchPlatform = "research-platform"
	ActivityCountQuestions   = "count-active-questions"
	ActivitySavePrompts      = "save-prompts"
	ActivityQueryOne         = "query-one"
	ActivityQueryBatch       = "query-batch"
	ActivityFinalizeReport   = "finalize-report"
	ActivitySendReportEmail  = "send-report-email"
	ActivitySetScanStatus    = "set-scan-status"
	ActivitySetEnrichStatus  = "set-enrich-status"

	ActivitySetupEnrichment    = "setup-enrichment"
	ActivityProbePlatform      = "probe-platform"
	ActivitySaveBrandAwareness = "save-brand-awareness"
	ActivityCompetitiveSummary = "competitive-summary"
	ActivityBuildActionPlan    = "build-action-plan"
	ActivityBuildPrd           = "build-prd"
)

// StepConfig is the per-run snapshot of tunables the workflows need. Carried
// in the workflow input so replays see the values the run started with.
type StepConfig struct {
	PromptCount          int      `json:"prompt_count"`
	PerQueryPlatforms    []string `json:"per_query_platforms"`
	StepMaxAttempts      int      `json:"step_max_attempts"`
	QueryTimeoutSecs     int      `json:"query_timeout_secs"`
	AnalysisWaitAttempts int      `json:"analysis_wait_attempts"`
	AnalysisWaitDelayMs  int      `json:"analysis_wait_delay_ms"`
}

// ScanInput starts a scan workflow.
type ScanInput struct {
	RunID   string            `json:"run_id"`
	Request model.ScanRequest `json:"request"`
	Config  StepConfig        `json:"config"`
}

// ScanResult is the scan workflow's return value.
type ScanResult struct {
	RunID        string  `json:"run_id"`
	OverallScore float64 `json:"overall_score"`
	AccessToken  string  `json:"access_token"`
	Enriched     bool    `json:"enriched"`
}

// EnrichInput starts an enrichment workflow, usually as a child of a scan.
type EnrichInput struct {
	RunID  string     `json:"run_id"`
	Config StepConfig `json:"config"`
}

// EnrichResult reports which enrichment artifacts were produced. Skips are
// outcomes, not failures.
type EnrichResult struct {
	RunID              string `json:"run_id"`
	BrandProbes        int    `json:"brand_probes"`
	CompetitiveSummary bool   `json:"competitive_summary"`
	ActionItems        int    `json:"action_items"`
	PrdTasks           int    `json:"prd_tasks"`
	PrdSkipReason      string `json:"prd_skip_reason,omitempty"`
}

// ScanWorkflowID keys scan workflows by business identity rather than run,
// so starting a new scan for the same lead and domain terminates the one in
// flight instead of racing it.
func ScanWorkflowID(leadKey, domain string) string {
	return fmt.Sprintf("scan/%s/%s", leadKey, domain)
}

// EnrichWorkflowID keys enrichment by run: each run enriches at most once at
// a time, and a re-run replaces the previous attempt.
func EnrichWorkflowID(runID string) string {
	return fmt.Sprintf("enrich/%s", runID)
}
