// Package store persists every artifact of the scan and enrichment
// workflows. All aggregate writes are keyed by run id and written with
// upsert-on-conflict so retried workflow steps never duplicate rows.
package store

import (
	"context"

	"github.com/mentionscope/scanner/internal/model"
)

// RunFilter specifies criteria for listing scan runs.
type RunFilter struct {
	Status model.ScanStatus `json:"status,omitempty"`
	Domain string           `json:"domain,omitempty"`
	LeadID string           `json:"lead_id,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the scan pipeline. Lookups of
// rows that may legitimately not exist yet (analysis, report, snapshot,
// plan, PRD) return (nil, nil) rather than an error.
type Store interface {
	// Leads and tenancy
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error)
	CreateLead(ctx context.Context, email, domain string) (*model.Lead, error)
	GetDomainSubscription(ctx context.Context, id string) (*model.DomainSubscription, error)

	// Scan runs
	UpsertScanRun(ctx context.Context, run *model.ScanRun) error
	UpdateScanStatus(ctx context.Context, runID string, status model.ScanStatus, progress int) error
	UpdateEnrichmentStatus(ctx context.Context, runID string, status model.EnrichmentStatus) error
	GetScanRun(ctx context.Context, runID string) (*model.ScanRun, error)
	ListScanRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error)

	// Crawl output
	ReplaceCrawledPages(ctx context.Context, runID string, pages []model.CrawledPage) (int, error)
	ListCrawledPages(ctx context.Context, runID string) ([]model.CrawledPage, error)

	// Analysis
	UpsertSiteAnalysis(ctx context.Context, analysis *model.SiteAnalysis) error
	GetSiteAnalysis(ctx context.Context, runID string) (*model.SiteAnalysis, error)

	// Prompts and responses
	ReplaceScanPrompts(ctx context.Context, runID string, prompts []model.ScanPrompt) ([]model.ScanPrompt, error)
	ListScanPrompts(ctx context.Context, runID string) ([]model.ScanPrompt, error)
	SavePlatformResponse(ctx context.Context, resp *model.PlatformResponse) error
	ListPlatformResponses(ctx context.Context, runID string) ([]model.PlatformResponse, error)

	// Reports and score history
	SaveReport(ctx context.Context, report *model.Report) error
	GetReportByRun(ctx context.Context, runID string) (*model.Report, error)
	GetReportByToken(ctx context.Context, token string) (*model.Report, error)
	VerifyReport(ctx context.Context, verificationToken string) (*model.Report, error)
	SetCompetitiveSummary(ctx context.Context, runID, summary string) error
	UpsertScoreSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error
	PreviousSnapshot(ctx context.Context, leadID, domainSubscriptionID, excludeRunID string) (*model.ScoreSnapshot, error)

	// Subscriber question library
	ListActiveQuestions(ctx context.Context, leadID, domainSubscriptionID string) ([]model.SubscriberQuestion, error)
	CountQuestions(ctx context.Context, leadID, domainSubscriptionID string) (int, error)
	SeedQuestions(ctx context.Context, questions []model.SubscriberQuestion) error
	UpdateQuestion(ctx context.Context, id, text, category string) error
	ArchiveQuestion(ctx context.Context, id string) error
	RestoreQuestion(ctx context.Context, id string) error

	// Enrichment: brand awareness
	ReplaceBrandAwareness(ctx context.Context, runID string, results []model.BrandAwarenessResult) error
	ListBrandAwareness(ctx context.Context, runID string) ([]model.BrandAwarenessResult, error)

	// Enrichment: action plan
	GetActionPlan(ctx context.Context, runID string) (*model.ActionPlan, []model.ActionItem, error)
	ReplaceActionPlan(ctx context.Context, plan *model.ActionPlan, items []model.ActionItem) error
	ArchiveResolvedActionItems(ctx context.Context, leadID, domainSubscriptionID string) (int, error)
	CompletedActionTitles(ctx context.Context, leadID, domainSubscriptionID string) ([]string, error)
	SetActionItemStatus(ctx context.Context, itemID string, status model.ActionItemStatus) error

	// Enrichment: PRD
	GetPrd(ctx context.Context, runID string) (*model.PrdDocument, []model.PrdTask, error)
	DeletePrd(ctx context.Context, runID string) error
	ReplacePrd(ctx context.Context, doc *model.PrdDocument, tasks []model.PrdTask) error
	CompletedPrdTaskTitles(ctx context.Context, leadID, domainSubscriptionID string) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
