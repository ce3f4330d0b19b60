package model

import "time"

// ScanStatus tracks a scan run through the workflow steps.
type ScanStatus string

const (
	ScanStatusCrawling    ScanStatus = "crawling"
	ScanStatusAnalyzing   ScanStatus = "analyzing"
	ScanStatusResearching ScanStatus = "researching"
	ScanStatusGenerating  ScanStatus = "generating"
	ScanStatusQuerying    ScanStatus = "querying"
	ScanStatusComplete    ScanStatus = "complete"
	ScanStatusFailed      ScanStatus = "failed"
)

// EnrichmentStatus tracks the secondary enrichment workflow for a run.
type EnrichmentStatus string

const (
	EnrichmentNotApplicable EnrichmentStatus = "not_applicable"
	EnrichmentPending       EnrichmentStatus = "pending"
	EnrichmentProcessing    EnrichmentStatus = "processing"
	EnrichmentComplete      EnrichmentStatus = "complete"
	EnrichmentFailed        EnrichmentStatus = "failed"
)

// ScanRun is one attempt to analyze one domain for one lead.
type ScanRun struct {
	ID                   string           `json:"id"`
	LeadID               string           `json:"lead_id"`
	DomainSubscriptionID string           `json:"domain_subscription_id,omitempty"`
	Domain               string           `json:"domain"`
	Status               ScanStatus       `json:"status"`
	Progress             int              `json:"progress"`
	EnrichmentStatus     EnrichmentStatus `json:"enrichment_status"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ScanRequest is the inbound "start scan" trigger.
type ScanRequest struct {
	Domain               string `json:"domain"`
	LeadID               string `json:"lead_id,omitempty"`
	Email                string `json:"email,omitempty"`
	DomainSubscriptionID string `json:"domain_subscription_id,omitempty"`
	VerificationToken    string `json:"verification_token,omitempty"`
	SkipEmail            bool   `json:"skip_email,omitempty"`
}

// Lead identifies the account a scan belongs to.
type Lead struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Domain    string    `json:"domain,omitempty"` // legacy single-domain accounts
	Tier      Tier      `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

// DomainSubscription scopes one tracked domain for a multi-domain account.
type DomainSubscription struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}
