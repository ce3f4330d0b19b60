package model

import "time"

// PlatformScore is one platform's visibility result. Attempted distinguishes
// "0% but queried" from "no data" for the presentation layer.
type PlatformScore struct {
	Platform  Platform `json:"platform"`
	Score     float64  `json:"score"`
	Mentions  int      `json:"mentions"`
	Attempted int      `json:"attempted"`
}

// CompetitorMention is one competitor with its aggregate mention count.
type CompetitorMention struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Report is the finalized user-facing scoring artifact for a scan run.
// One per run; retries update in place preserving the access token.
// A non-empty VerificationToken with a nil VerifiedAt means the lead has to
// confirm their email address before the access token serves the report.
type Report struct {
	ID                 string              `json:"id"`
	ScanRunID          string              `json:"scan_run_id"`
	OverallScore       float64             `json:"overall_score"`
	PlatformScores     []PlatformScore     `json:"platform_scores"`
	TopCompetitors     []CompetitorMention `json:"top_competitors,omitempty"`
	Summary            string              `json:"summary"`
	CompetitiveSummary string              `json:"competitive_summary,omitempty"`
	AccessToken        string              `json:"access_token"`
	VerificationToken  string              `json:"-"`
	VerifiedAt         *time.Time          `json:"verified_at,omitempty"`
	ExpiresAt          *time.Time          `json:"expires_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// ScoreSnapshot is one time-series point per run, used for trend charts.
// Upserted keyed by run so retries never duplicate history.
type ScoreSnapshot struct {
	ID                   string    `json:"id"`
	ScanRunID            string    `json:"scan_run_id"`
	LeadID               string    `json:"lead_id"`
	DomainSubscriptionID string    `json:"domain_subscription_id,omitempty"`
	OverallScore         float64   `json:"overall_score"`
	RecordedAt           time.Time `json:"recorded_at"`
}
