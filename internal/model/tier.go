package model

// Tier is a subscription level. Billing rules live outside this system; the
// scanner only needs to know which features a tier unlocks.
type Tier string

const (
	TierFree   Tier = "free"
	TierStart  Tier = "starter"
	TierGrowth Tier = "growth"
	TierAgency Tier = "agency"
)

// Paying reports whether the tier unlocks subscriber questions, enrichment
// and the scan-complete email.
func (t Tier) Paying() bool {
	return t == TierStart || t == TierGrowth || t == TierAgency
}

// FeatureFlags gates tier-specific behavior consulted by the workflows.
type FeatureFlags struct {
	SubscriberQuestions bool `json:"subscriber_questions"`
	Enrichment          bool `json:"enrichment"`
	ShowPrdTasks        bool `json:"show_prd_tasks"`
	ReportExpires       bool `json:"report_expires"`
}

// FlagsForTier maps a tier to its feature flags.
func FlagsForTier(t Tier) FeatureFlags {
	switch t {
	case TierStart:
		return FeatureFlags{SubscriberQuestions: true, Enrichment: true}
	case TierGrowth, TierAgency:
		return FeatureFlags{SubscriberQuestions: true, Enrichment: true, ShowPrdTasks: true}
	default:
		return FeatureFlags{ReportExpires: true}
	}
}
