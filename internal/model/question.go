package model

import "time"

// SubscriberQuestion is a user-owned question in a paying lead's library.
// When active questions exist for a lead/domain they replace the researched
// query path for subsequent scans.
type SubscriberQuestion struct {
	ID                   string     `json:"id"`
	LeadID               string     `json:"lead_id"`
	DomainSubscriptionID string     `json:"domain_subscription_id,omitempty"`
	Text                 string     `json:"text"`
	Category             string     `json:"category"`
	Source               string     `json:"source"` // "seeded" or "user"
	Version              int        `json:"version"`
	ArchivedAt           *time.Time `json:"archived_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Active reports whether the question participates in scans.
func (q SubscriberQuestion) Active() bool {
	return q.ArchivedAt == nil
}
