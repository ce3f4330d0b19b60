package model

import "time"

// BrandAwarenessResult is one direct "what do you know about X" probe result.
type BrandAwarenessResult struct {
	ID             string    `json:"id"`
	ScanRunID      string    `json:"scan_run_id"`
	Platform       Platform  `json:"platform"`
	Query          string    `json:"query"`
	QueryType      string    `json:"query_type"` // "direct" or "comparison"
	ResponseText   string    `json:"response_text"`
	BrandKnown     bool      `json:"brand_known"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActionPlan is the enrichment-generated improvement plan for a run.
type ActionPlan struct {
	ID        string    `json:"id"`
	ScanRunID string    `json:"scan_run_id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// ActionItemStatus is the user-visible completion lifecycle of an item.
type ActionItemStatus string

const (
	ActionItemOpen      ActionItemStatus = "open"
	ActionItemCompleted ActionItemStatus = "completed"
	ActionItemDismissed ActionItemStatus = "dismissed"
)

// ActionItem is one prioritized task inside an action plan.
type ActionItem struct {
	ID           string           `json:"id"`
	ActionPlanID string           `json:"action_plan_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Priority     int              `json:"priority"`
	Impact       string           `json:"impact"`
	Effort       string           `json:"effort"`
	Status       ActionItemStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

// PrdDocument is the developer-oriented task document derived from the plan.
type PrdDocument struct {
	ID        string    `json:"id"`
	ScanRunID string    `json:"scan_run_id"`
	Title     string    `json:"title"`
	Overview  string    `json:"overview"`
	CreatedAt time.Time `json:"created_at"`
}

// PrdTask is one implementation task inside a PRD document.
type PrdTask struct {
	ID          string           `json:"id"`
	PrdID       string           `json:"prd_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Acceptance  string           `json:"acceptance"`
	Position    int              `json:"position"`
	Status      ActionItemStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}
