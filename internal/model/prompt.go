package model

import "time"

// PromptSource records where a scan prompt came from.
type PromptSource string

const (
	PromptSourceResearched PromptSource = "researched"
	PromptSourceSubscriber PromptSource = "subscriber"
)

// ScanPrompt is one question actually asked of the AI platforms for a run.
// Immutable after creation.
type ScanPrompt struct {
	ID        string       `json:"id"`
	ScanRunID string       `json:"scan_run_id"`
	Text      string       `json:"text"`
	Category  string       `json:"category"`
	Source    PromptSource `json:"source"`
	Position  int          `json:"position"`
	CreatedAt time.Time    `json:"created_at"`
}

// RawQuerySuggestion is one candidate question proposed by the researcher
// before central dedup and ranking.
type RawQuerySuggestion struct {
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Platform Platform `json:"platform"`
	Score    float64  `json:"score"`
}

// PlatformResponse is one (prompt, platform) result. Exactly one row exists
// per pair after the workflow completes, even under step retries.
type PlatformResponse struct {
	ID                   string    `json:"id"`
	ScanRunID            string    `json:"scan_run_id"`
	PromptID             string    `json:"prompt_id"`
	Platform             Platform  `json:"platform"`
	ResponseText         string    `json:"response_text"`
	DomainMentioned      bool      `json:"domain_mentioned"`
	MentionPosition      int       `json:"mention_position"`
	CompetitorsMentioned []string  `json:"competitors_mentioned,omitempty"`
	Sources              []string  `json:"sources,omitempty"`
	ResponseTimeMs       int64     `json:"response_time_ms"`
	Error                string    `json:"error,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}
