package model

import "time"

// SiteAnalysis is the structured business profile for a scan run.
// One-to-one with ScanRun; re-analysis replaces it.
type SiteAnalysis struct {
	ID                 string    `json:"id"`
	ScanRunID          string    `json:"scan_run_id"`
	BusinessName       string    `json:"business_name"`
	BusinessType       string    `json:"business_type"`
	Industry           string    `json:"industry"`
	Services           []string  `json:"services,omitempty"`
	Products           []string  `json:"products,omitempty"`
	TargetAudience     string    `json:"target_audience"`
	KeyPhrases         []string  `json:"key_phrases,omitempty"`
	Location           string    `json:"location"`
	LocationConfidence float64   `json:"location_confidence"`
	CreatedAt          time.Time `json:"created_at"`
}

// BusinessProfile is the Content Analyzer's raw output before geography
// resolution merges in the final location.
type BusinessProfile struct {
	BusinessName   string   `json:"business_name"`
	BusinessType   string   `json:"business_type"`
	Industry       string   `json:"industry"`
	Services       []string `json:"services,omitempty"`
	Products       []string `json:"products,omitempty"`
	TargetAudience string   `json:"target_audience"`
	KeyPhrases     []string `json:"key_phrases,omitempty"`
	Location       string   `json:"location"`
}
