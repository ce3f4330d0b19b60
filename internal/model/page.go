package model

import "time"

// CrawledPage is one page's extracted content. Immutable once written.
type CrawledPage struct {
	ID              string           `json:"id"`
	ScanRunID       string           `json:"scan_run_id"`
	URL             string           `json:"url"`
	Title           string           `json:"title"`
	MetaDescription string           `json:"meta_description"`
	H1              string           `json:"h1"`
	Headings        []string         `json:"headings,omitempty"`
	BodyText        string           `json:"body_text"`
	StructuredData  []StructuredData `json:"structured_data,omitempty"`
	FetchedAt       time.Time        `json:"fetched_at"`
}

// StructuredData is one JSON-LD block reduced to the fields the analyzer
// cares about.
type StructuredData struct {
	Type        string   `json:"type"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	Geo         string   `json:"geo,omitempty"`
	ServiceArea string   `json:"service_area,omitempty"`
	Products    []string `json:"products,omitempty"`
	Offers      []string `json:"offers,omitempty"`
}

// SiteSignals aggregates site-level facts harvested before any AI call runs.
type SiteSignals struct {
	HasSitemap   bool     `json:"has_sitemap"`
	HasRobots    bool     `json:"has_robots"`
	SchemaTypes  []string `json:"schema_types,omitempty"`
	Locations    []string `json:"locations,omitempty"`
	ServiceNames []string `json:"service_names,omitempty"`
	ProductNames []string `json:"product_names,omitempty"`
}

// CrawlResult is the crawler's output for one domain.
type CrawlResult struct {
	Pages   []CrawledPage `json:"pages"`
	Signals SiteSignals   `json:"signals"`
}
