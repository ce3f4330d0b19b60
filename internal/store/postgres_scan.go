package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/db"
	"github.com/mentionscope/scanner/internal/model"
)

// jsonb marshals v for a JSONB column, mapping empty slices to NULL.
func jsonb(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal jsonb")
	}
	if string(raw) == "null" || string(raw) == "[]" {
		return nil, nil
	}
	return raw, nil
}

// fromJSONB unmarshals a JSONB column, leaving out untouched for NULL.
func fromJSONB(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return eris.Wrap(json.Unmarshal(raw, out), "postgres: unmarshal jsonb")
}

// --- crawled pages ---

var crawledPageColumns = []string{
	"id", "scan_run_id", "url", "title", "meta_description", "h1",
	"headings", "body_text", "structured_data", "fetched_at",
}

// ReplaceCrawledPages deletes any prior pages for the run and bulk-inserts
// the new set via COPY. Delete-then-insert keeps a retried crawl step from
// doubling the page set.
func (s *PostgresStore) ReplaceCrawledPages(ctx context.Context, runID string, pages []model.CrawledPage) (int, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM crawled_pages WHERE scan_run_id = $1`, runID); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear crawled pages %s", runID)
	}

	rows := make([][]any, 0, len(pages))
	for i := range pages {
		p := &pages[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.ScanRunID = runID

		headings, err := jsonb(p.Headings)
		if err != nil {
			return 0, err
		}
		structured, err := jsonb(p.StructuredData)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			p.ID, runID, p.URL, p.Title, p.MetaDescription, p.H1,
			headings, p.BodyText, structured, p.FetchedAt,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "crawled_pages", crawledPageColumns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert crawled pages %s", runID)
	}
	return int(n), nil
}

func (s *PostgresStore) ListCrawledPages(ctx context.Context, runID string) ([]model.CrawledPage, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, scan_run_id, url, title, meta_description, h1, headings, body_text, structured_data, fetched_at
FROM crawled_pages WHERE scan_run_id = $1 ORDER BY fetched_at, id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list crawled pages %s", runID)
	}
	defer rows.Close()

	var pages []model.CrawledPage
	for rows.Next() {
		var p model.CrawledPage
		var headings, structured []byte
		if err := rows.Scan(
			&p.ID, &p.ScanRunID, &p.URL, &p.Title, &p.MetaDescription, &p.H1,
			&headings, &p.BodyText, &structured, &p.FetchedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: crawled page row")
		}
		if err := fromJSONB(headings, &p.Headings); err != nil {
			return nil, err
		}
		if err := fromJSONB(structured, &p.StructuredData); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, eris.Wrap(rows.Err(), "postgres: list crawled pages")
}

// --- site analysis ---

const sqlUpsertSiteAnalysis = `
INSERT INTO site_analyses (id, scan_run_id, business_name, business_type, industry, services, products,
	target_audience, key_phrases, location, location_confidence, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (scan_run_id) DO UPDATE SET
	business_name = EXCLUDED.business_name,
	business_type = EXCLUDED.business_type,
	industry = EXCLUDED.industry,
	services = EXCLUDED.services,
	products = EXCLUDED.products,
	target_audience = EXCLUDED.target_audience,
	key_phrases = EXCLUDED.key_phrases,
	location = EXCLUDED.location,
	location_confidence = EXCLUDED.location_confidence`

func (s *PostgresStore) UpsertSiteAnalysis(ctx context.Context, analysis *model.SiteAnalysis) error {
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	services, err := jsonb(analysis.Services)
	if err != nil {
		return err
	}
	products, err := jsonb(analysis.Products)
	if err != nil {
		return err
	}
	phrases, err := jsonb(analysis.KeyPhrases)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, sqlUpsertSiteAnalysis,
		analysis.ID, analysis.ScanRunID, analysis.BusinessName, analysis.BusinessType,
		analysis.Industry, services, products, analysis.TargetAudience, phrases,
		analysis.Location, analysis.LocationConfidence, analysis.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert site analysis %s", analysis.ScanRunID)
}

// GetSiteAnalysis returns (nil, nil) when the run has no analysis yet; the
// enrichment workflow polls on that.
func (s *PostgresStore) GetSiteAnalysis(ctx context.Context, runID string) (*model.SiteAnalysis, error) {
	var a model.SiteAnalysis
	var services, products, phrases []byte
	err := s.pool.QueryRow(ctx, `
SELECT id, scan_run_id, business_name, business_type, industry, services, products,
	target_audience, key_phrases, location, location_confidence, created_at
FROM site_analyses WHERE scan_run_id = $1`, runID).Scan(
		&a.ID, &a.ScanRunID, &a.BusinessName, &a.BusinessType, &a.Industry,
		&services, &products, &a.TargetAudience, &phrases,
		&a.Location, &a.LocationConfidence, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get site analysis %s", runID)
	}
	if err := fromJSONB(services, &a.Services); err != nil {
		return nil, err
	}
	if err := fromJSONB(products, &a.Products); err != nil {
		return nil, err
	}
	if err := fromJSONB(phrases, &a.KeyPhrases); err != nil {
		return nil, err
	}
	return &a, nil
}

// --- prompts ---

// ReplaceScanPrompts deletes any prior prompt set for the run and inserts
// the new one in a single transaction, assigning ids and positions.
func (s *PostgresStore) ReplaceScanPrompts(ctx context.Context, runID string, prompts []model.ScanPrompt) ([]model.ScanPrompt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin replace prompts")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM scan_prompts WHERE scan_run_id = $1`, runID); err != nil {
		return nil, eris.Wrapf(err, "postgres: clear prompts %s", runID)
	}

	now := time.Now().UTC()
	for i := range prompts {
		p := &prompts[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.ScanRunID = runID
		p.Position = i
		p.CreatedAt = now

		if _, err := tx.Exec(ctx, `
INSERT INTO scan_prompts (id, scan_run_id, text, category, source, position, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, runID, p.Text, p.Category, string(p.Source), p.Position, now,
		); err != nil {
			return nil, eris.Wrapf(err, "postgres: insert prompt %s", runID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit replace prompts")
	}
	return prompts, nil
}

func (s *PostgresStore) ListScanPrompts(ctx context.Context, runID string) ([]model.ScanPrompt, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, scan_run_id, text, category, source, position, created_at
FROM scan_prompts WHERE scan_run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list prompts %s", runID)
	}
	defer rows.Close()

	var prompts []model.ScanPrompt
	for rows.Next() {
		var p model.ScanPrompt
		if err := rows.Scan(&p.ID, &p.ScanRunID, &p.Text, &p.Category, &p.Source, &p.Position, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: prompt row")
		}
		prompts = append(prompts, p)
	}
	return prompts, eris.Wrap(rows.Err(), "postgres: list prompts")
}

// --- platform responses ---

const sqlSavePlatformResponse = `
INSERT INTO platform_responses (id, scan_run_id, prompt_id, platform, response_text, domain_mentioned,
	mention_position, competitors, sources, response_time_ms, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (scan_run_id, prompt_id, platform) DO UPDATE SET
	response_text = EXCLUDED.response_text,
	domain_mentioned = EXCLUDED.domain_mentioned,
	mention_position = EXCLUDED.mention_position,
	competitors = EXCLUDED.competitors,
	sources = EXCLUDED.sources,
	response_time_ms = EXCLUDED.response_time_ms,
	error = EXCLUDED.error`

// SavePlatformResponse upserts on the (run, prompt, platform) key, which is
// what keeps retried query steps at exactly one row per pair.
func (s *PostgresStore) SavePlatformResponse(ctx context.Context, resp *model.PlatformResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}

	competitors, err := jsonb(resp.CompetitorsMentioned)
	if err != nil {
		return err
	}
	sources, err := jsonb(resp.Sources)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, sqlSavePlatformResponse,
		resp.ID, resp.ScanRunID, resp.PromptID, string(resp.Platform),
		resp.ResponseText, resp.DomainMentioned, resp.MentionPosition,
		competitors, sources, resp.ResponseTimeMs, resp.Error, resp.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: save platform response %s/%s", resp.PromptID, resp.Platform)
}

func (s *PostgresStore) ListPlatformResponses(ctx context.Context, runID string) ([]model.PlatformResponse, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, scan_run_id, prompt_id, platform, response_text, domain_mentioned, mention_position,
	competitors, sources, response_time_ms, error, created_at
FROM platform_responses WHERE scan_run_id = $1 ORDER BY prompt_id, platform`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list platform responses %s", runID)
	}
	defer rows.Close()

	var responses []model.PlatformResponse
	for rows.Next() {
		var r model.PlatformResponse
		var competitors, sources []byte
		if err := rows.Scan(
			&r.ID, &r.ScanRunID, &r.PromptID, &r.Platform, &r.ResponseText,
			&r.DomainMentioned, &r.MentionPosition, &competitors, &sources,
			&r.ResponseTimeMs, &r.Error, &r.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: platform response row")
		}
		if err := fromJSONB(competitors, &r.CompetitorsMentioned); err != nil {
			return nil, err
		}
		if err := fromJSONB(sources, &r.Sources); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, eris.Wrap(rows.Err(), "postgres: list platform responses")
}
