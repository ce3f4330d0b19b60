package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/model"
)

// --- brand awareness ---

// ReplaceBrandAwareness deletes prior probe results for the run and inserts
// the new set in one transaction.
func (s *PostgresStore) ReplaceBrandAwareness(ctx context.Context, runID string, results []model.BrandAwarenessResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace brand awareness")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM brand_awareness_results WHERE scan_run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear brand awareness %s", runID)
	}

	now := time.Now().UTC()
	for i := range results {
		r := &results[i]
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.ScanRunID = runID
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO brand_awareness_results (id, scan_run_id, platform, query, query_type, response_text,
	brand_known, response_time_ms, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			r.ID, runID, string(r.Platform), r.Query, r.QueryType, r.ResponseText,
			r.BrandKnown, r.ResponseTimeMs, r.Error, r.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert brand awareness %s", runID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace brand awareness")
}

func (s *PostgresStore) ListBrandAwareness(ctx context.Context, runID string) ([]model.BrandAwarenessResult, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, scan_run_id, platform, query, query_type, response_text, brand_known, response_time_ms, error, created_at
FROM brand_awareness_results WHERE scan_run_id = $1 ORDER BY platform, query_type, query`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list brand awareness %s", runID)
	}
	defer rows.Close()

	var results []model.BrandAwarenessResult
	for rows.Next() {
		var r model.BrandAwarenessResult
		if err := rows.Scan(
			&r.ID, &r.ScanRunID, &r.Platform, &r.Query, &r.QueryType,
			&r.ResponseText, &r.BrandKnown, &r.ResponseTimeMs, &r.Error, &r.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: brand awareness row")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list brand awareness")
}

// --- action plans ---

// GetActionPlan returns (nil, nil, nil) when the run has no plan.
func (s *PostgresStore) GetActionPlan(ctx context.Context, runID string) (*model.ActionPlan, []model.ActionItem, error) {
	var plan model.ActionPlan
	err := s.pool.QueryRow(ctx,
		`SELECT id, scan_run_id, summary, created_at FROM action_plans WHERE scan_run_id = $1`, runID,
	).Scan(&plan.ID, &plan.ScanRunID, &plan.Summary, &plan.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: get action plan %s", runID)
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, action_plan_id, title, description, priority, impact, effort, status, created_at
FROM action_items WHERE action_plan_id = $1 ORDER BY priority, created_at`, plan.ID)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: list action items %s", plan.ID)
	}
	defer rows.Close()

	var items []model.ActionItem
	for rows.Next() {
		var it model.ActionItem
		if err := rows.Scan(
			&it.ID, &it.ActionPlanID, &it.Title, &it.Description,
			&it.Priority, &it.Impact, &it.Effort, &it.Status, &it.CreatedAt,
		); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: action item row")
		}
		items = append(items, it)
	}
	return &plan, items, eris.Wrap(rows.Err(), "postgres: list action items")
}

// ReplaceActionPlan drops any existing plan for the run (items cascade) and
// writes the new plan and items in one transaction.
func (s *PostgresStore) ReplaceActionPlan(ctx context.Context, plan *model.ActionPlan, items []model.ActionItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace action plan")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM action_plans WHERE scan_run_id = $1`, plan.ScanRunID); err != nil {
		return eris.Wrapf(err, "postgres: clear action plan %s", plan.ScanRunID)
	}

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO action_plans (id, scan_run_id, summary, created_at) VALUES ($1, $2, $3, $4)`,
		plan.ID, plan.ScanRunID, plan.Summary, plan.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert action plan %s", plan.ScanRunID)
	}

	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.ActionPlanID = plan.ID
		if it.Status == "" {
			it.Status = model.ActionItemOpen
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO action_items (id, action_plan_id, title, description, priority, impact, effort, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, plan.ID, it.Title, it.Description, it.Priority,
			it.Impact, it.Effort, string(it.Status), it.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert action item %s", plan.ScanRunID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace action plan")
}

// ArchiveResolvedActionItems copies every completed or dismissed item across
// all of the lead's runs for the domain into action_item_history. Runs before
// a new plan is generated, so resolved work is never suggested again even
// after the old plan row is replaced.
func (s *PostgresStore) ArchiveResolvedActionItems(ctx context.Context, leadID, domainSubscriptionID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO action_item_history (lead_id, domain_subscription_id, source_run_id, title, status)
SELECT sr.lead_id, sr.domain_subscription_id, sr.id, ai.title, ai.status
FROM action_items ai
JOIN action_plans ap ON ap.id = ai.action_plan_id
JOIN scan_runs sr ON sr.id = ap.scan_run_id
WHERE sr.lead_id = $1 AND sr.domain_subscription_id = $2
  AND ai.status IN ('completed', 'dismissed')`,
		leadID, domainSubscriptionID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: archive resolved action items")
	}
	return int(tag.RowsAffected()), nil
}

// CompletedActionTitles returns the titles of every resolved item for the
// lead and domain, from history and from any still-live plan. Callers
// normalize before comparing.
func (s *PostgresStore) CompletedActionTitles(ctx context.Context, leadID, domainSubscriptionID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT title FROM action_item_history
WHERE lead_id = $1 AND domain_subscription_id = $2
UNION
SELECT ai.title
FROM action_items ai
JOIN action_plans ap ON ap.id = ai.action_plan_id
JOIN scan_runs sr ON sr.id = ap.scan_run_id
WHERE sr.lead_id = $1 AND sr.domain_subscription_id = $2
  AND ai.status IN ('completed', 'dismissed')`,
		leadID, domainSubscriptionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: completed action titles")
	}
	defer rows.Close()
	return collectStrings(rows)
}

func (s *PostgresStore) SetActionItemStatus(ctx context.Context, itemID string, status model.ActionItemStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE action_items SET status = $1 WHERE id = $2`, string(status), itemID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set action item status %s", itemID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("action item not found: %s", itemID)
	}
	return nil
}

// --- PRD documents ---

// GetPrd returns (nil, nil, nil) when the run has no PRD.
func (s *PostgresStore) GetPrd(ctx context.Context, runID string) (*model.PrdDocument, []model.PrdTask, error) {
	var doc model.PrdDocument
	err := s.pool.QueryRow(ctx,
		`SELECT id, scan_run_id, title, overview, created_at FROM prd_documents WHERE scan_run_id = $1`, runID,
	).Scan(&doc.ID, &doc.ScanRunID, &doc.Title, &doc.Overview, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: get prd %s", runID)
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, prd_id, title, description, acceptance, position, status, created_at
FROM prd_tasks WHERE prd_id = $1 ORDER BY position`, doc.ID)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: list prd tasks %s", doc.ID)
	}
	defer rows.Close()

	var tasks []model.PrdTask
	for rows.Next() {
		var t model.PrdTask
		if err := rows.Scan(
			&t.ID, &t.PrdID, &t.Title, &t.Description, &t.Acceptance,
			&t.Position, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: prd task row")
		}
		tasks = append(tasks, t)
	}
	return &doc, tasks, eris.Wrap(rows.Err(), "postgres: list prd tasks")
}

// DeletePrd archives resolved tasks into prd_task_history before removing
// the document, so completed engineering work survives regeneration.
func (s *PostgresStore) DeletePrd(ctx context.Context, runID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete prd")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
INSERT INTO prd_task_history (lead_id, domain_subscription_id, source_run_id, title, status)
SELECT sr.lead_id, sr.domain_subscription_id, sr.id, pt.title, pt.status
FROM prd_tasks pt
JOIN prd_documents pd ON pd.id = pt.prd_id
JOIN scan_runs sr ON sr.id = pd.scan_run_id
WHERE pd.scan_run_id = $1 AND pt.status IN ('completed', 'dismissed')`, runID,
	); err != nil {
		return eris.Wrapf(err, "postgres: archive prd tasks %s", runID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM prd_documents WHERE scan_run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: delete prd %s", runID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit delete prd")
}

// ReplacePrd upserts the document and rewrites its tasks in one transaction.
func (s *PostgresStore) ReplacePrd(ctx context.Context, doc *model.PrdDocument, tasks []model.PrdTask) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace prd")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM prd_documents WHERE scan_run_id = $1`, doc.ScanRunID); err != nil {
		return eris.Wrapf(err, "postgres: clear prd %s", doc.ScanRunID)
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO prd_documents (id, scan_run_id, title, overview, created_at) VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, doc.ScanRunID, doc.Title, doc.Overview, doc.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert prd %s", doc.ScanRunID)
	}

	for i := range tasks {
		t := &tasks[i]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		t.PrdID = doc.ID
		t.Position = i
		if t.Status == "" {
			t.Status = model.ActionItemOpen
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO prd_tasks (id, prd_id, title, description, acceptance, position, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, doc.ID, t.Title, t.Description, t.Acceptance, t.Position, string(t.Status), t.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert prd task %s", doc.ScanRunID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace prd")
}

func (s *PostgresStore) CompletedPrdTaskTitles(ctx context.Context, leadID, domainSubscriptionID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT title FROM prd_task_history
WHERE lead_id = $1 AND domain_subscription_id = $2
UNION
SELECT pt.title
FROM prd_tasks pt
JOIN prd_documents pd ON pd.id = pt.prd_id
JOIN scan_runs sr ON sr.id = pd.scan_run_id
WHERE sr.lead_id = $1 AND sr.domain_subscription_id = $2
  AND pt.status IN ('completed', 'dismissed')`,
		leadID, domainSubscriptionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: completed prd task titles")
	}
	defer rows.Close()
	return collectStrings(rows)
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrap(err, "postgres: scan string row")
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "postgres: collect rows")
}
