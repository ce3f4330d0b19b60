package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/db"
	"github.com/mentionscope/scanner/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations (one write per platform
// query).
var preparedStatements = map[string]string{
	"save_platform_response": sqlSavePlatformResponse,
	"get_scan_run":           sqlGetScanRun,
	"update_scan_status":     sqlUpdateScanStatus,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- leads and tenancy ---

const sqlGetLead = `SELECT id, email, domain, tier, created_at FROM leads WHERE id = $1`

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	var l model.Lead
	err := s.pool.QueryRow(ctx, sqlGetLead, leadID).
		Scan(&l.ID, &l.Email, &l.Domain, &l.Tier, &l.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", leadID)
	}
	return &l, nil
}

const sqlGetLeadByEmail = `SELECT id, email, domain, tier, created_at FROM leads WHERE lower(email) = lower($1)`

// GetLeadByEmail returns (nil, nil) when no lead has the email.
func (s *PostgresStore) GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	var l model.Lead
	err := s.pool.QueryRow(ctx, sqlGetLeadByEmail, email).
		Scan(&l.ID, &l.Email, &l.Domain, &l.Tier, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get lead by email")
	}
	return &l, nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, email, domain string) (*model.Lead, error) {
	l := model.Lead{
		ID:        uuid.New().String(),
		Email:     email,
		Domain:    domain,
		Tier:      model.TierFree,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, email, domain, tier, created_at) VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.Email, l.Domain, string(l.Tier), l.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create lead")
	}
	return &l, nil
}

func (s *PostgresStore) GetDomainSubscription(ctx context.Context, id string) (*model.DomainSubscription, error) {
	var d model.DomainSubscription
	err := s.pool.QueryRow(ctx,
		`SELECT id, lead_id, domain, created_at FROM domain_subscriptions WHERE id = $1`, id,
	).Scan(&d.ID, &d.LeadID, &d.Domain, &d.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get domain subscription %s", id)
	}
	return &d, nil
}

// --- scan runs ---

const sqlUpsertScanRun = `
INSERT INTO scan_runs (id, lead_id, domain_subscription_id, domain, status, progress, enrichment_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	progress = EXCLUDED.progress,
	enrichment_status = EXCLUDED.enrichment_status,
	updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) UpsertScanRun(ctx context.Context, run *model.ScanRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	_, err := s.pool.Exec(ctx, sqlUpsertScanRun,
		run.ID, run.LeadID, run.DomainSubscriptionID, run.Domain,
		string(run.Status), run.Progress, string(run.EnrichmentStatus), now,
	)
	return eris.Wrapf(err, "postgres: upsert scan run %s", run.ID)
}

const sqlUpdateScanStatus = `UPDATE scan_runs SET status = $1, progress = $2, updated_at = $3 WHERE id = $4`

func (s *PostgresStore) UpdateScanStatus(ctx context.Context, runID string, status model.ScanStatus, progress int) error {
	tag, err := s.pool.Exec(ctx, sqlUpdateScanStatus, string(status), progress, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scan status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateEnrichmentStatus(ctx context.Context, runID string, status model.EnrichmentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_runs SET enrichment_status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update enrichment status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan run not found: %s", runID)
	}
	return nil
}

const sqlGetScanRun = `
SELECT id, lead_id, domain_subscription_id, domain, status, progress, enrichment_status, created_at, updated_at
FROM scan_runs WHERE id = $1`

func (s *PostgresStore) GetScanRun(ctx context.Context, runID string) (*model.ScanRun, error) {
	var r model.ScanRun
	err := s.pool.QueryRow(ctx, sqlGetScanRun, runID).Scan(
		&r.ID, &r.LeadID, &r.DomainSubscriptionID, &r.Domain,
		&r.Status, &r.Progress, &r.EnrichmentStatus, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scan run %s", runID)
	}
	return &r, nil
}

func (s *PostgresStore) ListScanRuns(ctx context.Context, filter RunFilter) ([]model.ScanRun, error) {
	query := `SELECT id, lead_id, domain_subscription_id, domain, status, progress, enrichment_status, created_at, updated_at
FROM scan_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Domain != "" {
		query += fmt.Sprintf(` AND domain = $%d`, argIdx)
		args = append(args, filter.Domain)
		argIdx++
	}
	if filter.LeadID != "" {
		query += fmt.Sprintf(` AND lead_id = $%d`, argIdx)
		args = append(args, filter.LeadID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scan runs")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		var r model.ScanRun
		if err := rows.Scan(
			&r.ID, &r.LeadID, &r.DomainSubscriptionID, &r.Domain,
			&r.Status, &r.Progress, &r.EnrichmentStatus, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list scan runs")
}
