package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/mentionscope/scanner/internal/model"
)

// --- reports ---

const sqlSaveReport = `
INSERT INTO reports (id, scan_run_id, overall_score, platform_scores, top_competitors, summary,
	competitive_summary, access_token, verification_token, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
ON CONFLICT (scan_run_id) DO UPDATE SET
	overall_score = EXCLUDED.overall_score,
	platform_scores = EXCLUDED.platform_scores,
	top_competitors = EXCLUDED.top_competitors,
	summary = EXCLUDED.summary,
	updated_at = EXCLUDED.updated_at
RETURNING id, access_token, verification_token, verified_at, expires_at, competitive_summary, created_at`

// SaveReport upserts the run's report. On conflict the access token,
// verification state, expiry, competitive summary, and created_at are left
// untouched so a re-finalized run never invalidates a link the lead already
// received or re-gates a report they already verified. The surviving values
// are read back into the report.
func (s *PostgresStore) SaveReport(ctx context.Context, report *model.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	scores := report.PlatformScores
	if scores == nil {
		scores = []model.PlatformScore{}
	}
	scoresRaw, err := json.Marshal(scores)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal platform scores")
	}
	competitors, err := jsonb(report.TopCompetitors)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, sqlSaveReport,
		report.ID, report.ScanRunID, report.OverallScore, scoresRaw, competitors,
		report.Summary, report.CompetitiveSummary, report.AccessToken,
		report.VerificationToken, report.ExpiresAt, now,
	).Scan(&report.ID, &report.AccessToken, &report.VerificationToken, &report.VerifiedAt,
		&report.ExpiresAt, &report.CompetitiveSummary, &report.CreatedAt)
	return eris.Wrapf(err, "postgres: save report %s", report.ScanRunID)
}

const sqlSelectReport = `
SELECT id, scan_run_id, overall_score, platform_scores, top_competitors, summary,
	competitive_summary, access_token, verification_token, verified_at, expires_at, created_at, updated_at
FROM reports`

func (s *PostgresStore) scanReport(row pgx.Row) (*model.Report, error) {
	var r model.Report
	var scores, competitors []byte
	err := row.Scan(
		&r.ID, &r.ScanRunID, &r.OverallScore, &scores, &competitors, &r.Summary,
		&r.CompetitiveSummary, &r.AccessToken, &r.VerificationToken, &r.VerifiedAt,
		&r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: report row")
	}
	if err := fromJSONB(scores, &r.PlatformScores); err != nil {
		return nil, err
	}
	if err := fromJSONB(competitors, &r.TopCompetitors); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReportByRun returns (nil, nil) when the run has not been finalized.
func (s *PostgresStore) GetReportByRun(ctx context.Context, runID string) (*model.Report, error) {
	return s.scanReport(s.pool.QueryRow(ctx, sqlSelectReport+` WHERE scan_run_id = $1`, runID))
}

// GetReportByToken returns (nil, nil) for an unknown token. Expiry is not
// checked here; the caller decides what an expired report means.
func (s *PostgresStore) GetReportByToken(ctx context.Context, token string) (*model.Report, error) {
	return s.scanReport(s.pool.QueryRow(ctx, sqlSelectReport+` WHERE access_token = $1`, token))
}

const sqlVerifyReport = `
UPDATE reports SET verified_at = COALESCE(verified_at, $2), updated_at = $2
WHERE verification_token = $1 AND verification_token <> ''
RETURNING id, scan_run_id, overall_score, platform_scores, top_competitors, summary,
	competitive_summary, access_token, verification_token, verified_at, expires_at, created_at, updated_at`

// VerifyReport marks the report behind the verification token as verified and
// returns it, access token included, so the caller can hand out the report
// link. Idempotent: a second click keeps the original verified_at. Returns
// (nil, nil) for an unknown token.
func (s *PostgresStore) VerifyReport(ctx context.Context, verificationToken string) (*model.Report, error) {
	return s.scanReport(s.pool.QueryRow(ctx, sqlVerifyReport, verificationToken, time.Now().UTC()))
}

func (s *PostgresStore) SetCompetitiveSummary(ctx context.Context, runID, summary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET competitive_summary = $1, updated_at = $2 WHERE scan_run_id = $3`,
		summary, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set competitive summary %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("report not found for run: %s", runID)
	}
	return nil
}

// --- score snapshots ---

const sqlUpsertScoreSnapshot = `
INSERT INTO score_snapshots (id, scan_run_id, lead_id, domain_subscription_id, overall_score, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (scan_run_id) DO UPDATE SET
	overall_score = EXCLUDED.overall_score`

func (s *PostgresStore) UpsertScoreSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, sqlUpsertScoreSnapshot,
		snap.ID, snap.ScanRunID, snap.LeadID, snap.DomainSubscriptionID,
		snap.OverallScore, snap.RecordedAt,
	)
	return eris.Wrapf(err, "postgres: upsert score snapshot %s", snap.ScanRunID)
}

// PreviousSnapshot returns the most recent snapshot for the lead and domain
// subscription excluding the given run, or (nil, nil) when this is the first
// scan. Feeds the score delta in the report email.
func (s *PostgresStore) PreviousSnapshot(ctx context.Context, leadID, domainSubscriptionID, excludeRunID string) (*model.ScoreSnapshot, error) {
	var snap model.ScoreSnapshot
	err := s.pool.QueryRow(ctx, `
SELECT id, scan_run_id, lead_id, domain_subscription_id, overall_score, recorded_at
FROM score_snapshots
WHERE lead_id = $1 AND domain_subscription_id = $2 AND scan_run_id <> $3
ORDER BY recorded_at DESC
LIMIT 1`, leadID, domainSubscriptionID, excludeRunID).Scan(
		&snap.ID, &snap.ScanRunID, &snap.LeadID, &snap.DomainSubscriptionID,
		&snap.OverallScore, &snap.RecordedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: previous snapshot")
	}
	return &snap, nil
}

// --- subscriber question library ---

const sqlSelectQuestions = `
SELECT id, lead_id, domain_subscription_id, text, category, source, version, archived_at, created_at, updated_at
FROM subscriber_questions`

func (s *PostgresStore) ListActiveQuestions(ctx context.Context, leadID, domainSubscriptionID string) ([]model.SubscriberQuestion, error) {
	rows, err := s.pool.Query(ctx,
		sqlSelectQuestions+` WHERE lead_id = $1 AND domain_subscription_id = $2 AND archived_at IS NULL ORDER BY created_at`,
		leadID, domainSubscriptionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active questions")
	}
	defer rows.Close()

	var questions []model.SubscriberQuestion
	for rows.Next() {
		var q model.SubscriberQuestion
		if err := rows.Scan(
			&q.ID, &q.LeadID, &q.DomainSubscriptionID, &q.Text, &q.Category,
			&q.Source, &q.Version, &q.ArchivedAt, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: question row")
		}
		questions = append(questions, q)
	}
	return questions, eris.Wrap(rows.Err(), "postgres: list active questions")
}

// CountQuestions counts all questions for the lead and domain, archived
// included. A non-zero count means the library was already seeded.
func (s *PostgresStore) CountQuestions(ctx context.Context, leadID, domainSubscriptionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM subscriber_questions WHERE lead_id = $1 AND domain_subscription_id = $2`,
		leadID, domainSubscriptionID,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count questions")
}

func (s *PostgresStore) SeedQuestions(ctx context.Context, questions []model.SubscriberQuestion) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin seed questions")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		if q.Version == 0 {
			q.Version = 1
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO subscriber_questions (id, lead_id, domain_subscription_id, text, category, source, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			q.ID, q.LeadID, q.DomainSubscriptionID, q.Text, q.Category, q.Source, q.Version, now,
		); err != nil {
			return eris.Wrap(err, "postgres: seed question")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit seed questions")
}

// UpdateQuestion records the outgoing version in history, then applies the
// edit with a version bump. Runs in one transaction so history and the live
// row never disagree.
func (s *PostgresStore) UpdateQuestion(ctx context.Context, id, text, category string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin update question")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
INSERT INTO subscriber_question_history (question_id, text, category, version)
SELECT id, text, category, version FROM subscriber_questions WHERE id = $1`, id,
	); err != nil {
		return eris.Wrapf(err, "postgres: record question history %s", id)
	}

	tag, err := tx.Exec(ctx, `
UPDATE subscriber_questions SET text = $1, category = $2, version = version + 1, updated_at = $3
WHERE id = $4`, text, category, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update question %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("question not found: %s", id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit update question")
}

func (s *PostgresStore) ArchiveQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriber_questions SET archived_at = $1, updated_at = $1 WHERE id = $2 AND archived_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: archive question %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("question not found or already archived: %s", id)
	}
	return nil
}

func (s *PostgresStore) RestoreQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriber_questions SET archived_at = NULL, updated_at = $1 WHERE id = $2 AND archived_at IS NOT NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: restore question %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("question not found or not archived: %s", id)
	}
	return nil
}
