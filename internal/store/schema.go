package store

// postgresSchema creates every table the pipeline writes. domain_subscription_id
// is TEXT NOT NULL DEFAULT '' rather than nullable so tenancy equality checks
// stay plain. The unique indexes are the idempotency backbone: retried
// workflow steps upsert against them instead of inserting duplicates.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email      TEXT NOT NULL UNIQUE,
	domain     TEXT NOT NULL DEFAULT '',
	tier       TEXT NOT NULL DEFAULT 'free',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS domain_subscriptions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id    TEXT NOT NULL REFERENCES leads(id),
	domain     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scan_runs (
	id                     TEXT PRIMARY KEY,
	lead_id                TEXT NOT NULL REFERENCES leads(id),
	domain_subscription_id TEXT NOT NULL DEFAULT '',
	domain                 TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'crawling',
	progress               INTEGER NOT NULL DEFAULT 0,
	enrichment_status      TEXT NOT NULL DEFAULT 'pending',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_lead ON scan_runs(lead_id);
CREATE INDEX IF NOT EXISTS idx_scan_runs_status ON scan_runs(status);
CREATE INDEX IF NOT EXISTS idx_scan_runs_domain ON scan_runs(domain);

CREATE TABLE IF NOT EXISTS crawled_pages (
	id               TEXT PRIMARY KEY,
	scan_run_id      TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
	url              TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	meta_description TEXT NOT NULL DEFAULT '',
	h1               TEXT NOT NULL DEFAULT '',
	headings         JSONB,
	body_text        TEXT NOT NULL DEFAULT '',
	structured_data  JSONB,
	fetched_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_crawled_pages_run ON crawled_pages(scan_run_id);

CREATE TABLE IF NOT EXISTS site_analyses (
	id                  TEXT PRIMARY KEY,
	scan_run_id         TEXT NOT NULL UNIQUE REFERENCES scan_runs(id) ON DELETE CASCADE,
	business_name       TEXT NOT NULL DEFAULT '',
	business_type       TEXT NOT NULL DEFAULT '',
	industry            TEXT NOT NULL DEFAULT '',
	services            JSONB,
	products            JSONB,
	target_audience     TEXT NOT NULL DEFAULT '',
	key_phrases         JSONB,
	location            TEXT NOT NULL DEFAULT '',
	location_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scan_prompts (
	id          TEXT PRIMARY KEY,
	scan_run_id TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	position    INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_prompts_run ON scan_prompts(scan_run_id);

CREATE TABLE IF NOT EXISTS platform_responses (
	id               TEXT PRIMARY KEY,
	scan_run_id      TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
	prompt_id        TEXT NOT NULL REFERENCES scan_prompts(id) ON DELETE CASCADE,
	platform         TEXT NOT NULL,
	response_text    TEXT NOT NULL DEFAULT '',
	domain_mentioned BOOLEAN NOT NULL DEFAULT false,
	mention_position INTEGER NOT NULL DEFAULT 0,
	competitors      JSONB,
	sources          JSONB,
	response_time_ms BIGINT NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_platform_responses_pair
	ON platform_responses(scan_run_id, prompt_id, platform);

CREATE TABLE IF NOT EXISTS reports (
	id                  TEXT PRIMARY KEY,
	scan_run_id         TEXT NOT NULL UNIQUE REFERENCES scan_runs(id) ON DELETE CASCADE,
	overall_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	platform_scores     JSONB NOT NULL,
	top_competitors     JSONB,
	summary             TEXT NOT NULL DEFAULT '',
	competitive_summary TEXT NOT NULL DEFAULT '',
	access_token        TEXT NOT NULL UNIQUE,
	verification_token  TEXT NOT NULL DEFAULT '',
	verified_at         TIMESTAMPTZ,
	expires_at          TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS score_snapshots (
	id                     TEXT PRIMARY KEY,
	scan_run_id            TEXT NOT NULL UNIQUE REFERENCES scan_runs(id) ON DELETE CASCADE,
	lead_id                TEXT NOT NULL,
	domain_subscription_id TEXT NOT NULL DEFAULT '',
	overall_score          DOUBLE PRECISION NOT NULL,
	recorded_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_score_snapshots_lead
	ON score_snapshots(lead_id, domain_subscription_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS subscriber_questions (
	id                     TEXT PRIMARY KEY,
	lead_id                TEXT NOT NULL REFERENCES leads(id),
	domain_subscription_id TEXT NOT NULL DEFAULT '',
	text                   TEXT NOT NULL,
	category               TEXT NOT NULL DEFAULT '',
	source                 TEXT NOT NULL DEFAULT 'seeded',
	version                INTEGER NOT NULL DEFAULT 1,
	archived_at            TIMESTAMPTZ,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_subscriber_questions_lead
	ON subscriber_questions(lead_id, domain_subscription_id);

CREATE TABLE IF NOT EXISTS subscriber_question_history (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	question_id TEXT NOT NULL REFERENCES subscriber_questions(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	version     INTEGER NOT NULL,
	changed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS brand_awareness_results (
	id               TEXT PRIMARY KEY,
	scan_run_id      TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
	platform         TEXT NOT NULL,
	query            TEXT NOT NULL,
	query_type       TEXT NOT NULL,
	response_text    TEXT NOT NULL DEFAULT '',
	brand_known      BOOLEAN NOT NULL DEFAULT false,
	response_time_ms BIGINT NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_brand_awareness_run ON brand_awareness_results(scan_run_id);

CREATE TABLE IF NOT EXISTS action_plans (
	id          TEXT PRIMARY KEY,
	scan_run_id TEXT NOT NULL UNIQUE REFERENCES scan_runs(id) ON DELETE CASCADE,
	summary     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS action_items (
	id             TEXT PRIMARY KEY,
	action_plan_id TEXT NOT NULL REFERENCES action_plans(id) ON DELETE CASCADE,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	priority       INTEGER NOT NULL DEFAULT 0,
	impact         TEXT NOT NULL DEFAULT '',
	effort         TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'open',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_action_items_plan ON action_items(action_plan_id);

CREATE TABLE IF NOT EXISTS action_item_history (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id                TEXT NOT NULL,
	domain_subscription_id TEXT NOT NULL DEFAULT '',
	source_run_id          TEXT NOT NULL,
	title                  TEXT NOT NULL,
	status                 TEXT NOT NULL,
	archived_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_action_item_history_lead
	ON action_item_history(lead_id, domain_subscription_id);

CREATE TABLE IF NOT EXISTS prd_documents (
	id          TEXT PRIMARY KEY,
	scan_run_id TEXT NOT NULL UNIQUE REFERENCES scan_runs(id) ON DELETE CASCADE,
	title       TEXT NOT NULL DEFAULT '',
	overview    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prd_tasks (
	id          TEXT PRIMARY KEY,
	prd_id      TEXT NOT NULL REFERENCES prd_documents(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	acceptance  TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT 'open',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prd_tasks_prd ON prd_tasks(prd_id);

CREATE TABLE IF NOT EXISTS prd_task_history (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id                TEXT NOT NULL,
	domain_subscription_id TEXT NOT NULL DEFAULT '',
	source_run_id          TEXT NOT NULL,
	title                  TEXT NOT NULL,
	status                 TEXT NOT NULL,
	archived_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prd_task_history_lead
	ON prd_task_history(lead_id, domain_subscription_id);
`
