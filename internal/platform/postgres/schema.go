package postgres

// Schema is the DDL for the vetting service tables. Applied by
// deployment tooling and by integration tests against a fresh database.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id             UUID PRIMARY KEY,
	email          TEXT NOT NULL,
	display_name   TEXT NOT NULL DEFAULT '',
	role           TEXT NOT NULL DEFAULT 'Member',
	vetting_status TEXT,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email));

CREATE TABLE IF NOT EXISTS vetting_applications (
	id                     UUID PRIMARY KEY,
	scene_name             TEXT NOT NULL,
	legal_name             TEXT NOT NULL DEFAULT '',
	email                  TEXT NOT NULL,
	pronouns               TEXT NOT NULL DEFAULT '',
	experience_text        TEXT NOT NULL DEFAULT '',
	safety_text            TEXT NOT NULL DEFAULT '',
	community_text         TEXT NOT NULL DEFAULT '',
	references_json        JSONB NOT NULL DEFAULT '[]',
	status                 TEXT NOT NULL,
	status_token           TEXT NOT NULL,
	submitted_at           TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL,
	review_started_at      TIMESTAMPTZ,
	interview_scheduled_at TIMESTAMPTZ,
	interview_completed_at TIMESTAMPTZ,
	decision_made_at       TIMESTAMPTZ,
	last_reviewed_at       TIMESTAMPTZ,
	notes_json             JSONB NOT NULL DEFAULT '[]',
	user_id                UUID REFERENCES users (id)
);

CREATE UNIQUE INDEX IF NOT EXISTS vetting_applications_email_lower_idx
	ON vetting_applications (lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS vetting_applications_status_token_idx
	ON vetting_applications (status_token);
CREATE INDEX IF NOT EXISTS vetting_applications_user_id_idx
	ON vetting_applications (user_id);
CREATE INDEX IF NOT EXISTS vetting_applications_status_idx
	ON vetting_applications (status);

CREATE TABLE IF NOT EXISTS vetting_audit_log (
	id             UUID PRIMARY KEY,
	application_id UUID NOT NULL REFERENCES vetting_applications (id),
	action         TEXT NOT NULL,
	actor_id       UUID NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL,
	old_value      TEXT NOT NULL DEFAULT '',
	new_value      TEXT NOT NULL DEFAULT '',
	note           TEXT NOT NULL DEFAULT '',
	note_kind      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS vetting_audit_log_application_idx
	ON vetting_audit_log (application_id, timestamp DESC);
`
