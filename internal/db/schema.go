package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS place_providers (
	id           TEXT PRIMARY KEY,
	company_id   TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	main_email   TEXT NOT NULL DEFAULT '',
	public       BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS places (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	address           TEXT NOT NULL DEFAULT '',
	place_provider_id TEXT NOT NULL REFERENCES place_providers (id),
	is_drive_in       BOOLEAN NOT NULL DEFAULT false,
	is_walk_in        BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS products (
	place_provider_id      TEXT NOT NULL,
	place_id               TEXT NOT NULL DEFAULT '',
	code                   TEXT NOT NULL,
	name                   TEXT NOT NULL,
	employees_registration BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (place_provider_id, place_id, code)
);

CREATE INDEX IF NOT EXISTS products_place_code_idx ON products (place_id, code);

CREATE TABLE IF NOT EXISTS registrations (
	id                  UUID PRIMARY KEY,
	first_name          TEXT NOT NULL DEFAULT '',
	last_name           TEXT NOT NULL DEFAULT '',
	birth_day           INT,
	birth_month         INT,
	birth_year          INT,
	city                TEXT NOT NULL DEFAULT '',
	street              TEXT NOT NULL DEFAULT '',
	street_no           TEXT NOT NULL DEFAULT '',
	zip                 TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	person_type         TEXT NOT NULL DEFAULT 'idcard',
	rc                  TEXT NOT NULL DEFAULT '',
	passport            TEXT NOT NULL DEFAULT '',
	company_identifiers JSONB NOT NULL DEFAULT '[]',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS registration_hashes (
	hash            TEXT PRIMARY KEY,
	registration_id UUID NOT NULL REFERENCES registrations (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS visitors (
	id                 UUID PRIMARY KEY,
	code               BIGINT NOT NULL,
	first_name         TEXT NOT NULL DEFAULT '',
	last_name          TEXT NOT NULL DEFAULT '',
	birth_day          INT,
	birth_month        INT,
	birth_year         INT,
	person_type        TEXT NOT NULL DEFAULT 'idcard',
	rc                 TEXT NOT NULL DEFAULT '',
	passport           TEXT NOT NULL DEFAULT '',
	street             TEXT NOT NULL DEFAULT '',
	street_no          TEXT NOT NULL DEFAULT '',
	zip                TEXT NOT NULL DEFAULT '',
	city               TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	employee_id        TEXT NOT NULL DEFAULT '',
	chosen_place_id    TEXT NOT NULL DEFAULT '',
	product            TEXT NOT NULL DEFAULT '',
	chosen_slot        BIGINT NOT NULL DEFAULT 0,
	registration_time  TIMESTAMPTZ,
	self_registration  BOOLEAN NOT NULL DEFAULT false,
	updated_by_manager TEXT NOT NULL DEFAULT '',
	personal_number    TEXT NOT NULL DEFAULT '',
	enqueued_at        TIMESTAMPTZ,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT visitors_code_key UNIQUE (code)
);

CREATE UNIQUE INDEX IF NOT EXISTS visitors_booking_uniq
	ON visitors (chosen_place_id, chosen_slot, personal_number)
	WHERE chosen_place_id <> '' AND personal_number <> '';

CREATE INDEX IF NOT EXISTS visitors_personal_number_idx ON visitors (personal_number);
`

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
