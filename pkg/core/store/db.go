// Package store persists filing metadata to Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a pgx connection pool for the given database URL.
// The pool is passed explicitly to repositories; there is no package
// global.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL not set")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}

// schema is the relational model for ingested filings. The
// (accession_number, sequence) primary key is what makes concurrent
// upserts of the same filing safe.
const schema = `
CREATE TABLE IF NOT EXISTS company (
	cik      BIGINT PRIMARY KEY,
	cik_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS company_filing (
	accession_number TEXT PRIMARY KEY,
	cik              BIGINT NOT NULL REFERENCES company (cik),
	form_type        TEXT,
	date_filed       DATE,
	path             TEXT NOT NULL,
	sha1             TEXT,
	document_count   INTEGER NOT NULL DEFAULT 0,
	is_processed     BOOLEAN NOT NULL DEFAULT FALSE,
	is_error         BOOLEAN NOT NULL DEFAULT FALSE,
	date_downloaded  DATE NOT NULL DEFAULT CURRENT_DATE
);
CREATE INDEX IF NOT EXISTS company_filing_cik_idx ON company_filing (cik);
CREATE INDEX IF NOT EXISTS company_filing_form_type_idx ON company_filing (form_type);

CREATE TABLE IF NOT EXISTS filing_document (
	accession_number TEXT NOT NULL REFERENCES company_filing (accession_number),
	sequence         INTEGER NOT NULL,
	type             TEXT,
	file_name        TEXT,
	content_type     TEXT,
	description      TEXT,
	sha1             TEXT NOT NULL,
	start_pos        INTEGER NOT NULL DEFAULT 0,
	end_pos          INTEGER NOT NULL DEFAULT 0,
	is_processed     BOOLEAN NOT NULL DEFAULT FALSE,
	is_error         BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (accession_number, sequence)
);
CREATE INDEX IF NOT EXISTS filing_document_sha1_idx ON filing_document (sha1);
CREATE INDEX IF NOT EXISTS filing_document_description_idx ON filing_document (description);
`

// EnsureSchema creates the ingestion tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
