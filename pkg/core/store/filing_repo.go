package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"openedgar/pkg/core/edgar"
	"openedgar/pkg/models"
)

// FilingRepo persists companies, filings and filing documents.
type FilingRepo struct {
	pool *pgxpool.Pool

	// saveOnce is the single-transaction write; a field so tests can
	// exercise the conflict-retry loop without a database.
	saveOnce func(ctx context.Context, company models.Company, filing models.Filing, docs []models.FilingDocument) (bool, error)
}

// NewFilingRepo creates a repository on an existing pool.
func NewFilingRepo(pool *pgxpool.Pool) *FilingRepo {
	r := &FilingRepo{pool: pool}
	r.saveOnce = r.saveFilingOnce
	return r
}

const pgUniqueViolation = "23505"

// SaveFiling upserts one filing and its documents in a single
// transaction: Company by CIK, Filing by accession number, one
// FilingDocument row per document keyed by (accession, sequence).
//
// Returns created=false when the filing was already fully recorded
// (idempotent re-run). A concurrent upsert race is retried once with a
// re-read; if the other writer did not complete either, the race
// surfaces as PersistenceConflictError.
func (r *FilingRepo) SaveFiling(ctx context.Context, company models.Company, filing models.Filing, docs []models.FilingDocument) (created bool, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		created, err = r.saveOnce(ctx, company, filing, docs)
		var conflict *edgar.PersistenceConflictError
		if errors.As(err, &conflict) && attempt == 0 {
			continue
		}
		return created, err
	}
	return created, err
}

func (r *FilingRepo) saveFilingOnce(ctx context.Context, company models.Company, filing models.Filing, docs []models.FilingDocument) (bool, error) {
	// Fast path: a processed filing with its documents on record is a
	// no-op. This is also the re-read after a conflict retry.
	done, err := r.isFullyRecorded(ctx, filing.AccessionNumber)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO company (cik, cik_name)
		VALUES ($1, $2)
		ON CONFLICT (cik) DO UPDATE SET cik_name = EXCLUDED.cik_name`,
		company.CIK, company.Name)
	if err != nil {
		return false, r.mapConflict(filing.AccessionNumber, "failed to upsert company", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO company_filing
			(accession_number, cik, form_type, date_filed, path, sha1,
			 document_count, is_processed, is_error, date_downloaded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, TRUE, $8)
		ON CONFLICT (accession_number) DO UPDATE SET
			sha1 = EXCLUDED.sha1,
			document_count = EXCLUDED.document_count,
			date_downloaded = EXCLUDED.date_downloaded`,
		filing.AccessionNumber, filing.CIK, filing.FormType, filing.DateFiled,
		filing.Path, filing.SHA1, len(docs), filing.DateDownloaded)
	if err != nil {
		return false, r.mapConflict(filing.AccessionNumber, "failed to upsert filing", err)
	}

	for _, doc := range docs {
		_, err = tx.Exec(ctx, `
			INSERT INTO filing_document
				(accession_number, sequence, type, file_name, content_type,
				 description, sha1, start_pos, end_pos, is_processed, is_error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (accession_number, sequence) DO NOTHING`,
			filing.AccessionNumber, doc.Sequence, doc.Type, doc.FileName,
			doc.ContentType, doc.Description, doc.SHA1, doc.StartPos,
			doc.EndPos, doc.IsProcessed, doc.IsError)
		if err != nil {
			return false, r.mapConflict(filing.AccessionNumber, "failed to insert document", err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE company_filing
		SET is_processed = TRUE, is_error = FALSE
		WHERE accession_number = $1`,
		filing.AccessionNumber)
	if err != nil {
		return false, fmt.Errorf("failed to mark filing processed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, r.mapConflict(filing.AccessionNumber, "failed to commit filing", err)
	}
	return true, nil
}

// SaveFilingError records an index row whose submission could not be
// retrieved or split, so re-runs can find and retry it.
func (r *FilingRepo) SaveFilingError(ctx context.Context, company models.Company, filing models.Filing) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO company (cik, cik_name)
		VALUES ($1, $2)
		ON CONFLICT (cik) DO UPDATE SET cik_name = EXCLUDED.cik_name`,
		company.CIK, company.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert company: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO company_filing
			(accession_number, cik, form_type, date_filed, path,
			 is_processed, is_error, date_downloaded)
		VALUES ($1, $2, $3, $4, $5, FALSE, TRUE, $6)
		ON CONFLICT (accession_number) DO UPDATE SET is_error = TRUE`,
		filing.AccessionNumber, filing.CIK, filing.FormType, filing.DateFiled,
		filing.Path, filing.DateDownloaded)
	if err != nil {
		return fmt.Errorf("failed to record filing error: %w", err)
	}

	return tx.Commit(ctx)
}

// IsRecorded reports whether a filing is already fully recorded, so a
// re-run can skip it without re-downloading the submission.
func (r *FilingRepo) IsRecorded(ctx context.Context, accession string) (bool, error) {
	return r.isFullyRecorded(ctx, accession)
}

func (r *FilingRepo) isFullyRecorded(ctx context.Context, accession string) (bool, error) {
	var processed bool
	var docCount, recorded int
	err := r.pool.QueryRow(ctx, `
		SELECT f.is_processed, f.document_count,
		       (SELECT COUNT(*) FROM filing_document d WHERE d.accession_number = f.accession_number)
		FROM company_filing f
		WHERE f.accession_number = $1`,
		accession).Scan(&processed, &docCount, &recorded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check filing %s: %w", accession, err)
	}
	return processed && recorded >= docCount, nil
}

func (r *FilingRepo) mapConflict(accession, msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &edgar.PersistenceConflictError{Accession: accession, Err: err}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// FilingsByCIK returns a company's filings ordered by filing date
// descending, with explicit pagination.
func (r *FilingRepo) FilingsByCIK(ctx context.Context, cik int64, limit, offset int) ([]models.Filing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT accession_number, cik, form_type, date_filed, path, sha1,
		       document_count, is_processed, is_error, date_downloaded
		FROM company_filing
		WHERE cik = $1
		ORDER BY date_filed DESC, accession_number
		LIMIT $2 OFFSET $3`,
		cik, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings by cik: %w", err)
	}
	defer rows.Close()
	return scanFilings(rows)
}

// FilingsByFormType returns filings of a form type ordered by filing
// date descending, with explicit pagination.
func (r *FilingRepo) FilingsByFormType(ctx context.Context, formType string, limit, offset int) ([]models.Filing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT accession_number, cik, form_type, date_filed, path, sha1,
		       document_count, is_processed, is_error, date_downloaded
		FROM company_filing
		WHERE form_type = $1
		ORDER BY date_filed DESC, accession_number
		LIMIT $2 OFFSET $3`,
		formType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings by form type: %w", err)
	}
	defer rows.Close()
	return scanFilings(rows)
}

// likeEscaper neutralizes ILIKE metacharacters so a caller's pattern
// matches as a literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DocumentsByDescription returns documents whose description contains
// the given text (case-insensitive).
func (r *FilingRepo) DocumentsByDescription(ctx context.Context, pattern string, limit, offset int) ([]models.FilingDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT accession_number, sequence, type, file_name, content_type,
		       description, sha1, start_pos, end_pos, is_processed, is_error
		FROM filing_document
		WHERE description ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY accession_number, sequence
		LIMIT $2 OFFSET $3`,
		likeEscaper.Replace(pattern), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents by description: %w", err)
	}
	defer rows.Close()

	var docs []models.FilingDocument
	for rows.Next() {
		var d models.FilingDocument
		if err := rows.Scan(&d.AccessionNumber, &d.Sequence, &d.Type, &d.FileName,
			&d.ContentType, &d.Description, &d.SHA1, &d.StartPos, &d.EndPos,
			&d.IsProcessed, &d.IsError); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanFilings(rows pgx.Rows) ([]models.Filing, error) {
	var filings []models.Filing
	for rows.Next() {
		var f models.Filing
		if err := rows.Scan(&f.AccessionNumber, &f.CIK, &f.FormType, &f.DateFiled,
			&f.Path, &f.SHA1, &f.DocumentCount, &f.IsProcessed, &f.IsError,
			&f.DateDownloaded); err != nil {
			return nil, fmt.Errorf("failed to scan filing: %w", err)
		}
		filings = append(filings, f)
	}
	return filings, rows.Err()
}
