package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"openedgar/pkg/core/edgar"
	"openedgar/pkg/models"
)

func TestMapConflictUniqueViolation(t *testing.T) {
	r := &FilingRepo{}
	cause := &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key"}

	err := r.mapConflict("0000000001-23-000001", "failed to upsert filing", cause)
	var conflict *edgar.PersistenceConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected PersistenceConflictError, got %v", err)
	}
	if conflict.Accession != "0000000001-23-000001" {
		t.Errorf("Accession = %q", conflict.Accession)
	}
	if !errors.Is(err, cause) {
		t.Error("Original cause lost from the chain")
	}
}

func TestMapConflictOtherErrors(t *testing.T) {
	r := &FilingRepo{}

	// Foreign-key violation is not a conflict.
	fk := &pgconn.PgError{Code: "23503", Message: "violates foreign key"}
	err := r.mapConflict("acc", "failed to insert document", fk)
	var conflict *edgar.PersistenceConflictError
	if errors.As(err, &conflict) {
		t.Errorf("FK violation wrongly mapped to conflict: %v", err)
	}
	if !errors.Is(err, fk) {
		t.Error("Cause not wrapped")
	}

	plain := fmt.Errorf("connection closed")
	err = r.mapConflict("acc", "failed to commit filing", plain)
	if errors.As(err, &conflict) {
		t.Errorf("Plain error wrongly mapped to conflict: %v", err)
	}
	if !errors.Is(err, plain) {
		t.Error("Plain cause not wrapped")
	}
}

func saveArgs() (models.Company, models.Filing, []models.FilingDocument) {
	return models.Company{CIK: 100, Name: "CO"},
		models.Filing{AccessionNumber: "0000000100-23-000001", CIK: 100},
		nil
}

func TestSaveFilingRetriesConflictOnce(t *testing.T) {
	r := &FilingRepo{}
	calls := 0
	r.saveOnce = func(ctx context.Context, company models.Company, f models.Filing, docs []models.FilingDocument) (bool, error) {
		calls++
		if calls == 1 {
			return false, &edgar.PersistenceConflictError{Accession: f.AccessionNumber, Err: fmt.Errorf("duplicate key")}
		}
		// The re-read finds the other writer's row.
		return false, nil
	}

	company, f, docs := saveArgs()
	created, err := r.SaveFiling(context.Background(), company, f, docs)
	if err != nil {
		t.Fatalf("Expected the retry to absorb the conflict, got %v", err)
	}
	if created {
		t.Error("Conflict loser should report created=false")
	}
	if calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls)
	}
}

func TestSaveFilingConflictSurfacesAfterRetry(t *testing.T) {
	r := &FilingRepo{}
	calls := 0
	r.saveOnce = func(ctx context.Context, company models.Company, f models.Filing, docs []models.FilingDocument) (bool, error) {
		calls++
		return false, &edgar.PersistenceConflictError{Accession: f.AccessionNumber, Err: fmt.Errorf("duplicate key")}
	}

	company, f, docs := saveArgs()
	_, err := r.SaveFiling(context.Background(), company, f, docs)
	var conflict *edgar.PersistenceConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected conflict to surface after the retry, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected exactly 2 attempts, got %d", calls)
	}
}

func TestSaveFilingDoesNotRetryOtherErrors(t *testing.T) {
	r := &FilingRepo{}
	calls := 0
	r.saveOnce = func(ctx context.Context, company models.Company, f models.Filing, docs []models.FilingDocument) (bool, error) {
		calls++
		return false, fmt.Errorf("connection closed")
	}

	company, f, docs := saveArgs()
	if _, err := r.SaveFiling(context.Background(), company, f, docs); err == nil {
		t.Fatal("Expected error to surface")
	}
	if calls != 1 {
		t.Errorf("Non-conflict error retried: %d attempts", calls)
	}
}

func TestLikePatternEscaping(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ANNUAL REPORT", "ANNUAL REPORT"},
		{"100% owned", `100\% owned`},
		{"exhibit_21", `exhibit\_21`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := likeEscaper.Replace(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
