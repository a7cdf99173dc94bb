// Package pipeline orchestrates filing-index ingestion end to end:
// index fetch, parse, select, then a bounded worker pool running the
// per-filing fetch -> split -> extract -> blob write -> persist chain.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"openedgar/pkg/core/blob"
	"openedgar/pkg/core/edgar"
	"openedgar/pkg/core/filing"
	"openedgar/pkg/core/index"
	"openedgar/pkg/models"
)

// IndexSource supplies parsed index records for a period.
type IndexSource interface {
	FetchYear(ctx context.Context, year, quarter int) (*index.ParseResult, error)
}

// SubmissionFetcher retrieves and splits one submission container.
type SubmissionFetcher interface {
	Fetch(ctx context.Context, path string) (*filing.Submission, error)
}

// MetadataPersister upserts filing metadata. Implementations must be
// transactional per filing and idempotent per accession number.
// IsRecorded lets the pipeline skip a filing before downloading it.
type MetadataPersister interface {
	IsRecorded(ctx context.Context, accession string) (bool, error)
	SaveFiling(ctx context.Context, company models.Company, filing models.Filing, docs []models.FilingDocument) (created bool, err error)
	SaveFilingError(ctx context.Context, company models.Company, filing models.Filing) error
}

// FilingFailure records one filing that could not be ingested.
type FilingFailure struct {
	Accession string `json:"accession"`
	Path      string `json:"path"`
	Error     string `json:"error"`
}

// IngestionSummary is the result of one batch run.
type IngestionSummary struct {
	RunID            string          `json:"run_id"`
	Year             int             `json:"year"`
	Quarter          int             `json:"quarter"`
	IndexRecords     int             `json:"index_records"`
	IndexParseErrors int             `json:"index_parse_errors"`
	Selected         int             `json:"selected"`
	Processed        int             `json:"processed"`
	Skipped          int             `json:"skipped"`
	Failed           int             `json:"failed"`
	DocumentsWritten int             `json:"documents_written"`
	Failures         []FilingFailure `json:"failures,omitempty"`
	Elapsed          time.Duration   `json:"elapsed"`
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	indexes IndexSource
	fetcher SubmissionFetcher
	blobs   blob.Store
	repo    MetadataPersister
	workers int
}

// NewOrchestrator creates an orchestrator. workers < 1 falls back to 4.
func NewOrchestrator(indexes IndexSource, fetcher SubmissionFetcher, blobs blob.Store, repo MetadataPersister, workers int) *Orchestrator {
	if workers < 1 {
		workers = 4
	}
	return &Orchestrator{
		indexes: indexes,
		fetcher: fetcher,
		blobs:   blobs,
		repo:    repo,
		workers: workers,
	}
}

// ProcessAllFilingIndex ingests every filing in a year's form index
// that matches the form-type filter. quarter 0 means the whole year.
//
// Per-filing failures are recorded in the summary and the batch
// continues; an index fetch failure is fatal. On cancellation the
// summary reflects what completed and ctx.Err() is returned alongside.
func (o *Orchestrator) ProcessAllFilingIndex(ctx context.Context, year int, formTypes []string, quarter int) (*IngestionSummary, error) {
	start := time.Now()
	summary := &IngestionSummary{
		RunID:   uuid.NewString(),
		Year:    year,
		Quarter: quarter,
	}

	fmt.Printf("[%s] Fetching form index for %d (quarter %d)...\n", summary.RunID, year, quarter)
	res, err := o.indexes.FetchYear(ctx, year, quarter)
	if err != nil {
		summary.Elapsed = time.Since(start)
		return summary, fmt.Errorf("failed to fetch filing index for %d: %w", year, err)
	}
	summary.IndexRecords = len(res.Records)
	summary.IndexParseErrors = len(res.Errors)

	selector := index.NewFormTypeSelector(formTypes)
	selected := selector.Select(res.Records)
	summary.Selected = len(selected)
	fmt.Printf("[%s] Parsed %d records (%d bad lines), %d selected\n",
		summary.RunID, summary.IndexRecords, summary.IndexParseErrors, summary.Selected)

	jobs := make(chan index.FilingRecord)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				outcome := o.processFiling(ctx, rec)
				mu.Lock()
				switch {
				case outcome.err != nil:
					summary.Failed++
					summary.Failures = append(summary.Failures, FilingFailure{
						Accession: rec.AccessionNumber(),
						Path:      rec.FileName,
						Error:     outcome.err.Error(),
					})
				case outcome.skipped:
					summary.Skipped++
				default:
					summary.Processed++
					summary.DocumentsWritten += outcome.documents
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, rec := range selected {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- rec:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Elapsed = time.Since(start)
	fmt.Printf("[%s] Done: %d processed, %d skipped, %d failed in %v\n",
		summary.RunID, summary.Processed, summary.Skipped, summary.Failed, summary.Elapsed)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

type filingOutcome struct {
	skipped   bool
	documents int
	err       error
}

// processFiling runs the per-filing pipeline. Any error is contained
// to this filing.
func (o *Orchestrator) processFiling(ctx context.Context, rec index.FilingRecord) filingOutcome {
	company := models.Company{CIK: rec.CIK, Name: rec.CompanyName}

	// A filing already on record never hits EDGAR again on a re-run.
	if done, err := o.repo.IsRecorded(ctx, rec.AccessionNumber()); err == nil && done {
		fmt.Printf("Filing %s already recorded, skipping\n", rec.AccessionNumber())
		return filingOutcome{skipped: true}
	}

	sub, err := o.fetcher.Fetch(ctx, rec.FileName)
	if err != nil {
		// Record the failed row so a re-run can find it, unless the
		// run itself is shutting down.
		if ctx.Err() == nil {
			o.recordError(ctx, company, rec, err)
		}
		return filingOutcome{err: err}
	}

	f := buildFiling(rec, sub)
	docs := make([]models.FilingDocument, 0, len(sub.Documents))

	// Blobs go first: a committed metadata row must never reference a
	// missing object. A raw body is written even when extraction failed.
	for _, doc := range sub.Documents {
		if err := o.blobs.Put(blob.RawKey(doc.SHA1), doc.Body); err != nil {
			o.recordError(ctx, company, rec, err)
			return filingOutcome{err: fmt.Errorf("failed to store raw blob: %w", err)}
		}
		if doc.ExtractErr == nil && doc.Text != "" {
			if err := o.blobs.Put(blob.TextKey(doc.SHA1), []byte(doc.Text)); err != nil {
				o.recordError(ctx, company, rec, err)
				return filingOutcome{err: fmt.Errorf("failed to store text blob: %w", err)}
			}
		}
		docs = append(docs, models.FilingDocument{
			AccessionNumber: f.AccessionNumber,
			Sequence:        doc.Sequence,
			Type:            doc.Type,
			FileName:        doc.FileName,
			ContentType:     doc.ContentType,
			Description:     doc.Description,
			SHA1:            doc.SHA1,
			StartPos:        doc.StartPos,
			EndPos:          doc.EndPos,
			IsProcessed:     true,
			IsError:         doc.ExtractErr != nil,
		})
	}

	created, err := o.repo.SaveFiling(ctx, company, f, docs)
	if err != nil {
		return filingOutcome{err: fmt.Errorf("failed to persist filing %s: %w", f.AccessionNumber, err)}
	}
	if !created {
		fmt.Printf("Filing %s already recorded, skipping\n", f.AccessionNumber)
		return filingOutcome{skipped: true}
	}
	fmt.Printf("Ingested %s (%s, %d documents)\n", f.AccessionNumber, f.FormType, len(docs))
	return filingOutcome{documents: len(docs)}
}

// buildFiling merges index-row metadata with the parsed submission
// header; the header wins where both are present.
func buildFiling(rec index.FilingRecord, sub *filing.Submission) models.Filing {
	f := models.Filing{
		AccessionNumber: sub.AccessionNumber,
		CIK:             rec.CIK,
		FormType:        rec.FormType,
		DateFiled:       rec.DateFiled,
		Path:            rec.FileName,
		SHA1:            sub.SHA1,
		DocumentCount:   len(sub.Documents),
		DateDownloaded:  time.Now(),
	}
	if f.AccessionNumber == "" {
		f.AccessionNumber = rec.AccessionNumber()
	}
	if sub.FormType != "" {
		f.FormType = sub.FormType
	}
	if !sub.DateFiled.IsZero() {
		f.DateFiled = sub.DateFiled
	}
	return f
}

func (o *Orchestrator) recordError(ctx context.Context, company models.Company, rec index.FilingRecord, cause error) {
	var malformed *edgar.MalformedSubmissionError
	if !edgar.IsNotFound(cause) && !errors.As(cause, &malformed) {
		var netErr *edgar.NetworkError
		if !errors.As(cause, &netErr) {
			return
		}
	}

	f := models.Filing{
		AccessionNumber: rec.AccessionNumber(),
		CIK:             rec.CIK,
		FormType:        rec.FormType,
		DateFiled:       rec.DateFiled,
		Path:            rec.FileName,
		DateDownloaded:  time.Now(),
	}
	if err := o.repo.SaveFilingError(ctx, company, f); err != nil {
		fmt.Printf("Warning: failed to record filing error for %s: %v\n", rec.FileName, err)
	}
}
