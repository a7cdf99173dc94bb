package edgar

import (
	"errors"
	"fmt"
)

// NetworkError indicates a transient transport failure against EDGAR.
// Callers may retry; the client already applies its own bounded retry
// before surfacing one of these.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError indicates the requested path or period does not exist
// on EDGAR (or in a store). Permanent; never retried.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Key)
}

// MalformedSubmissionError indicates a submission container that cannot
// be split into documents. The filing is skipped; the batch continues.
type MalformedSubmissionError struct {
	Path   string
	Reason string
}

func (e *MalformedSubmissionError) Error() string {
	return fmt.Sprintf("malformed submission %s: %s", e.Path, e.Reason)
}

// ExtractionError indicates text extraction failed for a single
// document. The raw body is still persisted.
type ExtractionError struct {
	FileName string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction failed for %s: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceConflictError indicates a concurrent upsert race in the
// relational store. Retried once with re-read before surfacing.
type PersistenceConflictError struct {
	Accession string
	Err       error
}

func (e *PersistenceConflictError) Error() string {
	return fmt.Sprintf("persistence conflict for accession %s: %v", e.Accession, e.Err)
}

func (e *PersistenceConflictError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
