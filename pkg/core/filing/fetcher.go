package filing

import (
	"context"

	"openedgar/pkg/core/edgar"
)

// Fetcher retrieves and splits submission containers.
type Fetcher struct {
	client *edgar.Client
}

// NewFetcher creates a document fetcher on top of an EDGAR client.
func NewFetcher(client *edgar.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads the submission container at the given relative
// archive path, splits it into documents and extracts plain text.
//
// Failure modes: NetworkError (already retried by the client),
// NotFoundError, MalformedSubmissionError. Per-document extraction
// failures are recorded on the document, never returned from here.
func (f *Fetcher) Fetch(ctx context.Context, path string) (*Submission, error) {
	data, err := f.client.GetBuffer(ctx, path)
	if err != nil {
		return nil, err
	}

	sub, err := Split(data, path)
	if err != nil {
		return nil, err
	}

	ExtractText(sub)
	return sub, nil
}
