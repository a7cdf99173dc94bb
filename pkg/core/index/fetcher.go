// Package index downloads and parses EDGAR full-index artifacts, the
// quarterly manifests listing every filing submitted in a period.
package index

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"openedgar/pkg/core/edgar"
)

// Fetcher retrieves full-index artifacts from the EDGAR archive.
type Fetcher struct {
	client *edgar.Client
}

// NewFetcher creates an index fetcher on top of an EDGAR client.
func NewFetcher(client *edgar.Client) *Fetcher {
	return &Fetcher{client: client}
}

// QuarterPath returns the archive path of the form index for one quarter.
func QuarterPath(year, quarter int) string {
	return fmt.Sprintf("edgar/full-index/%d/QTR%d/form.idx", year, quarter)
}

// DownloadFilingIndexData retrieves the form index artifact for a year.
// quarter 1-4 fetches that quarter only; quarter 0 fetches and
// concatenates all quarters published so far. A future period surfaces
// as NotFoundError.
func (f *Fetcher) DownloadFilingIndexData(ctx context.Context, year, quarter int) ([]byte, error) {
	if err := validatePeriod(year, quarter); err != nil {
		return nil, err
	}

	if quarter != 0 {
		return f.client.GetBuffer(ctx, QuarterPath(year, quarter))
	}

	var buf bytes.Buffer
	found := 0
	for q := 1; q <= 4; q++ {
		data, err := f.client.GetBuffer(ctx, QuarterPath(year, q))
		if err != nil {
			// Quarters beyond the present simply do not exist yet.
			if edgar.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		buf.Write(data)
		found++
	}
	if found == 0 {
		return nil, &edgar.NotFoundError{Key: fmt.Sprintf("form index for %d", year)}
	}
	return buf.Bytes(), nil
}

// FetchQuarter retrieves and parses a single quarter's index.
func (f *Fetcher) FetchQuarter(ctx context.Context, year, quarter int) (*ParseResult, error) {
	data, err := f.client.GetBuffer(ctx, QuarterPath(year, quarter))
	if err != nil {
		return nil, err
	}
	return Parse(data), nil
}

// FetchYear retrieves and parses the index records for a year. quarter 0
// walks all quarters; missing (future) quarters are skipped.
func (f *Fetcher) FetchYear(ctx context.Context, year, quarter int) (*ParseResult, error) {
	if err := validatePeriod(year, quarter); err != nil {
		return nil, err
	}

	if quarter != 0 {
		return f.FetchQuarter(ctx, year, quarter)
	}

	merged := &ParseResult{}
	found := 0
	for q := 1; q <= 4; q++ {
		res, err := f.FetchQuarter(ctx, year, q)
		if err != nil {
			if edgar.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		merged.Records = append(merged.Records, res.Records...)
		merged.Errors = append(merged.Errors, res.Errors...)
		found++
	}
	if found == 0 {
		return nil, &edgar.NotFoundError{Key: fmt.Sprintf("form index for %d", year)}
	}
	return merged, nil
}

func validatePeriod(year, quarter int) error {
	if year < 1993 || year > time.Now().Year() {
		return &edgar.NotFoundError{Key: fmt.Sprintf("form index for %d", year)}
	}
	if quarter < 0 || quarter > 4 {
		return fmt.Errorf("quarter must be 0-4, got %d", quarter)
	}
	return nil
}
