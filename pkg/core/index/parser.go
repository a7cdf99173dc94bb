package index

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FilingRecord is one row of a form index: a single submitted filing.
type FilingRecord struct {
	FormType    string
	CompanyName string
	CIK         int64
	DateFiled   time.Time
	FileName    string // relative archive path of the submission container
}

// AccessionNumber derives the accession identifier from the submission
// path, e.g. edgar/data/320193/0000320193-23-000006.txt.
func (r FilingRecord) AccessionNumber() string {
	return strings.TrimSuffix(path.Base(r.FileName), ".txt")
}

// ParseError records a single index line that could not be parsed.
type ParseError struct {
	LineNumber int
	Line       string
	Reason     string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("index line %d: %s", e.LineNumber, e.Reason)
}

// ParseResult holds the parsed records plus the per-line failures that
// were skipped. A malformed line never aborts the rest of the index.
type ParseResult struct {
	Records []FilingRecord
	Errors  []ParseError
}

// columns of a form.idx header, in order.
var headerLabels = []string{"Form Type", "Company Name", "CIK", "Date Filed", "File Name"}

var ruleLine = regexp.MustCompile(`^-{10,}\s*$`)

// Parse reads a form index artifact into structured records.
//
// The format is a short preamble, a header row, a dashed rule, then one
// fixed-width row per filing. Column offsets have drifted across years,
// so offsets are taken from the header row of each artifact; rows that
// still fail to slice cleanly fall back to whitespace-run splitting.
func Parse(data []byte) *ParseResult {
	res := &ParseResult{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var offsets []int
	inData := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "":
			continue
		case isHeaderLine(line):
			// A new header resets state; concatenated quarterly
			// artifacts carry one per quarter.
			offsets = headerOffsets(line)
			inData = false
			continue
		case ruleLine.MatchString(strings.TrimSpace(line)):
			inData = true
			continue
		case !inData, isPreambleLine(line):
			// Preamble (Description:, Last Data Received:, ...).
			// Concatenated quarterly artifacts repeat it mid-stream.
			continue
		}

		rec, err := parseLine(line, offsets)
		if err != nil {
			res.Errors = append(res.Errors, ParseError{LineNumber: lineNo, Line: line, Reason: err.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res
}

func isHeaderLine(line string) bool {
	return strings.Contains(line, "Form Type") && strings.Contains(line, "CIK")
}

// preamblePrefixes are the banner lines at the top of every artifact.
var preamblePrefixes = []string{
	"Description:", "Last Data Received:", "Comments:", "Anonymous FTP:",
	"Cloud HTTP:", "Notice:",
}

func isPreambleLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range preamblePrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// headerOffsets locates each column's start index in the header row.
func headerOffsets(header string) []int {
	offsets := make([]int, 0, len(headerLabels))
	for _, label := range headerLabels {
		idx := strings.Index(header, label)
		if idx < 0 {
			return nil
		}
		offsets = append(offsets, idx)
	}
	return offsets
}

func parseLine(line string, offsets []int) (FilingRecord, error) {
	// Fixed-width slicing first; if the row drifted off the header
	// offsets the sliced fields will not validate, so fall back to
	// whitespace-run splitting before giving up.
	if fields := sliceColumns(line, offsets); fields != nil {
		if rec, err := buildRecord(fields); err == nil {
			return rec, nil
		}
	}

	fields := splitFallback(line)
	if fields == nil {
		return FilingRecord{}, fmt.Errorf("cannot split into %d columns", len(headerLabels))
	}
	return buildRecord(fields)
}

func buildRecord(fields []string) (FilingRecord, error) {
	cik, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return FilingRecord{}, fmt.Errorf("bad CIK %q", fields[2])
	}

	dateFiled, err := time.Parse("2006-01-02", fields[3])
	if err != nil {
		return FilingRecord{}, fmt.Errorf("bad date %q", fields[3])
	}

	fileName := normalizePath(fields[4])
	if fileName == "" {
		return FilingRecord{}, fmt.Errorf("missing file name")
	}

	return FilingRecord{
		FormType:    fields[0],
		CompanyName: fields[1],
		CIK:         cik,
		DateFiled:   dateFiled,
		FileName:    fileName,
	}, nil
}

// sliceColumns cuts a fixed-width row at the header offsets.
func sliceColumns(line string, offsets []int) []string {
	if offsets == nil || len(line) <= offsets[len(offsets)-1] {
		return nil
	}
	fields := make([]string, len(offsets))
	for i := range offsets {
		end := len(line)
		if i+1 < len(offsets) {
			end = offsets[i+1]
			if end > len(line) {
				end = len(line)
			}
		}
		fields[i] = strings.TrimSpace(line[offsets[i]:end])
	}
	for _, f := range fields {
		if f == "" {
			return nil
		}
	}
	return fields
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// splitFallback splits on runs of two or more spaces. Company names keep
// single internal spaces, so this survives moderate column drift.
func splitFallback(line string) []string {
	parts := whitespaceRun.Split(strings.TrimSpace(line), -1)
	if len(parts) != len(headerLabels) {
		return nil
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// normalizePath cleans the index row's path to a consistent
// edgar/data/... form.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	lower := strings.ToLower(p)
	switch {
	case strings.HasPrefix(lower, "data/"):
		return "edgar/" + p
	case strings.HasPrefix(lower, "edgar/"):
		return p
	case p == "":
		return ""
	default:
		return p
	}
}
