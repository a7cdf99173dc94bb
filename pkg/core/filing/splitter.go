// Package filing fetches EDGAR submission containers and splits them
// into their constituent documents.
//
// A submission container is a single <SEC-DOCUMENT> bundling the
// primary form and every exhibit as <DOCUMENT> sections, each tagged
// with <TYPE>, <SEQUENCE>, <FILENAME> and <DESCRIPTION> and carrying its
// body between <TEXT> markers. Binary payloads (PDF, images) arrive
// uuencoded inside <TEXT>.
package filing

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"openedgar/pkg/core/edgar"
)

// Document is one split section of a submission container.
type Document struct {
	Sequence    int
	Type        string
	FileName    string
	ContentType string
	Description string
	Body        []byte // raw bytes exactly as stored in the container
	Text        string // best-effort plain-text extraction, "" when absent
	SHA1        string // hash of Body
	StartPos    int    // byte offset of the <DOCUMENT> section in the container
	EndPos      int

	// ExtractErr records a per-document extraction failure. The raw
	// body is still valid and persisted.
	ExtractErr error
}

// Submission is a fully split container plus its header metadata.
type Submission struct {
	AccessionNumber string
	CIK             int64
	CompanyName     string
	FormType        string
	DateFiled       time.Time
	Path            string
	SHA1            string // hash of the full container
	Documents       []Document
}

var (
	documentStart = []byte("<DOCUMENT>")
	documentEnd   = []byte("</DOCUMENT>")
	textStart     = []byte("<TEXT>")
	textEnd       = []byte("</TEXT>")
	headerEnd     = []byte("</SEC-HEADER>")
)

var headerFields = map[string]*regexp.Regexp{
	"accession": regexp.MustCompile(`(?m)^ACCESSION NUMBER:\s*(\S+)`),
	"form":      regexp.MustCompile(`(?m)^CONFORMED SUBMISSION TYPE:\s*(.+?)\s*$`),
	"date":      regexp.MustCompile(`(?m)^FILED AS OF DATE:\s*(\d{8})`),
	"company":   regexp.MustCompile(`(?m)^\s*COMPANY CONFORMED NAME:\s*(.+?)\s*$`),
	"cik":       regexp.MustCompile(`(?m)^\s*CENTRAL INDEX KEY:\s*(\d+)`),
}

// Split parses a submission container into header metadata and ordered
// documents. It fails with MalformedSubmissionError when no <DOCUMENT>
// sections can be found.
func Split(data []byte, path string) (*Submission, error) {
	sub := &Submission{
		Path: path,
		SHA1: hashBytes(data),
	}
	parseHeader(data, sub)

	pos := 0
	for {
		start := bytes.Index(data[pos:], documentStart)
		if start < 0 {
			break
		}
		start += pos

		end := bytes.Index(data[start:], documentEnd)
		if end < 0 {
			// Truncated final section: take everything that is left.
			end = len(data) - start
		} else {
			end += len(documentEnd)
		}
		section := data[start : start+end]

		doc := parseDocument(section)
		doc.StartPos = start
		doc.EndPos = start + end
		sub.Documents = append(sub.Documents, doc)

		pos = start + end
	}

	if len(sub.Documents) == 0 {
		return nil, &edgar.MalformedSubmissionError{Path: path, Reason: "no <DOCUMENT> sections found"}
	}

	assignSequences(sub.Documents)
	return sub, nil
}

// parseHeader extracts submission metadata from the <SEC-HEADER> block.
// Header fields vary across years; missing fields stay zero.
func parseHeader(data []byte, sub *Submission) {
	header := data
	if idx := bytes.Index(data, headerEnd); idx >= 0 {
		header = data[:idx]
	}

	if m := headerFields["accession"].FindSubmatch(header); m != nil {
		sub.AccessionNumber = string(m[1])
	}
	if m := headerFields["form"].FindSubmatch(header); m != nil {
		sub.FormType = string(m[1])
	}
	if m := headerFields["date"].FindSubmatch(header); m != nil {
		if t, err := time.Parse("20060102", string(m[1])); err == nil {
			sub.DateFiled = t
		}
	}
	if m := headerFields["company"].FindSubmatch(header); m != nil {
		sub.CompanyName = string(m[1])
	}
	if m := headerFields["cik"].FindSubmatch(header); m != nil {
		if cik, err := strconv.ParseInt(string(m[1]), 10, 64); err == nil {
			sub.CIK = cik
		}
	}
}

// parseDocument splits one <DOCUMENT> section into tags and body.
func parseDocument(section []byte) Document {
	doc := Document{
		Type:        tagValue(section, "TYPE"),
		FileName:    tagValue(section, "FILENAME"),
		Description: tagValue(section, "DESCRIPTION"),
	}
	if seq := tagValue(section, "SEQUENCE"); seq != "" {
		if n, err := strconv.Atoi(seq); err == nil {
			doc.Sequence = n
		}
	}

	body := section
	if idx := bytes.Index(section, textStart); idx >= 0 {
		body = section[idx+len(textStart):]
	}
	if idx := bytes.LastIndex(body, textEnd); idx >= 0 {
		body = body[:idx]
	}
	doc.Body = bytes.Trim(body, "\n\r")
	doc.SHA1 = hashBytes(doc.Body)
	doc.ContentType = contentTypeFor(doc.FileName, doc.Body)
	return doc
}

// tagValue reads a <TAG>value line from a document section.
func tagValue(section []byte, tag string) string {
	marker := []byte("<" + tag + ">")
	idx := bytes.Index(section, marker)
	if idx < 0 {
		return ""
	}
	rest := section[idx+len(marker):]
	if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(string(rest))
}

// assignSequences enforces the 1..N gapless invariant. Declared
// <SEQUENCE> tags are kept when they already form exactly 1..N in
// order; otherwise documents are renumbered positionally.
func assignSequences(docs []Document) {
	valid := true
	for i, d := range docs {
		if d.Sequence != i+1 {
			valid = false
			break
		}
	}
	if valid {
		return
	}
	for i := range docs {
		docs[i].Sequence = i + 1
	}
}

func contentTypeFor(fileName string, body []byte) string {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".htm"), strings.HasSuffix(lower, ".html"):
		return "text/html"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".xml"), strings.HasSuffix(lower, ".xsd"):
		return "text/xml"
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".rtf"):
		return "text/rtf"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case isUUEncoded(body):
		return "application/octet-stream"
	default:
		return "text/plain"
	}
}

func hashBytes(b []byte) string {
	return fmt.Sprintf("%x", sha1.Sum(b))
}
