// Package models defines the relational entities produced by filing
// ingestion. Ownership is expressed by natural keys rather than object
// graphs: a Filing holds the CIK of its Company, and a FilingDocument
// holds the accession number of its Filing.
package models

import "time"

// Company is a registrant identified by its CIK.
type Company struct {
	CIK  int64  `json:"cik"`
	Name string `json:"name"`
}

// Filing is a single regulatory submission, keyed by accession number.
type Filing struct {
	AccessionNumber string    `json:"accession_number"`
	CIK             int64     `json:"cik"`
	FormType        string    `json:"form_type"`
	DateFiled       time.Time `json:"date_filed"`
	Path            string    `json:"path"` // relative archive path of the submission container
	SHA1            string    `json:"sha1"` // hash of the full container
	DocumentCount   int       `json:"document_count"`
	IsProcessed     bool      `json:"is_processed"`
	IsError         bool      `json:"is_error"`
	DateDownloaded  time.Time `json:"date_downloaded"`
}

// FilingDocument is one <DOCUMENT> section of a submission container.
// (AccessionNumber, Sequence) is unique; Sequence is 1-based and defines
// document order within the filing.
type FilingDocument struct {
	AccessionNumber string `json:"accession_number"`
	Sequence        int    `json:"sequence"`
	Type            string `json:"type"`
	FileName        string `json:"file_name"`
	ContentType     string `json:"content_type"`
	Description     string `json:"description"`
	SHA1            string `json:"sha1"` // content hash of the raw body; text blobs share it
	StartPos        int    `json:"start_pos"`
	EndPos          int    `json:"end_pos"`
	IsProcessed     bool   `json:"is_processed"`
	IsError         bool   `json:"is_error"`
}
