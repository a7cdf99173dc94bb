package index

import (
	"strings"
	"time"
)

// Selector filters parsed index records. The zero value selects
// everything.
type Selector struct {
	// FormTypes is the accepted form-type list. A record matches a
	// form type exactly or as an amendment variant: "10-K" also admits
	// "10-K/A". Empty means all forms.
	FormTypes []string

	// DateFrom/DateTo bound the filing date inclusively when non-zero.
	DateFrom time.Time
	DateTo   time.Time

	// CIKs restricts to a registrant set when non-empty.
	CIKs map[int64]bool
}

// NewFormTypeSelector builds a selector for a form-type list.
func NewFormTypeSelector(formTypes []string) Selector {
	return Selector{FormTypes: formTypes}
}

// Matches reports whether a single record passes the filter.
func (s Selector) Matches(rec FilingRecord) bool {
	if len(s.FormTypes) > 0 && !s.matchesForm(rec.FormType) {
		return false
	}
	if !s.DateFrom.IsZero() && rec.DateFiled.Before(s.DateFrom) {
		return false
	}
	if !s.DateTo.IsZero() && rec.DateFiled.After(s.DateTo) {
		return false
	}
	if len(s.CIKs) > 0 && !s.CIKs[rec.CIK] {
		return false
	}
	return true
}

func (s Selector) matchesForm(form string) bool {
	for _, ft := range s.FormTypes {
		if form == ft || strings.HasPrefix(form, ft+"/") {
			return true
		}
	}
	return false
}

// Select filters records preserving order.
func (s Selector) Select(records []FilingRecord) []FilingRecord {
	out := make([]FilingRecord, 0, len(records))
	for _, rec := range records {
		if s.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}
