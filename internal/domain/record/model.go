package record

import (
	"fmt"
	"time"
)

// Unverified is the persisted verifiedAt value of a record with no labels.
// Changing it breaks every stored project.
const Unverified = "0"

// TimeLayout is the persisted form of verification timestamps (UTC).
const TimeLayout = "2006-01-02 15:04:05"

// ExportFilter selects which records ExportRows returns.
type ExportFilter string

const (
	ExportAll      ExportFilter = "all"
	ExportVerified ExportFilter = "verified"
)

// Record is one unit of text plus its label assignment. Its identity is its
// position within the project.
type Record struct {
	Position   int        `json:"position"`
	Text       string     `json:"text"`
	Labels     []string   `json:"labels"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// Verified reports whether the record carries a verification timestamp.
func (r *Record) Verified() bool {
	return r.VerifiedAt != nil
}

// ApplyLabels replaces the label set and re-derives the verification marker:
// an empty set is unverified, anything else is verified at the given time.
// It returns the change in the project's verified count.
func (r *Record) ApplyLabels(labels []string, at time.Time) int {
	was := r.Verified()
	if len(labels) == 0 {
		r.Labels = nil
		r.VerifiedAt = nil
	} else {
		ts := at.UTC().Truncate(time.Second)
		r.Labels = labels
		r.VerifiedAt = &ts
	}

	switch {
	case !was && r.Verified():
		return 1
	case was && !r.Verified():
		return -1
	default:
		return 0
	}
}

// ExportRow is a display-oriented view of a record.
type ExportRow struct {
	Text       string `json:"text" yaml:"text"`
	VerifiedAt string `json:"verified_at" yaml:"verified_at"`
	Labels     string `json:"labels" yaml:"labels"`
}

// Progress summarises labeling progress for a project.
type Progress struct {
	Verified int     `json:"verified"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
}

// NewProgress computes the percentage of verified records.
func NewProgress(verified, total int) Progress {
	p := Progress{Verified: verified, Total: total}
	if total > 0 {
		p.Percent = float64(verified) * 100 / float64(total)
	}
	return p
}

// FormatVerifiedAt renders a verification marker in its persisted form.
func FormatVerifiedAt(t *time.Time) string {
	if t == nil {
		return Unverified
	}
	return t.UTC().Format(TimeLayout)
}

// ParseVerifiedAt reads a persisted verification marker.
func ParseVerifiedAt(s string) (*time.Time, error) {
	if s == Unverified || s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse verified_at %q: %w", s, err)
	}
	return &t, nil
}
