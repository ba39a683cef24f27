// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Outcome is the terminal state of one paper candidate.
type Outcome int

const (
	Saved Outcome = iota
	SkippedDuplicate
	SkippedKeywordMismatch
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case SkippedDuplicate:
		return "skipped-duplicate"
	case SkippedKeywordMismatch:
		return "skipped-keywords"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name in YAML and JSON reports.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// AcquisitionResult is produced once per paper candidate. It drives logging
// and the run report; nothing but the artifact itself is retained.
type AcquisitionResult struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Title is the sanitized filename stem, when one could be formed.
	Title string `json:"title" yaml:"title"`

	// Path is the artifact path for Saved and SkippedDuplicate results.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Err is the failure cause for Failed results.
	Err error `json:"-" yaml:"-"`
}

// Reason returns the failure message, or "" when the result did not fail.
func (r AcquisitionResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// FailedResult builds a Failed result for title.
func FailedResult(title string, err error) AcquisitionResult {
	return AcquisitionResult{Outcome: Failed, Title: title, Err: err}
}
