// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// Failure is one paper that could not be acquired.
type Failure struct {
	Source string `yaml:"source"`
	Year   int    `yaml:"year"`
	Title  string `yaml:"title"`
	Reason string `yaml:"reason"`
}

// YearReport counts the outcomes of one year listing.
type YearReport struct {
	Year       int       `yaml:"year"`
	URL        string    `yaml:"url"`
	Candidates int       `yaml:"candidates"`
	Saved      int       `yaml:"saved"`
	Duplicates int       `yaml:"duplicates"`
	Rejected   int       `yaml:"rejected"`
	NoFile     int       `yaml:"no_file"`
	Failed     int       `yaml:"failed"`
	Failures   []Failure `yaml:"failures,omitempty"`

	// Err is set when the listing itself could not be resolved.
	Err   error  `yaml:"-"`
	Error string `yaml:"error,omitempty"`
}

func (y *YearReport) fail(err error) {
	y.Err = err
	y.Error = err.Error()
}

func (y *YearReport) record(source string, res types.AcquisitionResult) {
	switch res.Outcome {
	case types.Saved:
		y.Saved++
	case types.SkippedDuplicate:
		y.Duplicates++
	case types.SkippedKeywordMismatch:
		y.Rejected++
	case types.Failed:
		y.Failed++
		y.Failures = append(y.Failures, Failure{Source: source, Year: y.Year, Title: res.Title, Reason: res.Reason()})
	}
}

// SourceReport is the outcome of harvesting one source.
type SourceReport struct {
	Source        string       `yaml:"source"`
	Variant       string       `yaml:"variant"`
	Authenticated bool         `yaml:"authenticated"`
	Years         []YearReport `yaml:"years,omitempty"`

	// Err is set when the source stopped early: no year index, a panic, a
	// filesystem error or cancellation.
	Err   error  `yaml:"-"`
	Error string `yaml:"error,omitempty"`
}

func (s *SourceReport) fail(err error) {
	s.Err = err
	s.Error = err.Error()
}

// Totals sums the year counts.
func (s SourceReport) Totals() YearReport {
	var t YearReport
	for _, y := range s.Years {
		t.add(y)
	}
	return t
}

func (y *YearReport) add(o YearReport) {
	y.Candidates += o.Candidates
	y.Saved += o.Saved
	y.Duplicates += o.Duplicates
	y.Rejected += o.Rejected
	y.NoFile += o.NoFile
	y.Failed += o.Failed
	y.Failures = append(y.Failures, o.Failures...)
}

// Report aggregates one run.
type Report struct {
	RunID    string         `yaml:"run_id"`
	Started  time.Time      `yaml:"started"`
	Finished time.Time      `yaml:"finished"`
	Sources  []SourceReport `yaml:"sources"`
}

// Totals sums every source.
func (r *Report) Totals() YearReport {
	var t YearReport
	for _, s := range r.Sources {
		t.add(s.Totals())
	}
	return t
}

// AllFailed reports whether every source stopped with an error. An empty
// run has not failed.
func (r *Report) AllFailed() bool {
	if len(r.Sources) == 0 {
		return false
	}
	for _, s := range r.Sources {
		if s.Err == nil {
			return false
		}
	}
	return true
}

// Failures lists every failed paper across the run.
func (r *Report) Failures() []Failure {
	return r.Totals().Failures
}

// WriteSummary prints one line per source and a total.
func (r *Report) WriteSummary(w io.Writer) {
	for _, s := range r.Sources {
		t := s.Totals()
		fmt.Fprintf(w, "%-8s %d saved, %d skipped, %d rejected, %d no file, %d failed",
			s.Source, t.Saved, t.Duplicates, t.Rejected, t.NoFile, t.Failed)
		if s.Err != nil {
			fmt.Fprintf(w, " (stopped: %v)", s.Err)
		}
		fmt.Fprintln(w)
	}
	t := r.Totals()
	fmt.Fprintf(w, "\nHarvest summary: %d saved, %d skipped, %d rejected, %d failed (candidates: %d)\n",
		t.Saved, t.Duplicates, t.Rejected, t.Failed, t.Candidates)
}

// WriteYAML saves the report to path.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing report %s: %v", types.ErrFilesystem, path, err)
	}
	return nil
}
