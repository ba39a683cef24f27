// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the proceedings harvester:
// sources and their year indexes, paper candidates, keyword sets, acquisition
// results, error kinds and configuration.
package types

import (
	"sort"
	"strings"
)

// Variant names the adapter family that knows how to walk a portal.
type Variant string

const (
	VariantOJS        Variant = "ojs"
	VariantIJCAI      Variant = "ijcai"
	VariantNeurIPS    Variant = "neurips"
	VariantACL        Variant = "acl"
	VariantACM        Variant = "acm"
	VariantDBLP       Variant = "dblp"
	VariantOpenReview Variant = "openreview"
)

// ProceedingsSource is one academic venue to harvest. It is defined at
// configuration time and never mutated during a run.
type ProceedingsSource struct {
	// URL is the proceedings root from which the year index is resolved.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Acronym is the short venue name (e.g. "SIGIR"), used for selection.
	Acronym string `json:"acronym" yaml:"acronym" mapstructure:"acronym"`

	// Title is the display name of the venue.
	Title string `json:"title" yaml:"title" mapstructure:"title"`

	// Variant selects the adapter implementation.
	Variant Variant `json:"variant" yaml:"variant" mapstructure:"variant"`
}

// Matches reports whether the source answers to the given acronym,
// case-insensitively.
func (s ProceedingsSource) Matches(acronym string) bool {
	return strings.EqualFold(strings.TrimSpace(acronym), s.Acronym)
}

// YearIndex maps a listing URL to the four-digit year it covers. Entries are
// advisory: a listed year may still yield no papers.
type YearIndex map[string]int

// YearEntry is one listing URL and its year.
type YearEntry struct {
	URL  string
	Year int
}

// Entries returns the index sorted by year (newest first), then URL, so that
// processing order is deterministic.
func (idx YearIndex) Entries() []YearEntry {
	entries := make([]YearEntry, 0, len(idx))
	for u, y := range idx {
		entries = append(entries, YearEntry{URL: u, Year: y})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Year != entries[j].Year {
			return entries[i].Year > entries[j].Year
		}
		return entries[i].URL < entries[j].URL
	})
	return entries
}

// Select returns the entries whose year is in years. A nil or empty set
// selects nothing.
func (idx YearIndex) Select(years YearSet) []YearEntry {
	var out []YearEntry
	for _, e := range idx.Entries() {
		if years.Has(e.Year) {
			out = append(out, e)
		}
	}
	return out
}

// YearSet is the caller-supplied set of years to harvest.
type YearSet map[int]bool

// NewYearSet builds a set from a list of years.
func NewYearSet(years ...int) YearSet {
	s := make(YearSet, len(years))
	for _, y := range years {
		s[y] = true
	}
	return s
}

// YearRange builds the inclusive set [from, to].
func YearRange(from, to int) YearSet {
	if to < from {
		from, to = to, from
	}
	s := make(YearSet, to-from+1)
	for y := from; y <= to; y++ {
		s[y] = true
	}
	return s
}

// Has reports whether year is selected.
func (s YearSet) Has(year int) bool {
	return s[year]
}

// Sorted returns the selected years, newest first.
func (s YearSet) Sorted() []int {
	years := make([]int, 0, len(s))
	for y, ok := range s {
		if ok {
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
