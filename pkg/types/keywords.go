// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// DefaultMinGroups is the number of distinct keyword groups a title must hit
// before it is admitted. One generic term alone must not admit everything.
const DefaultMinGroups = 2

// KeywordGroup is an ordered set of equivalent terms: synonyms, acronyms and
// morphological variants of one topic.
type KeywordGroup []string

// KeywordSet is a collection of groups. A nil set means "no filtering".
type KeywordSet []KeywordGroup

// Clean returns a copy with blank terms and empty groups removed. A nil set
// stays nil so unfiltered mode survives cleaning.
func (s KeywordSet) Clean() KeywordSet {
	if s == nil {
		return nil
	}
	out := make(KeywordSet, 0, len(s))
	for _, g := range s {
		var terms KeywordGroup
		for _, t := range g {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
		if len(terms) > 0 {
			out = append(out, terms)
		}
	}
	return out
}

// Terms returns the number of terms across all groups.
func (s KeywordSet) Terms() int {
	n := 0
	for _, g := range s {
		n += len(g)
	}
	return n
}
