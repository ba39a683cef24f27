// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gate decides whether a candidate title is relevant enough to
// download. It is pure: no I/O, no state.
package gate

import (
	"strings"

	"github.com/pdiddy/proceedings-harvester/pkg/types"
)

// Admit reports whether title matches at least minGroups distinct groups of
// set. A group matches when any of its terms is a case-insensitive substring
// of title. A nil set admits everything. minGroups <= 0 means
// types.DefaultMinGroups.
func Admit(title string, set types.KeywordSet, minGroups int) bool {
	if set == nil {
		return true
	}
	if minGroups <= 0 {
		minGroups = types.DefaultMinGroups
	}
	return len(Matched(title, set)) >= minGroups
}

// Matched returns the indexes of the groups in set that title hits.
func Matched(title string, set types.KeywordSet) []int {
	lower := strings.ToLower(title)
	var hits []int
	for i, group := range set {
		for _, term := range group {
			if term == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(term)) {
				hits = append(hits, i)
				break
			}
		}
	}
	return hits
}
