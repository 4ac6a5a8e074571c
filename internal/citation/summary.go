// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"github.com/samber/lo"
)

// Summary counts what a resolved message contains.
type Summary struct {
	Resolved   int
	Unresolved int
	HasFooter  bool
	// Cited lists the distinct resolved ids in first-use order.
	Cited []int
}

// Summarize counts refs and notes whether a footer is present.
func Summarize(segs []Segment) Summary {
	refs := lo.Filter(segs, func(s Segment, _ int) bool {
		return s.Kind == SegmentCitationRef
	})
	resolved := lo.Filter(refs, func(s Segment, _ int) bool {
		return s.Resolved()
	})

	hasFooter := lo.ContainsBy(segs, func(s Segment) bool {
		return s.Kind == SegmentReferencesFooter
	})
	cited := lo.Uniq(lo.Map(resolved, func(s Segment, _ int) int {
		return s.CitationID
	}))

	return Summary{
		Resolved:   len(resolved),
		Unresolved: len(refs) - len(resolved),
		HasFooter:  hasFooter,
		Cited:      cited,
	}
}
