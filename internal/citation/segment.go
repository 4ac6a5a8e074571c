// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"github.com/jeranaias/citechat/internal/model"
)

// SegmentKind identifies a piece of resolved message text.
type SegmentKind int

const (
	// SegmentPlain is ordinary text.
	SegmentPlain SegmentKind = iota
	// SegmentCitationRef is a numeric marker such as [3].
	SegmentCitationRef
	// SegmentReferencesFooter is the trailing references block.
	SegmentReferencesFooter
)

// String returns the kind name.
func (k SegmentKind) String() string {
	switch k {
	case SegmentPlain:
		return "plain"
	case SegmentCitationRef:
		return "citation_ref"
	case SegmentReferencesFooter:
		return "references_footer"
	default:
		return "unknown"
	}
}

// Segment is one piece of a message text. Concatenating the Text of all
// segments returned by Resolve reproduces the input.
type Segment struct {
	Kind SegmentKind
	Text string

	// CitationID is the numeric marker id. Zero when the id does not fit.
	CitationID int
	// Citation is set when the marker matched the citation set.
	Citation *model.Citation
}

// Resolved reports whether the segment is a citation ref with a match.
func (s Segment) Resolved() bool {
	return s.Kind == SegmentCitationRef && s.Citation != nil
}
