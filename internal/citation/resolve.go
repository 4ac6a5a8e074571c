// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jeranaias/citechat/internal/model"
)

const footerMarker = "References:"

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Resolve splits text into plain, citation-ref and footer segments and
// attaches matching citations. It is pure: the same text and set always
// give the same segments.
func Resolve(text string, citations []model.Citation) []Segment {
	return NewStore(citations).Resolve(text)
}

// Resolve is Resolve against an already built store.
func (s *Store) Resolve(text string) []Segment {
	body, footer := splitFooter(text)

	var segs []Segment
	last := 0
	for _, m := range markerPattern.FindAllStringSubmatchIndex(body, -1) {
		if m[0] > last {
			segs = append(segs, Segment{Kind: SegmentPlain, Text: body[last:m[0]]})
		}
		segs = append(segs, s.ref(body[m[0]:m[1]], body[m[2]:m[3]]))
		last = m[1]
	}
	if last < len(body) {
		segs = append(segs, Segment{Kind: SegmentPlain, Text: body[last:]})
	}

	if footer != "" {
		segs = append(segs, Segment{Kind: SegmentReferencesFooter, Text: footer})
	}
	return segs
}

func (s *Store) ref(raw, digits string) Segment {
	seg := Segment{Kind: SegmentCitationRef, Text: raw}

	id, err := strconv.Atoi(digits)
	if err != nil {
		// Too large for int; no citation can carry it.
		return seg
	}
	seg.CitationID = id
	if c, ok := s.Lookup(id); ok {
		seg.Citation = &c
	}
	return seg
}

// splitFooter cuts text at the first "References:" marker, including an
// opening bracket right before it. The footer runs to the end of the text.
func splitFooter(text string) (body, footer string) {
	idx := strings.Index(text, footerMarker)
	if idx < 0 {
		return text, ""
	}
	if idx > 0 && text[idx-1] == '[' {
		idx--
	}
	return text[:idx], text[idx:]
}
