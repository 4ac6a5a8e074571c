// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"github.com/jeranaias/citechat/internal/model"
)

// =============================================================================
// FRAME TYPES
// =============================================================================

// FrameType identifies the kind of a decoded protocol frame.
type FrameType int

const (
	// FrameTextDelta carries a text fragment to append to the reply.
	FrameTextDelta FrameType = iota
	// FrameCitationSet carries the complete citation set for the reply.
	FrameCitationSet
	// FrameEndOfStream signals that the reply is complete.
	FrameEndOfStream
)

// String returns the frame type name used in logs and metrics.
func (t FrameType) String() string {
	switch t {
	case FrameTextDelta:
		return "text_delta"
	case FrameCitationSet:
		return "citation_set"
	case FrameEndOfStream:
		return "end_of_stream"
	default:
		return "unknown"
	}
}

// Frame is one decoded unit of the response stream.
type Frame struct {
	Type      FrameType
	Text      string           // FrameTextDelta only
	Citations []model.Citation // FrameCitationSet only; never nil for that type
}

// TextDelta builds a text-delta frame.
func TextDelta(text string) Frame {
	return Frame{Type: FrameTextDelta, Text: text}
}

// CitationSet builds a citation-set frame. A nil set becomes empty.
func CitationSet(set []model.Citation) Frame {
	if set == nil {
		set = []model.Citation{}
	}
	return Frame{Type: FrameCitationSet, Citations: set}
}

// EndOfStream builds an end-of-stream frame.
func EndOfStream() Frame {
	return Frame{Type: FrameEndOfStream}
}

// payload is the JSON object carried after the data prefix.
type payload struct {
	Chunk     *string           `json:"chunk"`
	Citations *[]model.Citation `json:"citations"`
}
