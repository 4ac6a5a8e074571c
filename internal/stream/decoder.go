// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"

	"github.com/jeranaias/citechat/internal/metrics"
	"github.com/jeranaias/citechat/internal/util"
)

// =============================================================================
// WIRE CONSTANTS
// =============================================================================

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	// excerptLen bounds payload excerpts in log lines.
	excerptLen = 120
)

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw response bytes into frames. It keeps the trailing partial
// line between Feed calls, so the frames produced depend only on the byte
// sequence and never on how it was split into chunks.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	opts options

	buf        []byte
	discarding bool // inside a line that already exceeded maxLineSize
	done       bool
}

// NewDecoder creates a decoder.
func NewDecoder(opts ...Option) *Decoder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder{opts: o}
}

// Done reports whether the end of the stream has been reached.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends chunk to the carry-over buffer and returns the frames for
// every complete line it now holds. Input after end-of-stream is ignored.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if d.done || len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	start := 0
	for !d.done {
		idx := bytes.IndexByte(d.buf[start:], '\n')
		if idx < 0 {
			break
		}
		line := d.buf[start : start+idx]
		start += idx + 1

		if d.discarding {
			d.discarding = false
			continue
		}
		frames = append(frames, d.line(line)...)
	}

	if d.done {
		d.buf = nil
		return frames
	}

	n := copy(d.buf, d.buf[start:])
	d.buf = d.buf[:n]

	if partialLen(d.buf) > d.opts.maxLineSize {
		d.dropOversized(len(d.buf))
		d.discarding = true
		d.buf = d.buf[:0]
	} else if d.discarding {
		// Still inside the oversized line; keep memory bounded.
		d.buf = d.buf[:0]
	}
	return frames
}

// Close flushes a final unterminated line and ends the stream. Unless the
// [DONE] sentinel was already seen, the result ends with an implicit
// end-of-stream frame. Close is idempotent.
func (d *Decoder) Close() []Frame {
	if d.done {
		return nil
	}

	var frames []Frame
	if len(d.buf) > 0 && !d.discarding {
		frames = d.line(d.buf)
	}
	d.buf = nil
	d.discarding = false

	if !d.done {
		d.done = true
		d.opts.metrics.RecordFrame(FrameEndOfStream.String())
		frames = append(frames, EndOfStream())
	}
	return frames
}

// line decodes one complete line without its terminator.
func (d *Decoder) line(raw []byte) []Frame {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	if len(raw) > d.opts.maxLineSize {
		d.dropOversized(len(raw))
		return nil
	}

	// Blank keep-alives, comments and other SSE fields carry nothing.
	if !bytes.HasPrefix(raw, []byte(dataPrefix)) {
		return nil
	}
	data := bytes.TrimSpace(raw[len(dataPrefix):])
	if len(data) == 0 {
		d.opts.metrics.RecordDrop(metrics.DropEmpty)
		return nil
	}

	if string(data) == doneSentinel {
		d.done = true
		d.opts.metrics.RecordFrame(FrameEndOfStream.String())
		return []Frame{EndOfStream()}
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		d.opts.logger.Warn().
			Err(err).
			Str("payload", util.Excerpt(string(data), excerptLen)).
			Msg("dropping malformed frame")
		d.opts.metrics.RecordDrop(metrics.DropMalformed)
		return nil
	}

	var frames []Frame
	if p.Citations != nil {
		frames = append(frames, CitationSet(*p.Citations))
	}
	if p.Chunk != nil && *p.Chunk != "" {
		frames = append(frames, TextDelta(*p.Chunk))
	}
	if len(frames) == 0 {
		d.opts.metrics.RecordDrop(metrics.DropEmpty)
	}
	for _, f := range frames {
		d.opts.metrics.RecordFrame(f.Type.String())
	}
	return frames
}

// partialLen is the length a pending line would have once terminated: a
// trailing carriage return belongs to the terminator.
func partialLen(b []byte) int {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return n - 1
	}
	return len(b)
}

func (d *Decoder) dropOversized(size int) {
	d.opts.logger.Warn().
		Int("size", size).
		Int("limit", d.opts.maxLineSize).
		Msg("dropping oversized line")
	d.opts.metrics.RecordDrop(metrics.DropOversized)
}
