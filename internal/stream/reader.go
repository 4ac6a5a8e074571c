// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
)

// =============================================================================
// READER
// =============================================================================

// Reader pulls frames from an io.Reader, typically an HTTP response body.
type Reader struct {
	src     io.Reader
	dec     *Decoder
	buf     []byte
	pending []Frame
	err     error
	ended   bool
}

// NewReader creates a frame reader over r.
func NewReader(r io.Reader, opts ...Option) *Reader {
	dec := NewDecoder(opts...)
	return &Reader{
		src: r,
		dec: dec,
		buf: make([]byte, dec.opts.readSize),
	}
}

// Next returns the next frame. After the end-of-stream frame has been
// returned, Next returns io.EOF. A read error other than io.EOF is returned
// unchanged once the frames decoded before it are drained.
func (r *Reader) Next() (Frame, error) {
	for {
		if len(r.pending) > 0 {
			f := r.pending[0]
			r.pending = r.pending[1:]
			if f.Type == FrameEndOfStream {
				r.ended = true
				r.pending = nil
			}
			return f, nil
		}
		if r.ended {
			return Frame{}, io.EOF
		}
		if r.err != nil {
			return Frame{}, r.err
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.pending = append(r.pending, r.dec.Feed(r.buf[:n])...)
		}
		switch {
		case errors.Is(err, io.EOF):
			r.pending = append(r.pending, r.dec.Close()...)
		case err != nil:
			r.err = err
		}
	}
}

// Callback receives each frame in order. Returning an error stops Process.
type Callback func(Frame) error

// Process reads frames and calls fn for each one until end-of-stream.
// Blocks until the stream is complete, fn fails or ctx is cancelled.
func (r *Reader) Process(ctx context.Context, fn Callback) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
