// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"github.com/rs/zerolog"

	"github.com/jeranaias/citechat/internal/metrics"
)

const (
	// DefaultMaxLineSize bounds a single protocol line (1 MiB).
	DefaultMaxLineSize = 1 << 20
	// DefaultReadSize is the buffer size used by Reader for each Read call.
	DefaultReadSize = 4 * 1024
)

type options struct {
	maxLineSize int
	readSize    int
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

func defaultOptions() options {
	return options{
		maxLineSize: DefaultMaxLineSize,
		readSize:    DefaultReadSize,
		logger:      zerolog.Nop(),
	}
}

// Option configures a Decoder or Reader.
type Option func(*options)

// WithMaxLineSize sets the longest accepted line in bytes. Longer lines are
// dropped. Values <= 0 keep the default.
func WithMaxLineSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineSize = n
		}
	}
}

// WithReadSize sets how many bytes Reader asks for per Read call.
// Values <= 0 keep the default. Ignored by Decoder.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// WithLogger sets the logger used for dropped frames.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the collector for frame counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
