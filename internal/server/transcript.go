// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/citechat/internal/model"
)

// ============================================================================
// TRANSCRIPT
// ============================================================================

// Frame is one scripted line of a reply.
//
// Raw, when set, is written verbatim after "data: " so malformed payloads can
// be scripted. Otherwise the line carries chunk and citations, each only
// when set.
type Frame struct {
	Chunk     string           `toml:"chunk"`
	Citations []model.Citation `toml:"citations"`
	Raw       string           `toml:"raw"`
}

// Transcript is the scripted reply served for every question.
type Transcript struct {
	// Echo prefixes the reply with the question.
	Echo bool `toml:"echo"`

	// Delay is slept between frames.
	Delay time.Duration `toml:"delay"`

	// OmitDone leaves out the [DONE] sentinel so clients see the stream
	// end on connection close.
	OmitDone bool `toml:"omit_done"`

	Frames []Frame `toml:"frame"`
}

// DefaultTranscript returns a short cited answer.
func DefaultTranscript() Transcript {
	return Transcript{
		Echo:  true,
		Delay: 40 * time.Millisecond,
		Frames: []Frame{
			{Citations: []model.Citation{
				{ID: 1, Source: "employee-handbook.pdf", Page: 14, Content: "Expense reports must be submitted within 30 days of the purchase date, with itemized receipts attached."},
				{ID: 2, Source: "travel-policy.pdf", Page: 3, Content: "All travel must be approved in advance by the employee's direct manager."},
			}},
			{Chunk: "Expense reports are due **within 30 days** "},
			{Chunk: "of purchase [1]. "},
			{Chunk: "Travel needs approval from your manager "},
			{Chunk: "before you book [2]."},
			{Chunk: "\n\nReferences:\n[1] employee-handbook.pdf, p. 14\n[2] travel-policy.pdf, p. 3"},
		},
	}
}

// LoadTranscript reads a transcript from a TOML file.
func LoadTranscript(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to read transcript: %w", err)
	}
	return DecodeTranscript(string(data))
}

// DecodeTranscript parses a transcript from TOML text.
func DecodeTranscript(data string) (Transcript, error) {
	var t Transcript
	md, err := toml.Decode(data, &t)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to parse transcript: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Transcript{}, fmt.Errorf("unknown transcript keys: %s", strings.Join(keys, ", "))
	}
	return t, nil
}

// Lines renders the wire lines for a reply to question, without the
// trailing blank lines.
func (t Transcript) Lines(question string) ([]string, error) {
	frames := t.Frames
	if t.Echo {
		frames = append([]Frame{{Chunk: fmt.Sprintf("You asked: %q. ", question)}}, frames...)
	}

	lines := make([]string, 0, len(frames)+1)
	for i, f := range frames {
		line, err := f.line()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	if !t.OmitDone {
		lines = append(lines, "data: [DONE]")
	}
	return lines, nil
}

func (f Frame) line() (string, error) {
	if f.Raw != "" {
		return "data: " + f.Raw, nil
	}

	payload := struct {
		Chunk     string           `json:"chunk,omitempty"`
		Citations []model.Citation `json:"citations,omitempty"`
	}{f.Chunk, f.Citations}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return "data: " + string(data), nil
}
