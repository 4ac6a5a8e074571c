// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/jeranaias/citechat/internal/model"
	"github.com/jeranaias/citechat/internal/stream"
)

// DefaultErrorText replaces the reply text when a send fails.
const DefaultErrorText = "Error: Failed to get response"

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler folds decoded frames into the conversation history. Only the
// assistant message created by Begin is ever mutated.
type Reconciler struct {
	conv      *model.Conversation
	errorText string
	log       zerolog.Logger
}

// NewReconciler creates a reconciler over conv. An empty errorText uses
// DefaultErrorText.
func NewReconciler(conv *model.Conversation, errorText string, log zerolog.Logger) *Reconciler {
	if errorText == "" {
		errorText = DefaultErrorText
	}
	return &Reconciler{conv: conv, errorText: errorText, log: log}
}

// Conversation returns the history the reconciler writes to.
func (r *Reconciler) Conversation() *model.Conversation {
	return r.conv
}

// ErrorText returns the text a failed reply is replaced with.
func (r *Reconciler) ErrorText() string {
	return r.errorText
}

// Begin records the utterance and opens a pending assistant reply.
func (r *Reconciler) Begin(utterance string) (string, error) {
	_, id, err := r.conv.Begin(utterance)
	return id, err
}

// Apply folds one frame into the reply. Text deltas append, citation sets
// replace, end-of-stream completes. Frames for a closed reply are rejected
// with model.ErrMessageClosed.
func (r *Reconciler) Apply(id string, f stream.Frame) error {
	var err error
	switch f.Type {
	case stream.FrameTextDelta:
		if err = r.conv.MarkStreaming(id); err == nil {
			err = r.conv.AppendText(id, f.Text)
		}
	case stream.FrameCitationSet:
		if err = r.conv.MarkStreaming(id); err == nil {
			err = r.conv.ReplaceCitations(id, f.Citations)
		}
	case stream.FrameEndOfStream:
		err = r.conv.Finish(id)
	}

	if errors.Is(err, model.ErrMessageClosed) {
		r.log.Warn().
			Str("message_id", id).
			Stringer("frame", f.Type).
			Msg("frame for closed message rejected")
	}
	return err
}

// Fail replaces the reply text with the error text and marks it errored.
func (r *Reconciler) Fail(id string) error {
	return r.conv.Fail(id, r.errorText)
}

// Cancel marks the reply canceled, keeping the text received so far.
func (r *Reconciler) Cancel(id string) error {
	return r.conv.Cancel(id)
}
