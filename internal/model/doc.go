// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the stream decoder,
// the reconciler, and every renderer.
//
// # Key Types
//
//   - Conversation: Append-only message history with a single in-flight reply
//   - Message: Read-only snapshot of one turn (text, citations, state)
//   - Citation: Source reference (id, source, page, content)
//   - State: Assistant reply lifecycle (pending, streaming, complete, errored, canceled)
//
// # Usage
//
// The reconciler is the only writer:
//
//	conv := model.NewConversation()
//	_, replyID, err := conv.Begin("What does chapter 2 say?")
//	conv.MarkStreaming(replyID)
//	conv.AppendText(replyID, "Chapter 2 covers [1].")
//	conv.ReplaceCitations(replyID, []model.Citation{{ID: 1, Source: "book.pdf", Page: 12}})
//	conv.Finish(replyID)
//
// Renderers only read:
//
//	for _, msg := range conv.Snapshot() {
//	    fmt.Println(msg.Role.DisplayName(), msg.Text)
//	}
package model
