// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat sends utterances and folds the streamed replies into a
// conversation.
//
// A Session owns one conversation. Each accepted send appends the user
// message and one assistant reply, opens the stream through a Transport and
// applies every decoded frame to that reply in arrival order. The reply
// always ends in a terminal state:
//
//   - complete on end-of-stream (explicit or at end of input)
//   - errored on a transport failure; its text becomes the error text
//   - canceled when the caller cancels; its partial text is kept
//
// Renderers observe the session through Subscribe and Snapshot:
//
//	sess := chat.NewSession(client.New(cfg))
//	updates, stop := sess.Subscribe()
//	defer stop()
//	sess.SendAsync(ctx, "What does the report conclude?")
//	for range updates {
//	    draw(sess.Snapshot())
//	}
package chat
