// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat view for citechat.

The view is a Bubble Tea model over a chat Session. It never mutates the
conversation itself: it sends utterances through the session and redraws
from session snapshots whenever the session reports a change.

# Key Components

## Model (model.go)

Input line, scrolling transcript, spinner and help. Enter sends unless a
reply is streaming, Esc cancels the stream or closes the citation card, and
Tab cycles the interactive citation markers.

## View Rendering (view.go)

Header, transcript, citation card for the focused marker, input and status
line. Messages are drawn by package render.

## Streaming (streaming.go)

RenderThrottle caps redraws during a stream with a token-bucket limiter.
Terminal transitions bypass the throttle.

# Usage

	session := core.NewSession(client)
	view := chat.New(session, chat.Options{Policy: citation.PolicyWhenComplete})
	defer view.Close()
	if _, err := tea.NewProgram(view, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
*/
package chat
