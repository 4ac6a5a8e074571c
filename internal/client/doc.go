// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client opens chat response streams from the backend.
//
// A chat request is a POST of {"message": "..."} to the chat endpoint. The
// returned body is handed to package stream for decoding. Failures are
// reported as *ClientError values that match the package sentinels:
//
//	body, err := c.Open(ctx, utterance)
//	switch {
//	case errors.Is(err, client.ErrTimeout):
//	case errors.Is(err, client.ErrStatus):
//	}
package client
