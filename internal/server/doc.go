// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a replay backend that speaks the chat wire
// protocol.
//
// It answers POST /chat with a scripted [Transcript] streamed as
// "data: <json>" lines, ending with "data: [DONE]". It exists for
// development, demos and end-to-end tests; it does no retrieval or
// generation.
//
// # Endpoints
//
//   - POST /chat   - {"message": "..."}; 400 {"error": "No message provided"} when empty
//   - GET  /health - status, version, uptime and replies served
//   - GET  /       - same as /health
//
// # Middleware
//
// Requests pass through panic recovery, zerolog request logging and CORS.
// Bodies are capped at MaxRequestBodySize.
//
// # Transcript Files
//
//	echo = true
//	delay = "50ms"
//
//	[[frame]]
//	citations = [{ id = 1, source = "handbook.pdf", page = 3, content = "..." }]
//
//	[[frame]]
//	chunk = "Expenses are due in 30 days [1]."
//
//	[[frame]]
//	raw = "{not json"
package server
