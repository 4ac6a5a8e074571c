// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the chat response stream into frames.
//
// The response body is a sequence of lines, each one of:
//
//	data: {"chunk": "Hel"}
//	data: {"citations": [{"id": 1, "source": "a.pdf", "page": 3, "content": "..."}]}
//	data: [DONE]
//
// A JSON payload may carry both fields; the citation set is emitted first.
// Lines without the data prefix are ignored, malformed JSON is logged and
// dropped, and a stream that ends without [DONE] ends implicitly.
//
// # Usage
//
// Push-style, for callers that own the byte chunks:
//
//	dec := stream.NewDecoder(stream.WithLogger(log))
//	for chunk := range chunks {
//	    for _, f := range dec.Feed(chunk) {
//	        handle(f)
//	    }
//	}
//	for _, f := range dec.Close() {
//	    handle(f)
//	}
//
// Pull-style over an io.Reader:
//
//	r := stream.NewReader(resp.Body)
//	err := r.Process(ctx, func(f stream.Frame) error {
//	    return apply(f)
//	})
package stream
