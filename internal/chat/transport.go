// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=mocks/mock_transport.go -package=mocks

import (
	"context"
	"io"
)

// Transport opens the response stream for one utterance. The returned body
// yields protocol lines and is closed by the caller. A failure to open, a
// non-2xx response included, is reported as an error.
type Transport interface {
	Open(ctx context.Context, utterance string) (io.ReadCloser, error)
}
