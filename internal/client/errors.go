// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeNoBody
	ErrTypeRequest
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeNoBody:
		return "no_body"
	case ErrTypeRequest:
		return "request"
	default:
		return "unknown"
	}
}

// ClientError represents a failure to open the response stream.
type ClientError struct {
	Type    ErrorType
	Status  int // HTTP status for ErrTypeStatus
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Type == ErrTypeStatus && e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same type, so the sentinels below work
// with errors.Is regardless of message or cause.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	ErrConnection = &ClientError{Type: ErrTypeConnection, Message: "backend unreachable"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrStatus     = &ClientError{Type: ErrTypeStatus, Message: "unexpected status"}
	ErrNoBody     = &ClientError{Type: ErrTypeNoBody, Message: "response has no body"}
	ErrRequest    = &ClientError{Type: ErrTypeRequest, Message: "invalid request"}
)

// IsStatus reports whether err is a status error with the given code.
func IsStatus(err error, code int) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeStatus && ce.Status == code
}
