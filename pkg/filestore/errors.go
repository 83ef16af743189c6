// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package filestore

import (
	"errors"
	"fmt"
)

// ErrUnsupportedInput is returned when an upload body cannot be read to
// completion. This is a caller bug, not a transient storage failure; the
// same request will fail again.
var ErrUnsupportedInput = errors.New("filestore: upload body could not be read")

// ErrorCode represents a domain-level error code
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeValidation
	ErrCodeWriteFailed
	ErrCodeDeleteFailed
	ErrCodeListFailed
	ErrCodePresignFailed
)

// Error represents a domain-level error. Key and Scheme tag which
// sub-operation of a dual-scheme write or delete failed, so callers can see
// whether the legacy or the location-addressed copy is the stale one.
type Error struct {
	Code    ErrorCode
	Message string

	// Key is the object key involved, when the failure is key-specific.
	Key string

	// Scheme is "path" or "location" for dual-scheme operations.
	Scheme string

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	switch {
	case e.Key != "" && e.Scheme != "":
		msg = fmt.Sprintf("%s (%s key %q)", msg, e.Scheme, e.Key)
	case e.Key != "":
		msg = fmt.Sprintf("%s (key %q)", msg, e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller may retry the operation with the
// same arguments. Storage failures are retryable because every write and
// delete here is idempotent per key; validation failures are not.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeWriteFailed, ErrCodeDeleteFailed, ErrCodeListFailed, ErrCodePresignFailed:
		return true
	}
	return false
}

func validationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}
