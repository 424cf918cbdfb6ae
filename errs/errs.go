// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package errs defines error kinds surfaced to the user facing layer.
package errs

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Code is the type representing an error kind.
type Code struct {
	Code uint16
	Name string
}

var (
	// Unknown defines error that was not classified.
	Unknown = Code{0, "UNKNOWN"}
	// InvalidInput defines missing or malformed caller input (e.g. wallet unavailable).
	InvalidInput = Code{1, "INVALID_INPUT"}
	// UserRejected defines that user declined the approval request.
	UserRejected = Code{2, "USER_REJECTED"}
	// NetworkError defines rpc, indexer or broadcast failure.
	// Transient and permanent failures are not distinguished.
	NetworkError = Code{3, "NETWORK_ERROR"}
	// ProtocolError defines on-chain state that contradicts configuration (wrong guardian, wrong owner).
	ProtocolError = Code{4, "PROTOCOL_ERROR"}
	// InsufficientFunds defines that available funds do not cover requested amount.
	InsufficientFunds = Code{5, "INSUFFICIENT_FUNDS"}
)

// ErrUserRejected is returned by wallet callbacks when user declines the request.
var ErrUserRejected = errors.New("rejected by user")

// Coder is implemented by errors that know their kind.
type Coder interface {
	ErrorCode() Code
}

// New creates a new error with the given code and the message.
func (c Code) New(msg string, args ...any) *Error {
	return &Error{code: c, cause: fmt.Errorf(msg, args...)}
}

// Wrap creates a new error with the given code and the cause error.
func (c Code) Wrap(cause error) *Error {
	return &Error{code: c, cause: cause}
}

// Is returns true if err is classified with this code.
func (c Code) Is(err error) bool {
	return err != nil && CodeOf(err) == c
}

func (c Code) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Error is the error with attached kind.
type Error struct {
	code  Code
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.cause)
}

// Unwrap returns the cause error.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorCode implements Coder.
func (e *Error) ErrorCode() Code {
	return e.code
}

// Log returns log entry prefilled with the error kind.
func (e *Error) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithError(e.cause)
}

// CodeOf returns the first kind found in the error chain, Unknown otherwise.
func CodeOf(err error) Code {
	var coder Coder
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}

	if errors.Is(err, ErrUserRejected) {
		return UserRejected
	}

	return Unknown
}

// Classify returns err tagged with its kind, fallback kind is used for errors without one.
func Classify(err error, fallback Code) error {
	if err == nil {
		return nil
	}

	var coder Coder
	if errors.As(err, &coder) {
		return err
	}

	if errors.Is(err, ErrUserRejected) {
		return UserRejected.Wrap(err)
	}

	return fallback.Wrap(err)
}
