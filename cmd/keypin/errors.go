// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import "errors"

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitFailure indicates a peer was rejected or an operation failed.
	ExitFailure = 1

	// ExitConfigError indicates a configuration or input validation error.
	ExitConfigError = 2
)

// Sentinel errors for CLI operations.
var (
	// ErrInvalidInput is returned when required input parameters are missing or invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRejected is returned when a certificate fails the pin check.
	ErrRejected = errors.New("peer rejected")

	// ErrKeyOperation is returned when a key generation or decoding operation fails.
	ErrKeyOperation = errors.New("key operation failed")

	// ErrFileOperation is returned when a file read or write operation fails.
	ErrFileOperation = errors.New("file operation failed")

	// ErrLookupFailed is returned when pinned keys or TLSA records cannot be loaded.
	ErrLookupFailed = errors.New("lookup failed")

	// ErrServerStart is returned when a server fails to start.
	ErrServerStart = errors.New("server start failed")

	// ErrConnectFailed is returned when the echo exchange fails.
	ErrConnectFailed = errors.New("connect failed")
)

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrInvalidInput):
		return ExitConfigError
	default:
		return ExitFailure
	}
}
