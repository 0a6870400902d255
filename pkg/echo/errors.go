// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package echo is a QUIC echo service whose peers authenticate each other
// by pinned public key. The server echoes the first bidirectional stream
// of every connection back to the client until the client finishes
// writing.
package echo

import "errors"

var (
	// ErrInvalidConfig indicates a missing or unusable configuration.
	ErrInvalidConfig = errors.New("echo: invalid configuration")

	// ErrServerAlreadyStarted indicates Start was called twice.
	ErrServerAlreadyStarted = errors.New("echo: server already started")

	// ErrServerNotStarted indicates Close was called before Start.
	ErrServerNotStarted = errors.New("echo: server not started")

	// ErrPayloadTooLarge indicates a payload or echo exceeding MaxEchoSize.
	ErrPayloadTooLarge = errors.New("echo: payload too large")

	// ErrDialFailed indicates the QUIC connection could not be established,
	// including handshakes refused by either peer's pin check.
	ErrDialFailed = errors.New("echo: dial failed")

	// ErrStreamFailed indicates an error on the echo stream.
	ErrStreamFailed = errors.New("echo: stream failed")
)
