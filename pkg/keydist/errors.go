// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package keydist distributes a pinned public key set over an encrypted
// Noise_NK channel. Peers only need the distributor's 32-byte Curve25519
// static public key, obtained out of band, to fetch the current set of
// raw public keys authorized for mutual TLS.
//
// Messages are JSON, encrypted with ChaChaPoly and carried in 2-byte
// big-endian length-prefixed frames over TCP.
package keydist

import "errors"

// Sentinel errors for the keydist package.
var (
	// ErrServerNotStarted indicates an operation was attempted before the server was started.
	ErrServerNotStarted = errors.New("keydist: server not started")

	// ErrServerAlreadyStarted indicates Start was called on a server that is
	// running or has been stopped.
	ErrServerAlreadyStarted = errors.New("keydist: server already started")

	// ErrMaxConnections indicates the configured connection limit is out of range.
	ErrMaxConnections = errors.New("keydist: max connections out of range")

	// ErrInvalidRequest indicates the client sent a malformed or unparseable request.
	ErrInvalidRequest = errors.New("keydist: invalid request")

	// ErrInvalidResponse indicates the server sent a response that does not
	// describe a usable key set.
	ErrInvalidResponse = errors.New("keydist: invalid response")

	// ErrMethodNotFound indicates the requested method is not registered.
	ErrMethodNotFound = errors.New("keydist: method not found")

	// ErrKeysNotConfigured indicates the server has no key provider.
	ErrKeysNotConfigured = errors.New("keydist: pinned keys not configured")

	// ErrConnectionFailed indicates a TCP connection could not be established or was lost.
	ErrConnectionFailed = errors.New("keydist: connection failed")

	// ErrTimeout indicates an I/O deadline could not be applied.
	ErrTimeout = errors.New("keydist: operation timeout")

	// ErrFrameTooLarge indicates a frame exceeds the maximum allowed size.
	ErrFrameTooLarge = errors.New("keydist: frame too large")

	// ErrHandshakeFailed indicates the Noise_NK handshake did not complete successfully.
	ErrHandshakeFailed = errors.New("keydist: handshake failed")

	// ErrInvalidStaticKey indicates a Curve25519 static key of the wrong size
	// or encoding.
	ErrInvalidStaticKey = errors.New("keydist: invalid static key")

	// ErrServerError is wrapped around error messages returned by the server.
	ErrServerError = errors.New("keydist: server error")
)
