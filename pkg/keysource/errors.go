// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package keysource loads the raw public keys a verifier pins.
//
// Four sources are provided:
//
//   - Static: keys compiled in or passed on the command line.
//
//   - File: a key list on disk. Each entry is a hex line, a PEM
//     CERTIFICATE block or a PEM PUBLIC KEY block.
//
//   - DANE: keys published as TLSA "3 1 0" records and resolved with
//     DNSSEC validation.
//
//   - Noise: keys fetched from a keydist server over Noise_NK, using only
//     the server's static public key.
//
// Load queries a list of sources and returns the union of their keys.
// A source that fails contributes nothing, so a partial load can only
// narrow the set of trusted peers.
package keysource

import "errors"

var (
	// ErrInvalidConfig indicates a source or load configuration is missing
	// required fields.
	ErrInvalidConfig = errors.New("keysource: invalid configuration")

	// ErrNoSources indicates Load was called without any sources.
	ErrNoSources = errors.New("keysource: no sources configured")

	// ErrInvalidKeyFile indicates a key file entry could not be decoded.
	ErrInvalidKeyFile = errors.New("keysource: invalid key file")

	// ErrAllSourcesFailed indicates every configured source failed.
	ErrAllSourcesFailed = errors.New("keysource: all sources failed")
)
