// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"log/slog"
	"time"

	"github.com/flynn/noise"
)

// Default configuration values for the key distribution server and client.
const (
	// DefaultListenAddr is the default TCP address the server binds to.
	DefaultListenAddr = ":8445"

	// DefaultMaxConnections is the default maximum number of concurrent connections.
	DefaultMaxConnections = 100

	// MaxMaxConnections is the upper bound for MaxConnections.
	MaxMaxConnections = 10000

	// DefaultReadTimeout is the default deadline for read operations.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default deadline for write operations.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultRateLimit is the default token refill rate (connections per second per IP).
	DefaultRateLimit = 10.0

	// DefaultRateBurst is the default maximum burst size for the rate limiter.
	DefaultRateBurst = 20

	// MaxFrameSize is the maximum payload of a single frame, which is also
	// the Noise maximum message size.
	MaxFrameSize = 65535

	// FrameHeaderSize is the length of the big-endian frame length prefix.
	FrameHeaderSize = 2

	// StaticKeySize is the length of Curve25519 private and public keys.
	StaticKeySize = 32
)

// KeyProvider supplies the key set to distribute. *keypin.KeySet satisfies
// it.
type KeyProvider interface {
	Keys() [][]byte
	Size() int
}

// ServerConfig configures the Noise_NK key distribution server.
type ServerConfig struct {
	// ListenAddr is the TCP address to bind the listener to (e.g., ":8445").
	ListenAddr string

	// StaticKey is the server's Curve25519 static key pair. Clients must know
	// the public component to complete the NK handshake.
	StaticKey *noise.DHKey

	// Keys provides the pinned key set. A nil provider, including a typed
	// nil pointer, makes every request fail with ErrKeysNotConfigured.
	Keys KeyProvider

	// MaxConnections limits the number of simultaneous client connections.
	// Zero or negative values are replaced with DefaultMaxConnections.
	MaxConnections int

	// ReadTimeout is the deadline for reading a complete frame from a client.
	ReadTimeout time.Duration

	// WriteTimeout is the deadline for writing a complete frame to a client.
	WriteTimeout time.Duration

	// RateLimit is the per-IP connection rate in connections per second.
	RateLimit float64

	// RateBurst is the number of connections an IP may open in a burst.
	RateBurst int

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// ClientConfig configures the Noise_NK key distribution client.
type ClientConfig struct {
	// ServerAddr is the TCP address of the server (e.g., "localhost:8445").
	ServerAddr string

	// ServerStaticKey is the server's 32-byte Curve25519 static public key.
	ServerStaticKey []byte

	// ExpectedKeySize, when non-zero, is the key size the server must
	// report. Responses with any other size are rejected.
	ExpectedKeySize int

	// ConnectTimeout bounds dialing and the handshake when the context
	// carries no deadline. Defaults to DefaultWriteTimeout.
	ConnectTimeout time.Duration

	// OperationTimeout bounds a request/response exchange when the context
	// carries no deadline. Defaults to DefaultReadTimeout.
	OperationTimeout time.Duration

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}
