// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package echo

import (
	"crypto/tls"
	"log/slog"
	"slices"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// ALPN is the application protocol negotiated by both peers.
	ALPN = "keypin-echo"

	// DefaultListenAddr is the default UDP address the server binds to.
	DefaultListenAddr = ":4433"

	// DefaultMaxEchoSize bounds a single echo in bytes.
	DefaultMaxEchoSize = 1 << 20

	// DefaultIdleTimeout closes connections without activity.
	DefaultIdleTimeout = 30 * time.Second
)

// ConnectionRecorder is told the outcome of every accepted connection.
// *metrics.Collector satisfies it.
type ConnectionRecorder interface {
	RecordConnection(result string)
}

// Connection outcomes passed to ConnectionRecorder.
const (
	ResultAccepted = "accepted"
	ResultFailed   = "failed"
)

// ServerConfig configures the echo server.
type ServerConfig struct {
	// ListenAddr is the UDP address to listen on. Default: ":4433".
	ListenAddr string

	// TLSConfig must present the server certificate and verify clients,
	// normally (*keypin.Verifier).ServerTLSConfig. It is cloned; ALPN is
	// added when NextProtos is empty.
	TLSConfig *tls.Config

	// MaxEchoSize bounds the bytes echoed per connection.
	MaxEchoSize int64

	// IdleTimeout closes idle connections. Default: 30s.
	IdleTimeout time.Duration

	// Recorder, if set, counts connection outcomes.
	Recorder ConnectionRecorder

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// ClientConfig configures the echo client.
type ClientConfig struct {
	// TLSConfig must present the client certificate and verify the
	// server, normally (*keypin.Verifier).ClientTLSConfig.
	TLSConfig *tls.Config

	// MaxEchoSize bounds the payload and the echoed reply.
	MaxEchoSize int64

	// IdleTimeout closes the connection without activity. Default: 30s.
	IdleTimeout time.Duration

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

func prepareTLS(cfg *tls.Config) *tls.Config {
	out := cfg.Clone()
	if len(out.NextProtos) == 0 {
		out.NextProtos = []string{ALPN}
	} else if !slices.Contains(out.NextProtos, ALPN) {
		out.NextProtos = append(slices.Clone(out.NextProtos), ALPN)
	}
	if out.MinVersion < tls.VersionTLS13 {
		out.MinVersion = tls.VersionTLS13
	}
	return out
}

func quicConfig(idle time.Duration) *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  idle,
		KeepAlivePeriod: idle / 2,
	}
}
