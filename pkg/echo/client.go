// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package echo

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"

	"github.com/quic-go/quic-go"
)

// Client sends payloads to an echo server.
type Client struct {
	tlsConf *tls.Config
	config  *ClientConfig
	logger  *slog.Logger
}

// NewClient validates cfg and applies defaults. cfg is modified in place.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil || cfg.TLSConfig == nil {
		return nil, fmt.Errorf("%w: tls config required", ErrInvalidConfig)
	}
	if cfg.MaxEchoSize <= 0 {
		cfg.MaxEchoSize = DefaultMaxEchoSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		tlsConf: prepareTLS(cfg.TLSConfig),
		config:  cfg,
		logger:  logger.With("component", "echo_client"),
	}, nil
}

// Echo dials addr, writes payload on a new stream, finishes the stream and
// returns everything the server sends back. Each call uses a fresh
// connection.
func (c *Client) Echo(ctx context.Context, addr string, payload []byte) ([]byte, error) {
	if int64(len(payload)) > c.config.MaxEchoSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), c.config.MaxEchoSize)
	}

	conn, err := quic.DialAddr(ctx, addr, c.tlsConf, quicConfig(c.config.IdleTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDialFailed, addr, err)
	}
	defer conn.CloseWithError(0, "")

	c.logger.Debug("connected", "server", addr,
		"alpn", conn.ConnectionState().TLS.NegotiatedProtocol)

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream: %w", ErrStreamFailed, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	if _, err := stream.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: write: %w", ErrStreamFailed, err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("%w: close write: %w", ErrStreamFailed, err)
	}

	reply, err := io.ReadAll(io.LimitReader(stream, c.config.MaxEchoSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrStreamFailed, err)
	}
	if int64(len(reply)) > c.config.MaxEchoSize {
		return nil, fmt.Errorf("%w: reply exceeds %d bytes", ErrPayloadTooLarge, c.config.MaxEchoSize)
	}
	return reply, nil
}
