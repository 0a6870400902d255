// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/flynn/noise"
)

// Client fetches pinned keys from a Server as the Noise_NK initiator.
type Client struct {
	mu         sync.Mutex
	config     *ClientConfig
	conn       net.Conn
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
	logger     *slog.Logger
}

// NewClient creates a client. cfg.ServerStaticKey must be a 32-byte
// Curve25519 public key; cfg is modified in place to apply defaults.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidStaticKey)
	}
	if len(cfg.ServerStaticKey) != StaticKeySize {
		return nil, fmt.Errorf("%w: server static key must be %d bytes, got %d",
			ErrInvalidStaticKey, StaticKeySize, len(cfg.ServerStaticKey))
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultWriteTimeout
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultReadTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: cfg,
		logger: logger.With("component", "keydist"),
	}, nil
}

// Connect dials the server and performs the handshake.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := &net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.ServerAddr)
	if err != nil {
		return fmt.Errorf("%w: dial: %w", ErrConnectionFailed, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.ConnectTimeout)
	}
	send, recv, err := c.handshake(conn, deadline)
	if err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.sendCipher = send
	c.recvCipher = recv
	c.logger.Debug("handshake complete", "server", c.config.ServerAddr)
	return nil
}

// GetPinnedKeys requests the server's key set. Every returned key has the
// size the server reported, and that size must equal ExpectedKeySize when
// one is configured.
func (c *Client) GetPinnedKeys(ctx context.Context) ([][]byte, error) {
	resp, err := c.roundTrip(ctx, &Request{Method: MethodGetPinnedKeys})
	if err != nil {
		return nil, err
	}

	if resp.KeySize <= 0 {
		return nil, fmt.Errorf("%w: key size %d", ErrInvalidResponse, resp.KeySize)
	}
	if c.config.ExpectedKeySize != 0 && resp.KeySize != c.config.ExpectedKeySize {
		return nil, fmt.Errorf("%w: key size %d, want %d",
			ErrInvalidResponse, resp.KeySize, c.config.ExpectedKeySize)
	}

	keys := make([][]byte, 0, len(resp.Keys))
	for i, encoded := range resp.Keys {
		key, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: key %d: %w", ErrInvalidResponse, i, err)
		}
		if len(key) != resp.KeySize {
			return nil, fmt.Errorf("%w: key %d is %d bytes, want %d",
				ErrInvalidResponse, i, len(key), resp.KeySize)
		}
		keys = append(keys, key)
	}

	slices.SortFunc(keys, bytes.Compare)
	return slices.CompactFunc(keys, bytes.Equal), nil
}

// Close shuts down the connection. It is safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.sendCipher = nil
	c.recvCipher = nil
	return err
}

// FetchPinnedKeys connects, fetches the key set and disconnects.
func FetchPinnedKeys(ctx context.Context, cfg *ClientConfig) ([][]byte, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	defer client.Close()
	return client.GetPinnedKeys(ctx)
}

func (c *Client) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.sendCipher == nil {
		return nil, fmt.Errorf("%w: not connected", ErrConnectionFailed)
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrInvalidRequest, err)
	}
	ciphertext, err := c.sendCipher.Encrypt(nil, nil, reqData)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt request: %w", ErrHandshakeFailed, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.OperationTimeout)
	}

	if err := WriteFrame(c.conn, ciphertext, deadline); err != nil {
		return nil, fmt.Errorf("keydist: write request: %w", err)
	}
	respCiphertext, err := ReadFrame(c.conn, deadline)
	if err != nil {
		return nil, fmt.Errorf("keydist: read response: %w", err)
	}

	plaintext, err := c.recvCipher.Decrypt(nil, nil, respCiphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt response: %w", ErrHandshakeFailed, err)
	}

	var resp Response
	if err := json.Unmarshal(plaintext, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if resp.Error != "" {
		return &resp, fmt.Errorf("%w: %s", ErrServerError, resp.Error)
	}
	return &resp, nil
}

// handshake runs the initiator side of Noise_NK and returns the send and
// receive cipher states.
func (c *Client) handshake(conn net.Conn, deadline time.Time) (*noise.CipherState, *noise.CipherState, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite: cipherSuite(),
		Pattern:     noise.HandshakeNK,
		Initiator:   true,
		Prologue:    []byte(protocolPrologue),
		PeerStatic:  c.config.ServerStaticKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: init handshake state: %w", ErrHandshakeFailed, err)
	}

	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate msg1: %w", ErrHandshakeFailed, err)
	}
	if err := WriteFrame(conn, msg1, deadline); err != nil {
		return nil, nil, fmt.Errorf("%w: send msg1: %w", ErrHandshakeFailed, err)
	}

	msg2, err := ReadFrame(conn, deadline)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read msg2: %w", ErrHandshakeFailed, err)
	}
	_, cs1, cs2, err := hs.ReadMessage(nil, msg2)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: process msg2: %w", ErrHandshakeFailed, err)
	}
	if cs1 == nil || cs2 == nil {
		return nil, nil, fmt.Errorf("%w: handshake did not complete", ErrHandshakeFailed)
	}

	return cs1, cs2, nil
}
