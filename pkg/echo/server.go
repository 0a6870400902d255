// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package echo

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"github.com/jeremyhahn/go-keypin/pkg/x509der"
)

// Server accepts QUIC connections and echoes their first stream.
type Server struct {
	config   *ServerConfig
	tlsConf  *tls.Config
	logger   *slog.Logger
	recorder ConnectionRecorder

	mu       sync.Mutex
	listener *quic.Listener
	cancel   context.CancelFunc
	started  bool
	closed   atomic.Bool
	wg       sync.WaitGroup
}

// NewServer validates cfg and applies defaults. cfg is modified in place.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil || cfg.TLSConfig == nil {
		return nil, fmt.Errorf("%w: tls config required", ErrInvalidConfig)
	}
	if len(cfg.TLSConfig.Certificates) == 0 && cfg.TLSConfig.GetCertificate == nil {
		return nil, fmt.Errorf("%w: server certificate required", ErrInvalidConfig)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
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

	return &Server{
		config:   cfg,
		tlsConf:  prepareTLS(cfg.TLSConfig),
		logger:   logger.With("component", "echo_server"),
		recorder: cfg.Recorder,
	}, nil
}

// Start binds the UDP listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrServerAlreadyStarted
	}

	ln, err := quic.ListenAddr(s.config.ListenAddr, s.tlsConf, quicConfig(s.config.IdleTimeout))
	if err != nil {
		return fmt.Errorf("echo: listen %s: %w", s.config.ListenAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listener = ln
	s.cancel = cancel
	s.started = true

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)

	s.logger.Info("echo server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes every connection and waits for the
// connection goroutines to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrServerNotStarted
	}
	if s.closed.Swap(true) {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	err := s.listener.Close()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("echo server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln *quic.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if !s.closed.Load() {
				s.logger.Error("accept failed", "error", err)
			}
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn *quic.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr().String())
	if key := peerKey(conn.ConnectionState().TLS); key != "" {
		logger = logger.With("peer_key", key)
	}

	n, err := s.echo(ctx, conn)
	if err != nil {
		logger.Debug("echo failed", "error", err)
		s.record(ResultFailed)
		_ = conn.CloseWithError(1, "echo failed")
		return
	}
	logger.Debug("echo complete", "bytes", n)
	s.record(ResultAccepted)

	// The client closes the connection once it has read the echo.
	select {
	case <-conn.Context().Done():
	case <-ctx.Done():
		_ = conn.CloseWithError(0, "server closing")
	}
}

func (s *Server) echo(ctx context.Context, conn *quic.Conn) (int64, error) {
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: accept stream: %w", ErrStreamFailed, err)
	}

	// Nothing is written back until the whole payload is known to fit.
	data, err := io.ReadAll(io.LimitReader(stream, s.config.MaxEchoSize+1))
	if err != nil {
		stream.CancelWrite(1)
		return 0, fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	if int64(len(data)) > s.config.MaxEchoSize {
		stream.CancelRead(1)
		stream.CancelWrite(1)
		return 0, ErrPayloadTooLarge
	}

	n, err := stream.Write(data)
	if err != nil {
		stream.CancelWrite(1)
		return int64(n), fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	if err := stream.Close(); err != nil {
		return int64(n), fmt.Errorf("%w: %w", ErrStreamFailed, err)
	}
	return int64(n), nil
}

func (s *Server) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordConnection(result)
	}
}

// peerKey returns a short hex prefix of the peer's pinned key for logging.
func peerKey(state tls.ConnectionState) string {
	if len(state.PeerCertificates) == 0 {
		return ""
	}
	cert, err := x509der.Parse(state.PeerCertificates[0].Raw)
	if err != nil {
		return ""
	}
	key := cert.SubjectPublicKeyInfo.PublicKey
	if len(key) > 8 {
		key = key[:8]
	}
	return hex.EncodeToString(key)
}
