// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/flynn/noise"
)

// acceptBackoff is the pause after a failed Accept before retrying.
const acceptBackoff = 50 * time.Millisecond

// Server answers key distribution requests as the Noise_NK responder.
type Server struct {
	config      *ServerConfig
	handler     *Handler
	rateLimiter *rateLimiter
	logger      *slog.Logger
	sem         chan struct{}

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	started  bool
	stopped  bool
	wg       sync.WaitGroup
}

// NewServer validates cfg, applies defaults and returns a server that is
// ready to Start. cfg is modified in place.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidStaticKey)
	}
	if !validStaticKey(cfg.StaticKey) {
		return nil, fmt.Errorf("%w: server static key must be a %d-byte key pair", ErrInvalidStaticKey, StaticKeySize)
	}
	if cfg.MaxConnections > MaxMaxConnections {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrMaxConnections, cfg.MaxConnections, MaxMaxConnections)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "keydist")

	return &Server{
		config:      cfg,
		handler:     NewHandler(cfg.Keys, logger),
		rateLimiter: newRateLimiter(cfg.RateLimit, cfg.RateBurst, rateLimitStaleAge, rateLimitCleanupInterval),
		logger:      logger,
		sem:         make(chan struct{}, cfg.MaxConnections),
		conns:       make(map[net.Conn]struct{}),
	}, nil
}

// Start binds the listener and begins accepting connections in the
// background. A server can be started once.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrServerAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %w", ErrConnectionFailed, s.config.ListenAddr, err)
	}
	s.listener = ln
	s.started = true

	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.logger.Info("key distribution server listening", "addr", ln.Addr().String())
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

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to exit or ctx to expire. Expiry is logged, not
// returned.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrServerNotStarted
	}
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	_ = s.listener.Close()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.rateLimiter.Stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("key distribution server stopped")
	case <-ctx.Done():
		s.logger.Warn("key distribution server stop timed out", "error", ctx.Err())
	}
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			time.Sleep(acceptBackoff)
			continue
		}

		if !s.rateLimiter.Allow(remoteIP(conn)) {
			s.logger.Debug("connection rate limited", "remote", conn.RemoteAddr().String())
			_ = conn.Close()
			continue
		}

		select {
		case s.sem <- struct{}{}:
		default:
			s.logger.Debug("connection limit reached", "remote", conn.RemoteAddr().String())
			_ = conn.Close()
			continue
		}

		if !s.track(conn) {
			<-s.sem
			_ = conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}
}

// track registers conn for closing on Stop. It reports false when the
// server is already stopping.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// handleConnection completes the handshake and then answers requests until
// the client disconnects or a frame fails to decrypt.
func (s *Server) handleConnection(conn net.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr().String())

	recv, send, err := s.handshake(conn)
	if err != nil {
		logger.Debug("handshake failed", "error", err)
		return
	}

	for {
		ciphertext, err := ReadFrame(conn, time.Now().Add(s.config.ReadTimeout))
		if err != nil {
			logger.Debug("connection closed", "error", err)
			return
		}

		plaintext, err := recv.Decrypt(nil, nil, ciphertext)
		if err != nil {
			logger.Debug("decrypt failed", "error", err)
			return
		}

		resp := s.dispatch(plaintext)
		if resp.Error != "" {
			logger.Debug("request failed", "error", resp.Error)
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			logger.Error("marshal response", "error", err)
			return
		}
		out, err := send.Encrypt(nil, nil, payload)
		if err != nil {
			logger.Debug("encrypt failed", "error", err)
			return
		}
		if err := WriteFrame(conn, out, time.Now().Add(s.config.WriteTimeout)); err != nil {
			logger.Debug("write response failed", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(plaintext []byte) *Response {
	var req Request
	if err := json.Unmarshal(plaintext, &req); err != nil {
		return &Response{Error: fmt.Errorf("%w: %w", ErrInvalidRequest, err).Error()}
	}
	resp, err := s.handler.Handle(&req)
	if err != nil {
		return &Response{Error: err.Error()}
	}
	return resp
}

// handshake runs the responder side of Noise_NK:
//
//	<- e, es
//	-> e, ee
//
// It returns the receive and send cipher states.
func (s *Server) handshake(conn net.Conn) (*noise.CipherState, *noise.CipherState, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite(),
		Pattern:       noise.HandshakeNK,
		Initiator:     false,
		Prologue:      []byte(protocolPrologue),
		StaticKeypair: *s.config.StaticKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: init handshake state: %w", ErrHandshakeFailed, err)
	}

	msg1, err := ReadFrame(conn, time.Now().Add(s.config.ReadTimeout))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read msg1: %w", ErrHandshakeFailed, err)
	}
	if _, _, _, err := hs.ReadMessage(nil, msg1); err != nil {
		return nil, nil, fmt.Errorf("%w: process msg1: %w", ErrHandshakeFailed, err)
	}

	msg2, cs1, cs2, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate msg2: %w", ErrHandshakeFailed, err)
	}
	if cs1 == nil || cs2 == nil {
		return nil, nil, fmt.Errorf("%w: handshake did not complete", ErrHandshakeFailed)
	}
	if err := WriteFrame(conn, msg2, time.Now().Add(s.config.WriteTimeout)); err != nil {
		return nil, nil, fmt.Errorf("%w: send msg2: %w", ErrHandshakeFailed, err)
	}

	// cs1 carries initiator-to-responder traffic.
	return cs1, cs2, nil
}

func remoteIP(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
