// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keypin/pkg/echo"
	"github.com/jeremyhahn/go-keypin/pkg/metrics"
)

// shutdownTimeout bounds graceful shutdown of the servers.
const shutdownTimeout = 10 * time.Second

var (
	serveListenAddr  string
	serveMetricsAddr string
	serveMaxEcho     int64
	serveIdentity    *identityFlags
	servePins        *pinFlags
)

// serveCmd runs the QUIC echo server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a QUIC echo server that accepts only pinned clients",
	Long: `Run a QUIC echo server. Clients must present exactly one certificate
whose raw public key is pinned; everyone else is refused during the
handshake. Each connection's first stream is echoed back until the client
finishes writing.

With --metrics-listen, Prometheus metrics are served on /metrics.`,
	RunE: runServe,
}

func init() {
	serveIdentity = addIdentityFlags(serveCmd)
	servePins = addPinFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", echo.DefaultListenAddr, "UDP listen address")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-listen", "", "HTTP listen address for Prometheus metrics")
	serveCmd.Flags().Int64Var(&serveMaxEcho, "max-echo-size", echo.DefaultMaxEchoSize, "maximum bytes echoed per connection")
}

func runServe(cmd *cobra.Command, args []string) error {
	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	id, err := serveIdentity.load()
	if err != nil {
		return err
	}

	collector := metrics.New("")
	v, err := servePins.verifier(sigCtx, collector)
	if err != nil {
		return err
	}
	collector.SetPinnedKeys(v.KeySet().Len())

	srv, err := echo.NewServer(&echo.ServerConfig{
		ListenAddr:  serveListenAddr,
		TLSConfig:   v.ServerTLSConfig(id.TLSCertificate()),
		MaxEchoSize: serveMaxEcho,
		Recorder:    collector,
		Logger:      slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}
	defer srv.Close()

	if serveMetricsAddr != "" {
		stop, err := startMetricsServer(serveMetricsAddr, collector)
		if err != nil {
			return err
		}
		defer stop()
	}

	<-sigCtx.Done()
	slog.Info("shutdown signal received")
	return nil
}

// startMetricsServer serves /metrics until the returned stop function is
// called.
func startMetricsServer(addr string, collector *metrics.Collector) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: metrics listen %s: %w", ErrServerStart, addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	slog.Info("metrics listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
