// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flynn/noise"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keypin/pkg/keydist"
)

// Sentinel errors for the distribute command.
var (
	// ErrKeyGeneration is returned when Noise static key generation fails.
	ErrKeyGeneration = errors.New("distribute: key generation failed")

	// ErrKeyLoad is returned when loading a Noise static key from disk fails.
	ErrKeyLoad = errors.New("distribute: key load failed")
)

var (
	distributeKeyFile        string
	distributeListenAddr     string
	distributeMaxConnections int
	distributePins           *pinFlags
)

// distributeCmd serves a pinned key set over Noise_NK.
var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Serve the pinned key set over Noise_NK",
	Long: `Run a Noise_NK key distribution server. Peers that know only this
server's 32-byte Curve25519 static public key can fetch the pinned key set
with --pin-noise. The key set is loaded once from the pin flags at start.

The static key is loaded from --key-file, or generated and written there
when the file does not exist. The public key is printed on start.`,
	RunE: runDistribute,
}

func init() {
	distributePins = addPinFlags(distributeCmd)
	distributeCmd.Flags().StringVar(&distributeKeyFile, "key-file", "keypin-noise.key",
		"path to Noise static key file (hex-encoded)")
	distributeCmd.Flags().StringVar(&distributeListenAddr, "listen", keydist.DefaultListenAddr,
		"TCP listen address")
	distributeCmd.Flags().IntVar(&distributeMaxConnections, "max-connections", keydist.DefaultMaxConnections,
		"maximum concurrent connections")
}

func runDistribute(cmd *cobra.Command, args []string) error {
	sigCtx, sigStop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigStop()

	set, err := distributePins.keySet(sigCtx)
	if err != nil {
		return err
	}

	staticKey, err := loadOrGenerateKey(distributeKeyFile)
	if err != nil {
		return err
	}
	defer keydist.WipeStaticKey(staticKey)

	server, err := keydist.NewServer(&keydist.ServerConfig{
		ListenAddr:     distributeListenAddr,
		StaticKey:      staticKey,
		Keys:           set,
		MaxConnections: distributeMaxConnections,
		Logger:         slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "noise server key: %s\n", hex.EncodeToString(staticKey.Public))
	slog.Info("distributing pinned keys", "count", set.Len(), "addr", server.Addr().String())

	<-sigCtx.Done()
	slog.Info("shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := server.Stop(stopCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}
	return nil
}

// loadOrGenerateKey loads a Noise static key from keyFile. If the file does
// not exist, a new key is generated and its hex-encoded private half is
// written with 0600 permissions.
func loadOrGenerateKey(keyFile string) (*noise.DHKey, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: reading %s: %w", ErrKeyLoad, keyFile, err)
		}

		slog.Debug("generating new Noise static key")

		key, genErr := keydist.GenerateStaticKey()
		if genErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyGeneration, genErr)
		}

		privateHex := keydist.EncodeStaticKey(key)
		if writeErr := os.WriteFile(keyFile, []byte(privateHex+"\n"), 0600); writeErr != nil {
			return nil, fmt.Errorf("%w: writing %s: %w", ErrKeyGeneration, keyFile, writeErr)
		}

		slog.Info("key written", "path", keyFile)
		return key, nil
	}
	defer keydist.WipeBytes(data)

	key, err := keydist.DecodeStaticKey(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrKeyLoad, keyFile, err)
	}

	slog.Info("loaded Noise static key", "path", keyFile)
	return key, nil
}
