// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keypin/pkg/echo"
)

var (
	connectMessage  string
	connectTimeout  time.Duration
	connectIdentity *identityFlags
	connectPins     *pinFlags
)

// connectCmd sends a message to an echo server that must hold a pinned key.
var connectCmd = &cobra.Command{
	Use:   "connect ADDR",
	Short: "Send a message to a pinned QUIC echo server",
	Long: `Connect to a keypin echo server, send a message and print the echo. The
server must present exactly one certificate whose raw public key is pinned.
With --message "-" the message is read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectIdentity = addIdentityFlags(connectCmd)
	connectPins = addPinFlags(connectCmd)
	connectCmd.Flags().StringVarP(&connectMessage, "message", "m", "hello", `message to send ("-" reads stdin)`)
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 10*time.Second, "timeout for the exchange")
}

func runConnect(cmd *cobra.Command, args []string) error {
	payload := []byte(connectMessage)
	if connectMessage == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), echo.DefaultMaxEchoSize+1))
		if err != nil {
			return fmt.Errorf("%w: reading stdin: %w", ErrFileOperation, err)
		}
		payload = data
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	id, err := connectIdentity.load()
	if err != nil {
		return err
	}
	v, err := connectPins.verifier(sigCtx, nil)
	if err != nil {
		return err
	}

	client, err := echo.NewClient(&echo.ClientConfig{
		TLSConfig: v.ClientTLSConfig(id.TLSCertificate()),
		Logger:    slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(sigCtx, connectTimeout)
	defer cancel()

	reply, err := client.Echo(ctx, args[0], payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	slog.Debug("echo received", "bytes", len(reply))
	return writeOutput(cmd, reply)
}
