// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keypin/pkg/keygen"
)

var (
	keygenCertFile string
	keygenKeyFile  string
	keygenCN       string
	keygenDNSNames []string
	keygenValidity time.Duration
)

// keygenCmd creates a P-256 identity for use with keypin.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a P-256 key pair and self-signed certificate",
	Long: `Generate a P-256 private key and a self-signed certificate carrying its
public key. The certificate and PKCS#8 key are written as PEM files and the
raw public key is printed in hex, ready to be pinned by peers.`,
	RunE: runKeygen,
}

func init() {
	keygenCmd.Flags().StringVar(&keygenCertFile, "cert", "keypin.crt", "certificate output path")
	keygenCmd.Flags().StringVar(&keygenKeyFile, "key", "keypin.key", "private key output path")
	keygenCmd.Flags().StringVar(&keygenCN, "common-name", keygen.DefaultCommonName, "certificate subject common name")
	keygenCmd.Flags().StringSliceVar(&keygenDNSNames, "dns-name", nil, "DNS subject alternative names")
	keygenCmd.Flags().DurationVar(&keygenValidity, "validity", keygen.DefaultValidity, "certificate validity period")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	if keygenCertFile == "" || keygenKeyFile == "" {
		return fmt.Errorf("%w: --cert and --key are required", ErrInvalidInput)
	}
	if keygenValidity <= 0 {
		return fmt.Errorf("%w: --validity must be positive", ErrInvalidInput)
	}

	base, err := keygen.Generate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKeyOperation, err)
	}
	id, err := keygen.SelfSign(base.PrivateKey, &keygen.Options{
		CommonName: keygenCN,
		DNSNames:   keygenDNSNames,
		Validity:   keygenValidity,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKeyOperation, err)
	}

	if err := id.WriteFiles(keygenCertFile, keygenKeyFile); err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	slog.Info("identity written", "cert", keygenCertFile, "key", keygenKeyFile)

	return writeOutput(cmd, []byte(hex.EncodeToString(id.PublicKey)+"\n"))
}
