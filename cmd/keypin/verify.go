// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/pem"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keypin/pkg/keypin"
)

var (
	verifyRole string
	verifyPins *pinFlags
)

// verifyCmd runs the pin check offline against certificate files.
var verifyCmd = &cobra.Command{
	Use:   "verify CERT...",
	Short: "Check certificates against the pinned keys",
	Long: `Present the certificates in the given files to the verifier exactly as a
TLS peer would, and print the verdict. All certificates from all files form
one presented list, so anything other than exactly one certificate is
rejected.

Exits 0 when the peer would be accepted and 1 when it would be rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyPins = addPinFlags(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyRole, "role", "client", "role of the presenting peer (server|client)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	role, err := parseRole(verifyRole)
	if err != nil {
		return err
	}

	var rawCerts [][]byte
	for _, path := range args {
		certs, err := readCertificates(path)
		if err != nil {
			return err
		}
		rawCerts = append(rawCerts, certs...)
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	v, err := verifyPins.verifier(sigCtx, nil)
	if err != nil {
		return err
	}

	if err := v.Verify(role, rawCerts); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "REJECT %s: %v\n", keypin.KindOf(err), err)
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ACCEPT")
	return nil
}

func parseRole(s string) (keypin.Role, error) {
	switch s {
	case "server":
		return keypin.RoleServer, nil
	case "client":
		return keypin.RoleClient, nil
	default:
		return 0, fmt.Errorf("%w: --role must be server or client, got %q", ErrInvalidInput, s)
	}
}

// readCertificates returns every CERTIFICATE block of a PEM file, or the
// whole file when it holds no PEM data.
func readCertificates(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFileOperation, path, err)
	}

	var certs [][]byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			certs = append(certs, block.Bytes)
		}
	}
	if len(certs) == 0 {
		return [][]byte{data}, nil
	}
	return certs, nil
}
