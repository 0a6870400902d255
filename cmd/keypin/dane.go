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
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keypin/pkg/dane"
	"github.com/jeremyhahn/go-keypin/pkg/keygen"
)

const (
	// defaultDANEPort is the default echo port for TLSA records.
	defaultDANEPort = 4433

	// defaultDANEResolveTimeout is the default timeout for DNS resolution.
	defaultDANEResolveTimeout = 10 * time.Second
)

// daneCmd is the parent command for DANE/TLSA operations.
var daneCmd = &cobra.Command{
	Use:   "dane",
	Short: "Publish and resolve pinned keys as TLSA records",
	Long: `Tools for publishing pinned keys as DANE-EE TLSA records (usage 3,
selector 1, matching type 0) and resolving them from DNS (RFC 6698).`,
}

// daneGenerateCmd prints the TLSA zone line for a certificate.
var daneGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the TLSA record for a certificate",
	Long: `Generate the DANE-EE SPKI TLSA record ("3 1 0") that publishes the
certificate's public key for _<port>._udp.<hostname>.`,
	RunE: runDANEGenerate,
}

// daneLookupCmd resolves TLSA records and prints the pinnable keys.
var daneLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve TLSA records and print the pinned keys",
	Long: `Query _<port>._udp.<hostname> TLSA records, print every record, and list
the raw public keys carried by the DANE-EE SPKI records.`,
	RunE: runDANELookup,
}

func init() {
	daneCmd.AddCommand(daneGenerateCmd)
	daneCmd.AddCommand(daneLookupCmd)

	daneGenerateCmd.Flags().String("cert-file", "", "path to PEM or DER certificate file (required)")
	daneGenerateCmd.Flags().String("hostname", "", "hostname for the TLSA record (required)")
	daneGenerateCmd.Flags().Int("port", defaultDANEPort, "port number for the TLSA record")

	daneLookupCmd.Flags().String("hostname", "", "hostname to query TLSA records for (required)")
	daneLookupCmd.Flags().Int("port", defaultDANEPort, "port number for the TLSA record")
	daneLookupCmd.Flags().String("dns-server", "", "DNS server address (e.g., 8.8.8.8:53)")
	daneLookupCmd.Flags().Bool("dns-over-tls", false, "use DNS-over-TLS (DoT) for TLSA lookups")
	daneLookupCmd.Flags().String("dns-tls-server-name", "", "TLS server name for DNS-over-TLS")
	daneLookupCmd.Flags().Bool("require-ad", true, "require the DNSSEC Authenticated Data flag")
}

func runDANEGenerate(cmd *cobra.Command, args []string) error {
	certFile, _ := cmd.Flags().GetString("cert-file")
	hostname, _ := cmd.Flags().GetString("hostname")
	port, _ := cmd.Flags().GetInt("port")

	if certFile == "" {
		return fmt.Errorf("%w: --cert-file is required", ErrInvalidInput)
	}
	if hostname == "" {
		return fmt.Errorf("%w: --hostname is required", ErrInvalidInput)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: --port must be 1-65535", ErrInvalidInput)
	}

	der, err := keygen.ReadCertificateFile(certFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}

	slog.Debug("generating TLSA record", "cert_file", certFile, "hostname", hostname, "port", port)

	rec, err := dane.GenerateTLSARecord(der, hostname, uint16(port))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return writeOutput(cmd, []byte(rec.ZoneLine+"\n"))
}

func runDANELookup(cmd *cobra.Command, args []string) error {
	hostname, _ := cmd.Flags().GetString("hostname")
	port, _ := cmd.Flags().GetInt("port")
	dnsServer, _ := cmd.Flags().GetString("dns-server")
	dnsOverTLS, _ := cmd.Flags().GetBool("dns-over-tls")
	dnsTLSServerName, _ := cmd.Flags().GetString("dns-tls-server-name")
	requireAD, _ := cmd.Flags().GetBool("require-ad")

	if hostname == "" {
		return fmt.Errorf("%w: --hostname is required", ErrInvalidInput)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: --port must be 1-65535", ErrInvalidInput)
	}

	resolver, err := dane.NewResolver(&dane.ResolverConfig{
		Server:        dnsServer,
		UseTLS:        dnsOverTLS,
		TLSServerName: dnsTLSServerName,
		RequireAD:     requireAD,
	})
	if err != nil {
		return fmt.Errorf("%w: resolver: %w", ErrLookupFailed, err)
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	ctx, cancel := context.WithTimeout(sigCtx, defaultDANEResolveTimeout)
	defer cancel()

	slog.Debug("querying TLSA records", "hostname", hostname, "port", port, "dns_server", resolver.Server())

	records, err := resolver.LookupTLSA(ctx, hostname, uint16(port))
	if err != nil {
		return fmt.Errorf("%w: TLSA lookup: %w", ErrLookupFailed, err)
	}
	keys, err := dane.PinnedKeys(records)
	if err != nil && !errors.Is(err, dane.ErrNoPinnedKeys) {
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TLSA records for _%d._udp.%s:\n", port, hostname)
	for i, rec := range records {
		mark := " "
		if rec.Pinnable() {
			mark = "*"
		}
		fmt.Fprintf(&b, " %s[%d] %d %d %d %s\n", mark, i+1,
			rec.Usage, rec.Selector, rec.MatchingType, hex.EncodeToString(rec.CertData))
	}
	fmt.Fprintf(&b, "\nPinned keys (%d):\n", len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s\n", hex.EncodeToString(k))
	}
	return writeOutput(cmd, []byte(b.String()))
}
