// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keypin/pkg/dane"
	"github.com/jeremyhahn/go-keypin/pkg/keydist"
	"github.com/jeremyhahn/go-keypin/pkg/keygen"
	"github.com/jeremyhahn/go-keypin/pkg/keypin"
	"github.com/jeremyhahn/go-keypin/pkg/keysource"
)

// defaultSourceTimeout bounds each key source lookup.
const defaultSourceTimeout = 10 * time.Second

// pinFlags holds the key source flags shared by commands that verify or
// distribute pinned keys.
type pinFlags struct {
	keys        []string
	files       []string
	daneTargets []string
	dnsServer   string
	dnsOverTLS  bool
	requireAD   bool
	noiseAddr   string
	noiseKey    string
	keySize     int
	strict      bool
	timeout     time.Duration
}

func addPinFlags(cmd *cobra.Command) *pinFlags {
	p := &pinFlags{}
	f := cmd.Flags()
	f.StringArrayVar(&p.keys, "pin", nil, "hex-encoded raw public key to pin (repeatable)")
	f.StringArrayVar(&p.files, "pin-file", nil, "key list file to pin (repeatable)")
	f.StringArrayVar(&p.daneTargets, "pin-dane", nil, "host:port whose TLSA 3 1 0 records to pin (repeatable)")
	f.StringVar(&p.dnsServer, "dns-server", "", "DNS server for --pin-dane (default: system resolver)")
	f.BoolVar(&p.dnsOverTLS, "dns-over-tls", false, "use DNS-over-TLS for --pin-dane")
	f.BoolVar(&p.requireAD, "require-ad", true, "require DNSSEC-validated answers for --pin-dane")
	f.StringVar(&p.noiseAddr, "pin-noise", "", "keypin distribute server address to fetch keys from")
	f.StringVar(&p.noiseKey, "noise-server-key", "", "hex-encoded Noise static public key of --pin-noise")
	f.IntVar(&p.keySize, "key-size", keypin.P256PublicKeySize, "required raw key length in bytes")
	f.BoolVar(&p.strict, "strict-sources", false, "fail if any key source fails")
	f.DurationVar(&p.timeout, "source-timeout", defaultSourceTimeout, "timeout for each key source")
	return p
}

// sources builds the key sources selected by the flags.
func (p *pinFlags) sources() ([]keysource.Source, error) {
	var sources []keysource.Source

	if len(p.keys) > 0 {
		static := &keysource.Static{Label: "flags"}
		for _, k := range p.keys {
			raw, err := hex.DecodeString(strings.TrimSpace(k))
			if err != nil {
				return nil, fmt.Errorf("%w: --pin %q: %w", ErrInvalidInput, k, err)
			}
			static.List = append(static.List, raw)
		}
		sources = append(sources, static)
	}

	for _, path := range p.files {
		sources = append(sources, &keysource.File{Path: path})
	}

	if len(p.daneTargets) > 0 {
		resolver, err := dane.NewResolver(&dane.ResolverConfig{
			Server:    p.dnsServer,
			UseTLS:    p.dnsOverTLS,
			RequireAD: p.requireAD,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: resolver: %w", ErrInvalidInput, err)
		}
		for _, target := range p.daneTargets {
			host, port, err := splitHostPort(target)
			if err != nil {
				return nil, err
			}
			sources = append(sources, &keysource.DANE{Resolver: resolver, Host: host, Port: port})
		}
	}

	if p.noiseAddr != "" {
		serverKey, err := keydist.DecodePublicKey(p.noiseKey)
		if err != nil {
			return nil, fmt.Errorf("%w: --noise-server-key: %w", ErrInvalidInput, err)
		}
		sources = append(sources, &keysource.Noise{Config: keydist.ClientConfig{
			ServerAddr:      p.noiseAddr,
			ServerStaticKey: serverKey,
			ExpectedKeySize: p.keySize,
			Logger:          slog.Default(),
		}})
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: at least one of --pin, --pin-file, --pin-dane or --pin-noise is required", ErrInvalidInput)
	}
	return sources, nil
}

// keySet loads every configured source into a key set.
func (p *pinFlags) keySet(ctx context.Context) (*keypin.KeySet, error) {
	sources, err := p.sources()
	if err != nil {
		return nil, err
	}
	set, err := keysource.LoadKeySet(ctx, &keysource.LoadConfig{
		Sources:          sources,
		PerSourceTimeout: p.timeout,
		Strict:           p.strict,
		Logger:           slog.Default(),
	}, p.keySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return set, nil
}

// verifier loads the key set and wraps it in a verifier.
func (p *pinFlags) verifier(ctx context.Context, observer keypin.Observer) (*keypin.Verifier, error) {
	set, err := p.keySet(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("pinned keys loaded", "count", set.Len(), "key_size", set.Size())
	return keypin.NewWithKeySet(set, observer, slog.Default())
}

// identityFlags selects the local certificate and key.
type identityFlags struct {
	certFile string
	keyFile  string
}

func addIdentityFlags(cmd *cobra.Command) *identityFlags {
	f := &identityFlags{}
	cmd.Flags().StringVar(&f.certFile, "cert", "", "PEM certificate file (default: generate an ephemeral identity)")
	cmd.Flags().StringVar(&f.keyFile, "key", "", "PEM PKCS#8 private key file")
	return f
}

// load reads the configured identity, or generates an ephemeral one when
// neither file is given.
func (f *identityFlags) load() (*keygen.Identity, error) {
	switch {
	case f.certFile == "" && f.keyFile == "":
		id, err := keygen.Generate()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyOperation, err)
		}
		slog.Info("generated ephemeral identity", "public_key", hex.EncodeToString(id.PublicKey))
		return id, nil
	case f.certFile == "" || f.keyFile == "":
		return nil, fmt.Errorf("%w: --cert and --key must be given together", ErrInvalidInput)
	}

	id, err := keygen.Load(f.certFile, f.keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyOperation, err)
	}
	slog.Debug("loaded identity", "cert", f.certFile, "public_key", hex.EncodeToString(id.PublicKey))
	return id, nil
}

func splitHostPort(target string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q: %w", ErrInvalidInput, target, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return "", 0, fmt.Errorf("%w: %q: invalid port", ErrInvalidInput, target)
	}
	return host, uint16(port), nil
}
