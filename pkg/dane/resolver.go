// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultTimeout is the default DNS query timeout.
	defaultTimeout = 5 * time.Second

	// defaultDNSPort is the standard DNS port.
	defaultDNSPort = "53"

	// defaultDoTPort is the standard DNS-over-TLS port.
	defaultDoTPort = "853"

	// defaultResolvConf is read when no server is configured.
	defaultResolvConf = "/etc/resolv.conf"

	// maxHostnameLen is the longest DNS name in presentation form.
	maxHostnameLen = 253
)

// Resolver performs DNS TLSA record lookups with optional DNSSEC validation
// and DNS-over-TLS support.
type Resolver struct {
	config *ResolverConfig
	client *dns.Client
	server string
}

// NewResolver creates a new DANE resolver with the given configuration.
// A zero Timeout defaults to 5 seconds and an empty Server to the first
// nameserver of the system resolver configuration.
func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg == nil {
		return nil, ErrResolverConfig
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &dns.Client{
		Net:     "udp",
		Timeout: timeout,
	}
	port := defaultDNSPort
	if cfg.UseTLS {
		client.Net = "tcp-tls"
		client.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.TLSServerName,
		}
		port = defaultDoTPort
	}

	server := cfg.Server
	if server != "" && !strings.Contains(server, ":") {
		server = server + ":" + port
	}
	if server == "" {
		var err error
		server, err = systemServer(cfg.ResolvConf)
		if err != nil {
			return nil, err
		}
	}

	return &Resolver{
		config: cfg,
		client: client,
		server: server,
	}, nil
}

// Server returns the address queried by the resolver.
func (r *Resolver) Server() string { return r.server }

// LookupTLSA queries DNS for the TLSA records of hostname:port. The owner
// name is "_<port>._udp.<hostname>." since pinned-key services run over
// QUIC. If RequireAD is set the response must carry the Authenticated Data
// flag.
func (r *Resolver) LookupTLSA(ctx context.Context, hostname string, port uint16) ([]*TLSARecord, error) {
	if err := validateTarget(hostname, port); err != nil {
		return nil, err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(formatTLSAName(hostname, port), dns.TypeTLSA)
	msg.SetEdns0(4096, true) // DNSSEC OK (DO) bit.
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDNSLookupFailed, err)
	}
	if resp == nil {
		return nil, ErrDNSLookupFailed
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: rcode %s", ErrDNSLookupFailed, dns.RcodeToString[resp.Rcode])
	}
	if r.config.RequireAD && !resp.AuthenticatedData {
		return nil, ErrDNSSECRequired
	}

	records := make([]*TLSARecord, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		tlsa, ok := rr.(*dns.TLSA)
		if !ok {
			continue
		}
		certData, err := hex.DecodeString(tlsa.Certificate)
		if err != nil {
			continue
		}
		records = append(records, &TLSARecord{
			Usage:        tlsa.Usage,
			Selector:     tlsa.Selector,
			MatchingType: tlsa.MatchingType,
			CertData:     certData,
		})
	}

	if len(records) == 0 {
		return nil, ErrNoTLSARecords
	}
	return records, nil
}

// LookupPinnedKeys resolves the TLSA records of hostname:port and returns
// the raw public keys they publish.
func (r *Resolver) LookupPinnedKeys(ctx context.Context, hostname string, port uint16) ([][]byte, error) {
	records, err := r.LookupTLSA(ctx, hostname, port)
	if err != nil {
		return nil, err
	}
	return PinnedKeys(records)
}

func systemServer(path string) (string, error) {
	if path == "" {
		path = defaultResolvConf
	}
	systemCfg, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolverConfig, err)
	}
	if len(systemCfg.Servers) == 0 {
		return "", fmt.Errorf("%w: no nameservers in %s", ErrResolverConfig, path)
	}
	port := systemCfg.Port
	if port == "" {
		port = defaultDNSPort
	}
	return net.JoinHostPort(systemCfg.Servers[0], port), nil
}

func validateTarget(hostname string, port uint16) error {
	if hostname == "" || len(hostname) > maxHostnameLen || strings.ContainsRune(hostname, 0) {
		return ErrInvalidHostname
	}
	if port == 0 {
		return ErrInvalidPort
	}
	return nil
}

// formatTLSAName constructs the absolute DNS owner name
// "_<port>._udp.<hostname>." for a TLSA record.
func formatTLSAName(hostname string, port uint16) string {
	if !strings.HasSuffix(hostname, ".") {
		hostname += "."
	}
	return fmt.Sprintf("_%d._udp.%s", port, hostname)
}
