// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import "time"

// Certificate Usage values as defined in RFC 6698 Section 2.1.1.
const (
	UsageCAConstraint uint8 = 0 // PKIX-TA
	UsageServiceCert  uint8 = 1 // PKIX-EE
	UsageDANETA       uint8 = 2 // DANE-TA

	// UsageDANEEE (DANE-EE) binds the service to the end-entity key without
	// any PKIX validation, which is exactly the pinned-key trust model.
	UsageDANEEE uint8 = 3
)

// Selector values as defined in RFC 6698 Section 2.1.2.
const (
	// SelectorFullCert selects the full DER-encoded certificate for matching.
	SelectorFullCert uint8 = 0

	// SelectorSPKI selects the DER-encoded SubjectPublicKeyInfo for matching.
	SelectorSPKI uint8 = 1
)

// Matching Type values as defined in RFC 6698 Section 2.1.3.
const (
	// MatchingExact carries the selected data itself.
	MatchingExact uint8 = 0

	// MatchingSHA256 carries a SHA-256 hash of the selected data.
	MatchingSHA256 uint8 = 1

	// MatchingSHA512 carries a SHA-512 hash of the selected data.
	MatchingSHA512 uint8 = 2
)

// TLSARecord represents a parsed TLSA resource record as defined in RFC 6698 Section 2.1.
type TLSARecord struct {
	Usage        uint8
	Selector     uint8
	MatchingType uint8

	// CertData is the Certificate Association Data: a hash digest or raw
	// certificate/SPKI bytes depending on MatchingType.
	CertData []byte
}

// Pinnable reports whether the record carries a raw public key, that is,
// whether it is an unhashed SPKI record.
func (r *TLSARecord) Pinnable() bool {
	return r != nil && r.Selector == SelectorSPKI && r.MatchingType == MatchingExact
}

// ResolverConfig configures the DNS resolver used for TLSA lookups.
type ResolverConfig struct {
	// Server is the DNS resolver address (e.g., "8.8.8.8:53").
	// When empty, the first nameserver in ResolvConf is used.
	Server string

	// ResolvConf is the resolver configuration file consulted when Server
	// is empty. Default: /etc/resolv.conf.
	ResolvConf string

	// UseTLS enables DNS-over-TLS (DoT) on port 853.
	UseTLS bool

	// TLSServerName is the SNI value for DNS-over-TLS connections.
	TLSServerName string

	// RequireAD requires the Authenticated Data (AD) flag in DNS responses,
	// indicating the resolver has validated DNSSEC signatures.
	RequireAD bool

	// Timeout is the maximum duration for a DNS query.
	// Default: 5 seconds.
	Timeout time.Duration
}

// TLSARecordString represents a TLSA record formatted for DNS zone files.
type TLSARecordString struct {
	// Name is the DNS owner name (e.g., "_4433._udp.node.example.com.").
	Name string

	Usage        uint8
	Selector     uint8
	MatchingType uint8

	// HexData is the hex-encoded Certificate Association Data.
	HexData string

	// ZoneLine is the full DNS zone file line
	// (e.g., "_4433._udp.node.example.com. IN TLSA 3 1 0 3059301306...").
	ZoneLine string
}
