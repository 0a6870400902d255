// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package dane publishes and discovers pinned public keys as RFC 6698 TLSA
// records. A key is published as a DANE-EE record over the full
// SubjectPublicKeyInfo with no hashing ("3 1 0"), which is the only form
// from which the raw key can be recovered. Lookups can require DNSSEC
// validation and run over DNS-over-TLS.
package dane

import "errors"

// DNS lookup errors indicate issues resolving TLSA records.
var (
	// ErrNoTLSARecords indicates no TLSA records were found for the queried name.
	ErrNoTLSARecords = errors.New("dane: no TLSA records found")

	// ErrDNSLookupFailed indicates the DNS query for TLSA records failed.
	ErrDNSLookupFailed = errors.New("dane: DNS lookup failed")

	// ErrDNSSECRequired indicates DNSSEC validation is required but the
	// Authenticated Data (AD) flag was not set in the DNS response.
	ErrDNSSECRequired = errors.New("dane: DNSSEC validation required but AD flag not set")

	// ErrNoPinnedKeys indicates TLSA records were found but none carried a
	// recoverable public key.
	ErrNoPinnedKeys = errors.New("dane: no pinnable TLSA records")
)

// Record errors indicate TLSA parameters or association data that cannot
// be used.
var (
	// ErrUnsupportedSelector indicates the TLSA selector field value is not supported.
	ErrUnsupportedSelector = errors.New("dane: unsupported TLSA selector")

	// ErrUnsupportedMatching indicates the TLSA matching type field value is not supported.
	ErrUnsupportedMatching = errors.New("dane: unsupported TLSA matching type")

	// ErrInvalidAssociationData indicates "x 1 0" data that is not a
	// well-formed SubjectPublicKeyInfo.
	ErrInvalidAssociationData = errors.New("dane: invalid association data")
)

// Input validation errors indicate invalid parameters were provided.
var (
	// ErrInvalidCertificate indicates an empty or malformed certificate was provided.
	ErrInvalidCertificate = errors.New("dane: invalid certificate")

	// ErrInvalidHostname indicates an empty or malformed hostname was provided.
	ErrInvalidHostname = errors.New("dane: invalid hostname")

	// ErrInvalidPort indicates port number zero was provided.
	ErrInvalidPort = errors.New("dane: invalid port")

	// ErrResolverConfig indicates the resolver configuration is invalid.
	ErrResolverConfig = errors.New("dane: invalid resolver configuration")
)
