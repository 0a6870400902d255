// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package x509der

import (
	encoding_asn1 "encoding/asn1"
	"math/big"
	"time"
)

// Certificate versions as carried in the optional [0] EXPLICIT version field.
const (
	Version1 = 1
	Version2 = 2
	Version3 = 3
)

// AlgorithmIdentifier is an RFC 5280 AlgorithmIdentifier. Parameters holds
// the complete DER element (tag included) or nil when absent.
type AlgorithmIdentifier struct {
	Algorithm  encoding_asn1.ObjectIdentifier
	Parameters []byte
}

// SubjectPublicKeyInfo is the decoded subject public key of a certificate.
type SubjectPublicKeyInfo struct {
	// Raw is the complete DER encoding of the structure.
	Raw []byte

	// Algorithm identifies the key algorithm. It is decoded, not validated.
	Algorithm AlgorithmIdentifier

	// PublicKey is the content of the subjectPublicKey BIT STRING: for an
	// EC key this is the encoded point, for Ed25519 the 32 key bytes.
	PublicKey []byte

	// BitLength is the number of significant bits in PublicKey.
	BitLength int
}

// Extension is a single certificate extension.
type Extension struct {
	ID       encoding_asn1.ObjectIdentifier
	Critical bool
	Value    []byte
}

// Certificate is the structural decoding of an X.509 certificate. All byte
// slices alias the input passed to Parse.
type Certificate struct {
	Raw                  []byte
	RawTBSCertificate    []byte
	Version              int
	SerialNumber         *big.Int
	Signature            AlgorithmIdentifier
	RawIssuer            []byte
	NotBefore            time.Time
	NotAfter             time.Time
	RawSubject           []byte
	SubjectPublicKeyInfo SubjectPublicKeyInfo
	Extensions           []Extension

	// SignatureAlgorithm is the outer signatureAlgorithm field.
	SignatureAlgorithm AlgorithmIdentifier
	SignatureValue     []byte
}
