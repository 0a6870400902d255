// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"slices"

	"github.com/jeremyhahn/go-keypin/pkg/x509der"
)

// matcherFuncs maps a TLSA matching type to its digest.
var matcherFuncs = map[uint8]func([]byte) []byte{
	MatchingExact:  func(d []byte) []byte { return bytes.Clone(d) },
	MatchingSHA256: func(d []byte) []byte { h := sha256.Sum256(d); return h[:] },
	MatchingSHA512: func(d []byte) []byte { h := sha512.Sum512(d); return h[:] },
}

// ComputeTLSAData computes the Certificate Association Data of a DER
// certificate for the given selector and matching type.
func ComputeTLSAData(certDER []byte, selector, matchingType uint8) ([]byte, error) {
	if len(certDER) == 0 {
		return nil, ErrInvalidCertificate
	}
	cert, err := x509der.Parse(certDER)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}

	var selected []byte
	switch selector {
	case SelectorFullCert:
		selected = cert.Raw
	case SelectorSPKI:
		selected = cert.SubjectPublicKeyInfo.Raw
	default:
		return nil, ErrUnsupportedSelector
	}

	matcher, ok := matcherFuncs[matchingType]
	if !ok {
		return nil, ErrUnsupportedMatching
	}
	return matcher(selected), nil
}

// PinnedKeys extracts the raw public keys from the pinnable records among
// records. Other records, including hashed ones, are skipped. A pinnable
// record whose association data is not a well-formed SubjectPublicKeyInfo
// fails the whole call. The result is deduplicated and sorted.
func PinnedKeys(records []*TLSARecord) ([][]byte, error) {
	var keys [][]byte
	for i, rec := range records {
		if !rec.Pinnable() {
			continue
		}
		spki, err := x509der.ParseSubjectPublicKeyInfo(rec.CertData)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidAssociationData, i, err)
		}
		keys = append(keys, bytes.Clone(spki.PublicKey))
	}
	if len(keys) == 0 {
		return nil, ErrNoPinnedKeys
	}

	slices.SortFunc(keys, bytes.Compare)
	return slices.CompactFunc(keys, bytes.Equal), nil
}
