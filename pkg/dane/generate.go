// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"encoding/hex"
	"fmt"
)

// GenerateTLSARecord generates the DANE-EE SPKI exact-match record
// ("3 1 0") that publishes the public key of certDER for hostname:port.
func GenerateTLSARecord(certDER []byte, hostname string, port uint16) (*TLSARecordString, error) {
	return GenerateTLSARecordFull(certDER, hostname, port, UsageDANEEE, SelectorSPKI, MatchingExact)
}

// GenerateTLSARecordFull generates a TLSA record string with full control over
// all TLSA parameters. Only "x 1 0" records can later be turned back into a
// pinned key; the hashed forms are accepted for publishing alongside them.
func GenerateTLSARecordFull(
	certDER []byte,
	hostname string,
	port uint16,
	usage, selector, matchingType uint8,
) (*TLSARecordString, error) {
	if err := validateTarget(hostname, port); err != nil {
		return nil, err
	}

	data, err := ComputeTLSAData(certDER, selector, matchingType)
	if err != nil {
		return nil, err
	}

	name := formatTLSAName(hostname, port)
	hexData := hex.EncodeToString(data)
	zoneLine := fmt.Sprintf("%s IN TLSA %d %d %d %s", name, usage, selector, matchingType, hexData)

	return &TLSARecordString{
		Name:         name,
		Usage:        usage,
		Selector:     selector,
		MatchingType: matchingType,
		HexData:      hexData,
		ZoneLine:     zoneLine,
	}, nil
}
