// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	encoding_asn1 "encoding/asn1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/cryptobyte"

	"github.com/jeremyhahn/go-keypin/pkg/keygen"
	"github.com/jeremyhahn/go-keypin/pkg/x509der"
)

var showJSON bool

// keyInfo is the output of the show command.
type keyInfo struct {
	PublicKey string `json:"public_key"`
	Size      int    `json:"size"`
	Algorithm string `json:"algorithm"`
	Curve     string `json:"curve,omitempty"`
}

// algorithmNames maps SubjectPublicKeyInfo algorithm OIDs to names.
var algorithmNames = map[string]string{
	"1.2.840.10045.2.1":     "ECDSA",
	"1.3.101.112":           "Ed25519",
	"1.2.840.113549.1.1.1":  "RSA",
	"1.2.840.10045.3.1.7":   "P-256",
	"1.3.132.0.34":          "P-384",
	"1.3.132.0.35":          "P-521",
	"1.2.840.113549.1.1.10": "RSA-PSS",
}

var showCmd = &cobra.Command{
	Use:   "show CERT",
	Short: "Print the raw public key of a certificate",
	Long: `Decode a PEM or DER certificate with the same strict parser the verifier
uses and print the raw subject public key that peers would pin.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON instead of text")
}

func runShow(cmd *cobra.Command, args []string) error {
	der, err := keygen.ReadCertificateFile(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	cert, err := x509der.Parse(der)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	info := describeKey(&cert.SubjectPublicKeyInfo)
	if showJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(cmd, append(data, '\n'))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Algorithm:  %s\n", info.Algorithm)
	if info.Curve != "" {
		fmt.Fprintf(&b, "Curve:      %s\n", info.Curve)
	}
	fmt.Fprintf(&b, "Size:       %d bytes\n", info.Size)
	fmt.Fprintf(&b, "Public key: %s\n", info.PublicKey)
	return writeOutput(cmd, []byte(b.String()))
}

func describeKey(spki *x509der.SubjectPublicKeyInfo) keyInfo {
	info := keyInfo{
		PublicKey: hex.EncodeToString(spki.PublicKey),
		Size:      len(spki.PublicKey),
		Algorithm: oidName(spki.Algorithm.Algorithm.String()),
	}
	if curve, ok := namedCurve(spki.Algorithm.Parameters); ok {
		info.Curve = curve
	}
	return info
}

// namedCurve decodes an OBJECT IDENTIFIER parameter, as carried by EC keys.
func namedCurve(params []byte) (string, bool) {
	var oid encoding_asn1.ObjectIdentifier
	s := cryptobyte.String(params)
	if !s.ReadASN1ObjectIdentifier(&oid) || !s.Empty() {
		return "", false
	}
	return oidName(oid.String()), true
}

func oidName(oid string) string {
	if name, ok := algorithmNames[oid]; ok {
		return name
	}
	return oid
}
