// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keygen

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypePrivateKey  = "PRIVATE KEY"
)

// WriteFiles stores the certificate and the PKCS #8 private key as PEM.
// The key file is created with mode 0600.
func (id *Identity) WriteFiles(certPath, keyPath string) error {
	keyDER, err := x509.MarshalPKCS8PrivateKey(id.PrivateKey)
	if err != nil {
		return fmt.Errorf("keygen: marshal private key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: id.CertificateDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: keyDER})

	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil { //nolint:gosec // certificates are public
		return fmt.Errorf("keygen: write certificate: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("keygen: write private key: %w", err)
	}
	return nil
}

// Load reads an identity written by WriteFiles and checks that the
// certificate carries the key's public half.
func Load(certPath, keyPath string) (*Identity, error) {
	certDER, err := readPEM(certPath, pemTypeCertificate)
	if err != nil {
		return nil, err
	}
	keyDER, err := readPEM(keyPath, pemTypePrivateKey)
	if err != nil {
		return nil, err
	}

	parsed, err := x509.ParsePKCS8PrivateKey(keyDER)
	if err != nil {
		return nil, fmt.Errorf("keygen: parse private key: %w", err)
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, parsed)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("keygen: parse certificate: %w", err)
	}

	raw, err := RawPublicKey(signer.Public())
	if err != nil {
		return nil, err
	}
	certRaw, err := RawPublicKey(cert.PublicKey)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(raw, certRaw) {
		return nil, ErrKeyMismatch
	}

	return &Identity{
		PrivateKey:     signer,
		CertificateDER: certDER,
		PublicKey:      raw,
	}, nil
}

// ReadCertificateFile returns the DER bytes of the first CERTIFICATE block
// in path. A file that is not PEM is returned unchanged as DER.
func ReadCertificateFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied path
	if err != nil {
		return nil, fmt.Errorf("keygen: read %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return data, nil
	}
	if block.Type != pemTypeCertificate {
		return nil, fmt.Errorf("%w: %s holds %q, want %q", ErrInvalidPEM, path, block.Type, pemTypeCertificate)
	}
	return block.Bytes, nil
}

func readPEM(path, blockType string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied path
	if err != nil {
		return nil, fmt.Errorf("keygen: read %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != blockType {
		return nil, fmt.Errorf("%w: %s has no %s block", ErrInvalidPEM, path, blockType)
	}
	return block.Bytes, nil
}
