// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keygen

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"
)

const (
	// DefaultCommonName is the subject of generated certificates. Peers never
	// look at it; it only makes the certificate readable in tooling.
	DefaultCommonName = "keypin"

	// DefaultValidity is the validity period of generated certificates.
	DefaultValidity = 10 * 365 * 24 * time.Hour
)

// Identity is a key pair together with a self-signed certificate for it.
type Identity struct {
	PrivateKey     crypto.Signer
	CertificateDER []byte

	// PublicKey is the raw public key as pinned by peers.
	PublicKey []byte
}

// Options customize SelfSign. The zero value is usable.
type Options struct {
	CommonName string
	DNSNames   []string
	Validity   time.Duration
	Now        func() time.Time
}

// Generate creates a P-256 identity with default options.
func Generate() (*Identity, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keygen: generate key: %w", err)
	}
	return SelfSign(key, nil)
}

// SelfSign wraps the public half of signer in a self-signed certificate.
func SelfSign(signer crypto.Signer, opts *Options) (*Identity, error) {
	if opts == nil {
		opts = &Options{}
	}
	cn := opts.CommonName
	if cn == "" {
		cn = DefaultCommonName
	}
	validity := opts.Validity
	if validity <= 0 {
		validity = DefaultValidity
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	raw, err := RawPublicKey(signer.Public())
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("keygen: serial number: %w", err)
	}

	notBefore := now().Add(-time.Minute)
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn},
		DNSNames:              opts.DNSNames,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, signer.Public(), signer)
	if err != nil {
		return nil, fmt.Errorf("keygen: create certificate: %w", err)
	}

	return &Identity{
		PrivateKey:     signer,
		CertificateDER: der,
		PublicKey:      raw,
	}, nil
}

// RawPublicKey returns the bytes a certificate carries in its
// subjectPublicKey field for pub: the uncompressed point for ECDSA, the
// 32 key bytes for Ed25519 and the PKCS #1 structure for RSA.
func RawPublicKey(pub crypto.PublicKey) ([]byte, error) {
	switch k := pub.(type) {
	case *ecdsa.PublicKey:
		ecdhKey, err := k.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedKey, err)
		}
		return ecdhKey.Bytes(), nil
	case ed25519.PublicKey:
		return bytes.Clone(k), nil
	case *rsa.PublicKey:
		return x509.MarshalPKCS1PublicKey(k), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}
}

// TLSCertificate returns the identity in the form crypto/tls presents.
func (id *Identity) TLSCertificate() tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{id.CertificateDER},
		PrivateKey:  id.PrivateKey,
	}
}
