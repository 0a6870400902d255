// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keypin

import (
	"crypto/x509"
	"fmt"
	"log/slog"

	"github.com/jeremyhahn/go-keypin/pkg/x509der"
)

// Config holds the parameters for a Verifier.
type Config struct {
	// Keys is the list of raw public keys to accept. An empty list is valid
	// and rejects every peer.
	Keys [][]byte

	// KeySize is the required length of every key. Defaults to
	// P256PublicKeySize.
	KeySize int

	// Observer, if set, is told about malformed certificates and unknown
	// keys. Certificate count failures are not reported.
	Observer Observer

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Verifier accepts a peer if and only if it presents exactly one
// well-formed certificate whose public key is pinned. It holds no mutable
// state and may be shared by any number of concurrent handshakes.
type Verifier struct {
	keys     *KeySet
	observer Observer
	logger   *slog.Logger
}

// New builds a Verifier from cfg. The key list is copied.
func New(cfg *Config) (*Verifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	size := cfg.KeySize
	if size == 0 {
		size = P256PublicKeySize
	}
	keys, err := NewKeySet(size, cfg.Keys)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Verifier{
		keys:     keys,
		observer: cfg.Observer,
		logger:   logger.With("component", "keypin"),
	}, nil
}

// NewWithKeySet builds a Verifier around an existing key set.
func NewWithKeySet(keys *KeySet, observer Observer, logger *slog.Logger) (*Verifier, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: nil key set", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		keys:     keys,
		observer: observer,
		logger:   logger.With("component", "keypin"),
	}, nil
}

// KeySet returns the pinned keys.
func (v *Verifier) KeySet() *KeySet { return v.keys }

// Verify checks rawCerts, the peer's certificates in DER form as delivered
// by the TLS stack, on behalf of role. It returns nil when the peer is
// accepted and a *Rejection otherwise.
func (v *Verifier) Verify(role Role, rawCerts [][]byte) error {
	if len(rawCerts) != 1 {
		v.logger.Debug("rejected peer",
			"role", role.String(),
			"kind", KindWrongCertificateCount.String(),
			"certificates", len(rawCerts))
		return reject(KindWrongCertificateCount, role,
			fmt.Errorf("got %d certificates", len(rawCerts)))
	}
	raw := rawCerts[0]

	cert, err := x509der.Parse(raw)
	if err != nil {
		v.logger.Debug("rejected peer",
			"role", role.String(),
			"kind", KindMalformedCertificate.String(),
			"certificate_len", len(raw),
			"error", err)
		v.notify(Event{
			Role:            role,
			Kind:            KindMalformedCertificate,
			Err:             err,
			CertificateSize: len(raw),
		})
		return reject(KindMalformedCertificate, role, err)
	}

	spki := cert.SubjectPublicKeyInfo
	if v.keys.Contains(spki.PublicKey) {
		return nil
	}

	attrs := []any{
		"role", role.String(),
		"kind", KindUnknownKey.String(),
		"key_len", len(spki.PublicKey),
		"algorithm", spki.Algorithm.Algorithm.String(),
	}
	if len(spki.PublicKey) > 0 {
		attrs = append(attrs, "key_prefix", fmt.Sprintf("%#02x", spki.PublicKey[0]))
	}
	v.logger.Debug("rejected peer", attrs...)

	v.notify(Event{
		Role:            role,
		Kind:            KindUnknownKey,
		Err:             ErrUnknownKey,
		CertificateSize: len(raw),
		PublicKey:       append([]byte(nil), spki.PublicKey...),
		KeyAlgorithm:    spki.Algorithm.Algorithm,
	})
	return reject(KindUnknownKey, role, nil)
}

// VerifyServerIdentity verifies the certificate presented by a server. It
// is meant for tls.Config.VerifyPeerCertificate on the client side and
// ignores verifiedChains, which is empty when InsecureSkipVerify is set.
func (v *Verifier) VerifyServerIdentity(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return v.Verify(RoleServer, rawCerts)
}

// VerifyClientIdentity verifies the certificate presented by a client. It
// is meant for tls.Config.VerifyPeerCertificate on the server side.
func (v *Verifier) VerifyClientIdentity(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return v.Verify(RoleClient, rawCerts)
}

// ClientAuthMandatory reports that servers must always demand a client
// certificate. It is always true.
func (v *Verifier) ClientAuthMandatory() bool { return true }

// AcceptableIssuers returns the certificate authority names a server
// advertises in its CertificateRequest. It is always empty: no issuer is
// preferred over another.
func (v *Verifier) AcceptableIssuers() [][]byte { return [][]byte{} }
