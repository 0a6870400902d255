// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/flynn/noise"
	"golang.org/x/crypto/curve25519"
)

// protocolPrologue is mixed into every handshake so that transcripts of
// other Noise_NK protocols cannot be replayed against this one.
const protocolPrologue = "keypin-keydist/1"

func cipherSuite() noise.CipherSuite {
	return noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)
}

// GenerateStaticKey generates a new Curve25519 static key pair.
func GenerateStaticKey() (*noise.DHKey, error) {
	key, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keydist: generate static key: %w", err)
	}
	return &key, nil
}

// LoadStaticKey builds a key pair from a raw private key, deriving the
// public key by scalar base multiplication.
func LoadStaticKey(privateKey []byte) (*noise.DHKey, error) {
	if len(privateKey) != StaticKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrInvalidStaticKey, len(privateKey))
	}

	priv := make([]byte, StaticKeySize)
	copy(priv, privateKey)

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStaticKey, err)
	}
	return &noise.DHKey{Private: priv, Public: pub}, nil
}

// EncodeStaticKey hex-encodes the private half of key for storage.
func EncodeStaticKey(key *noise.DHKey) string {
	return hex.EncodeToString(key.Private)
}

// DecodeStaticKey parses a key written by EncodeStaticKey. Surrounding
// whitespace is ignored.
func DecodeStaticKey(encoded string) (*noise.DHKey, error) {
	priv, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStaticKey, err)
	}
	defer WipeBytes(priv)
	return LoadStaticKey(priv)
}

// DecodePublicKey parses a hex-encoded 32-byte static public key.
func DecodePublicKey(encoded string) ([]byte, error) {
	pub, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStaticKey, err)
	}
	if len(pub) != StaticKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidStaticKey, len(pub))
	}
	return pub, nil
}

// WipeBytes zeros b in place. The garbage collector may already have
// copied the data, so this narrows rather than closes the exposure window.
func WipeBytes(b []byte) {
	clear(b)
}

// WipeStaticKey zeros both halves of key.
func WipeStaticKey(key *noise.DHKey) {
	if key == nil {
		return
	}
	WipeBytes(key.Private)
	WipeBytes(key.Public)
}

func validStaticKey(key *noise.DHKey) bool {
	return key != nil && len(key.Private) == StaticKeySize && len(key.Public) == StaticKeySize
}
