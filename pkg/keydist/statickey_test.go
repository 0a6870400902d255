// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestGenerateStaticKey(t *testing.T) {
	key, err := GenerateStaticKey()
	if err != nil {
		t.Fatalf("GenerateStaticKey failed: %v", err)
	}
	if len(key.Private) != StaticKeySize || len(key.Public) != StaticKeySize {
		t.Fatalf("unexpected key sizes: private %d, public %d", len(key.Private), len(key.Public))
	}

	derived, err := LoadStaticKey(key.Private)
	if err != nil {
		t.Fatalf("LoadStaticKey failed: %v", err)
	}
	if !bytes.Equal(derived.Public, key.Public) {
		t.Error("derived public key does not match generated public key")
	}
}

func TestLoadStaticKey_Copies(t *testing.T) {
	key, err := GenerateStaticKey()
	if err != nil {
		t.Fatalf("GenerateStaticKey failed: %v", err)
	}
	priv := bytes.Clone(key.Private)

	loaded, err := LoadStaticKey(priv)
	if err != nil {
		t.Fatalf("LoadStaticKey failed: %v", err)
	}
	WipeBytes(priv)
	if !bytes.Equal(loaded.Private, key.Private) {
		t.Error("loaded key aliases the caller's buffer")
	}
}

func TestLoadStaticKey_InvalidSize(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := LoadStaticKey(make([]byte, n)); !errors.Is(err, ErrInvalidStaticKey) {
			t.Errorf("size %d: expected ErrInvalidStaticKey, got: %v", n, err)
		}
	}
}

func TestEncodeDecodeStaticKey(t *testing.T) {
	key, err := GenerateStaticKey()
	if err != nil {
		t.Fatalf("GenerateStaticKey failed: %v", err)
	}

	encoded := EncodeStaticKey(key)
	if len(encoded) != 2*StaticKeySize {
		t.Fatalf("expected %d hex chars, got %d", 2*StaticKeySize, len(encoded))
	}

	decoded, err := DecodeStaticKey(encoded + "\n")
	if err != nil {
		t.Fatalf("DecodeStaticKey failed: %v", err)
	}
	if !bytes.Equal(decoded.Private, key.Private) || !bytes.Equal(decoded.Public, key.Public) {
		t.Error("decoded key does not match original")
	}
}

func TestDecodeStaticKey_Invalid(t *testing.T) {
	if _, err := DecodeStaticKey("not-hex"); !errors.Is(err, ErrInvalidStaticKey) {
		t.Errorf("expected ErrInvalidStaticKey for bad hex, got: %v", err)
	}
	if _, err := DecodeStaticKey("abcd"); !errors.Is(err, ErrInvalidStaticKey) {
		t.Errorf("expected ErrInvalidStaticKey for short key, got: %v", err)
	}
}

func TestDecodePublicKey(t *testing.T) {
	key, err := GenerateStaticKey()
	if err != nil {
		t.Fatalf("GenerateStaticKey failed: %v", err)
	}

	pub, err := DecodePublicKey(" " + hex.EncodeToString(key.Public) + " ")
	if err != nil {
		t.Fatalf("DecodePublicKey failed: %v", err)
	}
	if !bytes.Equal(pub, key.Public) {
		t.Error("decoded public key does not match")
	}

	if _, err := DecodePublicKey("zz"); !errors.Is(err, ErrInvalidStaticKey) {
		t.Errorf("expected ErrInvalidStaticKey, got: %v", err)
	}
	if _, err := DecodePublicKey(hex.EncodeToString(key.Public[:16])); !errors.Is(err, ErrInvalidStaticKey) {
		t.Errorf("expected ErrInvalidStaticKey, got: %v", err)
	}
}

func TestWipeStaticKey(t *testing.T) {
	key, err := GenerateStaticKey()
	if err != nil {
		t.Fatalf("GenerateStaticKey failed: %v", err)
	}
	WipeStaticKey(key)

	zero := make([]byte, StaticKeySize)
	if !bytes.Equal(key.Private, zero) || !bytes.Equal(key.Public, zero) {
		t.Error("expected key material to be zeroed")
	}

	WipeStaticKey(nil)
}
