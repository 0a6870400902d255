// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keysource

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/jeremyhahn/go-keypin/pkg/x509der"
)

const (
	pemCertificateType = "CERTIFICATE"
	pemPublicKeyType   = "PUBLIC KEY"
)

// File reads keys from a key list on disk every time Keys is called.
type File struct {
	Path string
}

// Name implements Source.
func (f *File) Name() string { return "file:" + f.Path }

// Keys reads and parses the file. See ParseKeyFile for the format.
func (f *File) Keys(ctx context.Context) ([][]byte, error) {
	if f.Path == "" {
		return nil, fmt.Errorf("%w: file path required", ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("keysource: read %s: %w", f.Path, err)
	}
	keys, err := ParseKeyFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return keys, nil
}

// ParseKeyFile decodes a key list. Entries may be mixed freely:
//
//	# comment, blank lines are ignored
//	04ab...            raw key in hex, one per line
//	-----BEGIN CERTIFICATE-----   the certificate's subject public key
//	-----BEGIN PUBLIC KEY-----    a DER SubjectPublicKeyInfo
//
// Any undecodable entry fails the whole file.
func ParseKeyFile(data []byte) ([][]byte, error) {
	var keys [][]byte
	rest := data

	for len(rest) > 0 {
		line := lineNumber(data, rest)

		trimmed := bytes.TrimLeft(rest, " \t\r\n")
		if bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
			block, remaining := pem.Decode(trimmed)
			if block == nil {
				return nil, fmt.Errorf("%w: line %d: malformed PEM block", ErrInvalidKeyFile, lineNumber(data, trimmed))
			}
			key, err := pemKey(block)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidKeyFile, lineNumber(data, trimmed), err)
			}
			keys = append(keys, key)
			rest = remaining
			continue
		}

		var text []byte
		text, rest, _ = bytes.Cut(rest, []byte("\n"))
		if i := bytes.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = bytes.TrimSpace(text)
		if len(text) == 0 {
			continue
		}

		key := make([]byte, hex.DecodedLen(len(text)))
		if _, err := hex.Decode(key, text); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidKeyFile, line, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func pemKey(block *pem.Block) ([]byte, error) {
	switch block.Type {
	case pemCertificateType:
		cert, err := x509der.Parse(block.Bytes)
		if err != nil {
			return nil, err
		}
		return bytes.Clone(cert.SubjectPublicKeyInfo.PublicKey), nil
	case pemPublicKeyType:
		spki, err := x509der.ParseSubjectPublicKeyInfo(block.Bytes)
		if err != nil {
			return nil, err
		}
		return bytes.Clone(spki.PublicKey), nil
	default:
		return nil, fmt.Errorf("unsupported PEM type %q", block.Type)
	}
}

// lineNumber returns the 1-based line of data at which rest begins.
func lineNumber(data, rest []byte) int {
	return 1 + bytes.Count(data[:len(data)-len(rest)], []byte("\n"))
}
