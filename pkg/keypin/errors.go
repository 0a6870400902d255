// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package keypin verifies TLS peers by pinning the raw subject public key
// of the single certificate they present. There is no chain building, no
// expiry or revocation check and no hostname matching: a peer is accepted
// if and only if its key is byte-for-byte equal to one of the configured
// keys.
//
// A Verifier is built once and shared by every handshake, on both the
// server side (authenticating clients) and the client side (authenticating
// servers).
package keypin

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongCertificateCount is returned when the peer presents zero or
	// more than one certificate.
	ErrWrongCertificateCount = errors.New("keypin: peer must present exactly one certificate")

	// ErrMalformedCertificate is returned when the presented certificate is
	// not a well-formed DER X.509 certificate, trailing bytes included.
	ErrMalformedCertificate = errors.New("keypin: malformed certificate")

	// ErrUnknownKey is returned when the certificate's public key is not in
	// the pinned key set.
	ErrUnknownKey = errors.New("keypin: unknown public key")

	// ErrInvalidConfig is returned by New for a nil or unusable Config.
	ErrInvalidConfig = errors.New("keypin: invalid configuration")

	// ErrInvalidKeySize is returned when a configured key does not have the
	// configured key size.
	ErrInvalidKeySize = errors.New("keypin: invalid key size")
)

// Kind classifies a rejected peer.
type Kind int

const (
	// KindWrongCertificateCount means the presented chain did not hold
	// exactly one certificate.
	KindWrongCertificateCount Kind = iota + 1

	// KindMalformedCertificate means the certificate failed to decode.
	KindMalformedCertificate

	// KindUnknownKey means the certificate decoded but its key is not pinned.
	KindUnknownKey
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindWrongCertificateCount:
		return "wrong_certificate_count"
	case KindMalformedCertificate:
		return "malformed_certificate"
	case KindUnknownKey:
		return "unknown_key"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// sentinel returns the package error matching k.
func (k Kind) sentinel() error {
	switch k {
	case KindWrongCertificateCount:
		return ErrWrongCertificateCount
	case KindMalformedCertificate:
		return ErrMalformedCertificate
	case KindUnknownKey:
		return ErrUnknownKey
	default:
		return nil
	}
}

// Rejection is the error returned for every refused peer. It matches the
// sentinel for its Kind under errors.Is, and also the decoder error that
// caused a malformed rejection.
type Rejection struct {
	Kind Kind
	Role Role

	// Err is the underlying cause, if any. For KindMalformedCertificate it
	// is the x509der error.
	Err error
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	msg := "keypin: rejected peer " + r.Kind.String()
	if s := r.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if r.Err != nil {
		return fmt.Sprintf("%s (%s): %v", msg, r.Role, r.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, r.Role)
}

// Unwrap returns the kind sentinel followed by the cause.
func (r *Rejection) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := r.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	return errs
}

// KindOf returns the rejection kind carried by err, or 0 when err is not a
// rejection.
func KindOf(err error) Kind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	return 0
}

func reject(kind Kind, role Role, cause error) *Rejection {
	return &Rejection{Kind: kind, Role: role, Err: cause}
}
