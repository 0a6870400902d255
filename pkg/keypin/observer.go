// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keypin

import encoding_asn1 "encoding/asn1"

// Event describes a rejected peer. It is only produced for malformed
// certificates and unknown keys.
type Event struct {
	Role Role
	Kind Kind
	Err  error

	// CertificateSize is the length of the presented certificate.
	CertificateSize int

	// PublicKey is the extracted key. It is nil for malformed certificates.
	PublicKey []byte

	// KeyAlgorithm is the SubjectPublicKeyInfo algorithm, when decoded.
	KeyAlgorithm encoding_asn1.ObjectIdentifier
}

// Observer receives rejection events. Implementations must be safe for
// concurrent use; they run on the handshake goroutine.
type Observer interface {
	ObserveRejection(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// ObserveRejection calls f(ev).
func (f ObserverFunc) ObserveRejection(ev Event) { f(ev) }

// notify delivers ev, discarding any panic raised by the observer.
func (v *Verifier) notify(ev Event) {
	if v.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("observer panicked", "panic", r, "kind", ev.Kind.String())
		}
	}()
	v.observer.ObserveRejection(ev)
}
