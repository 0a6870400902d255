// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keypin

import "crypto/tls"

// ServerTLSConfig returns a server configuration that presents cert and
// accepts only clients whose key is pinned. Client certificates are always
// requested and no certificate authorities are advertised.
func (v *Verifier) ServerTLSConfig(cert tls.Certificate, nextProtos ...string) *tls.Config {
	return &tls.Config{
		MinVersion:            tls.VersionTLS13,
		Certificates:          []tls.Certificate{cert},
		ClientAuth:            tls.RequireAnyClientCert,
		NextProtos:            nextProtos,
		VerifyPeerCertificate: v.VerifyClientIdentity,
	}
}

// ClientTLSConfig returns a client configuration that presents cert and
// accepts only servers whose key is pinned. Chain and hostname validation
// are replaced by the pin check.
func (v *Verifier) ClientTLSConfig(cert tls.Certificate, nextProtos ...string) *tls.Config {
	return &tls.Config{
		MinVersion:            tls.VersionTLS13,
		Certificates:          []tls.Certificate{cert},
		InsecureSkipVerify:    true, //nolint:gosec // peer verified by key pin
		NextProtos:            nextProtos,
		VerifyPeerCertificate: v.VerifyServerIdentity,
	}
}
