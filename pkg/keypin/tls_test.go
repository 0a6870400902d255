// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keypin

import (
	"context"
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (p *testPeer) tlsCertificate() tls.Certificate {
	return tls.Certificate{Certificate: [][]byte{p.der}, PrivateKey: p.key}
}

// handshake runs a TLS handshake over an in-memory pipe and returns the
// client and server errors. On success the server writes one byte, which
// the client must read; in TLS 1.3 a client certificate rejection only
// reaches the client on that read.
func handshake(t *testing.T, clientConf, serverConf *tls.Config) (clientErr, serverErr error) {
	t.Helper()
	c, s := net.Pipe()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer s.Close()
		srv := tls.Server(s, serverConf)
		if err := srv.HandshakeContext(ctx); err != nil {
			done <- err
			return
		}
		_, err := srv.Write([]byte{'k'})
		done <- err
	}()

	cli := tls.Client(c, clientConf)
	clientErr = cli.HandshakeContext(ctx)
	if clientErr == nil {
		_ = cli.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, clientErr = cli.Read(make([]byte, 1))
	}
	c.Close()
	serverErr = <-done
	return clientErr, serverErr
}

func TestTLSConfigs_Shape(t *testing.T) {
	peer := newTestPeer(t)
	v := newTestVerifier(t, nil, peer)

	srv := v.ServerTLSConfig(peer.tlsCertificate(), "h3")
	assert.Equal(t, uint16(tls.VersionTLS13), srv.MinVersion)
	assert.Equal(t, tls.RequireAnyClientCert, srv.ClientAuth)
	assert.Nil(t, srv.ClientCAs)
	assert.Equal(t, []string{"h3"}, srv.NextProtos)
	require.NotNil(t, srv.VerifyPeerCertificate)

	cli := v.ClientTLSConfig(peer.tlsCertificate())
	assert.Equal(t, uint16(tls.VersionTLS13), cli.MinVersion)
	assert.True(t, cli.InsecureSkipVerify)
	assert.Nil(t, cli.RootCAs)
	require.NotNil(t, cli.VerifyPeerCertificate)
}

func TestTLSConfigs_MutualPinning(t *testing.T) {
	server := newTestPeer(t)
	client := newTestPeer(t)

	serverSide := newTestVerifier(t, nil, client)
	clientSide := newTestVerifier(t, nil, server)

	clientErr, serverErr := handshake(t,
		clientSide.ClientTLSConfig(client.tlsCertificate()),
		serverSide.ServerTLSConfig(server.tlsCertificate()))
	assert.NoError(t, clientErr)
	assert.NoError(t, serverErr)
}

func TestTLSConfigs_ServerKeyNotPinned(t *testing.T) {
	server := newTestPeer(t)
	client := newTestPeer(t)
	other := newTestPeer(t)

	serverSide := newTestVerifier(t, nil, client)
	clientSide := newTestVerifier(t, nil, other)

	clientErr, _ := handshake(t,
		clientSide.ClientTLSConfig(client.tlsCertificate()),
		serverSide.ServerTLSConfig(server.tlsCertificate()))
	assert.ErrorIs(t, clientErr, ErrUnknownKey)
}

func TestTLSConfigs_ClientKeyNotPinned(t *testing.T) {
	server := newTestPeer(t)
	client := newTestPeer(t)
	other := newTestPeer(t)

	serverSide := newTestVerifier(t, nil, other)
	clientSide := newTestVerifier(t, nil, server)

	_, serverErr := handshake(t,
		clientSide.ClientTLSConfig(client.tlsCertificate()),
		serverSide.ServerTLSConfig(server.tlsCertificate()))
	assert.ErrorIs(t, serverErr, ErrUnknownKey)
}

func TestTLSConfigs_ClientWithoutCertificate(t *testing.T) {
	server := newTestPeer(t)
	client := newTestPeer(t)

	serverSide := newTestVerifier(t, nil, client)
	clientSide := newTestVerifier(t, nil, server)

	cliConf := clientSide.ClientTLSConfig(tls.Certificate{})
	cliConf.Certificates = nil

	_, serverErr := handshake(t, cliConf, serverSide.ServerTLSConfig(server.tlsCertificate()))
	assert.Error(t, serverErr)
}
