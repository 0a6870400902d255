// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keypin/pkg/echo"
	"github.com/jeremyhahn/go-keypin/pkg/keydist"
	"github.com/jeremyhahn/go-keypin/pkg/keygen"
	"github.com/jeremyhahn/go-keypin/pkg/keypin"
	"github.com/jeremyhahn/go-keypin/pkg/metrics"
)

// startEchoServer runs an echo server with identity server that pins the
// given client keys.
func startEchoServer(t *testing.T, server *keygen.Identity, clientKeys ...[]byte) string {
	t.Helper()
	v, err := keypin.New(&keypin.Config{Keys: clientKeys})
	require.NoError(t, err)

	srv, err := echo.NewServer(&echo.ServerConfig{
		ListenAddr: "127.0.0.1:0",
		TLSConfig:  v.ServerTLSConfig(server.TLSCertificate()),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Close() })
	return srv.Addr().String()
}

func TestConnect_Echo(t *testing.T) {
	dir := t.TempDir()
	serverID, _, _ := writeIdentity(t, dir, "server")
	clientID, certPath, keyPath := writeIdentity(t, dir, "client")
	addr := startEchoServer(t, serverID, clientID.PublicKey)

	out, err := runCLI(t, "connect", addr,
		"--cert", certPath, "--key", keyPath,
		"--pin", hex.EncodeToString(serverID.PublicKey),
		"--message", "ping", "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, "ping", out)
}

func TestConnect_ServerNotPinned(t *testing.T) {
	dir := t.TempDir()
	serverID, _, _ := writeIdentity(t, dir, "server")
	clientID, certPath, keyPath := writeIdentity(t, dir, "client")
	addr := startEchoServer(t, serverID, clientID.PublicKey)

	_, err := runCLI(t, "connect", addr,
		"--cert", certPath, "--key", keyPath,
		"--pin", hex.EncodeToString(clientID.PublicKey),
		"--timeout", "5s")
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.ErrorIs(t, err, echo.ErrDialFailed)
}

func TestConnect_Stdin(t *testing.T) {
	dir := t.TempDir()
	serverID, _, _ := writeIdentity(t, dir, "server")
	clientID, certPath, keyPath := writeIdentity(t, dir, "client")
	addr := startEchoServer(t, serverID, clientID.PublicKey)

	rootCmd.SetIn(strings.NewReader("from stdin"))
	defer rootCmd.SetIn(nil)

	out, err := runCLI(t, "connect", addr,
		"--cert", certPath, "--key", keyPath,
		"--pin", hex.EncodeToString(serverID.PublicKey),
		"-m", "-", "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", out)
}

func TestServe_RequiresPins(t *testing.T) {
	_, err := runCLI(t, "serve", "--listen", "127.0.0.1:0")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDistribute_RequiresPins(t *testing.T) {
	_, err := runCLI(t, "distribute", "--key-file", filepath.Join(t.TempDir(), "noise.key"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStartMetricsServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	collector := metrics.New(metrics.DefaultNamespace)
	collector.SetPinnedKeys(3)

	stop, err := startMetricsServer(addr, collector)
	require.NoError(t, err)
	defer stop()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "keypin_pinned_keys 3")
}

func TestStartMetricsServer_ListenError(t *testing.T) {
	_, err := startMetricsServer("127.0.0.1:99999", metrics.New(metrics.DefaultNamespace))
	assert.ErrorIs(t, err, ErrServerStart)
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.key")

	generated, err := loadOrGenerateKey(path)
	require.NoError(t, err)
	require.Len(t, generated.Public, keydist.StaticKeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := loadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Equal(t, generated.Public, loaded.Public)
	assert.Equal(t, generated.Private, loaded.Private)
}

func TestLoadOrGenerateKey_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noise.key")
	require.NoError(t, os.WriteFile(path, []byte("not a key\n"), 0o600))

	_, err := loadOrGenerateKey(path)
	assert.ErrorIs(t, err, ErrKeyLoad)

	_, err = loadOrGenerateKey(filepath.Join(dir, "missing", "noise.key"))
	assert.ErrorIs(t, err, ErrKeyGeneration)
}

func TestDistribute_ServesKeys(t *testing.T) {
	// The command blocks until a signal, so the server side is exercised
	// through the same keydist wiring the command uses.
	dir := t.TempDir()
	pinned, _, _ := writeIdentity(t, dir, "pinned")
	pins := writeKeyList(t, dir, pinned.PublicKey)

	p := &pinFlags{files: []string{pins}, keySize: keypin.P256PublicKeySize, timeout: time.Second}
	set, err := p.keySet(context.Background())
	require.NoError(t, err)

	staticKey, err := loadOrGenerateKey(filepath.Join(dir, "noise.key"))
	require.NoError(t, err)

	srv, err := keydist.NewServer(&keydist.ServerConfig{
		ListenAddr: "127.0.0.1:0",
		StaticKey:  staticKey,
		Keys:       set,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	fetch := &pinFlags{
		noiseAddr: srv.Addr().String(),
		noiseKey:  hex.EncodeToString(staticKey.Public),
		keySize:   keypin.P256PublicKeySize,
		timeout:   5 * time.Second,
	}
	got, err := fetch.keySet(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Contains(pinned.PublicKey))
	assert.Equal(t, 1, got.Len())
}
