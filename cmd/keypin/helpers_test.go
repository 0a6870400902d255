// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keypin/pkg/keygen"
)

// resetFlags restores every flag of cmd and its children to its default so
// that package-level commands can be executed repeatedly.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetErr(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

// writeIdentity writes a fresh identity to dir and returns the file paths.
func writeIdentity(t *testing.T, dir, name string) (id *keygen.Identity, certPath, keyPath string) {
	t.Helper()
	id, err := keygen.Generate()
	require.NoError(t, err)
	certPath = filepath.Join(dir, name+".crt")
	keyPath = filepath.Join(dir, name+".key")
	require.NoError(t, id.WriteFiles(certPath, keyPath))
	return id, certPath, keyPath
}

// writeKeyList writes a hex key list containing keys.
func writeKeyList(t *testing.T, dir string, keys ...[]byte) string {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("# test keys\n")
	for _, k := range keys {
		b.WriteString(hex.EncodeToString(k) + "\n")
	}
	path := filepath.Join(dir, "pins.txt")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}

// writeChain writes several certificates into one PEM file.
func writeChain(t *testing.T, dir string, ders ...[]byte) string {
	t.Helper()
	var b bytes.Buffer
	for _, der := range ders {
		require.NoError(t, pem.Encode(&b, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	}
	path := filepath.Join(dir, "chain.pem")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}
