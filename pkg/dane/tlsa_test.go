// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestCert creates a self-signed P-256 certificate and returns its
// DER encoding together with the raw public key.
func generateTestCert(t *testing.T) ([]byte, []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "node.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	pub, err := key.PublicKey.ECDH()
	require.NoError(t, err)
	return der, pub.Bytes()
}

func rawSPKI(t *testing.T, certDER []byte) []byte {
	t.Helper()
	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)
	return cert.RawSubjectPublicKeyInfo
}

func TestComputeTLSAData(t *testing.T) {
	certDER, _ := generateTestCert(t)
	spki := rawSPKI(t, certDER)
	certSHA256 := sha256.Sum256(certDER)
	certSHA512 := sha512.Sum512(certDER)
	spkiSHA256 := sha256.Sum256(spki)
	spkiSHA512 := sha512.Sum512(spki)

	tests := []struct {
		name     string
		selector uint8
		matching uint8
		want     []byte
	}{
		{"full cert exact", SelectorFullCert, MatchingExact, certDER},
		{"full cert sha256", SelectorFullCert, MatchingSHA256, certSHA256[:]},
		{"full cert sha512", SelectorFullCert, MatchingSHA512, certSHA512[:]},
		{"spki exact", SelectorSPKI, MatchingExact, spki},
		{"spki sha256", SelectorSPKI, MatchingSHA256, spkiSHA256[:]},
		{"spki sha512", SelectorSPKI, MatchingSHA512, spkiSHA512[:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ComputeTLSAData(certDER, tt.selector, tt.matching)
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestComputeTLSAData_Errors(t *testing.T) {
	certDER, _ := generateTestCert(t)

	_, err := ComputeTLSAData(nil, SelectorSPKI, MatchingExact)
	assert.ErrorIs(t, err, ErrInvalidCertificate)

	_, err = ComputeTLSAData(append(certDER, 0x00), SelectorSPKI, MatchingExact)
	assert.ErrorIs(t, err, ErrInvalidCertificate)

	_, err = ComputeTLSAData(certDER, 2, MatchingExact)
	assert.ErrorIs(t, err, ErrUnsupportedSelector)

	_, err = ComputeTLSAData(certDER, SelectorSPKI, 3)
	assert.ErrorIs(t, err, ErrUnsupportedMatching)
}

func TestComputeTLSAData_ExactIsCopy(t *testing.T) {
	certDER, _ := generateTestCert(t)
	data, err := ComputeTLSAData(certDER, SelectorFullCert, MatchingExact)
	require.NoError(t, err)

	data[0] ^= 0xff
	assert.NotEqual(t, certDER[0], data[0])
}

func TestTLSARecord_Pinnable(t *testing.T) {
	assert.True(t, (&TLSARecord{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingExact}).Pinnable())
	assert.True(t, (&TLSARecord{Usage: UsageServiceCert, Selector: SelectorSPKI, MatchingType: MatchingExact}).Pinnable())
	assert.False(t, (&TLSARecord{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingSHA256}).Pinnable())
	assert.False(t, (&TLSARecord{Usage: UsageDANEEE, Selector: SelectorFullCert, MatchingType: MatchingExact}).Pinnable())

	var nilRecord *TLSARecord
	assert.False(t, nilRecord.Pinnable())
}

func TestPinnedKeys(t *testing.T) {
	certA, rawA := generateTestCert(t)
	certB, rawB := generateTestCert(t)

	records := []*TLSARecord{
		{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingExact, CertData: rawSPKI(t, certA)},
		{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingSHA256, CertData: []byte{1, 2, 3}},
		nil,
		{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingExact, CertData: rawSPKI(t, certB)},
		{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingExact, CertData: rawSPKI(t, certA)},
	}

	keys, err := PinnedKeys(records)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.ElementsMatch(t, [][]byte{rawA, rawB}, keys)
}

func TestPinnedKeys_NonePinnable(t *testing.T) {
	_, err := PinnedKeys(nil)
	assert.ErrorIs(t, err, ErrNoPinnedKeys)

	_, err = PinnedKeys([]*TLSARecord{{Usage: UsageDANEEE, Selector: SelectorFullCert, MatchingType: MatchingSHA512}})
	assert.ErrorIs(t, err, ErrNoPinnedKeys)
}

func TestPinnedKeys_MalformedAssociationData(t *testing.T) {
	certDER, _ := generateTestCert(t)
	spki := rawSPKI(t, certDER)

	for _, data := range [][]byte{{0x30, 0x00}, spki[:len(spki)-1], append(append([]byte{}, spki...), 0x00)} {
		_, err := PinnedKeys([]*TLSARecord{{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingExact, CertData: data}})
		assert.ErrorIs(t, err, ErrInvalidAssociationData)
	}
}
