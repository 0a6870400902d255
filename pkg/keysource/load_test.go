// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keysource

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keypin/pkg/keydist"
	"github.com/jeremyhahn/go-keypin/pkg/keypin"
)

var errBoom = errors.New("boom")

type failingSource struct{ name string }

func (f *failingSource) Name() string { return f.name }
func (f *failingSource) Keys(context.Context) ([][]byte, error) {
	return nil, errBoom
}

// blockingSource waits for its context to end.
type blockingSource struct{}

func (blockingSource) Name() string { return "blocking" }
func (blockingSource) Keys(ctx context.Context) ([][]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeResolver struct {
	keys     [][]byte
	err      error
	hostname string
	port     uint16
}

func (r *fakeResolver) LookupPinnedKeys(_ context.Context, hostname string, port uint16) ([][]byte, error) {
	r.hostname, r.port = hostname, port
	return r.keys, r.err
}

func key(b byte) []byte { return bytes.Repeat([]byte{b}, 65) }

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestLoad_Union(t *testing.T) {
	keys, err := Load(context.Background(), &LoadConfig{
		Sources: []Source{
			&Static{List: [][]byte{key(3), key(1)}},
			&Static{Label: "second", List: [][]byte{key(1), key(2)}},
		},
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{key(1), key(2), key(3)}, keys)
}

func TestLoad_SkipsFailingSources(t *testing.T) {
	keys, err := Load(context.Background(), &LoadConfig{
		Sources: []Source{
			&failingSource{name: "broken"},
			&Static{List: [][]byte{key(1)}},
		},
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{key(1)}, keys)
}

func TestLoad_Strict(t *testing.T) {
	_, err := Load(context.Background(), &LoadConfig{
		Sources: []Source{
			&Static{List: [][]byte{key(1)}},
			&failingSource{name: "broken"},
		},
		Strict: true,
		Logger: quietLogger(),
	})
	var attempt *AttemptError
	require.ErrorAs(t, err, &attempt)
	assert.Equal(t, "broken", attempt.Source)
	assert.ErrorIs(t, err, errBoom)
}

func TestLoad_AllFail(t *testing.T) {
	_, err := Load(context.Background(), &LoadConfig{
		Sources: []Source{&failingSource{name: "a"}, &failingSource{name: "b"}, nil},
		Logger:  quietLogger(),
	})
	require.ErrorIs(t, err, ErrAllSourcesFailed)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Attempts, 3)
	assert.Equal(t, "<nil>", agg.Attempts[2].Source)
	assert.ErrorIs(t, agg.Attempts[2].Err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "a: boom")
}

func TestLoad_EmptySourceStillSucceeds(t *testing.T) {
	keys, err := Load(context.Background(), &LoadConfig{
		Sources: []Source{&Static{}},
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLoad_InvalidConfig(t *testing.T) {
	_, err := Load(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(context.Background(), &LoadConfig{})
	require.ErrorIs(t, err, ErrNoSources)
}

func TestLoad_PerSourceTimeout(t *testing.T) {
	start := time.Now()
	keys, err := Load(context.Background(), &LoadConfig{
		Sources:          []Source{blockingSource{}, &Static{List: [][]byte{key(9)}}},
		PerSourceTimeout: 50 * time.Millisecond,
		Logger:           quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{key(9)}, keys)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, &LoadConfig{
		Sources: []Source{&Static{List: [][]byte{key(1)}}},
		Logger:  quietLogger(),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadKeySet(t *testing.T) {
	set, err := LoadKeySet(context.Background(), &LoadConfig{
		Sources: []Source{&Static{List: [][]byte{key(1), key(2)}}},
		Logger:  quietLogger(),
	}, keypin.P256PublicKeySize)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(key(2)))

	_, err = LoadKeySet(context.Background(), &LoadConfig{
		Sources: []Source{&Static{List: [][]byte{{0x01, 0x02}}}},
		Logger:  quietLogger(),
	}, keypin.P256PublicKeySize)
	require.ErrorIs(t, err, keypin.ErrInvalidKeySize)
}

func TestStatic_ReturnsCopies(t *testing.T) {
	src := &Static{List: [][]byte{key(1)}}
	keys, err := src.Keys(context.Background())
	require.NoError(t, err)

	keys[0][0] = 0xff
	assert.Equal(t, key(1), src.List[0])
	assert.Equal(t, "static", src.Name())
}

func TestDANE_Keys(t *testing.T) {
	resolver := &fakeResolver{keys: [][]byte{key(4)}}
	src := &DANE{Resolver: resolver, Host: "node.example.com", Port: 4433}
	assert.Equal(t, "dane:node.example.com:4433", src.Name())

	keys, err := src.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]byte{key(4)}, keys)
	assert.Equal(t, "node.example.com", resolver.hostname)
	assert.Equal(t, uint16(4433), resolver.port)
}

func TestDANE_Errors(t *testing.T) {
	_, err := (&DANE{Host: "x"}).Keys(context.Background())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = (&DANE{Resolver: &fakeResolver{}}).Keys(context.Background())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = (&DANE{Resolver: &fakeResolver{err: errBoom}, Host: "x", Port: 1}).Keys(context.Background())
	require.ErrorIs(t, err, errBoom)
}

func TestNoise_Keys(t *testing.T) {
	staticKey, err := keydist.GenerateStaticKey()
	require.NoError(t, err)

	set, err := keypin.NewKeySet(keypin.P256PublicKeySize, [][]byte{key(5), key(6)})
	require.NoError(t, err)

	srv, err := keydist.NewServer(&keydist.ServerConfig{
		ListenAddr: "127.0.0.1:0",
		StaticKey:  staticKey,
		Keys:       set,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	src := &Noise{Config: keydist.ClientConfig{
		ServerAddr:      srv.Addr().String(),
		ServerStaticKey: staticKey.Public,
		ExpectedKeySize: keypin.P256PublicKeySize,
		Logger:          quietLogger(),
	}}
	assert.Equal(t, "noise:"+srv.Addr().String(), src.Name())

	for i := 0; i < 2; i++ {
		keys, err := src.Keys(context.Background())
		require.NoError(t, err)
		assert.Equal(t, [][]byte{key(5), key(6)}, keys)
	}
	assert.Zero(t, src.Config.ConnectTimeout, "config must not be modified")
}

func TestNoise_Errors(t *testing.T) {
	_, err := (&Noise{}).Keys(context.Background())
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = (&Noise{Config: keydist.ClientConfig{ServerAddr: "127.0.0.1:1"}}).Keys(context.Background())
	require.ErrorIs(t, err, keydist.ErrInvalidStaticKey)
}
