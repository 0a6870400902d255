// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"
)

func TestFraming_RoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payload := []byte("pinned keys")
	deadline := time.Now().Add(5 * time.Second)

	errCh := make(chan error, 1)
	go func() {
		errCh <- WriteFrame(client, payload, deadline)
	}()

	received, err := ReadFrame(server, deadline)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if !bytes.Equal(received, payload) {
		t.Errorf("expected %q, got %q", payload, received)
	}
}

func TestFraming_MultipleFrames(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payloads := [][]byte{[]byte("one"), {}, bytes.Repeat([]byte{0xaa}, 1024)}
	deadline := time.Now().Add(5 * time.Second)

	go func() {
		for _, p := range payloads {
			if err := WriteFrame(client, p, deadline); err != nil {
				return
			}
		}
	}()

	for i, want := range payloads {
		got, err := ReadFrame(server, deadline)
		if err != nil {
			t.Fatalf("frame %d: ReadFrame failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d: expected %d bytes, got %d", i, len(want), len(got))
		}
	}
}

func TestFraming_MaxSize(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payload := bytes.Repeat([]byte{0x01}, MaxFrameSize)
	deadline := time.Now().Add(5 * time.Second)

	errCh := make(chan error, 1)
	go func() {
		errCh <- WriteFrame(client, payload, deadline)
	}()

	received, err := ReadFrame(server, deadline)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if len(received) != MaxFrameSize {
		t.Errorf("expected %d bytes, got %d", MaxFrameSize, len(received))
	}
}

func TestFraming_OverMaxSize(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	err := WriteFrame(client, make([]byte, MaxFrameSize+1), time.Now().Add(time.Second))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got: %v", err)
	}
}

func TestFraming_ReadTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	_, err := ReadFrame(server, time.Now().Add(50*time.Millisecond))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got: %v", err)
	}
}

func TestFraming_IncompletePayload(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	go func() {
		header := make([]byte, FrameHeaderSize)
		binary.BigEndian.PutUint16(header, 10)
		_, _ = client.Write(header)
		_, _ = client.Write([]byte("short"))
		client.Close()
	}()

	_, err := ReadFrame(server, time.Now().Add(5*time.Second))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got: %v", err)
	}
}

func TestFraming_ClosedConnection(t *testing.T) {
	server, client := net.Pipe()
	client.Close()
	defer server.Close()

	if err := WriteFrame(client, []byte("x"), time.Now().Add(time.Second)); err == nil {
		t.Fatal("expected error writing to closed connection")
	}
}
