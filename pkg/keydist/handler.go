// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"reflect"
)

// Method names understood by the server.
const (
	MethodGetPinnedKeys = "get_pinned_keys"
)

// Request is the JSON request format.
type Request struct {
	Method string `json:"method"`
}

// Response is the JSON response format.
type Response struct {
	// Keys holds the hex-encoded raw public keys, sorted.
	Keys []string `json:"keys,omitempty"`

	// KeySize is the length in bytes of every key in Keys.
	KeySize int `json:"key_size,omitempty"`

	// Error contains an error message if the operation failed.
	Error string `json:"error,omitempty"`
}

type handlerFunc func(req *Request) (*Response, error)

// Handler dispatches requests by method name.
type Handler struct {
	keys     KeyProvider
	handlers map[string]handlerFunc
	logger   *slog.Logger
}

// NewHandler creates a Handler serving keys. keys may be nil, or a typed nil
// pointer such as a nil *keypin.KeySet, in which case every request fails
// with ErrKeysNotConfigured.
func NewHandler(keys KeyProvider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger: logger,
	}
	if !isNilProvider(keys) {
		h.keys = keys
	}
	h.handlers = map[string]handlerFunc{
		MethodGetPinnedKeys: h.handleGetPinnedKeys,
	}
	return h
}

// Handle dispatches req to the handler registered for its method.
func (h *Handler) Handle(req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	handler, ok := h.handlers[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, req.Method)
	}
	return handler(req)
}

func (h *Handler) handleGetPinnedKeys(_ *Request) (*Response, error) {
	if h.keys == nil {
		return nil, ErrKeysNotConfigured
	}

	raw := h.keys.Keys()
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, hex.EncodeToString(k))
	}

	h.logger.Debug("serving pinned keys", "count", len(keys), "key_size", h.keys.Size())
	return &Response{
		Keys:    keys,
		KeySize: h.keys.Size(),
	}, nil
}

func isNilProvider(p KeyProvider) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
