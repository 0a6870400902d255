// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keysource

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jeremyhahn/go-keypin/pkg/keypin"
)

// DefaultPerSourceTimeout bounds each source when LoadConfig sets none.
const DefaultPerSourceTimeout = 15 * time.Second

// LoadConfig configures Load.
type LoadConfig struct {
	// Sources are queried in order.
	Sources []Source

	// PerSourceTimeout bounds each individual source. Default: 15s.
	PerSourceTimeout time.Duration

	// Strict fails the load on the first source error. Otherwise failing
	// sources are skipped as long as at least one succeeds.
	Strict bool

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// AttemptError records the failure of one source.
type AttemptError struct {
	Source string
	Err    error
}

// Error returns the source name and the underlying error.
func (e *AttemptError) Error() string {
	return fmt.Sprintf("keysource %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *AttemptError) Unwrap() error { return e.Err }

// AggregateError is returned when every source failed.
type AggregateError struct {
	Attempts []AttemptError
}

// Error lists every failed source.
func (e *AggregateError) Error() string {
	var b strings.Builder
	b.WriteString("keysource: all sources failed: [")
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", a.Source, a.Err)
	}
	b.WriteString("]")
	return b.String()
}

// Unwrap returns ErrAllSourcesFailed for use with errors.Is.
func (e *AggregateError) Unwrap() error { return ErrAllSourcesFailed }

// Load queries every source and returns the union of their keys, sorted
// and deduplicated. Keys of inconsistent length are returned as loaded;
// NewKeySet rejects them.
func Load(ctx context.Context, cfg *LoadConfig) ([][]byte, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if len(cfg.Sources) == 0 {
		return nil, ErrNoSources
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "keysource")

	perTimeout := cfg.PerSourceTimeout
	if perTimeout <= 0 {
		perTimeout = DefaultPerSourceTimeout
	}

	var (
		keys      [][]byte
		attempts  []AttemptError
		succeeded int
	)
	for _, src := range cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("keysource: load cancelled: %w", err)
		}

		name := sourceName(src)
		got, err := fetch(ctx, src, perTimeout)
		if err != nil {
			if cfg.Strict {
				return nil, &AttemptError{Source: name, Err: err}
			}
			logger.Warn("key source failed", "source", name, "error", err)
			attempts = append(attempts, AttemptError{Source: name, Err: err})
			continue
		}

		logger.Debug("key source loaded", "source", name, "count", len(got))
		keys = append(keys, got...)
		succeeded++
	}

	if succeeded == 0 {
		return nil, &AggregateError{Attempts: attempts}
	}

	slices.SortFunc(keys, bytes.Compare)
	keys = slices.CompactFunc(keys, bytes.Equal)
	logger.Info("pinned keys loaded", "count", len(keys), "failed_sources", len(attempts))
	return keys, nil
}

// LoadKeySet runs Load and builds a key set of the given size.
func LoadKeySet(ctx context.Context, cfg *LoadConfig, size int) (*keypin.KeySet, error) {
	keys, err := Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return keypin.NewKeySet(size, keys)
}

func fetch(ctx context.Context, src Source, timeout time.Duration) ([][]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}
	srcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return src.Keys(srcCtx)
}

func sourceName(src Source) string {
	if src == nil {
		return "<nil>"
	}
	return src.Name()
}
