// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/vrthra/KaitaiFuzz/expr"
)

// Options configures a generation run.
type Options struct {
	// Seed seeds the random source when Rand is nil.
	Seed uint64
	// Rand overrides Seed. It must not be shared between concurrent runs.
	Rand *rand.Rand

	// Logger receives debug traces of guards, switches and backpatches.
	Logger *slog.Logger

	// MaxDepth bounds user type nesting; recursive types guarded by an
	// if can otherwise recurse without end.
	MaxDepth int
	// MaxStrz bounds the length of strz fields declared without a size.
	MaxStrz int
	// EvalInstances evaluates every instance once its sequence is complete
	// and appends it to the output as a derived record.
	EvalInstances bool

	// Cache holds parsed guard and instance expressions. Nil uses the
	// process-wide cache.
	Cache *expr.Cache
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		MaxDepth: 64,
		MaxStrz:  16,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.MaxStrz <= 0 {
		o.MaxStrz = def.MaxStrz
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Rand == nil {
		o.Rand = NewRand(o.Seed)
	}
	return o
}

// NewRand returns a deterministic random source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
