// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vrthra/KaitaiFuzz/schema"
)

// Sink receives generated samples. Write may be called from several
// goroutines at once.
type Sink interface {
	Write(i int, out Output) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(i int, out Output) error

func (f SinkFunc) Write(i int, out Output) error {
	return f(i, out)
}

// DirSink writes each sample to <Dir>/<Prefix>-<i>.<ext>.
type DirSink struct {
	Dir    string
	Prefix string
	Format Format
}

func (d DirSink) Write(i int, out Output) error {
	data, err := Encode(out, d.Format)
	if err != nil {
		return err
	}
	prefix := d.Prefix
	if prefix == "" {
		prefix = "sample"
	}
	format := d.Format
	if format == "" {
		format = FormatBin
	}
	name := filepath.Join(d.Dir, fmt.Sprintf("%s-%06d.%s", prefix, i, format.Ext()))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// CorpusOptions configures GenerateCorpus.
type CorpusOptions struct {
	Count   int
	Workers int    // defaults to GOMAXPROCS
	Seed    uint64 // sample i is seeded with Seed+i
	Options Options
	Sink    Sink
}

// GenerateCorpus generates Count independent samples in parallel and hands
// each to the sink. The first failure cancels the remaining samples.
func GenerateCorpus(ctx context.Context, s *schema.Schema, co CorpusOptions) error {
	if co.Sink == nil {
		return fmt.Errorf("corpus: no sink")
	}
	workers := co.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i := 0; i < co.Count; i++ {
		if gctx.Err() != nil {
			break
		}
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			opts := co.Options
			opts.Seed = co.Seed + uint64(i)
			opts.Rand = nil
			out, err := Fuzz(s, opts)
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			return co.Sink.Write(i, out)
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
