// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/vrthra/KaitaiFuzz/fuzz"
	"github.com/vrthra/KaitaiFuzz/schema"
)

const (
	appName    = "ksyfuzz"
	appVersion = "0.1.0"
)

// NewRootCmd builds the ksyfuzz command.
func NewRootCmd() *cobra.Command {
	opts := fuzz.DefaultOptions()
	var (
		seed        uint64
		count       = 1
		workers     int
		outDir      string
		prefix      string
		format      = string(fuzz.FormatBin)
		logLevel    = "warn"
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:           appName + " [flags] schema.ksy",
		Short:         "Generate fuzz inputs from a Kaitai Struct schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, appVersion)
				return err
			}
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one schema file, got %d arguments", len(args))
			}

			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			f := fuzz.Format(format)
			switch f {
			case fuzz.FormatBin, fuzz.FormatHex, fuzz.FormatJSON, fuzz.FormatYAML:
			default:
				return fmt.Errorf("unknown format %q (want bin, hex, json or yaml)", format)
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			s, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			opts.Logger.Info("schema loaded", "file", args[0], "id", s.Meta.ID, "seed", seed, "count", count)

			co := fuzz.CorpusOptions{
				Count:   count,
				Workers: workers,
				Seed:    seed,
				Options: opts,
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				if prefix == "" {
					prefix = s.Meta.ID
				}
				co.Sink = fuzz.DirSink{Dir: outDir, Prefix: prefix, Format: f}
			} else {
				// Stdout keeps sample order, so samples run one at a time.
				co.Workers = 1
				var mu sync.Mutex
				co.Sink = fuzz.SinkFunc(func(_ int, out fuzz.Output) error {
					data, err := fuzz.Encode(out, f)
					if err != nil {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					_, err = cmd.OutOrStdout().Write(data)
					return err
				})
			}
			return fuzz.GenerateCorpus(cmd.Context(), s, co)
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print version")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 0, "seed for deterministic generation (sample i uses seed+i)")
	cmd.Flags().IntVarP(&count, "count", "n", count, "number of samples to generate")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "parallel workers when writing to --out (0 = GOMAXPROCS)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write samples to this directory instead of stdout")
	cmd.Flags().StringVar(&prefix, "prefix", "", "sample file name prefix (default meta.id)")
	cmd.Flags().StringVarP(&format, "format", "f", format, "output format: bin, hex, json or yaml")
	cmd.Flags().BoolVar(&opts.EvalInstances, "instances", opts.EvalInstances, "evaluate instances and include them in structured output")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "maximum user type nesting")
	cmd.Flags().IntVar(&opts.MaxStrz, "max-strz", opts.MaxStrz, "maximum length of unsized strz fields")
	cmd.Flags().StringVar(&logLevel, "log-level", logLevel, "log level: debug, info, warn or error")

	_ = cmd.MarkFlagDirname("out")

	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q", s)
	}
	return level, nil
}
