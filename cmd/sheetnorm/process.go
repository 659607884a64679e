package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetnorm/internal/core"
	"github.com/JonMunkholm/sheetnorm/internal/logging"
)

type processOptions struct {
	timezone         string
	normalizeHeaders bool
	consolidate      bool
	outDir           string
	sampleSize       int
	logLevel         string
	logFormat        string
}

func newProcessCommand() *cobra.Command {
	opts := processOptions{}
	cmd := &cobra.Command{
		Use:   "process FILE...",
		Short: "Normalize files and write one CSV per input",
		Long: `Normalize headers, convert timestamp columns to UTC and replace blank or
dash-only cells with NULL. Each input is written as <name>.csv in the output
directory. With --consolidate, files must share identical headers and are also
merged into consolidated_output.csv.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.timezone, "tz", core.DefaultTimezone, "Timezone naive timestamps are recorded in")
	f.BoolVar(&opts.normalizeHeaders, "normalize-headers", true, "Rewrite headers as lowercase snake_case")
	f.BoolVar(&opts.consolidate, "consolidate", false, "Merge all files into consolidated_output.csv")
	f.StringVarP(&opts.outDir, "out", "o", ".", "Directory for output CSV files")
	f.IntVar(&opts.sampleSize, "sample-size", core.DefaultSampleSize, "Non-null values inspected per column")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	return cmd
}

func runProcess(ctx context.Context, out io.Writer, paths []string, opts processOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sources, err := readSources(paths)
	if err != nil {
		return err
	}

	svc, err := core.NewService(core.ServiceConfig{
		MaxFiles:        len(sources),
		DefaultTimezone: opts.timezone,
		SampleSize:      opts.sampleSize,
		Logger:          logging.New(os.Stderr, opts.logLevel, opts.logFormat),
	})
	if err != nil {
		return err
	}

	session, runErr := svc.Run(ctx, sources, core.RunOptions{
		NormalizeHeaders: opts.normalizeHeaders,
		Timezone:         opts.timezone,
		Consolidate:      opts.consolidate,
		SampleSize:       opts.sampleSize,
	})
	if session == nil {
		return errors.New(core.FormatUserError(runErr))
	}

	if err := writeOutputs(session, opts.outDir); err != nil {
		return err
	}
	printSummary(out, session, opts.outDir)

	if runErr != nil {
		return errors.New(core.FormatUserError(runErr))
	}
	return nil
}

// readSources loads every path. Output names derive from base names, so two
// inputs that would write the same CSV are rejected up front.
func readSources(paths []string) ([]core.Source, error) {
	sources := make([]core.Source, 0, len(paths))
	seen := make(map[string]string, len(paths))

	for _, p := range paths {
		name := filepath.Base(p)
		outName := core.OutputFileName(name)
		if prev, ok := seen[outName]; ok {
			return nil, fmt.Errorf("%s and %s would both be written as %s", prev, p, outName)
		}
		seen[outName] = p

		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		sources = append(sources, core.Source{Name: name, Data: data})
	}
	return sources, nil
}

func writeOutputs(session *core.Session, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, f := range session.Files {
		if err := writeTable(filepath.Join(dir, f.OutputName), f.Table); err != nil {
			return err
		}
	}
	if c := session.Consolidated; c != nil {
		if err := writeTable(filepath.Join(dir, c.OutputName), c.Table); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(path string, table *core.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := core.WriteCSV(f, table); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(out io.Writer, session *core.Session, dir string) {
	ok := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	for _, f := range session.Files {
		ok.Fprint(out, "✓ ")
		fmt.Fprintf(out, "%s -> %s  ", f.FileName, filepath.Join(dir, f.OutputName))
		dim.Fprintf(out, "(%d rows, %d columns)\n", f.Stats.RowCount, f.Stats.ColumnCount)
		if len(f.TimestampColumns) > 0 {
			fmt.Fprintf(out, "    timestamps (UTC): %s\n", strings.Join(f.TimestampColumns, ", "))
		}
		for _, w := range f.Warnings {
			warn.Fprintf(out, "    ! %s: %s\n", w.Column, w.Message)
		}
	}

	if c := session.Consolidated; c != nil {
		ok.Fprint(out, "✓ ")
		fmt.Fprintf(out, "%s  ", filepath.Join(dir, c.OutputName))
		dim.Fprintf(out, "(%d rows from %d files)\n", c.Stats.RowCount, len(session.Files))
	}

	if session.Error != nil {
		fail.Fprintf(out, "✗ %s (Code: %s)\n", session.Error.Message, session.Error.Code)
		if session.Error.Detail != "" {
			fmt.Fprintf(out, "    %s\n", session.Error.Detail)
		}
	}
}
