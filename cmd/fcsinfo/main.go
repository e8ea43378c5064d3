// Command fcsinfo prints summaries of FCS files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"github.com/twinfer/fcs-plugin/internal/config"
	"github.com/twinfer/fcs-plugin/internal/rules"
	"github.com/twinfer/fcs-plugin/pkg/fcsio"
	"golang.org/x/sync/errgroup"
)

// errFailed is returned when at least one file failed to parse or check.
// Details have already been logged.
var errFailed = errors.New("one or more files failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// result is one file's outcome. Summary is set even when only the checks
// failed.
type result struct {
	Path    string         `json:"path" yaml:"path" cbor:"path"`
	Summary *fcsio.Summary `json:"summary,omitempty" yaml:"summary,omitempty" cbor:"summary,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`
	Failed  []string       `json:"failed_checks,omitempty" yaml:"failed_checks,omitempty" cbor:"failed_checks,omitempty"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		format     string
		events     int
		checks     []string
		workers    int
		logLevel   string
		digest     bool
	)

	flagSet := pflag.NewFlagSet("fcsinfo", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML or TOML config file")
	flagSet.StringVarP(&format, "format", "f", "", "output format: json, yaml or cbor")
	flagSet.IntVarP(&events, "events", "n", 0, "include up to N events per file")
	flagSet.StringArrayVar(&checks, "check", nil, "CEL expression every file must satisfy (repeatable)")
	flagSet.IntVarP(&workers, "concurrency", "j", 0, "number of files parsed at once")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&digest, "digest", false, "add a BLAKE3 digest of the DATA values")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  fcsinfo [flags] FILE...\n\nFlags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	paths := flagSet.Args()
	if len(paths) == 0 {
		flagSet.Usage()
		return fmt.Errorf("no input files")
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// Flags win over the config file.
	if flagSet.Changed("format") {
		cfg.Format = format
	}
	if flagSet.Changed("events") {
		cfg.Events = events
	}
	if flagSet.Changed("check") {
		cfg.Checks = append(cfg.Checks, checks...)
	}
	if flagSet.Changed("concurrency") {
		cfg.Concurrency = workers
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flagSet.Changed("digest") {
		cfg.Digest = digest
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	outFormat, err := fcsio.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	pool, err := rules.NewProgramPool()
	if err != nil {
		return err
	}
	checker, err := rules.NewChecker(pool, cfg.Checks)
	if err != nil {
		return err
	}

	opts := []fcsio.Option{fcsio.WithLogger(logger), fcsio.WithDigest(cfg.Digest)}
	if cfg.Events > 0 {
		opts = append(opts, fcsio.WithMaxEvents(cfg.Events))
	}
	if enabled, timeout, _ := cfg.Cache(); enabled {
		opts = append(opts, fcsio.WithCaching(timeout))
	} else {
		opts = append(opts, fcsio.WithoutCaching())
	}
	parser := fcsio.NewParser(opts...)

	results := make([]result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = inspect(gctx, logger, parser, checker, path)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, err := fcsio.Marshal(results, outFormat)
	if err != nil {
		return err
	}
	if _, err := stdout.Write(out); err != nil {
		return err
	}
	if outFormat == fcsio.FormatJSON {
		fmt.Fprintln(stdout)
	}

	for _, r := range results {
		if r.Error != "" || len(r.Failed) > 0 {
			return errFailed
		}
	}
	return nil
}

func inspect(ctx context.Context, logger *slog.Logger, parser *fcsio.Parser, checker *rules.Checker, path string) result {
	r := result{Path: path}

	doc, err := parser.ParseFile(ctx, path)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to parse file", "path", path, "error", err)
		r.Error = err.Error()
		return r
	}
	summary, err := parser.Summarize(doc)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to summarize file", "path", path, "error", err)
		r.Error = err.Error()
		return r
	}
	summary.Source = path
	r.Summary = summary

	if err := checker.Check(doc); err != nil {
		r.Failed = rules.Failed(err)
		logger.WarnContext(ctx, "File failed checks", "path", path, "failed", r.Failed, "error", err)
	}
	logger.DebugContext(ctx, "Inspected file", "path", path, "events", doc.TotalEvents())
	return r
}
