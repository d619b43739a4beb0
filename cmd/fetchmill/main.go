package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fetchmill/fetchmill/internal/domain"
	"github.com/fetchmill/fetchmill/internal/engine"
	"github.com/fetchmill/fetchmill/internal/progress"
	"github.com/fetchmill/fetchmill/internal/transport"
)

type cliOptions struct {
	outputDir   string
	concurrency int
	failFast    bool
	retries     int
	taskTimeout time.Duration
	checksums   []string
	extractDir  string
	quiet       bool
}

var opts cliOptions

var rootCmd = &cobra.Command{
	Use:          "fetchmill [space-delimited URLs]",
	Short:        "Download files concurrently with checksum verification and optional extraction.",
	Example:      `fetchmill -c 5 --checksum sha256:9f86d0... https://example.com/a.tar.gz https://example.com/b.iso`,
	SilenceUsage: true,
	Args: func(cmd *cobra.Command, args []string) error {
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args)
	},
}

func run(urls []string) error {
	if len(opts.checksums) > len(urls) {
		return fmt.Errorf("more --checksum flags (%d) than URLs (%d)", len(opts.checksums), len(urls))
	}

	descs := make([]domain.ResourceDescriptor, len(urls))
	for i, u := range urls {
		d := domain.ResourceDescriptor{
			URL:         u,
			Destination: filepath.Join(opts.outputDir, domain.FilenameFromURL(u)),
		}
		if i < len(opts.checksums) && opts.checksums[i] != "" {
			spec, err := parseChecksumFlag(opts.checksums[i])
			if err != nil {
				return err
			}
			d.Checksum = spec
		}
		if opts.extractDir != "" {
			d.Extract = &domain.ExtractSpec{TargetDir: opts.extractDir}
		}
		descs[i] = d
	}

	// Structured logs would clobber the progress line; the summary at
	// the end reports per-task results instead.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := transport.NewClient(transport.Options{
		DialTimeout:           6 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxRetries:            opts.retries,
		BackoffBase:           500 * time.Millisecond,
		BackoffCap:            30 * time.Second,
		MaxTotalWait:          2 * time.Minute,
	}, logger)

	var sink progress.Sink = progress.NopSink{}
	var collector *progress.Collector
	var reporter *progress.Reporter
	if !opts.quiet {
		collector = progress.NewCollector(256)
		reporter = progress.NewReporter(collector, os.Stdout, 500*time.Millisecond)
		reporter.Start()
		sink = collector
	}

	eng := engine.New(engine.Options{
		MaxConcurrency: opts.concurrency,
		FailFast:       opts.failFast,
		PerTaskTimeout: opts.taskTimeout,
		TempDir:        filepath.Join(os.TempDir(), "fetchmill"),
	}, client, sink, logger)

	outcomes, err := eng.Run(context.Background(), descs)

	if reporter != nil {
		reporter.Stop()
		collector.Close()
	}
	if err != nil {
		return err
	}

	var failed int
	for i, out := range outcomes {
		switch out.State {
		case domain.StateSucceeded:
			fmt.Printf("ok       %s (%d bytes)\n", descs[i].DisplayName(), out.BytesTransferred)
		case domain.StateSkipped:
			fmt.Printf("skipped  %s\n", descs[i].DisplayName())
		default:
			failed++
			fmt.Printf("failed   %s: %s\n", descs[i].DisplayName(), out.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(outcomes))
	}
	return nil
}

// parseChecksumFlag accepts "algorithm:hexdigest" or a bare hex digest,
// inferring the algorithm from its length in the latter case.
func parseChecksumFlag(value string) (*domain.ChecksumSpec, error) {
	if algo, digest, ok := strings.Cut(value, ":"); ok {
		return &domain.ChecksumSpec{Algorithm: algo, Digest: digest}, nil
	}
	if value == "" {
		return nil, fmt.Errorf("empty --checksum value")
	}
	return &domain.ChecksumSpec{Digest: value}, nil
}

func main() {
	rootCmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", ".", "directory for downloaded files")
	rootCmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 3, "max number of concurrent downloads")
	rootCmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop starting new downloads after the first failure")
	rootCmd.Flags().IntVar(&opts.retries, "retries", 3, "max retry attempts per transient failure")
	rootCmd.Flags().DurationVarP(&opts.taskTimeout, "timeout", "t", 0, "per-download timeout (0 disables)")
	rootCmd.Flags().StringArrayVar(&opts.checksums, "checksum", nil, "expected digest per URL, algorithm:hex or bare hex")
	rootCmd.Flags().StringVar(&opts.extractDir, "extract", "", "extract each download into this directory")
	rootCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress the progress display")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
