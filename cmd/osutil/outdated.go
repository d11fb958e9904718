package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/obentoo/osutil/internal/common/config"
	"github.com/obentoo/osutil/internal/common/httpclient"
	"github.com/obentoo/osutil/internal/common/logger"
	"github.com/obentoo/osutil/internal/common/output"
	"github.com/obentoo/osutil/internal/common/version"
	"github.com/obentoo/osutil/internal/distro"
	"github.com/obentoo/osutil/internal/obs"
	"github.com/obentoo/osutil/internal/outdated"
	"github.com/obentoo/osutil/internal/repology"
	"github.com/spf13/cobra"
)

var (
	// outdatedShowNotFound prints packages missing from Tumbleweed
	outdatedShowNotFound bool
	// outdatedLeap switches to Leap mode for the given release
	outdatedLeap string
	// outdatedConcurrency overrides outdated.concurrency from the config
	outdatedConcurrency int
	// outdatedSummary prints counters to stderr after the run
	outdatedSummary bool
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List maintained packages with a newer upstream version",
	Long: `Query OBS for the packages you maintain and compare each one with Repology.

In the default mode a package is reported when its Tumbleweed version is
outdated. With --leap, a package is reported when the given Leap release lags
behind the newest version and a backport path exists in the SLE maintenance
lines of that release.

Reports are printed to stdout as "<package>: <current> -> <newest>".
Failures for single packages are printed to stderr and do not stop the run.

Examples:
  osutil outdated                    Check against Tumbleweed
  osutil outdated -n                 Also list packages missing from Tumbleweed
  osutil outdated --leap 15.4        Check against Leap 15.4
  osutil outdated --summary          Print counters when done`,
	Args: cobra.NoArgs,
	RunE: runOutdated,
}

func init() {
	outdatedCmd.Flags().BoolVarP(&outdatedShowNotFound, "show-packages-not-found", "n", false, "Print packages that Repology does not list for Tumbleweed")
	outdatedCmd.Flags().StringVar(&outdatedLeap, "leap", "", "Check against this Leap release (e.g. 15.4)")
	outdatedCmd.Flags().IntVar(&outdatedConcurrency, "concurrency", 0, "Packages checked at the same time (default from config, 4)")
	outdatedCmd.Flags().BoolVar(&outdatedSummary, "summary", false, "Print a summary to stderr")

	rootCmd.AddCommand(outdatedCmd)
}

func runOutdated(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	concurrency := cfg.Outdated.Concurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency = outdatedConcurrency
	}

	checker, err := newChecker(cfg, cmd.OutOrStdout(),
		outdated.WithConcurrency(concurrency),
		outdated.WithShowNotFound(outdatedShowNotFound),
		outdated.WithLeap(outdatedLeap),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize checker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	summary, err := checker.Run(ctx)
	if err != nil {
		return fmt.Errorf("outdated check failed: %w", err)
	}

	if outdatedSummary {
		printSummary(cmd.ErrOrStderr(), summary, time.Since(start))
	}
	notifyRunResult(logger.Default(), summary, cfg.Username)
	return nil
}

// notifyRunResult prints a closing hint to stderr when nothing was checked or
// some packages failed. It stays silent below the logger's level.
func notifyRunResult(log *logger.Logger, s outdated.Summary, username string) {
	switch {
	case s.Failed > 0 && log.Level() <= logger.LevelWarn:
		output.PrintWarning("%d of %d packages could not be checked", s.Failed, s.Checked)
	case s.Checked == 0 && log.Level() <= logger.LevelInfo:
		output.PrintInfo("No packages maintained by %s were found on OBS", username)
	}
}

// newChecker wires the OBS and Repology clients described by cfg. opts are
// applied after the config-derived ones.
func newChecker(cfg *config.Config, out io.Writer, opts ...outdated.Option) (*outdated.Checker, error) {
	obsHTTP := httpclient.New(httpclient.Options{
		Timeout:    cfg.RequestTimeout(),
		MaxRetries: cfg.Outdated.Retries,
		UserAgent:  version.UserAgent(),
		Username:   cfg.Username,
		Password:   cfg.Password,
	})

	userAgent := cfg.Repology.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	repologyHTTP := httpclient.New(httpclient.Options{
		Timeout:           cfg.RequestTimeout(),
		MaxRetries:        cfg.Outdated.Retries,
		UserAgent:         userAgent,
		RequestsPerSecond: cfg.Repology.RequestsPerSecond,
	})

	registry := obs.NewClient(cfg.OBS.APIURL, cfg.Username, obsHTTP)
	status := repology.NewClient(cfg.Repology.APIURL, cfg.Outdated.StripPrefixes, repologyHTTP)

	base := []outdated.Option{
		outdated.WithConcurrency(cfg.Outdated.Concurrency),
		outdated.WithOutput(out),
		outdated.WithLogger(logger.Default()),
	}

	tablePath, err := cfg.DistributionsPath()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}
	if tablePath != "" {
		table, err := distro.LoadTable(tablePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
		}
		logger.Debug("Loaded distributions table %s (%d releases)", tablePath, len(table))
		base = append(base, outdated.WithTable(table))
	}

	return outdated.NewChecker(registry, status, append(base, opts...)...)
}

// printSummary writes the run counters as a box
func printSummary(w io.Writer, s outdated.Summary, elapsed time.Duration) {
	count := func(n int, c *color.Color) string {
		return output.Sprintf(output.CountColor(n, c), "%d", n)
	}

	output.Box(w, "Summary",
		fmt.Sprintf("Checked:   %d", s.Checked),
		fmt.Sprintf("Outdated:  %s", count(s.Reported, output.Warning)),
		fmt.Sprintf("Not found: %s", count(s.NotFound, output.Info)),
		fmt.Sprintf("Failed:    %s", count(s.Failed, output.Error)),
		fmt.Sprintf("Elapsed:   %s", elapsed.Round(time.Millisecond)),
	)
}
