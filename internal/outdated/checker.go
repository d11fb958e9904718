package outdated

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/obentoo/osutil/internal/common/logger"
	"github.com/obentoo/osutil/internal/distro"
	"github.com/obentoo/osutil/internal/obs"
	"github.com/obentoo/osutil/internal/repology"
)

// DefaultConcurrency is the number of packages checked at the same time
const DefaultConcurrency = 4

// ErrInvalidOption is returned by NewChecker for an unusable option value
var ErrInvalidOption = errors.New("invalid checker option")

// Registry lists the maintained packages and their branches
type Registry interface {
	ListMaintained(ctx context.Context) ([]string, error)
	ListBranches(ctx context.Context, pkg string) (obs.BranchListing, error)
}

// StatusSource returns the Repology entries of a package
type StatusSource interface {
	Lookup(ctx context.Context, pkg string) ([]repology.Entry, error)
}

// Summary counts the outcomes of one run
type Summary struct {
	Checked  int
	Reported int
	NotFound int
	Failed   int
}

// Checker runs the outdated check over every maintained package
type Checker struct {
	registry     Registry
	status       StatusSource
	concurrency  int
	leap         string
	showNotFound bool
	table        distro.Table
	out          io.Writer
	log          *logger.Logger
}

// Option is a functional option for configuring Checker
type Option func(*Checker) error

// WithConcurrency sets how many packages are checked at once
func WithConcurrency(n int) Option {
	return func(c *Checker) error {
		if n < 1 {
			return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidOption, n)
		}
		c.concurrency = n
		return nil
	}
}

// WithLeap switches to Leap mode for the given release, e.g. "15.4"
func WithLeap(version string) Option {
	return func(c *Checker) error {
		c.leap = version
		return nil
	}
}

// WithShowNotFound prints a notice for packages missing from Tumbleweed
func WithShowNotFound(show bool) Option {
	return func(c *Checker) error {
		c.showNotFound = show
		return nil
	}
}

// WithTable sets the distribution table used in Leap mode
func WithTable(table distro.Table) Option {
	return func(c *Checker) error {
		if table == nil {
			return fmt.Errorf("%w: nil distribution table", ErrInvalidOption)
		}
		c.table = table
		return nil
	}
}

// WithOutput sets where report lines are written
func WithOutput(w io.Writer) Option {
	return func(c *Checker) error {
		c.out = w
		return nil
	}
}

// WithLogger sets the logger receiving per-package failures
func WithLogger(l *logger.Logger) Option {
	return func(c *Checker) error {
		c.log = l
		return nil
	}
}

// NewChecker creates a checker. Without options it runs in plain mode with
// DefaultConcurrency, writing reports to stdout.
func NewChecker(registry Registry, status StatusSource, opts ...Option) (*Checker, error) {
	c := &Checker{
		registry:    registry,
		status:      status,
		concurrency: DefaultConcurrency,
		table:       distro.DefaultTable(),
		out:         os.Stdout,
		log:         logger.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Run lists the maintained packages and checks each one. It fails only when
// the package list cannot be fetched or ctx is cancelled; per-package
// failures are logged and counted in the summary.
func (c *Checker) Run(ctx context.Context) (Summary, error) {
	packages, err := c.registry.ListMaintained(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list maintained packages: %w", err)
	}

	c.log.Debug("Checking %d maintained packages (concurrency %d)", len(packages), c.concurrency)
	if c.leap != "" {
		if _, err := c.table.Lookup(c.leap); err != nil {
			c.log.Warn("Warning: %v (known: %s); outdated candidates will fail",
				err, strings.Join(c.table.Versions(), ", "))
		}
	}

	outcomes := make(chan Outcome)
	done := make(chan Summary, 1)
	go func() {
		done <- c.aggregate(outcomes)
	}()

	// Units never return an error, so a failure cannot cancel its siblings
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, pkg := range packages {
		pkg := pkg
		g.Go(func() error {
			outcomes <- c.check(ctx, pkg)
			return nil
		})
	}
	g.Wait()
	close(outcomes)

	summary := <-done
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// aggregate is the only writer of report output
func (c *Checker) aggregate(outcomes <-chan Outcome) Summary {
	var s Summary
	for o := range outcomes {
		s.Checked++
		switch o.Kind {
		case KindReport:
			s.Reported++
		case KindNotFound:
			s.NotFound++
		case KindError:
			s.Failed++
			c.log.Error("Error: %v", o.Err)
			continue
		}

		if line := o.Line(); line != "" {
			if _, err := fmt.Fprintln(c.out, line); err != nil {
				c.log.Error("Error: failed to write report for %s: %v", o.Package, err)
			}
		}
	}
	return s
}

// check runs one unit of work
func (c *Checker) check(ctx context.Context, pkg string) Outcome {
	entries, err := c.status.Lookup(ctx, pkg)
	if err != nil {
		return failed(pkg, err)
	}

	if c.leap == "" {
		return DecidePlain(pkg, entries, c.showNotFound)
	}

	candidate, ok := DecideLeap(pkg, entries, c.leap)
	if !ok {
		return skip(pkg)
	}

	target, err := c.table.Lookup(c.leap)
	if err != nil {
		return failed(pkg, fmt.Errorf("package %s: %w", pkg, err))
	}

	listing, err := c.registry.ListBranches(ctx, pkg)
	if err != nil {
		return failed(pkg, fmt.Errorf("package %s: %w", pkg, err))
	}
	c.log.Debug("%s: branched in %v", pkg, listing.Projects())

	return DecideLeapBranches(candidate, target, listing.Projects())
}
