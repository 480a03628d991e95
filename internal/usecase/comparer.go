package usecase

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/naka-gawa/repo-compare/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Options controls how a Comparer assembles its table.
type Options struct {
	// PartialOK keeps the rows that succeeded when some repositories fail.
	// When false, the first failure aborts the whole comparison.
	PartialOK bool
	// Concurrency is the number of repositories fetched at once.
	// Values below 2 fetch sequentially. Results and the reported failure
	// do not depend on it.
	Concurrency int
}

// Result is the outcome of collecting one repository.
type Result struct {
	Repo  string
	Stats *domain.RepoStats
	Err   error
}

// Comparer is the use case for comparing several repositories.
// It orchestrates one collection per repository and assembles the table.
type Comparer struct {
	collector StatsCollector
	opts      Options
	logger    *log.Logger
}

// NewComparer creates a new Comparer instance.
func NewComparer(collector StatsCollector, opts Options, logger *log.Logger) *Comparer {
	return &Comparer{
		collector: collector,
		opts:      opts,
		logger:    logger,
	}
}

// Collect fetches every repository and reports one Result per input, in input order.
// A failing repository never stops the others; a done ctx stops new fetches.
func (c *Comparer) Collect(ctx context.Context, repos []string) []Result {
	results := make([]Result, len(repos))
	err := c.forEach(ctx, len(repos), func(ctx context.Context, i int) {
		stats, err := c.collector.Collect(ctx, repos[i])
		results[i] = Result{Repo: repos[i], Stats: stats, Err: err}
	})
	if err != nil {
		// Inputs never started carry the cancellation.
		for i, r := range results {
			if r.Stats == nil && r.Err == nil {
				results[i] = Result{Repo: repos[i], Err: err}
			}
		}
	}
	return results
}

// Compare fetches every repository and assembles a table with one row per
// input, in input order.
//
// Without PartialOK the failure of the earliest failing input is returned and
// no table is built, whatever the concurrency.
// With PartialOK the table holds the rows that succeeded and the error joins
// every failure; it is nil only when all repositories succeeded.
func (c *Comparer) Compare(ctx context.Context, repos []string) (*domain.Table, error) {
	c.logger.Printf("Usecase: Starting comparison of %d repositories...", len(repos))

	if c.opts.PartialOK {
		rows := make([]domain.RepoStats, 0, len(repos))
		var errs []error
		for _, r := range c.Collect(ctx, repos) {
			if r.Err != nil {
				c.logger.Printf("Usecase: Skipping %s: %v", r.Repo, r.Err)
				errs = append(errs, r.Err)
				continue
			}
			rows = append(rows, *r.Stats)
		}
		c.logger.Printf("Usecase: Comparison complete (%d ok, %d failed).", len(rows), len(errs))
		return domain.NewTable(rows), errors.Join(errs...)
	}

	rows := make([]domain.RepoStats, len(repos))
	var (
		mu        sync.Mutex
		failedAt  = len(repos)
		failedErr error
	)
	err := c.forEach(ctx, len(repos), func(ctx context.Context, i int) {
		// Inputs after a known failure are skipped; earlier ones still run so
		// the earliest failure is the one reported.
		mu.Lock()
		skip := failedAt < i
		mu.Unlock()
		if skip {
			return
		}
		stats, err := c.collector.Collect(ctx, repos[i])
		if err != nil {
			mu.Lock()
			if i < failedAt {
				failedAt, failedErr = i, err
			}
			mu.Unlock()
			return
		}
		rows[i] = *stats
	})
	if failedErr != nil {
		return nil, failedErr
	}
	if err != nil {
		return nil, err
	}
	c.logger.Println("Usecase: Comparison complete.")
	return domain.NewTable(rows), nil
}

// forEach calls fn for every index below n, sequentially or through an
// errgroup bounded by Options.Concurrency. Once ctx is done no further index
// is started and ctx's error is returned.
func (c *Comparer) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if c.opts.Concurrency < 2 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, i)
		}
		return nil
	}

	var eg errgroup.Group
	eg.SetLimit(c.opts.Concurrency)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, i)
			return nil
		})
	}
	return eg.Wait()
}
