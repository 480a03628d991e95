// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"log"

	"github.com/naka-gawa/repo-compare/internal/domain"
	"github.com/naka-gawa/repo-compare/internal/gateway"
)

// StatsCollector fetches the stats of a single repository.
type StatsCollector interface {
	Collect(ctx context.Context, repo string) (*domain.RepoStats, error)
}

// Collector is the use case for fetching the stats of one repository.
// It maps the gateway's read-only lookups into a single RepoStats record.
type Collector struct {
	fetcher gateway.Fetcher
	logger  *log.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, logger *log.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect fetches the stats of repo, given as "owner/repo".
// A repository without commits yields Commits == 0 and an empty LastCommit.
// A repository without a license yields an empty License.
// Every error is a *domain.FetchError naming repo.
func (c *Collector) Collect(ctx context.Context, repo string) (*domain.RepoStats, error) {
	id, err := domain.ParseRepoID(repo)
	if err != nil {
		return nil, &domain.FetchError{Repo: repo, Err: err}
	}
	c.logger.Printf("Usecase: Collecting stats for %s...", id)

	info, err := c.fetcher.FetchRepository(ctx, id.Owner, id.Name)
	if err != nil {
		return nil, &domain.FetchError{Repo: repo, Err: err}
	}
	history, err := c.fetcher.FetchCommitHistory(ctx, id.Owner, id.Name)
	if err != nil {
		return nil, &domain.FetchError{Repo: repo, Err: err}
	}
	contributors, err := c.fetcher.CountContributors(ctx, id.Owner, id.Name)
	if err != nil {
		return nil, &domain.FetchError{Repo: repo, Err: err}
	}
	closedIssues, err := c.fetcher.CountClosedIssues(ctx, id.Owner, id.Name)
	if err != nil {
		return nil, &domain.FetchError{Repo: repo, Err: err}
	}
	license, err := c.fetcher.FetchLicense(ctx, id.Owner, id.Name)
	if err != nil {
		return nil, &domain.FetchError{Repo: repo, Err: err}
	}

	created := info.CreatedAt
	stats := &domain.RepoStats{
		Name:         info.Name,
		Stars:        info.Stars,
		Forks:        info.Forks,
		Contributors: contributors,
		Commits:      history.TotalCount,
		OpenIssues:   info.OpenIssues,
		ClosedIssues: closedIssues,
		Created:      domain.FormatDate(&created),
		LastCommit:   domain.FormatDate(history.LatestAuthorDate),
		License:      license,
	}
	c.logger.Printf("Usecase: Collected stats for %s.", id)
	return stats, nil
}
