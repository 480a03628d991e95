// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// RepositoryInfo is the subset of repository metadata read from a single
// repository lookup.
type RepositoryInfo struct {
	Name       string
	Stars      int
	Forks      int
	OpenIssues int
	CreatedAt  time.Time
}

// CommitHistory describes the default branch history.
type CommitHistory struct {
	TotalCount int
	// LatestAuthorDate is nil when the history is empty.
	LatestAuthorDate *time.Time
}

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	FetchRepository(ctx context.Context, owner, repo string) (*RepositoryInfo, error)
	FetchCommitHistory(ctx context.Context, owner, repo string) (*CommitHistory, error)
	CountContributors(ctx context.Context, owner, repo string) (int, error)
	CountClosedIssues(ctx context.Context, owner, repo string) (int, error)
	// FetchLicense returns the SPDX identifier, or "" when the repository has no license.
	FetchLicense(ctx context.Context, owner, repo string) (string, error)
}

// Config carries the transport settings of a GitHubGateway.
type Config struct {
	Token string
	// BaseURL points the REST client at a GitHub Enterprise Server, e.g.
	// "https://ghe.example.com/api/v3/". Empty means api.github.com.
	BaseURL string
	// GraphQLURL is the GraphQL endpoint matching BaseURL. Empty means api.github.com.
	GraphQLURL string
	// WaitOnRateLimit sleeps through secondary rate limits instead of failing.
	WaitOnRateLimit bool
	// Timeout bounds each HTTP attempt, excluding time spent waiting on a
	// rate limit. Zero means no timeout.
	Timeout time.Duration
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// commitHistoryQuery reads the size and head of the default branch history.
// An empty repository has no default branch.
type commitHistoryQuery struct {
	Repository struct {
		DefaultBranchRef *struct {
			Target struct {
				Commit struct {
					History struct {
						TotalCount int
						Nodes      []struct {
							Author struct {
								Date githubv4.GitTimestamp
							}
						}
					} `graphql:"history(first: 1)"`
				} `graphql:"... on Commit"`
			}
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(cfg Config, logger *log.Logger) (*GitHubGateway, error) {
	// The timeout bounds each attempt below the waiter, so sleeping through a
	// secondary rate limit is not cut short by it.
	var base http.RoundTripper = &timeoutTransport{base: http.DefaultTransport, timeout: cfg.Timeout}
	if cfg.WaitOnRateLimit {
		rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(base, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
		}
		base = rateLimitWaiter
	}
	httpClient := &http.Client{Transport: base}
	if cfg.Token != "" {
		httpClient.Transport = &oauth2.Transport{
			Base:   base,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
		}
	}

	restClient := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		var err error
		restClient, err = restClient.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
		}
	}
	graphqlClient := githubv4.NewClient(httpClient)
	if cfg.GraphQLURL != "" {
		graphqlClient = githubv4.NewEnterpriseClient(cfg.GraphQLURL, httpClient)
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
	}, nil
}

func (g *GitHubGateway) FetchRepository(ctx context.Context, owner, repo string) (*RepositoryInfo, error) {
	g.logger.Printf("[1/5] Fetching repository metadata for %s/%s...", owner, repo)
	r, _, err := g.restClient.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", classify(err))
	}
	return &RepositoryInfo{
		Name:       r.GetName(),
		Stars:      r.GetStargazersCount(),
		Forks:      r.GetForksCount(),
		OpenIssues: r.GetOpenIssuesCount(),
		CreatedAt:  r.GetCreatedAt().Time,
	}, nil
}

func (g *GitHubGateway) FetchCommitHistory(ctx context.Context, owner, repo string) (*CommitHistory, error) {
	g.logger.Printf("[2/5] Fetching commit history for %s/%s using GraphQL API...", owner, repo)
	variables := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(repo),
	}
	var q commitHistoryQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for commit history: %w", classifyGraphQL(err))
	}

	result := &CommitHistory{}
	if q.Repository.DefaultBranchRef == nil {
		g.logger.Printf("  %s/%s has no default branch; treating history as empty.", owner, repo)
		return result, nil
	}
	history := q.Repository.DefaultBranchRef.Target.Commit.History
	result.TotalCount = history.TotalCount
	if len(history.Nodes) > 0 && !history.Nodes[0].Author.Date.IsZero() {
		date := history.Nodes[0].Author.Date.Time
		result.LatestAuthorDate = &date
	}
	return result, nil
}

func (g *GitHubGateway) CountContributors(ctx context.Context, owner, repo string) (int, error) {
	g.logger.Printf("[3/5] Counting contributors for %s/%s...", owner, repo)
	opts := &github.ListContributorsOptions{ListOptions: github.ListOptions{PerPage: 1}}
	contributors, resp, err := g.restClient.Repositories.ListContributors(ctx, owner, repo, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to list contributors: %w", classify(err))
	}
	return countFromPage(resp, len(contributors)), nil
}

func (g *GitHubGateway) CountClosedIssues(ctx context.Context, owner, repo string) (int, error) {
	g.logger.Printf("[4/5] Counting closed issues for %s/%s...", owner, repo)
	opts := &github.IssueListByRepoOptions{
		State:       "closed",
		ListOptions: github.ListOptions{PerPage: 1},
	}
	issues, resp, err := g.restClient.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to list closed issues: %w", classify(err))
	}
	return countFromPage(resp, len(issues)), nil
}

func (g *GitHubGateway) FetchLicense(ctx context.Context, owner, repo string) (string, error) {
	g.logger.Printf("[5/5] Fetching license for %s/%s...", owner, repo)
	license, resp, err := g.restClient.Repositories.License(ctx, owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			g.logger.Printf("  No license detected for %s/%s.", owner, repo)
			return "", nil
		}
		return "", fmt.Errorf("failed to get license: %w", classify(err))
	}
	return license.GetLicense().GetSPDXID(), nil
}

// countFromPage turns a one-item-per-page listing into a total count. GitHub
// only sends a last-page link when there is more than one page, in which case
// the last page number is the item count.
func countFromPage(resp *github.Response, itemsOnPage int) int {
	if resp != nil && resp.LastPage > 0 {
		return resp.LastPage
	}
	return itemsOnPage
}
