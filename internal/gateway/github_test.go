package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-compare/internal/domain"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
// REST calls are served from the root of the mux and GraphQL calls from /graphql.
func setupTestGateway(t *testing.T, mux *http.ServeMux) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(mux)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	graphqlClient := githubv4.NewEnterpriseClient(server.URL+"/graphql", server.Client())
	logger := log.New(io.Discard, "", 0)

	gateway := &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
	}

	return gateway, server
}

func TestGitHubGateway_FetchRepository(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		headers     map[string]string
		body        string
		expected    *RepositoryInfo
		expectedErr error
	}{
		{
			name:   "happy path - maps repository metadata",
			status: http.StatusOK,
			body: `{"name":"repo-a","full_name":"org/repo-a","stargazers_count":120,"forks_count":7,
				"open_issues_count":3,"created_at":"2019-04-05T06:07:08Z"}`,
			expected: &RepositoryInfo{
				Name:       "repo-a",
				Stars:      120,
				Forks:      7,
				OpenIssues: 3,
				CreatedAt:  time.Date(2019, 4, 5, 6, 7, 8, 0, time.UTC),
			},
		},
		{
			name:        "error case - repository does not exist",
			status:      http.StatusNotFound,
			body:        `{"message":"Not Found"}`,
			expectedErr: domain.ErrNotFound,
		},
		{
			name:        "error case - bad credentials",
			status:      http.StatusUnauthorized,
			body:        `{"message":"Bad credentials"}`,
			expectedErr: domain.ErrAuthOrQuota,
		},
		{
			name:   "error case - primary rate limit exhausted",
			status: http.StatusForbidden,
			headers: map[string]string{
				"X-RateLimit-Limit":     "60",
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     fmt.Sprint(time.Now().Add(time.Hour).Unix()),
			},
			body:        `{"message":"API rate limit exceeded"}`,
			expectedErr: domain.ErrAuthOrQuota,
		},
		{
			name:        "error case - server error",
			status:      http.StatusBadGateway,
			body:        `{"message":"Server Error"}`,
			expectedErr: domain.ErrTransient,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/org/repo-a", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				for k, v := range tc.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})
			gateway, server := setupTestGateway(t, mux)
			defer server.Close()

			info, err := gateway.FetchRepository(context.Background(), "org", "repo-a")
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Contains(t, err.Error(), "failed to get repository")
				assert.Nil(t, info)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, info)
			}
		})
	}
}

func TestGitHubGateway_FetchRepository_Unreachable(t *testing.T) {
	gateway, server := setupTestGateway(t, http.NewServeMux())
	server.Close()

	_, err := gateway.FetchRepository(context.Background(), "org", "repo-a")
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestGitHubGateway_FetchCommitHistory(t *testing.T) {
	latest := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	testCases := []struct {
		name         string
		status       int
		responseBody string
		expected     *CommitHistory
		expectedErr  error
	}{
		{
			name:   "happy path - count and newest author date",
			status: http.StatusOK,
			// Inline fragments are flattened in the response, as the library expects.
			responseBody: `{"data":{"repository":{"defaultBranchRef":{"target":{"history":{"totalCount":42,"nodes":[{"author":{"date":"2024-03-04T10:00:00Z"}}]}}}}}}`,
			expected:     &CommitHistory{TotalCount: 42, LatestAuthorDate: &latest},
		},
		{
			name:         "empty repository - no default branch",
			status:       http.StatusOK,
			responseBody: `{"data":{"repository":{"defaultBranchRef":null}}}`,
			expected:     &CommitHistory{},
		},
		{
			name:         "error case - repository cannot be resolved",
			status:       http.StatusOK,
			responseBody: `{"data":null,"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a Repository with the name 'org/repo-a'."}]}`,
			expectedErr:  domain.ErrNotFound,
		},
		{
			name:         "error case - bad credentials",
			status:       http.StatusUnauthorized,
			responseBody: `{"message":"Bad credentials"}`,
			expectedErr:  domain.ErrAuthOrQuota,
		},
		{
			name:         "error case - server error",
			status:       http.StatusInternalServerError,
			responseBody: `{"message":"Server Error"}`,
			expectedErr:  domain.ErrTransient,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)

				// Inspect the raw body: the query and both variables must be sent.
				assert.Contains(t, string(body), "history(first: 1)")
				assert.Contains(t, string(body), `"owner":"org"`)
				assert.Contains(t, string(body), `"name":"repo-a"`)

				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.responseBody)
			})
			gateway, server := setupTestGateway(t, mux)
			defer server.Close()

			history, err := gateway.FetchCommitHistory(context.Background(), "org", "repo-a")
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Contains(t, err.Error(), "failed to execute GraphQL query")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, history)
			}
		})
	}
}

// TestGitHubGateway_Counts covers the listings that are counted from the pagination links.
func TestGitHubGateway_Counts(t *testing.T) {
	testCases := []struct {
		name          string
		path          string
		methodToTest  func(gateway *GitHubGateway) (int, error)
		expectedQuery url.Values
		linkHeader    string
		status        int
		responseBody  string
		expected      int
		expectedErr   error
	}{
		{
			name: "CountContributors - many pages",
			path: "/repos/org/repo-a/contributors",
			methodToTest: func(gateway *GitHubGateway) (int, error) {
				return gateway.CountContributors(context.Background(), "org", "repo-a")
			},
			expectedQuery: url.Values{"per_page": {"1"}},
			linkHeader:    `<https://api.github.com/repositories/1/contributors?per_page=1&page=2>; rel="next", <https://api.github.com/repositories/1/contributors?per_page=1&page=37>; rel="last"`,
			status:        http.StatusOK,
			responseBody:  `[{"login":"octocat","contributions":10}]`,
			expected:      37,
		},
		{
			name: "CountContributors - single page",
			path: "/repos/org/repo-a/contributors",
			methodToTest: func(gateway *GitHubGateway) (int, error) {
				return gateway.CountContributors(context.Background(), "org", "repo-a")
			},
			expectedQuery: url.Values{"per_page": {"1"}},
			status:        http.StatusOK,
			responseBody:  `[{"login":"octocat","contributions":10}]`,
			expected:      1,
		},
		{
			name: "CountContributors - empty repository",
			path: "/repos/org/repo-a/contributors",
			methodToTest: func(gateway *GitHubGateway) (int, error) {
				return gateway.CountContributors(context.Background(), "org", "repo-a")
			},
			expectedQuery: url.Values{"per_page": {"1"}},
			status:        http.StatusNoContent,
			expected:      0,
		},
		{
			name: "CountClosedIssues - many pages",
			path: "/repos/org/repo-a/issues",
			methodToTest: func(gateway *GitHubGateway) (int, error) {
				return gateway.CountClosedIssues(context.Background(), "org", "repo-a")
			},
			expectedQuery: url.Values{"per_page": {"1"}, "state": {"closed"}},
			linkHeader:    `<https://api.github.com/repositories/1/issues?state=closed&per_page=1&page=2>; rel="next", <https://api.github.com/repositories/1/issues?state=closed&per_page=1&page=512>; rel="last"`,
			status:        http.StatusOK,
			responseBody:  `[{"number":1,"state":"closed"}]`,
			expected:      512,
		},
		{
			name: "CountClosedIssues - none closed",
			path: "/repos/org/repo-a/issues",
			methodToTest: func(gateway *GitHubGateway) (int, error) {
				return gateway.CountClosedIssues(context.Background(), "org", "repo-a")
			},
			expectedQuery: url.Values{"per_page": {"1"}, "state": {"closed"}},
			status:        http.StatusOK,
			responseBody:  `[]`,
			expected:      0,
		},
		{
			name: "CountClosedIssues - error case",
			path: "/repos/org/repo-a/issues",
			methodToTest: func(gateway *GitHubGateway) (int, error) {
				return gateway.CountClosedIssues(context.Background(), "org", "repo-a")
			},
			expectedQuery: url.Values{"per_page": {"1"}, "state": {"closed"}},
			status:        http.StatusServiceUnavailable,
			responseBody:  `{"message":"Service Unavailable"}`,
			expectedErr:   domain.ErrTransient,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc(tc.path, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.expectedQuery {
					assert.Equal(t, v, r.URL.Query()[k], "query parameter %s", k)
				}
				if tc.linkHeader != "" {
					w.Header().Set("Link", tc.linkHeader)
				}
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.responseBody)
			})
			gateway, server := setupTestGateway(t, mux)
			defer server.Close()

			count, err := tc.methodToTest(gateway)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, count)
			}
		})
	}
}

func TestGitHubGateway_FetchLicense(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expected    string
		expectedErr error
	}{
		{
			name:     "happy path - returns the SPDX identifier",
			status:   http.StatusOK,
			body:     `{"name":"LICENSE","path":"LICENSE","license":{"key":"apache-2.0","name":"Apache License 2.0","spdx_id":"Apache-2.0"}}`,
			expected: "Apache-2.0",
		},
		{
			name:     "no license - absent rather than an error",
			status:   http.StatusNotFound,
			body:     `{"message":"Not Found"}`,
			expected: "",
		},
		{
			name:        "error case - rate limited",
			status:      http.StatusTooManyRequests,
			body:        `{"message":"Too Many Requests"}`,
			expectedErr: domain.ErrAuthOrQuota,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/org/repo-a/license", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})
			gateway, server := setupTestGateway(t, mux)
			defer server.Close()

			license, err := gateway.FetchLicense(context.Background(), "org", "repo-a")
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Contains(t, err.Error(), "failed to get license")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, license)
			}
		})
	}
}

func TestNewGitHubGateway(t *testing.T) {
	t.Run("sends the token and honours enterprise urls", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/v3/repos/org/repo-a", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"name":"repo-a"}`)
		})
		mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"data":{"repository":{"defaultBranchRef":null}}}`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		gateway, err := NewGitHubGateway(Config{
			Token:           "secret-token",
			BaseURL:         server.URL + "/api/v3/",
			GraphQLURL:      server.URL + "/api/graphql",
			WaitOnRateLimit: true,
			Timeout:         5 * time.Second,
		}, log.New(io.Discard, "", 0))
		require.NoError(t, err)

		info, err := gateway.FetchRepository(context.Background(), "org", "repo-a")
		require.NoError(t, err)
		assert.Equal(t, "repo-a", info.Name)

		history, err := gateway.FetchCommitHistory(context.Background(), "org", "repo-a")
		require.NoError(t, err)
		assert.Equal(t, &CommitHistory{}, history)
	})

	t.Run("rejects an invalid base url", func(t *testing.T) {
		_, err := NewGitHubGateway(Config{BaseURL: "://bad"}, log.New(io.Discard, "", 0))
		assert.Error(t, err)
	})
}

func TestNewGitHubGateway_WaitOnRateLimit(t *testing.T) {
	// The secondary limit asks for a longer wait than the per-request timeout allows.
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo-a", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"You have exceeded a secondary rate limit. Please wait a few minutes before you try again.","documentation_url":"https://docs.github.com/rest/overview/resources-in-the-rest-api#secondary-rate-limits"}`)
			return
		}
		fmt.Fprint(w, `{"name":"repo-a","stargazers_count":5}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gateway, err := NewGitHubGateway(Config{
		Token:           "secret-token",
		BaseURL:         server.URL + "/api/v3/",
		WaitOnRateLimit: true,
		Timeout:         300 * time.Millisecond,
	}, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	info, err := gateway.FetchRepository(context.Background(), "org", "repo-a")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 5, info.Stars)
}

func TestNewGitHubGateway_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gateway, err := NewGitHubGateway(Config{
		BaseURL:         server.URL + "/api/v3/",
		WaitOnRateLimit: true,
		Timeout:         50 * time.Millisecond,
	}, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	_, err = gateway.FetchRepository(context.Background(), "org", "slow")
	assert.ErrorIs(t, err, domain.ErrTransient)
}
