package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v62/github"

	"github.com/naka-gawa/repo-compare/internal/domain"
)

// graphqlStatusPattern matches the status line the GraphQL client embeds in
// errors for non-200 responses.
var graphqlStatusPattern = regexp.MustCompile(`non-200 OK status code: (\d{3})`)

// classify tags a REST client error with its domain error kind. Errors that
// fit no kind, including caller cancellation, are returned unchanged.
func classify(err error) error {
	var rateLimitErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.As(err, &rateLimitErr), errors.As(err, &abuseErr):
		return fmt.Errorf("%w: %w", domain.ErrAuthOrQuota, err)
	case errors.As(err, &respErr) && respErr.Response != nil:
		return withStatus(respErr.Response.StatusCode, err)
	default:
		return classifyTransport(err)
	}
}

// classifyGraphQL does the same for the GraphQL client, which reports
// failures as plain error strings.
func classifyGraphQL(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	msg := err.Error()
	if m := graphqlStatusPattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		return withStatus(code, err)
	}
	switch {
	case strings.Contains(msg, "Could not resolve to a Repository"):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case strings.Contains(strings.ToLower(msg), "rate limit"):
		return fmt.Errorf("%w: %w", domain.ErrAuthOrQuota, err)
	}
	return classifyTransport(err)
}

func withStatus(code int, err error) error {
	switch {
	case code == http.StatusNotFound, code == http.StatusUnavailableForLegalReasons:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrAuthOrQuota, err)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	default:
		return err
	}
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}
