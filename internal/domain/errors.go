package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Gateway and usecase errors wrap exactly one of these so callers
// can branch with errors.Is.
var (
	ErrNotFound    = errors.New("repository not found or inaccessible")
	ErrTransient   = errors.New("transient fetch failure")
	ErrAuthOrQuota = errors.New("credentials rejected or quota exhausted")
	ErrInvalidRepo = errors.New("invalid repository identifier")
)

// FetchError reports which repository identifier a failure belongs to.
type FetchError struct {
	Repo string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Repo, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf names the error kind of err for user-facing messages.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthOrQuota):
		return "auth_or_quota"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrInvalidRepo):
		return "invalid_repo"
	default:
		return "unknown"
	}
}
