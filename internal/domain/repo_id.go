package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// namePattern is the character set GitHub allows in owner and repository names.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// RepoID identifies a repository as owner/name.
type RepoID struct {
	Owner string
	Name  string
}

func (id RepoID) String() string {
	return id.Owner + "/" + id.Name
}

// ParseRepoID parses "owner/repo". A leading "https://github.com/" and a
// trailing ".git" are tolerated so clone URLs can be pasted as-is.
func ParseRepoID(s string) (RepoID, error) {
	trimmed := strings.TrimSpace(s)
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/"} {
		trimmed = strings.TrimPrefix(trimmed, prefix)
	}
	trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, "/"), ".git")

	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || !validName(parts[0]) || !validName(parts[1]) {
		return RepoID{}, fmt.Errorf("%w: %q (want owner/repo)", ErrInvalidRepo, s)
	}
	return RepoID{Owner: parts[0], Name: parts[1]}, nil
}

// validName rejects empty names, dot segments and URL metacharacters, any of
// which would make the request path point somewhere else.
func validName(name string) bool {
	return name != "." && name != ".." && namePattern.MatchString(name)
}
