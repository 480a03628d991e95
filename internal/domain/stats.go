// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// DateLayout is the calendar date format used for every date field.
const DateLayout = "2006-01-02"

// RepoStats holds the metadata snapshot of a single repository.
// It is the core domain entity of this application and one row of a Table.
type RepoStats struct {
	Name         string `json:"name"`
	Stars        int    `json:"stars"`
	Forks        int    `json:"forks"`
	Contributors int    `json:"contributors"`
	Commits      int    `json:"commits"`
	OpenIssues   int    `json:"open_issues"`
	ClosedIssues int    `json:"closed_issues"`
	Created      string `json:"created"`
	// LastCommit is empty when the repository has no commits.
	LastCommit string `json:"last_commit"`
	// License is the SPDX identifier, empty when the platform reports none.
	License string `json:"license"`
}

// FormatDate renders t as a UTC calendar date. A nil or zero time renders as "".
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
