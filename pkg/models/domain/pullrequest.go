package domain

import "time"

// Comment is an issue comment already present on the pull request.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// PullRequestContext is the remote state snapshot read at the start of a run.
// It may be stale by the time a write lands; every write is designed to be
// safely re-run rather than assume freshness.
type PullRequestContext struct {
	Number   int
	Branch   string
	Author   string
	BaseSHA  string
	HeadSHA  string
	Merged   bool
	SameRepo bool
	Comments []Comment
	Labels   []string
}

// Target identifies the pull request a run operates on.
type Target struct {
	Owner  string
	Repo   string
	Number int
}

// Repository returns the owner/name form used in log lines and reports.
func (t Target) Repository() string {
	return t.Owner + "/" + t.Repo
}

// MergeResult reports what the remote said about a merge attempt.
type MergeResult struct {
	Merged  bool
	SHA     string
	Message string
}
