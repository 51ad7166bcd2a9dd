package domain

import "strings"

// CommentMarker is the hidden idempotency token embedded in every published
// comment body. The publisher uses it to find and update prior output instead
// of posting duplicates, so it must stay stable across releases.
const CommentMarker = "<!-- review-gate:review -->"

// managedPrefixes is the label namespace this tool owns and reconciles.
// Labels outside it are never created, assigned, or removed.
var managedPrefixes = []string{"risk:", "update:", "change:"}

// ManagedLabel reports whether a label name belongs to the managed namespace.
func ManagedLabel(name string) bool {
	for _, p := range managedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Label is a repository label the pipeline wants present on the pull request.
type Label struct {
	Name        string
	Color       string
	Description string
}

// DerivedState is everything computed from a validated document plus repo
// configuration: display ordering, the managed label set, and the counts the
// summary framing uses. It is never persisted.
type DerivedState struct {
	Approved    bool
	OverallRisk RiskLevel
	Headline    string
	Summary     string

	// Findings in display order: risk severity descending, original order
	// preserved on ties.
	Findings []Finding

	// Blocking counts non-cosmetic findings; cosmetic ones render but never
	// influence policy or summary framing.
	Blocking int

	// Labels is the derived managed-namespace set, deduplicated by name.
	Labels []Label
}
