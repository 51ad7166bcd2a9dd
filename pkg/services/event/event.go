// Package event resolves the pull request a run targets from the GitHub
// Actions environment: repository and PR number from env vars or the event
// payload, plus the replay and dry-run switches.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

const (
	EnvRepository = "GITHUB_REPOSITORY"
	EnvEventPath  = "GITHUB_EVENT_PATH"
	EnvEventName  = "GITHUB_EVENT_NAME"
	EnvAPIBaseURL = "GITHUB_API_URL"
	EnvToken      = "GITHUB_TOKEN"
	EnvPRNumber   = "REVIEW_PR_NUMBER"
	EnvSkipMerge  = "REVIEW_SKIP_MERGE"
	EnvDryRun     = "DRY_RUN"
)

type Resolver interface {
	ResolveTarget(ctx context.Context, override int) (domain.Target, error)
	SkipMerge() bool
	DryRun() bool
	Token() (string, error)
	APIBaseURL() string
}

type DefaultResolver struct{}

func NewResolver() *DefaultResolver {
	return &DefaultResolver{}
}

// ResolveTarget determines which pull request the run operates on. A positive
// override wins; then REVIEW_PR_NUMBER; then the event payload's number,
// pull_request.number, and workflow_dispatch inputs, in that order.
func (r *DefaultResolver) ResolveTarget(ctx context.Context, override int) (domain.Target, error) {
	repository := strings.TrimSpace(os.Getenv(EnvRepository))
	if repository == "" {
		return domain.Target{}, fmt.Errorf("%s must be set by the workflow", EnvRepository)
	}
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return domain.Target{}, fmt.Errorf("invalid %s value %q", EnvRepository, repository)
	}

	number, err := resolveNumber(override)
	if err != nil {
		return domain.Target{}, err
	}
	if number <= 0 {
		return domain.Target{}, fmt.Errorf("invalid pull request number: %d", number)
	}

	zerolog.Ctx(ctx).Info().
		Str("repository", repository).
		Int("pr_number", number).
		Msg("resolved target pull request")

	return domain.Target{Owner: owner, Repo: repo, Number: number}, nil
}

// SkipMerge reports whether this run is a replay that must leave merge state
// alone: REVIEW_SKIP_MERGE set to 1/true/yes, or a workflow_dispatch event.
func (r *DefaultResolver) SkipMerge() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvSkipMerge))) {
	case "1", "true", "yes":
		return true
	}
	return os.Getenv(EnvEventName) == "workflow_dispatch"
}

func (r *DefaultResolver) DryRun() bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(EnvDryRun))) == "true"
}

func (r *DefaultResolver) Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(EnvToken))
	if token == "" {
		return "", fmt.Errorf("%s must be provided to publish review results", EnvToken)
	}
	return token, nil
}

// APIBaseURL returns the endpoint override Actions sets for GHES installs,
// or empty for the public API.
func (r *DefaultResolver) APIBaseURL() string {
	return strings.TrimSpace(os.Getenv(EnvAPIBaseURL))
}

type eventPayload struct {
	Number      any            `json:"number"`
	PullRequest map[string]any `json:"pull_request"`
	Inputs      map[string]any `json:"inputs"`
}

func resolveNumber(override int) (int, error) {
	if override > 0 {
		return override, nil
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPRNumber)); raw != "" {
		number, ok := parseNumber(raw)
		if !ok {
			return 0, fmt.Errorf("invalid %s: %s", EnvPRNumber, raw)
		}
		return number, nil
	}

	path := strings.TrimSpace(os.Getenv(EnvEventPath))
	if path == "" {
		return 0, fmt.Errorf("pull request number not provided: set %s or %s", EnvPRNumber, EnvEventPath)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("cannot read event file %s: %w", path, err)
	}

	var payload eventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, fmt.Errorf("unable to parse event JSON from %s: %w", path, err)
	}

	if number, ok := parseNumber(payload.Number); ok {
		return number, nil
	}
	if number, ok := parseNumber(payload.PullRequest["number"]); ok {
		return number, nil
	}
	for _, key := range []string{"pr_number", "pr", "pull_request"} {
		if number, ok := parseNumber(payload.Inputs[key]); ok {
			return number, nil
		}
	}

	return 0, fmt.Errorf("could not determine pull request number from event payload")
}

// parseNumber accepts the shapes a PR number arrives in: a JSON number from
// pull_request events or a string from workflow_dispatch inputs.
func parseNumber(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		n := int(v)
		if float64(n) == v {
			return n, true
		}
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
