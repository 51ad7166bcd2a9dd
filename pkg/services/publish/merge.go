package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/de-tools/review-gate/pkg/models/domain"
	"github.com/de-tools/review-gate/pkg/store/gh"
)

// MergeAPI is the slice of the GitHub client merge execution needs.
type MergeAPI interface {
	ApprovePullRequest(ctx context.Context, target domain.Target, body string) error
	MergePullRequest(ctx context.Context, target domain.Target, message string) (*domain.MergeResult, error)
	DeleteBranch(ctx context.Context, target domain.Target, branch string) error
}

// MergeOutcome reports what the executor did. Held means the remote refused
// the merge and the run downgraded to a hold instead of failing.
type MergeOutcome struct {
	Merged bool
	SHA    string
	Held   bool
	Reason string
}

type Merger interface {
	Execute(ctx context.Context, target domain.Target, pr *domain.PullRequestContext, body string) (*MergeOutcome, error)
}

type DefaultMerger struct {
	api MergeAPI
}

func NewMerger(api MergeAPI) *DefaultMerger {
	return &DefaultMerger{api: api}
}

// Execute approves the pull request, merges it, and deletes the head branch
// when it lives in the same repository. Branch deletion is cleanup and never
// fails the run. A conflict or not-mergeable response from the remote comes
// back as a held outcome, not an error.
func (m *DefaultMerger) Execute(ctx context.Context, target domain.Target, pr *domain.PullRequestContext, body string) (*MergeOutcome, error) {
	logger := zerolog.Ctx(ctx)

	if pr != nil && pr.Merged {
		logger.Info().Msg("pull request already merged, skipping approval and merge")
		return &MergeOutcome{Merged: true, Reason: "already merged"}, nil
	}

	if err := m.api.ApprovePullRequest(ctx, target, body); err != nil {
		if reason, refused := mergeRefusal(err); refused {
			logger.Warn().Str("reason", reason).Msg("approval refused by remote, holding")
			return &MergeOutcome{Held: true, Reason: reason}, nil
		}
		return nil, fmt.Errorf("approve pull request: %w", err)
	}
	logger.Info().Msg("approval review created")

	result, err := m.api.MergePullRequest(ctx, target, "")
	if err != nil {
		if reason, refused := mergeRefusal(err); refused {
			logger.Warn().Str("reason", reason).Msg("merge refused by remote, holding")
			return &MergeOutcome{Held: true, Reason: reason}, nil
		}
		return nil, fmt.Errorf("merge pull request: %w", err)
	}
	if !result.Merged {
		reason := result.Message
		if reason == "" {
			reason = "merge was not performed"
		}
		logger.Warn().Str("reason", reason).Msg("remote reported merge not performed, holding")
		return &MergeOutcome{Held: true, Reason: reason}, nil
	}
	logger.Info().Str("sha", result.SHA).Msg("pull request merged")

	switch {
	case pr == nil || pr.Branch == "":
	case !pr.SameRepo:
		logger.Debug().Msg("head branch lives in a fork, not deleting")
	default:
		if err := m.api.DeleteBranch(ctx, target, pr.Branch); err != nil {
			logger.Warn().Err(err).Str("branch", pr.Branch).Msg("failed to delete branch after merge")
		} else {
			logger.Info().Str("branch", pr.Branch).Msg("deleted merged branch")
		}
	}

	return &MergeOutcome{Merged: true, SHA: result.SHA, Reason: "merged"}, nil
}

// mergeRefusal recognizes responses that mean the pull request cannot be
// merged right now: 405 not mergeable, 409 head moved.
func mergeRefusal(err error) (string, bool) {
	var apiErr *gh.APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	switch apiErr.Status {
	case http.StatusMethodNotAllowed, http.StatusConflict:
		return apiErr.RemoteMessage(), true
	}
	return "", false
}
