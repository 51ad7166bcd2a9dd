// Package publish applies a derived review to the pull request: the upserted
// status comment, the managed label set, and the optional approve-and-merge.
package publish

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

// CommentAPI is the slice of the GitHub client the comment publisher needs.
type CommentAPI interface {
	CreateComment(ctx context.Context, target domain.Target, body string) (int64, error)
	UpdateComment(ctx context.Context, target domain.Target, id int64, body string) error
}

type CommentAction string

const (
	CommentCreated   CommentAction = "created"
	CommentUpdated   CommentAction = "updated"
	CommentUnchanged CommentAction = "unchanged"
)

type CommentResult struct {
	Action CommentAction
	ID     int64
}

type Commenter interface {
	Publish(ctx context.Context, target domain.Target, existing []domain.Comment, body string) (*CommentResult, error)
}

type DefaultCommenter struct {
	api CommentAPI
}

func NewCommenter(api CommentAPI) *DefaultCommenter {
	return &DefaultCommenter{api: api}
}

// Publish upserts the marker-keyed review comment. When marked comments
// already exist the earliest one is edited in place so its permalink keeps
// working; the rest are left alone. A body that already matches is not
// rewritten.
func (c *DefaultCommenter) Publish(ctx context.Context, target domain.Target, existing []domain.Comment, body string) (*CommentResult, error) {
	logger := zerolog.Ctx(ctx)

	var marked []domain.Comment
	for _, comment := range existing {
		if strings.Contains(comment.Body, domain.CommentMarker) {
			marked = append(marked, comment)
		}
	}

	if len(marked) == 0 {
		id, err := c.api.CreateComment(ctx, target, body)
		if err != nil {
			return nil, err
		}
		logger.Info().Int64("comment_id", id).Msg("created review comment")
		return &CommentResult{Action: CommentCreated, ID: id}, nil
	}

	sort.SliceStable(marked, func(i, j int) bool {
		if marked[i].CreatedAt.Equal(marked[j].CreatedAt) {
			return marked[i].ID < marked[j].ID
		}
		return marked[i].CreatedAt.Before(marked[j].CreatedAt)
	})
	oldest := marked[0]

	if len(marked) > 1 {
		logger.Warn().Int("count", len(marked)).Msg("multiple marked comments found, updating the earliest")
	}

	if oldest.Body == body {
		logger.Info().Int64("comment_id", oldest.ID).Msg("review comment already up to date")
		return &CommentResult{Action: CommentUnchanged, ID: oldest.ID}, nil
	}

	if err := c.api.UpdateComment(ctx, target, oldest.ID, body); err != nil {
		return nil, err
	}
	logger.Info().Int64("comment_id", oldest.ID).Msg("updated review comment")
	return &CommentResult{Action: CommentUpdated, ID: oldest.ID}, nil
}
