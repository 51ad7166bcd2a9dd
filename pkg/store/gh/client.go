package gh

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/de-tools/review-gate/pkg/adapters"
	"github.com/de-tools/review-gate/pkg/models/domain"
)

// Settings configures the remote access layer. BaseURL overrides the public
// API endpoint for GitHub Enterprise installs and for tests.
type Settings struct {
	Token   string
	BaseURL string

	// Timeout bounds a single attempt; the retry policy bounds the call.
	Timeout time.Duration
	Retry   RetryPolicy
}

func DefaultSettings() Settings {
	return Settings{
		Timeout: 30 * time.Second,
		Retry:   DefaultRetryPolicy(),
	}
}

// Client wraps every outbound GitHub call with the shared retry policy.
// Retries are invisible to callers except as latency or a final error.
type Client struct {
	gh      *github.Client
	timeout time.Duration
	retry   RetryPolicy
}

func NewClient(settings Settings) (*Client, error) {
	c := github.NewClient(nil)
	if settings.Token != "" {
		c = c.WithAuthToken(settings.Token)
	}
	if settings.BaseURL != "" {
		base, err := url.Parse(settings.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", settings.BaseURL, err)
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		c.BaseURL = base
	}

	retry := settings.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}

	return &Client{
		gh:      c,
		timeout: settings.Timeout,
		retry:   retry,
	}, nil
}

func (c *Client) call(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	return c.retry.run(ctx, c.timeout, endpoint, fn)
}

// GetPullRequest assembles the remote snapshot a run operates on: the pull
// request itself plus its current comments and labels.
func (c *Client) GetPullRequest(ctx context.Context, t domain.Target) (*domain.PullRequestContext, error) {
	var pr *github.PullRequest
	err := c.call(ctx, "get pull request", func(ctx context.Context) error {
		var err error
		pr, _, err = c.gh.PullRequests.Get(ctx, t.Owner, t.Repo, t.Number)
		return err
	})
	if err != nil {
		return nil, err
	}

	prCtx := adapters.MapPullRequestGithubToDomain(pr)

	comments, err := c.ListComments(ctx, t)
	if err != nil {
		return nil, err
	}
	prCtx.Comments = comments

	labels, err := c.ListIssueLabels(ctx, t)
	if err != nil {
		return nil, err
	}
	prCtx.Labels = labels

	return &prCtx, nil
}

// ListComments returns all issue comments on the pull request, oldest first.
func (c *Client) ListComments(ctx context.Context, t domain.Target) ([]domain.Comment, error) {
	var all []domain.Comment
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		var page []*github.IssueComment
		var resp *github.Response
		err := c.call(ctx, "list comments", func(ctx context.Context) error {
			var err error
			page, resp, err = c.gh.Issues.ListComments(ctx, t.Owner, t.Repo, t.Number, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, comment := range page {
			all = append(all, adapters.MapIssueCommentGithubToDomain(comment))
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CreateComment(ctx context.Context, t domain.Target, body string) (int64, error) {
	var created *github.IssueComment
	err := c.call(ctx, "create comment", func(ctx context.Context) error {
		var err error
		created, _, err = c.gh.Issues.CreateComment(ctx, t.Owner, t.Repo, t.Number, &github.IssueComment{
			Body: github.Ptr(body),
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return created.GetID(), nil
}

func (c *Client) UpdateComment(ctx context.Context, t domain.Target, id int64, body string) error {
	return c.call(ctx, "update comment", func(ctx context.Context) error {
		_, _, err := c.gh.Issues.EditComment(ctx, t.Owner, t.Repo, id, &github.IssueComment{
			Body: github.Ptr(body),
		})
		return err
	})
}

// ListRepoLabels returns the names of all labels defined repository-wide.
func (c *Client) ListRepoLabels(ctx context.Context, t domain.Target) ([]string, error) {
	var all []string
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page []*github.Label
		var resp *github.Response
		err := c.call(ctx, "list repo labels", func(ctx context.Context) error {
			var err error
			page, resp, err = c.gh.Issues.ListLabels(ctx, t.Owner, t.Repo, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, label := range page {
			all = append(all, label.GetName())
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListIssueLabels returns the names of the labels currently on the pull
// request.
func (c *Client) ListIssueLabels(ctx context.Context, t domain.Target) ([]string, error) {
	var all []string
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page []*github.Label
		var resp *github.Response
		err := c.call(ctx, "list issue labels", func(ctx context.Context) error {
			var err error
			page, resp, err = c.gh.Issues.ListLabelsByIssue(ctx, t.Owner, t.Repo, t.Number, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, label := range page {
			all = append(all, label.GetName())
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CreateLabel(ctx context.Context, t domain.Target, label domain.Label) error {
	return c.call(ctx, "create label", func(ctx context.Context) error {
		_, _, err := c.gh.Issues.CreateLabel(ctx, t.Owner, t.Repo, adapters.MapLabelDomainToGithub(label))
		return err
	})
}

func (c *Client) AddLabels(ctx context.Context, t domain.Target, names []string) error {
	return c.call(ctx, "add labels", func(ctx context.Context) error {
		_, _, err := c.gh.Issues.AddLabelsToIssue(ctx, t.Owner, t.Repo, t.Number, names)
		return err
	})
}

func (c *Client) RemoveLabel(ctx context.Context, t domain.Target, name string) error {
	return c.call(ctx, "remove label", func(ctx context.Context) error {
		_, err := c.gh.Issues.RemoveLabelForIssue(ctx, t.Owner, t.Repo, t.Number, name)
		return err
	})
}

// ApprovePullRequest files an approving review carrying the given body.
func (c *Client) ApprovePullRequest(ctx context.Context, t domain.Target, body string) error {
	return c.call(ctx, "approve pull request", func(ctx context.Context) error {
		_, _, err := c.gh.PullRequests.CreateReview(ctx, t.Owner, t.Repo, t.Number, &github.PullRequestReviewRequest{
			Body:  github.Ptr(body),
			Event: github.Ptr("APPROVE"),
		})
		return err
	})
}

func (c *Client) MergePullRequest(ctx context.Context, t domain.Target, message string) (*domain.MergeResult, error) {
	var result *github.PullRequestMergeResult
	err := c.call(ctx, "merge pull request", func(ctx context.Context) error {
		var err error
		result, _, err = c.gh.PullRequests.Merge(ctx, t.Owner, t.Repo, t.Number, message, &github.PullRequestOptions{
			MergeMethod: "merge",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &domain.MergeResult{
		Merged:  result.GetMerged(),
		SHA:     result.GetSHA(),
		Message: result.GetMessage(),
	}, nil
}

// DeleteBranch removes the head ref after a merge. Callers treat failure as
// non-critical cleanup.
func (c *Client) DeleteBranch(ctx context.Context, t domain.Target, branch string) error {
	return c.call(ctx, "delete branch", func(ctx context.Context) error {
		_, err := c.gh.Git.DeleteRef(ctx, t.Owner, t.Repo, "heads/"+branch)
		return err
	})
}
