package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/review-gate/pkg/models/domain"
	"github.com/de-tools/review-gate/pkg/services/config"
	"github.com/de-tools/review-gate/pkg/services/review"
	"github.com/de-tools/review-gate/pkg/store/gh"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) GetPullRequest(ctx context.Context, target domain.Target) (*domain.PullRequestContext, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PullRequestContext), args.Error(1)
}

func (m *MockRemote) CreateComment(ctx context.Context, target domain.Target, body string) (int64, error) {
	args := m.Called(ctx, target, body)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRemote) UpdateComment(ctx context.Context, target domain.Target, id int64, body string) error {
	args := m.Called(ctx, target, id, body)
	return args.Error(0)
}

func (m *MockRemote) ListRepoLabels(ctx context.Context, target domain.Target) ([]string, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRemote) CreateLabel(ctx context.Context, target domain.Target, label domain.Label) error {
	args := m.Called(ctx, target, label)
	return args.Error(0)
}

func (m *MockRemote) AddLabels(ctx context.Context, target domain.Target, names []string) error {
	args := m.Called(ctx, target, names)
	return args.Error(0)
}

func (m *MockRemote) RemoveLabel(ctx context.Context, target domain.Target, name string) error {
	args := m.Called(ctx, target, name)
	return args.Error(0)
}

func (m *MockRemote) ApprovePullRequest(ctx context.Context, target domain.Target, body string) error {
	args := m.Called(ctx, target, body)
	return args.Error(0)
}

func (m *MockRemote) MergePullRequest(ctx context.Context, target domain.Target, message string) (*domain.MergeResult, error) {
	args := m.Called(ctx, target, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MergeResult), args.Error(1)
}

func (m *MockRemote) DeleteBranch(ctx context.Context, target domain.Target, branch string) error {
	args := m.Called(ctx, target, branch)
	return args.Error(0)
}

const validDoc = `{
  "approved": true,
  "overallRisk": "LOW",
  "summary": "Routine chart bump.\nNothing concerning in the diff.",
  "findings": [
    {
      "type": "version",
      "title": "",
      "summary": "Bump traefik helm chart",
      "risk": "LOW",
      "subject": {"kind": "helm", "name": "traefik", "from": "24.0.0", "to": "25.0.0"}
    }
  ]
}`

var target = domain.Target{Owner: "acme", Repo: "deploys", Number: 42}

func snapshot() *domain.PullRequestContext {
	return &domain.PullRequestContext{
		Number:   42,
		Branch:   "renovate/traefik-25.x",
		Author:   "renovate[bot]",
		SameRepo: true,
	}
}

// newLoader pins the config env overrides so CI leakage cannot redirect the
// loader mid-test.
func newLoader(t *testing.T, dir string) config.Loader {
	t.Helper()
	t.Setenv(config.EnvReviewConfigPath, "")
	t.Setenv(config.EnvLabelConfigPath, "")
	return config.NewLoader(config.Settings{Dir: dir})
}

func enableAutoMerge(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, ".github", "review-gate.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("auto_merge:\n  enabled: true\n"), 0o644))
}

func TestRunMergePath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	enableAutoMerge(t, dir)

	remote := &MockRemote{}
	remote.On("GetPullRequest", mock.Anything, target).Return(snapshot(), nil)
	remote.On("ListRepoLabels", mock.Anything, target).Return([]string{"update:helm", "risk:low"}, nil)
	remote.On("AddLabels", mock.Anything, target, []string{"update:helm", "risk:low"}).Return(nil)

	var posted string
	remote.On("CreateComment", mock.Anything, target, mock.Anything).
		Run(func(args mock.Arguments) { posted = args.String(2) }).
		Return(int64(101), nil)
	remote.On("ApprovePullRequest", mock.Anything, target, mock.Anything).Return(nil)
	remote.On("MergePullRequest", mock.Anything, target, "").
		Return(&domain.MergeResult{Merged: true, SHA: "beef42"}, nil)
	remote.On("DeleteBranch", mock.Anything, target, "renovate/traefik-25.x").Return(nil)

	outDir := filepath.Join(dir, "out")
	exec, err := NewExecutor(Settings{OutputDir: outDir}, remote, newLoader(t, dir))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(validDoc))

	require.NoError(t, err)
	assert.Equal(t, domain.DecisionMerge, report.Decision.Kind)
	assert.Equal(t, "enabled for all PRs", report.Decision.Reason)
	assert.True(t, report.Merged)
	assert.Equal(t, "beef42", report.MergeSHA)
	assert.False(t, domain.Failed(report.Steps))
	assert.Len(t, report.Steps, 5)

	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "acme/deploys", report.Repository)
	assert.GreaterOrEqual(t, report.Duration, time.Duration(0))

	assert.True(t, strings.HasPrefix(posted, domain.CommentMarker))
	assert.Contains(t, posted, "**Auto-merge:** will merge (enabled for all PRs)")

	artifact, err := os.ReadFile(filepath.Join(outDir, "review.md"))
	require.NoError(t, err)
	assert.Equal(t, posted, string(artifact))

	remote.AssertExpectations(t)
}

func TestRunHoldPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() // no config file, auto-merge defaults to disabled

	remote := &MockRemote{}
	remote.On("GetPullRequest", mock.Anything, target).Return(snapshot(), nil)
	remote.On("ListRepoLabels", mock.Anything, target).Return([]string{"update:helm", "risk:low"}, nil)
	remote.On("AddLabels", mock.Anything, target, []string{"update:helm", "risk:low"}).Return(nil)
	remote.On("CreateComment", mock.Anything, target, mock.Anything).Return(int64(101), nil)

	exec, err := NewExecutor(Settings{}, remote, newLoader(t, dir))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(validDoc))

	require.NoError(t, err)
	assert.Equal(t, domain.DecisionHold, report.Decision.Kind)
	assert.Equal(t, "disabled in repo config", report.Decision.Reason)
	assert.False(t, report.Merged)

	step := report.Step(domain.StepMerge)
	require.NotNil(t, step)
	assert.Equal(t, domain.StepSkipped, step.Status)
	assert.Equal(t, "disabled in repo config", step.Detail)

	remote.AssertNotCalled(t, "ApprovePullRequest", mock.Anything, mock.Anything, mock.Anything)
	remote.AssertNotCalled(t, "MergePullRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunValidationFailure(t *testing.T) {
	ctx := context.Background()
	remote := &MockRemote{}

	exec, err := NewExecutor(Settings{}, remote, newLoader(t, t.TempDir()))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(`{"approved": true}`))

	require.Error(t, err)
	var vErr *review.ValidationError
	assert.True(t, errors.As(err, &vErr))

	assert.Equal(t, domain.DecisionHold, report.Decision.Kind)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, domain.StepValidate, report.Steps[0].Name)
	assert.Equal(t, domain.StepFailed, report.Steps[0].Status)
	assert.Empty(t, remote.Calls)
}

func TestRunSnapshotFailure(t *testing.T) {
	ctx := context.Background()
	remote := &MockRemote{}
	remote.On("GetPullRequest", mock.Anything, target).
		Return(nil, &gh.APIError{Status: 502, Endpoint: "get pull request", Transient: true, Err: fmt.Errorf("bad gateway")})

	exec, err := NewExecutor(Settings{}, remote, newLoader(t, t.TempDir()))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(validDoc))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch pull request snapshot")
	assert.True(t, gh.IsTransient(err))

	step := report.Step(domain.StepComment)
	require.NotNil(t, step)
	assert.Equal(t, domain.StepSkipped, step.Status)
}

func TestRunSkipMergeReplay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	enableAutoMerge(t, dir)

	remote := &MockRemote{}
	remote.On("GetPullRequest", mock.Anything, target).Return(snapshot(), nil)
	remote.On("ListRepoLabels", mock.Anything, target).Return([]string{"update:helm", "risk:low"}, nil)
	remote.On("AddLabels", mock.Anything, target, []string{"update:helm", "risk:low"}).Return(nil)

	var posted string
	remote.On("CreateComment", mock.Anything, target, mock.Anything).
		Run(func(args mock.Arguments) { posted = args.String(2) }).
		Return(int64(101), nil)

	exec, err := NewExecutor(Settings{SkipMerge: true}, remote, newLoader(t, dir))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(validDoc))

	require.NoError(t, err)
	assert.Equal(t, domain.DecisionHold, report.Decision.Kind)
	assert.Equal(t, "merge skipped (replay mode)", report.Decision.Reason)
	assert.Contains(t, posted, "held (merge skipped (replay mode))")

	step := report.Step(domain.StepMerge)
	require.NotNil(t, step)
	assert.Equal(t, domain.StepSkipped, step.Status)
	remote.AssertNotCalled(t, "MergePullRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunSecondRunUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	pr := snapshot()
	pr.Comments = []domain.Comment{
		{ID: 7, Author: "review-bot", Body: domain.CommentMarker + "\n## Stale run", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	pr.Labels = []string{"update:helm", "risk:low"}

	remote := &MockRemote{}
	remote.On("GetPullRequest", mock.Anything, target).Return(pr, nil)
	remote.On("ListRepoLabels", mock.Anything, target).Return([]string{"update:helm", "risk:low"}, nil)
	remote.On("UpdateComment", mock.Anything, target, int64(7), mock.Anything).Return(nil)

	exec, err := NewExecutor(Settings{}, remote, newLoader(t, dir))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(validDoc))

	require.NoError(t, err)
	assert.False(t, domain.Failed(report.Steps))

	step := report.Step(domain.StepComment)
	require.NotNil(t, step)
	assert.Contains(t, step.Detail, "updated")

	// Label set already converged: nothing to add or remove.
	remote.AssertNotCalled(t, "AddLabels", mock.Anything, mock.Anything, mock.Anything)
	remote.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPartialCommentFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	enableAutoMerge(t, dir)

	remote := &MockRemote{}
	remote.On("GetPullRequest", mock.Anything, target).Return(snapshot(), nil)
	remote.On("ListRepoLabels", mock.Anything, target).Return([]string{"update:helm", "risk:low"}, nil)
	remote.On("AddLabels", mock.Anything, target, []string{"update:helm", "risk:low"}).Return(nil)
	remote.On("CreateComment", mock.Anything, target, mock.Anything).
		Return(int64(0), &gh.APIError{Status: 403, Endpoint: "create comment", Err: fmt.Errorf("forbidden")})

	exec, err := NewExecutor(Settings{}, remote, newLoader(t, dir))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(validDoc))

	require.NoError(t, err)
	assert.True(t, domain.Failed(report.Steps))

	comment := report.Step(domain.StepComment)
	require.NotNil(t, comment)
	assert.Equal(t, domain.StepFailed, comment.Status)

	labels := report.Step(domain.StepLabels)
	require.NotNil(t, labels)
	assert.Equal(t, domain.StepOK, labels.Status)

	merge := report.Step(domain.StepMerge)
	require.NotNil(t, merge)
	assert.Equal(t, domain.StepSkipped, merge.Status)
	assert.Equal(t, "verdict comment not published", merge.Detail)
	remote.AssertNotCalled(t, "ApprovePullRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunRemoteMergeRefusal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	enableAutoMerge(t, dir)

	remote := &MockRemote{}
	remote.On("GetPullRequest", mock.Anything, target).Return(snapshot(), nil)
	remote.On("ListRepoLabels", mock.Anything, target).Return([]string{"update:helm", "risk:low"}, nil)
	remote.On("AddLabels", mock.Anything, target, []string{"update:helm", "risk:low"}).Return(nil)
	remote.On("CreateComment", mock.Anything, target, mock.Anything).Return(int64(101), nil)
	remote.On("ApprovePullRequest", mock.Anything, target, mock.Anything).Return(nil)
	remote.On("MergePullRequest", mock.Anything, target, "").Return(nil, &gh.APIError{
		Status:   405,
		Endpoint: "merge pull request",
		Err:      &github.ErrorResponse{Message: "Pull Request is not mergeable"},
	})

	exec, err := NewExecutor(Settings{}, remote, newLoader(t, dir))
	require.NoError(t, err)

	report, err := exec.Run(ctx, target, []byte(validDoc))

	require.NoError(t, err)
	assert.False(t, domain.Failed(report.Steps))
	assert.False(t, report.Merged)
	assert.Equal(t, domain.DecisionHold, report.Decision.Kind)
	assert.Equal(t, "Pull Request is not mergeable", report.Decision.Reason)

	step := report.Step(domain.StepMerge)
	require.NotNil(t, step)
	assert.Equal(t, domain.StepOK, step.Status)
	assert.Contains(t, step.Detail, "held")
	remote.AssertNotCalled(t, "DeleteBranch", mock.Anything, mock.Anything, mock.Anything)
}
