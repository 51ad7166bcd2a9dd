// Package pipeline runs one full review publication cycle: validate the
// document, snapshot the pull request, derive state, evaluate merge policy,
// render, then apply the comment, labels, and optional merge.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/de-tools/review-gate/pkg/models/domain"
	"github.com/de-tools/review-gate/pkg/services/config"
	"github.com/de-tools/review-gate/pkg/services/policy"
	"github.com/de-tools/review-gate/pkg/services/publish"
	"github.com/de-tools/review-gate/pkg/services/render"
	"github.com/de-tools/review-gate/pkg/services/review"
)

// Remote is the full client surface one run needs. *gh.Client satisfies it.
type Remote interface {
	GetPullRequest(ctx context.Context, target domain.Target) (*domain.PullRequestContext, error)
	publish.CommentAPI
	publish.LabelAPI
	publish.MergeAPI
}

type Settings struct {
	// SkipMerge marks a replay run: publish the comment and labels but never
	// touch merge state.
	SkipMerge bool

	// OutputDir receives the rendered review.md artifact when non-empty.
	OutputDir string
}

type Executor interface {
	Run(ctx context.Context, target domain.Target, raw []byte) (*domain.PipelineReport, error)
}

type DefaultExecutor struct {
	settings  Settings
	remote    Remote
	loader    config.Loader
	renderer  *render.Renderer
	commenter publish.Commenter
	labeler   publish.Labeler
	merger    publish.Merger
}

func NewExecutor(settings Settings, remote Remote, loader config.Loader) (*DefaultExecutor, error) {
	renderer, err := render.NewRenderer(render.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("build renderer: %w", err)
	}
	return &DefaultExecutor{
		settings:  settings,
		remote:    remote,
		loader:    loader,
		renderer:  renderer,
		commenter: publish.NewCommenter(remote),
		labeler:   publish.NewLabeler(remote),
		merger:    publish.NewMerger(remote),
	}, nil
}

// Run executes one review cycle against the target pull request. The
// returned error is fatal (nothing was published); partial failures land in
// the report's steps instead, so callers must also check domain.Failed.
func (e *DefaultExecutor) Run(ctx context.Context, target domain.Target, raw []byte) (*domain.PipelineReport, error) {
	started := time.Now()
	report := &domain.PipelineReport{
		RunID:      uuid.NewString(),
		Repository: target.Repository(),
		Number:     target.Number,
		StartedAt:  started,
	}

	logger := zerolog.Ctx(ctx).With().
		Str("run_id", report.RunID).
		Str("repository", report.Repository).
		Int("pr_number", target.Number).
		Logger()
	ctx = logger.WithContext(ctx)

	// An invalid document publishes nothing: no comment, no labels, no merge.
	doc, err := review.Validate(raw)
	if err != nil {
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepValidate,
			Status: domain.StepFailed,
			Err:    err,
		})
		report.Decision = domain.Hold("validation failed")
		report.Duration = time.Since(started)
		return report, err
	}
	report.Steps = append(report.Steps, domain.StepResult{
		Name:   domain.StepValidate,
		Status: domain.StepOK,
		Detail: fmt.Sprintf("%d findings", len(doc.Findings)),
	})

	pr, err := e.remote.GetPullRequest(ctx, target)
	if err != nil {
		report.Decision = domain.Hold("pull request snapshot unavailable")
		for _, name := range []string{domain.StepRender, domain.StepComment, domain.StepLabels, domain.StepMerge} {
			report.Steps = append(report.Steps, domain.StepResult{
				Name:   name,
				Status: domain.StepSkipped,
				Detail: "pull request snapshot unavailable",
			})
		}
		report.Duration = time.Since(started)
		return report, fmt.Errorf("fetch pull request snapshot: %w", err)
	}

	cfg := e.loader.Load(ctx)
	state := review.Derive(doc, cfg)

	decision := policy.Evaluate(ctx, doc, cfg.AutoMerge, pr)
	if e.settings.SkipMerge && decision.Kind == domain.DecisionMerge {
		decision = domain.Hold("merge skipped (replay mode)")
	}
	report.Decision = decision
	logger.Info().
		Str("decision", string(decision.Kind)).
		Str("reason", decision.Reason).
		Msg("merge policy evaluated")

	body, renderErr := e.renderer.Render(state, decision)
	if renderErr != nil {
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepRender,
			Status: domain.StepFailed,
			Err:    renderErr,
		})
	} else {
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepRender,
			Status: domain.StepOK,
			Detail: fmt.Sprintf("%d bytes", len(body)),
		})
		e.writeArtifact(ctx, body)
	}

	// The comment and the label set are independent writes; one failing must
	// not block the other.
	var (
		wg            sync.WaitGroup
		commentResult *publish.CommentResult
		commentErr    error
		labelOutcome  *publish.LabelOutcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if renderErr != nil {
			return
		}
		commentResult, commentErr = e.commenter.Publish(ctx, target, pr.Comments, body)
	}()
	go func() {
		defer wg.Done()
		labelOutcome = e.labeler.Reconcile(ctx, target, pr.Labels, state.Labels)
	}()
	wg.Wait()

	switch {
	case renderErr != nil:
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepComment,
			Status: domain.StepSkipped,
			Detail: "no rendered body",
		})
	case commentErr != nil:
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepComment,
			Status: domain.StepFailed,
			Err:    commentErr,
		})
	default:
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepComment,
			Status: domain.StepOK,
			Detail: fmt.Sprintf("%s (id %d)", commentResult.Action, commentResult.ID),
		})
	}

	if labelErr := labelOutcome.Err(); labelErr != nil {
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepLabels,
			Status: domain.StepFailed,
			Detail: fmt.Sprintf("added %d, removed %d, failed %d", len(labelOutcome.Added), len(labelOutcome.Removed), len(labelOutcome.Failed)),
			Err:    labelErr,
		})
	} else {
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepLabels,
			Status: domain.StepOK,
			Detail: fmt.Sprintf("added %d, removed %d", len(labelOutcome.Added), len(labelOutcome.Removed)),
		})
	}

	// Merge runs strictly after both writes, and only when the verdict
	// comment actually landed.
	switch {
	case decision.Kind != domain.DecisionMerge:
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepMerge,
			Status: domain.StepSkipped,
			Detail: decision.Reason,
		})
	case renderErr != nil || commentErr != nil:
		report.Steps = append(report.Steps, domain.StepResult{
			Name:   domain.StepMerge,
			Status: domain.StepSkipped,
			Detail: "verdict comment not published",
		})
	default:
		outcome, err := e.merger.Execute(ctx, target, pr, body)
		switch {
		case err != nil:
			report.Steps = append(report.Steps, domain.StepResult{
				Name:   domain.StepMerge,
				Status: domain.StepFailed,
				Err:    err,
			})
		case outcome.Held:
			report.Decision = domain.Hold(outcome.Reason)
			report.Steps = append(report.Steps, domain.StepResult{
				Name:   domain.StepMerge,
				Status: domain.StepOK,
				Detail: "held: " + outcome.Reason,
			})
		default:
			report.Merged = outcome.Merged
			report.MergeSHA = outcome.SHA
			report.Steps = append(report.Steps, domain.StepResult{
				Name:   domain.StepMerge,
				Status: domain.StepOK,
				Detail: outcome.Reason,
			})
		}
	}

	report.Duration = time.Since(started)
	return report, nil
}

// writeArtifact persists the rendered markdown before any pull request
// mutation, so a failed run still leaves the review on disk.
func (e *DefaultExecutor) writeArtifact(ctx context.Context, body string) {
	if e.settings.OutputDir == "" {
		return
	}
	logger := zerolog.Ctx(ctx)
	if err := os.MkdirAll(e.settings.OutputDir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", e.settings.OutputDir).Msg("failed to create output directory")
		return
	}
	path := filepath.Join(e.settings.OutputDir, "review.md")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to write review markdown")
		return
	}
	logger.Debug().Str("path", path).Msg("wrote review markdown")
}
