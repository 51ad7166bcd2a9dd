package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/de-tools/review-gate/pkg/models/domain"
	"github.com/de-tools/review-gate/pkg/store/gh"
)

// LabelAPI is the slice of the GitHub client label reconciliation needs.
type LabelAPI interface {
	ListRepoLabels(ctx context.Context, target domain.Target) ([]string, error)
	CreateLabel(ctx context.Context, target domain.Target, label domain.Label) error
	AddLabels(ctx context.Context, target domain.Target, names []string) error
	RemoveLabel(ctx context.Context, target domain.Target, name string) error
}

type LabelFailure struct {
	Name string
	Op   string
	Err  error
}

// LabelOutcome records what reconciliation actually did. Failed holds the
// operations that were attempted and lost; they never abort the rest.
type LabelOutcome struct {
	Created []string
	Added   []string
	Removed []string
	Failed  []LabelFailure
}

func (o *LabelOutcome) Ok() bool {
	return len(o.Failed) == 0
}

// Err folds the recorded failures into a single error, nil when everything
// landed.
func (o *LabelOutcome) Err() error {
	if len(o.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(o.Failed))
	for _, f := range o.Failed {
		errs = append(errs, fmt.Errorf("%s %s: %w", f.Op, f.Name, f.Err))
	}
	return errors.Join(errs...)
}

type Labeler interface {
	Reconcile(ctx context.Context, target domain.Target, current []string, desired []domain.Label) *LabelOutcome
}

type DefaultLabeler struct {
	api LabelAPI
}

func NewLabeler(api LabelAPI) *DefaultLabeler {
	return &DefaultLabeler{api: api}
}

// Reconcile converges the pull request's managed labels onto the desired set.
// Only names under the managed prefixes are ever removed; labels humans put
// on the pull request stay. Additions run before removals so the pull request
// never sits with zero review labels mid-transition.
func (l *DefaultLabeler) Reconcile(ctx context.Context, target domain.Target, current []string, desired []domain.Label) *LabelOutcome {
	logger := zerolog.Ctx(ctx)
	outcome := &LabelOutcome{}

	defined, err := l.api.ListRepoLabels(ctx, target)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list repo labels, continuing with empty set")
		defined = nil
	}
	definedSet := make(map[string]bool, len(defined))
	for _, name := range defined {
		definedSet[name] = true
	}

	for _, label := range desired {
		if definedSet[label.Name] {
			continue
		}
		err := l.api.CreateLabel(ctx, target, label)
		switch {
		case err == nil:
			outcome.Created = append(outcome.Created, label.Name)
		case gh.IsAlreadyExists(err):
			logger.Debug().Str("label", label.Name).Msg("label definition already exists")
		default:
			logger.Warn().Err(err).Str("label", label.Name).Msg("failed to create label definition")
			outcome.Failed = append(outcome.Failed, LabelFailure{Name: label.Name, Op: "create", Err: err})
		}
	}

	currentSet := make(map[string]bool, len(current))
	for _, name := range current {
		currentSet[name] = true
	}

	desiredSet := make(map[string]bool, len(desired))
	var additions []string
	for _, label := range desired {
		desiredSet[label.Name] = true
		if !currentSet[label.Name] {
			additions = append(additions, label.Name)
		}
	}

	var removals []string
	for _, name := range current {
		if domain.ManagedLabel(name) && !desiredSet[name] {
			removals = append(removals, name)
		}
	}

	if len(additions) > 0 {
		if err := l.api.AddLabels(ctx, target, additions); err != nil {
			logger.Warn().Err(err).Strs("labels", additions).Msg("failed to add labels")
			for _, name := range additions {
				outcome.Failed = append(outcome.Failed, LabelFailure{Name: name, Op: "add", Err: err})
			}
			// The stale managed set stays in place; stripping it after a
			// failed add would leave the pull request unlabeled.
			if len(removals) > 0 {
				logger.Warn().Strs("labels", removals).Msg("skipping label removals after failed add")
			}
			return outcome
		}
		outcome.Added = additions
	}

	for _, name := range removals {
		err := l.api.RemoveLabel(ctx, target, name)
		switch {
		case err == nil:
			outcome.Removed = append(outcome.Removed, name)
		case gh.IsNotFound(err):
			logger.Debug().Str("label", name).Msg("label already removed")
		default:
			logger.Warn().Err(err).Str("label", name).Msg("failed to remove label")
			outcome.Failed = append(outcome.Failed, LabelFailure{Name: name, Op: "remove", Err: err})
		}
	}

	return outcome
}
