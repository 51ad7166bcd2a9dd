package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/review-gate/pkg/adapters"
	"github.com/de-tools/review-gate/pkg/models/domain"
	"github.com/de-tools/review-gate/pkg/runtime/terminal/export"
	"github.com/de-tools/review-gate/pkg/services/config"
	"github.com/de-tools/review-gate/pkg/services/event"
	"github.com/de-tools/review-gate/pkg/services/pipeline"
	"github.com/de-tools/review-gate/pkg/services/policy"
	"github.com/de-tools/review-gate/pkg/services/render"
	"github.com/de-tools/review-gate/pkg/services/review"
	"github.com/de-tools/review-gate/pkg/store/gh"
)

type PublishCmd struct {
	outputDir string
	input     string
	pr        int
	dryRun    bool

	resolver event.Resolver
	reporter *export.Reporter
}

func NewPublishCmd(resolver event.Resolver, reporter *export.Reporter) *cobra.Command {
	pc := &PublishCmd{resolver: resolver, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Validate a review document and publish it to the pull request",
		RunE:  pc.run,
	}

	cmd.Flags().StringVar(&pc.outputDir, "output-dir", "output", "Directory holding review.json and receiving artifacts")
	cmd.Flags().StringVar(&pc.input, "input", "", "Review document path (defaults to <output-dir>/review.json)")
	cmd.Flags().IntVar(&pc.pr, "pr", 0, "Pull request number override")
	cmd.Flags().BoolVar(&pc.dryRun, "dry-run", resolver.DryRun(), "Validate and render without touching the pull request")

	return cmd
}

func (pc *PublishCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	input := pc.input
	if input == "" {
		input = filepath.Join(pc.outputDir, "review.json")
	}
	raw, err := os.ReadFile(input)
	if err != nil {
		return usageErr(fmt.Errorf("read review document: %w", err))
	}

	if pc.dryRun {
		return pc.runDry(ctx, raw)
	}

	token, err := pc.resolver.Token()
	if err != nil {
		return apiErr(err)
	}
	target, err := pc.resolver.ResolveTarget(ctx, pc.pr)
	if err != nil {
		return usageErr(err)
	}

	settings := gh.DefaultSettings()
	settings.Token = token
	settings.BaseURL = pc.resolver.APIBaseURL()
	client, err := gh.NewClient(settings)
	if err != nil {
		return usageErr(err)
	}

	exec, err := pipeline.NewExecutor(pipeline.Settings{
		SkipMerge: pc.resolver.SkipMerge(),
		OutputDir: pc.outputDir,
	}, client, config.NewLoader(config.Settings{}))
	if err != nil {
		return usageErr(err)
	}

	report, runErr := exec.Run(ctx, target, raw)
	pc.writeReport(ctx, report)
	if err := pc.reporter.Handle(report); err != nil {
		logger.Warn().Err(err).Msg("failed to print run summary")
	}

	if runErr != nil {
		var vErr *review.ValidationError
		if errors.As(runErr, &vErr) {
			return validationErr(runErr)
		}
		return apiErr(runErr)
	}
	if domain.Failed(report.Steps) {
		return &ExitError{Code: ExitPartial, Err: fmt.Errorf("one or more publish steps failed")}
	}
	return nil
}

// runDry validates and renders without a GitHub client. Policy runs against
// an empty pull request context, so the rendered decision reflects the repo
// config alone.
func (pc *PublishCmd) runDry(ctx context.Context, raw []byte) error {
	logger := zerolog.Ctx(ctx)

	doc, err := review.Validate(raw)
	if err != nil {
		return validationErr(err)
	}

	loader := config.NewLoader(config.Settings{})
	cfg := loader.Load(ctx)
	state := review.Derive(doc, cfg)
	decision := policy.Evaluate(ctx, doc, cfg.AutoMerge, nil)

	renderer, err := render.NewRenderer(render.DefaultSettings())
	if err != nil {
		return usageErr(err)
	}
	body, err := renderer.Render(state, decision)
	if err != nil {
		return usageErr(err)
	}

	if err := os.MkdirAll(pc.outputDir, 0o755); err != nil {
		return usageErr(fmt.Errorf("create output directory: %w", err))
	}
	path := filepath.Join(pc.outputDir, "review.md")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return usageErr(fmt.Errorf("write review markdown: %w", err))
	}

	logger.Info().
		Bool("approved", state.Approved).
		Str("overall_risk", string(state.OverallRisk)).
		Int("findings", len(state.Findings)).
		Int("blocking", state.Blocking).
		Str("decision", string(decision.Kind)).
		Str("path", path).
		Msg("dry run complete")
	return nil
}

// writeReport persists report.json next to review.md so CI can archive the
// machine-readable outcome even when the run failed partway.
func (pc *PublishCmd) writeReport(ctx context.Context, report *domain.PipelineReport) {
	logger := zerolog.Ctx(ctx)

	if err := os.MkdirAll(pc.outputDir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", pc.outputDir).Msg("failed to create output directory")
		return
	}

	data, err := json.MarshalIndent(adapters.MapPipelineReportDomainToApi(*report), "", "  ")
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode run report")
		return
	}

	path := filepath.Join(pc.outputDir, "report.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to write run report")
		return
	}
	logger.Debug().Str("path", path).Msg("wrote run report")
}
