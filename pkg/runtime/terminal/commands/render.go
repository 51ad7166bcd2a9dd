package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/de-tools/review-gate/pkg/services/config"
	"github.com/de-tools/review-gate/pkg/services/policy"
	"github.com/de-tools/review-gate/pkg/services/render"
	"github.com/de-tools/review-gate/pkg/services/review"
)

type RenderCmd struct{}

func NewRenderCmd() *cobra.Command {
	rc := &RenderCmd{}
	return &cobra.Command{
		Use:   "render [file]",
		Short: "Render a review document to comment markdown",
		Long:  "Validates the document, derives display state using the local repo config, and prints the comment body to stdout.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  rc.run,
	}
}

func (rc *RenderCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	raw, err := readInput(cmd, args)
	if err != nil {
		return usageErr(err)
	}

	doc, err := review.Validate(raw)
	if err != nil {
		return validationErr(err)
	}

	cfg := config.NewLoader(config.Settings{}).Load(ctx)
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

	fmt.Fprint(cmd.OutOrStdout(), body)
	return nil
}
