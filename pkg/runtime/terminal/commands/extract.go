package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/de-tools/review-gate/pkg/services/review"
)

type ExtractCmd struct{}

func NewExtractCmd() *cobra.Command {
	ec := &ExtractCmd{}
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract the review JSON from raw model output",
		Long:  "Scans raw model output for a fenced JSON block and prints the document, taking the last block when several are present.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ec.run,
	}
}

func (ec *ExtractCmd) run(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args)
	if err != nil {
		return usageErr(err)
	}

	doc, err := review.ExtractDocument(string(raw))
	if err != nil {
		return validationErr(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), doc)
	return nil
}
