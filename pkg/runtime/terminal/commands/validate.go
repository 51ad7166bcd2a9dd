package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/de-tools/review-gate/pkg/services/review"
)

type ValidateCmd struct{}

func NewValidateCmd() *cobra.Command {
	vc := &ValidateCmd{}
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a review document against the expected shape",
		Long:  "Reads a review document from the given file (or stdin) and reports every violation found.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  vc.run,
	}
}

func (vc *ValidateCmd) run(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args)
	if err != nil {
		return usageErr(err)
	}

	doc, err := review.Validate(raw)
	if err != nil {
		var vErr *review.ValidationError
		if errors.As(err, &vErr) {
			for _, v := range vErr.Violations {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
			}
			return validationErr(fmt.Errorf("%d violations found", len(vErr.Violations)))
		}
		return validationErr(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "valid: %d findings, overall risk %s\n", len(doc.Findings), doc.OverallRisk)
	return nil
}

// readInput returns the contents of the file argument, or stdin when the
// argument is missing or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args[0], err)
		}
		return raw, nil
	}
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return raw, nil
}
