package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/review-gate/pkg/runtime/terminal/commands"
	"github.com/de-tools/review-gate/pkg/runtime/terminal/export"

	"github.com/de-tools/review-gate/pkg/services/event"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	resolver event.Resolver
	reporter *export.Reporter
	rootCmd  *cobra.Command
	verbose  bool
}

// Options contain configuration for the CLI
type Options struct {
	Resolver event.Resolver
	Output   io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Resolver == nil {
		opts.Resolver = event.NewResolver()
	}

	cli := &CLI{
		resolver: opts.Resolver,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the CLI and maps the outcome to a process exit code.
func (cli *CLI) Execute() int {
	err := cli.rootCmd.Execute()
	if err == nil {
		return commands.ExitOK
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var exitErr *commands.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return commands.ExitUsage
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "review-gate",
		Short:         "Publish structured review verdicts to pull requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if cli.verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
			c.SetContext(logger.WithContext(c.Context()))
		},
	}

	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(commands.NewPublishCmd(cli.resolver, cli.reporter))
	cmd.AddCommand(commands.NewValidateCmd())
	cmd.AddCommand(commands.NewRenderCmd())
	cmd.AddCommand(commands.NewExtractCmd())

	return cmd
}
