package terminal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/cloudprice/pkg/app"
	"github.com/de-tools/cloudprice/pkg/runtime/terminal/commands"
	"github.com/de-tools/cloudprice/pkg/runtime/terminal/export"
	"github.com/de-tools/cloudprice/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	opts     Options
	cfgPath  string
	reporter *export.Reporter
	summary  *Reporter
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
	Status io.Writer
	// Load overrides how the application is built; tests use it to inject fakes.
	Load func(ctx context.Context, cfgPath string) (*app.App, error)
	S3   commands.S3Factory
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Status == nil {
		opts.Status = os.Stderr
	}
	if opts.Load == nil {
		opts.Load = loadApp
	}

	cli := &CLI{
		opts:     opts,
		reporter: export.NewReporter(opts.Output),
		summary:  NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) ExecuteContext(ctx context.Context, args ...string) error {
	cli.rootCmd.SetArgs(args)
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cloudprice",
		Short:         "Cloud VM price comparison",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "Optional config file; environment variables take precedence")
	cmd.SetOut(cli.opts.Output)

	load := func(ctx context.Context) (*app.App, error) {
		return cli.opts.Load(ctx, cli.cfgPath)
	}

	cmd.AddCommand(commands.NewCompareCmd(load, cli.reporter, cli.opts.Status))
	cmd.AddCommand(commands.NewRefreshCmd(load, cli.summary, cli.opts.Status))
	cmd.AddCommand(commands.NewExportCmd(load, cli.opts.S3, cli.opts.Output, cli.opts.Status))

	return cmd
}

func loadApp(ctx context.Context, cfgPath string) (*app.App, error) {
	cfg, err := config.LoadCLI(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
	return app.New(logger.WithContext(ctx), cfg)
}
