package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/de-tools/cloudprice/pkg/services/refresh"
	"github.com/spf13/cobra"
)

type SummaryReporter interface {
	Handle(summary refresh.Summary) error
}

type RefreshCmd struct {
	load     Loader
	reporter SummaryReporter
	status   io.Writer
	timeout  time.Duration
}

func NewRefreshCmd(load Loader, reporter SummaryReporter, status io.Writer) *cobra.Command {
	rc := &RefreshCmd{load: load, reporter: reporter, status: status}
	if rc.status == nil {
		rc.status = os.Stderr
	}
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch every configured provider once and update the cache",
		RunE:  rc.run,
	}
	cmd.Flags().DurationVar(&rc.timeout, "timeout", 5*time.Minute, "Overall timeout")
	return cmd
}

func (rc *RefreshCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := contextWithTimeout(cmd, rc.timeout)
	defer cancel()

	a, err := rc.load(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = a.Logger.WithContext(ctx)

	if a.Runner == nil {
		return fmt.Errorf("no cache configured, set CACHE_DSN")
	}

	sp := startSpinner(rc.status, "Refreshing cache ...")
	summary, err := a.Runner.RunOnce(ctx)
	sp.Stop()
	if err != nil {
		return fmt.Errorf("failed to refresh cache: %w", err)
	}
	return rc.reporter.Handle(summary)
}
