package commands

import (
	"context"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/de-tools/cloudprice/pkg/app"
)

// Loader builds the application once the command line has been parsed.
type Loader func(ctx context.Context) (*app.App, error)

func startSpinner(w io.Writer, suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return s
}
