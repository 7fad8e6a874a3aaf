package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 5 * time.Second

type instrumented struct {
	next    Fetcher
	timeout time.Duration
}

// Instrument bounds every fetch by timeout, turns panics into failed results and records
// metrics and logs for each outcome.
func Instrument(next Fetcher, timeout time.Duration) Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &instrumented{next: next, timeout: timeout}
}

func (i *instrumented) Provider() domain.Provider {
	return i.next.Provider()
}

func (i *instrumented) Fetch(ctx context.Context, q Query) (res Result) {
	provider := i.next.Provider()
	start := time.Now()
	logger := zerolog.Ctx(ctx).With().Str("provider", string(provider)).Logger()

	defer func() {
		if r := recover(); r != nil {
			res = Result{Provider: provider, Err: fmt.Errorf("fetch %s: panic: %v", provider, r)}
		}
		res.Provider = provider
		observeFetch(res, time.Since(start))

		if res.Err != nil {
			logger.Warn().Err(res.Err).Dur("elapsed", time.Since(start)).Msg("provider fetch failed")
			return
		}
		logger.Debug().Int("records", len(res.Records)).Dur("elapsed", time.Since(start)).Msg("provider fetch completed")
	}()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	return i.next.Fetch(ctx, q)
}
