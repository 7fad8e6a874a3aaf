// Package refresh keeps the instance cache warm by periodically re-fetching every provider.
package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/normalizer"
	"github.com/de-tools/cloudprice/pkg/store/duckdb"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/history"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/instances"
	refreshstore "github.com/de-tools/cloudprice/pkg/store/duckdb/refresh"
	"github.com/rs/zerolog"
)

type ProviderSummary struct {
	Provider domain.Provider
	Records  int
	Err      error
}

type Summary struct {
	StartedAt time.Time
	Duration  time.Duration
	Providers []ProviderSummary
}

func (s Summary) Records() int {
	total := 0
	for _, p := range s.Providers {
		total += p.Records
	}
	return total
}

func (s Summary) Failed() int {
	failed := 0
	for _, p := range s.Providers {
		if p.Err != nil {
			failed++
		}
	}
	return failed
}

type Runner struct {
	db         *sql.DB
	fetchers   fetcher.Registry
	normalizer *normalizer.Normalizer
	cache      instances.Store
	states     refreshstore.Store
	history    history.Store
	done       chan struct{}
	now        func() time.Time
}

func NewRunner(
	db *sql.DB,
	fetchers fetcher.Registry,
	norm *normalizer.Normalizer,
	cache instances.Store,
	states refreshstore.Store,
	prices history.Store,
) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if fetchers == nil || cache == nil || states == nil {
		return nil, fmt.Errorf("fetchers, cache and refresh state store are required")
	}
	if norm == nil {
		norm = normalizer.New()
	}
	if prices == nil {
		prices = history.Disabled()
	}
	return &Runner{
		db:         db,
		fetchers:   fetchers,
		normalizer: norm,
		cache:      cache,
		states:     states,
		history:    prices,
		done:       make(chan struct{}),
		now:        time.Now,
	}, nil
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Run refreshes immediately and then on every tick until ctx is cancelled. It may be
// called once per Runner.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	logger := zerolog.Ctx(ctx).With().Str("component", "refresh").Logger()
	ctx = logger.WithContext(ctx)
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		summary, err := r.RunOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("cache refresh failed")
		} else {
			logger.Info().
				Int("records", summary.Records()).
				Int("failed_providers", summary.Failed()).
				Dur("duration", summary.Duration).
				Msg("cache refreshed")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("cache refresh stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce fetches every configured provider and, in a single transaction, replaces each
// successful provider's cached rows and appends their prices to the history. A provider that
// fails keeps its previous rows and gets its error recorded.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	logger := zerolog.Ctx(ctx)
	started := r.now()
	providers := r.fetchers.Providers()

	results := fetcher.FetchAll(ctx, r.fetchers, providers, fetcher.Query{})
	if ctx.Err() != nil {
		return Summary{}, ctx.Err()
	}

	summary := Summary{StartedAt: started, Providers: make([]ProviderSummary, len(results))}
	batches := make([][]domain.Instance, len(results))
	for i, res := range results {
		summary.Providers[i] = ProviderSummary{Provider: providers[i], Err: res.Err}
		if !res.OK() {
			logger.Warn().Err(res.Err).Str("provider", string(providers[i])).Msg("provider refresh failed")
			continue
		}
		batches[i] = r.normalizer.NormalizeAll(ctx, res.Records)
		summary.Providers[i].Records = len(batches[i])
	}

	err := duckdb.InTransaction(ctx, r.db, func(ctx context.Context) error {
		for i, p := range summary.Providers {
			if p.Err != nil {
				if err := r.states.MarkFailed(ctx, string(p.Provider), started, p.Err); err != nil {
					return err
				}
				continue
			}
			records := adapters.MapDomainInstancesToStore(batches[i])
			if err := r.cache.ReplaceProvider(ctx, string(p.Provider), records); err != nil {
				return fmt.Errorf("replace %s: %w", p.Provider, err)
			}
			if err := r.history.Append(ctx, records, started); err != nil {
				return fmt.Errorf("record %s prices: %w", p.Provider, err)
			}
			if err := r.states.MarkSucceeded(ctx, string(p.Provider), started, p.Records); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.markAllFailed(ctx, summary.Providers, started, err)
		return summary, err
	}

	summary.Duration = r.now().Sub(started)
	return summary, nil
}

// markAllFailed records a failed write outside the rolled back transaction.
func (r *Runner) markAllFailed(ctx context.Context, providers []ProviderSummary, at time.Time, cause error) {
	var errs []error
	for _, p := range providers {
		if err := r.states.MarkFailed(ctx, string(p.Provider), at, cause); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to record refresh failure")
	}
}
