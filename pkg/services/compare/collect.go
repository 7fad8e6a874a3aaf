package compare

import (
	"context"

	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Collect fetches providers concurrently and waits for all of them; a failing provider only
// contributes an error status. Successful batches are written to the cache best-effort.
func (s *service) Collect(ctx context.Context, providers []domain.Provider, q fetcher.Query) ([]domain.Instance, []SourceStatus) {
	results := fetcher.FetchAll(ctx, s.fetchers, providers, q)

	var (
		all     []domain.Instance
		sources = make([]SourceStatus, 0, len(results))
	)
	for i, res := range results {
		status := SourceStatus{Provider: providers[i], Err: res.Err}
		if res.OK() {
			batch := s.normalizer.NormalizeAll(ctx, res.Records)
			status.Records = len(batch)
			all = append(all, batch...)
			s.cacheBatch(ctx, providers[i], batch)
		}
		sources = append(sources, status)
	}
	return all, sources
}

func (s *service) cacheBatch(ctx context.Context, p domain.Provider, batch []domain.Instance) {
	if !s.cache.Enabled() || len(batch) == 0 {
		return
	}
	if err := s.cache.Upsert(ctx, adapters.MapDomainInstancesToStore(batch)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("provider", string(p)).Msg("failed to cache instances")
	}
}

// catalog returns the provider's offerings from the cache, fetching live when the cache has
// none or cannot be read.
func (s *service) catalog(ctx context.Context, p domain.Provider, q fetcher.Query) ([]domain.Instance, Source) {
	if s.cache.Enabled() {
		records, err := s.cache.List(ctx, store.InstanceQuery{Provider: string(p), Region: q.Region})
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("provider", string(p)).Msg("cache read failed, fetching live")
		} else if len(records) > 0 {
			return adapters.MapStoreInstancesToDomain(records), SourceCache
		}
	}

	live, _ := s.Collect(ctx, []domain.Provider{p}, q)
	return live, SourceLive
}

// catalogs loads several providers concurrently through catalog.
func (s *service) catalogs(ctx context.Context, providers []domain.Provider, q fetcher.Query) []domain.Instance {
	batches := make([][]domain.Instance, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			batches[i], _ = s.catalog(ctx, p, q)
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.Instance
	for _, b := range batches {
		all = append(all, b...)
	}
	return all
}
