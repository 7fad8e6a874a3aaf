package compare

import (
	"context"
	"sort"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/rs/zerolog"
)

type Source string

const (
	SourceCache Source = "cache"
	SourceLive  Source = "live"
)

type Listing struct {
	Instances []domain.Instance
	Source    Source
}

func (s *service) ProviderInstances(ctx context.Context, p domain.Provider, q fetcher.Query, limit int) (*Listing, error) {
	list, source := s.catalog(ctx, p, q)
	if q.Region != "" {
		filtered := list[:0:0]
		for _, i := range list {
			if i.Region == q.Region {
				filtered = append(filtered, i)
			}
		}
		list = filtered
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	if list == nil {
		list = []domain.Instance{}
	}
	return &Listing{Instances: list, Source: source}, nil
}

func (s *service) Regions(ctx context.Context, p domain.Provider) ([]string, error) {
	if s.cache.Enabled() {
		regions, err := s.cache.Regions(ctx, string(p))
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("provider", string(p)).Msg("cache read failed, fetching live")
		} else if len(regions) > 0 {
			return regions, nil
		}
	}

	list, _ := s.catalog(ctx, p, fetcher.Query{})
	seen := make(map[string]struct{})
	regions := make([]string, 0)
	for _, i := range list {
		if _, ok := seen[i.Region]; ok {
			continue
		}
		seen[i.Region] = struct{}{}
		regions = append(regions, i.Region)
	}
	sort.Strings(regions)
	return regions, nil
}

func (s *service) Categories(ctx context.Context, p domain.Provider) ([]domain.Category, error) {
	list, _ := s.catalog(ctx, p, fetcher.Query{})

	seen := make(map[domain.Category]struct{})
	categories := make([]domain.Category, 0)
	for _, i := range list {
		if i.Category == "" {
			continue
		}
		if _, ok := seen[i.Category]; ok {
			continue
		}
		seen[i.Category] = struct{}{}
		categories = append(categories, i.Category)
	}
	sort.Slice(categories, func(a, b int) bool { return categories[a] < categories[b] })
	return categories, nil
}
