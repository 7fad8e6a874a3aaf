package compare

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/de-tools/cloudprice/pkg/services/currency"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/query"
)

const specTolerance = 1e-6

// Instance looks up a single offering by id, cache first.
func (s *service) Instance(ctx context.Context, id, currencyCode string) (*domain.Instance, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: instance id is required", ErrInvalidRequest)
	}

	found := s.resolve(ctx, []string{id})
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, id)
	}

	converted, _ := s.rates.Apply([]domain.Instance{s.aggregator.WithSpot(found[0])}, currencyCode)
	return &converted[0], nil
}

type SimilarRequest struct {
	VCPUs     float64
	Memory    float64
	Region    string
	Providers []domain.Provider
	Currency  string
}

// Similar returns the offerings of every provider with exactly the requested vCPUs and memory,
// cheapest first.
func (s *service) Similar(ctx context.Context, req SimilarRequest) ([]domain.Instance, error) {
	if req.VCPUs <= 0 || req.Memory <= 0 {
		return nil, fmt.Errorf("%w: vCPUs and memory are required", ErrInvalidRequest)
	}
	providers := req.Providers
	if len(providers) == 0 {
		providers = domain.AllProviders()
	}

	matches := make([]domain.Instance, 0)
	for _, i := range s.catalogs(ctx, providers, fetcher.Query{Region: req.Region}) {
		if i.RegionAggregated {
			continue
		}
		if req.Region != "" && i.Region != req.Region {
			continue
		}
		if math.Abs(i.VCPUs-req.VCPUs) > specTolerance || math.Abs(i.MemoryGB-req.Memory) > specTolerance {
			continue
		}
		matches = append(matches, i)
	}

	matches = query.Sort(matches, query.SortByPrice, query.Asc)
	converted, _ := s.rates.Apply(matches, req.Currency)
	return converted, nil
}

type CatalogRequest struct {
	Provider domain.Provider
	Region   string
	Category domain.Category
	Currency string
}

// Catalog lists one provider's offerings, optionally narrowed to a region and category,
// cheapest first.
func (s *service) Catalog(ctx context.Context, req CatalogRequest) ([]domain.Instance, error) {
	list, _ := s.catalog(ctx, req.Provider, fetcher.Query{Region: req.Region})

	out := make([]domain.Instance, 0, len(list))
	for _, i := range list {
		if req.Region != "" && i.Region != req.Region {
			continue
		}
		if req.Category != "" && i.Category != req.Category {
			continue
		}
		out = append(out, i)
	}

	out = query.Sort(out, query.SortByPrice, query.Asc)
	converted, _ := s.rates.Apply(out, req.Currency)
	return converted, nil
}

type HistoryRequest struct {
	Provider     domain.Provider
	InstanceType string
	Region       string
	Limit        int
	Currency     string
}

// PricingHistory returns the recorded prices of one offering, newest first. Without a cache
// nothing is recorded and the history is empty.
func (s *service) PricingHistory(ctx context.Context, req HistoryRequest) ([]domain.PricePoint, string, error) {
	if strings.TrimSpace(req.InstanceType) == "" || strings.TrimSpace(req.Region) == "" {
		return nil, "", fmt.Errorf("%w: instanceType and region are required", ErrInvalidRequest)
	}
	code, _ := s.rates.Resolve(req.Currency)

	points, err := s.history.List(ctx, store.HistoryQuery{
		Provider:     string(req.Provider),
		InstanceType: req.InstanceType,
		Region:       req.Region,
		Limit:        req.Limit,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read price history: %w", err)
	}

	out := adapters.MapStorePricePointsToDomain(points)
	for idx, p := range out {
		from := p.Currency
		if from == "" {
			from = currency.Base
		}
		out[idx].PriceOnDemand = s.rates.Convert(p.PriceOnDemand, from, code)
		out[idx].PriceSpot = s.rates.Convert(p.PriceSpot, from, code)
		out[idx].Currency = code
	}
	return out, code, nil
}
