package compare

import (
	"context"
	"fmt"

	"github.com/de-tools/cloudprice/pkg/adapters"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/de-tools/cloudprice/pkg/services/query"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	bestPriceTolerance = 0.2
	bestPriceLimit     = 10
	defaultUsageHours  = domain.HoursPerMonth
)

type BestPriceRequest struct {
	VCPUs     float64
	Memory    float64
	GPU       *bool
	Providers []domain.Provider
	Currency  string
}

// BestPrice returns the cheapest offerings within 20% of the requested vCPUs and memory,
// ranked by performance score.
func (s *service) BestPrice(ctx context.Context, req BestPriceRequest) ([]domain.Instance, error) {
	if req.VCPUs <= 0 || req.Memory <= 0 {
		return nil, fmt.Errorf("%w: vCPUs and memory are required", ErrInvalidRequest)
	}
	providers := req.Providers
	if len(providers) == 0 {
		providers = domain.AllProviders()
	}

	lo, hi := 1-bestPriceTolerance, 1+bestPriceTolerance
	filter := query.Filter{
		MinCPU:    ptr(req.VCPUs * lo),
		MaxCPU:    ptr(req.VCPUs * hi),
		MinMemory: ptr(req.Memory * lo),
		MaxMemory: ptr(req.Memory * hi),
		GPU:       req.GPU,
	}

	candidates := make([]domain.Instance, 0)
	for _, i := range filter.Apply(s.catalogs(ctx, providers, fetcher.Query{})) {
		if i.RegionAggregated || i.PriceOnDemand <= 0 {
			continue
		}
		candidates = append(candidates, i)
	}

	candidates = query.Sort(candidates, query.SortByPrice, query.Asc)
	if len(candidates) > bestPriceLimit {
		candidates = candidates[:bestPriceLimit]
	}
	for idx := range candidates {
		candidates[idx] = s.aggregator.WithScore(candidates[idx])
	}
	candidates = query.Sort(candidates, query.SortByPerformanceScore, query.Desc)

	converted, _ := s.rates.Apply(candidates, req.Currency)
	return converted, nil
}

// SideBySide resolves the given instances, cache first, and projects their monthly cost.
func (s *service) SideBySide(ctx context.Context, ids []string, currencyCode string) ([]domain.Instance, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: instanceIds must be a non-empty array", ErrInvalidRequest)
	}

	found := s.resolve(ctx, ids)
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no instances found for the given ids", ErrNotFound)
	}

	for idx := range found {
		found[idx] = s.aggregator.WithScore(s.aggregator.WithSpot(found[idx]))
	}
	converted, _ := s.rates.Apply(found, currencyCode)
	for idx := range converted {
		converted[idx].MonthlyCost = monthly(converted[idx].PriceOnDemand, defaultUsageHours)
	}
	return converted, nil
}

type SavingsRequest struct {
	InstanceID string
	UsageHours float64
	Currency   string
}

type Savings struct {
	Instance       domain.Instance
	UsageHours     float64
	OnDemandCost   float64
	SpotCost       float64
	Savings        float64
	SavingsPercent float64
	Currency       string
}

// Savings compares running an instance on-demand against spot for the given hours.
func (s *service) Savings(ctx context.Context, req SavingsRequest) (*Savings, error) {
	if req.InstanceID == "" {
		return nil, fmt.Errorf("%w: instanceId is required", ErrInvalidRequest)
	}
	if req.UsageHours < 0 {
		return nil, fmt.Errorf("%w: usageHours must not be negative", ErrInvalidRequest)
	}
	hours := req.UsageHours
	if hours == 0 {
		hours = defaultUsageHours
	}

	found := s.resolve(ctx, []string{req.InstanceID})
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, req.InstanceID)
	}
	if found[0].RegionAggregated {
		return nil, fmt.Errorf("%w: %s is a region average, not an instance", ErrInvalidRequest, req.InstanceID)
	}

	converted, code := s.rates.Apply([]domain.Instance{s.aggregator.WithSpot(found[0])}, req.Currency)
	inst := converted[0]

	onDemand := monthlyDecimal(inst.PriceOnDemand, hours)
	spot := monthlyDecimal(inst.PriceSpot, hours)
	saved := onDemand.Sub(spot)

	var pct decimal.Decimal
	if !onDemand.IsZero() {
		pct = saved.Div(onDemand).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &Savings{
		Instance:       inst,
		UsageHours:     hours,
		OnDemandCost:   onDemand.InexactFloat64(),
		SpotCost:       spot.InexactFloat64(),
		Savings:        saved.InexactFloat64(),
		SavingsPercent: pct.InexactFloat64(),
		Currency:       code,
	}, nil
}

// resolve finds instances by id in request order, consulting the cache before a live fetch.
func (s *service) resolve(ctx context.Context, ids []string) []domain.Instance {
	wanted := unique(ids)
	byID := make(map[string]domain.Instance, len(wanted))

	if s.cache.Enabled() {
		cached, err := s.cache.GetByIDs(ctx, ids)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("cache lookup failed, fetching live")
		}
		for _, i := range adapters.MapStoreInstancesToDomain(cached) {
			byID[i.ID] = i
		}
	}

	if len(byID) < len(wanted) {
		live, _ := s.Collect(ctx, domain.AllProviders(), fetcher.Query{})
		for _, i := range live {
			if _, ok := wanted[i.ID]; !ok {
				continue
			}
			if _, ok := byID[i.ID]; !ok {
				byID[i.ID] = i
			}
		}
	}

	out := make([]domain.Instance, 0, len(wanted))
	seen := make(map[string]struct{}, len(wanted))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if i, ok := byID[id]; ok {
			out = append(out, i)
		}
	}
	return out
}

func monthlyDecimal(hourly, hours float64) decimal.Decimal {
	return decimal.NewFromFloat(hourly).Mul(decimal.NewFromFloat(hours)).Round(4)
}

func monthly(hourly, hours float64) float64 {
	return monthlyDecimal(hourly, hours).InexactFloat64()
}

func unique(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func ptr[T any](v T) *T { return &v }
