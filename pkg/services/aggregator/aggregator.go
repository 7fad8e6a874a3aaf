// Package aggregator reshapes normalized instances into the view selected by a sort category.
package aggregator

import (
	"github.com/de-tools/cloudprice/pkg/models/domain"
)

type Aggregator struct {
	spot  SpotEstimator
	score PerformanceScorer
}

func New(spot SpotEstimator, score PerformanceScorer) *Aggregator {
	if spot == nil {
		spot = RatioSpotEstimator{Ratio: DefaultSpotRatio}
	}
	if score == nil {
		score = WeightedScorer{CPUWeight: DefaultCPUWeight, MemoryWeight: DefaultMemoryWeight}
	}
	return &Aggregator{spot: spot, score: score}
}

func (a *Aggregator) Aggregate(category domain.SortCategory, instances []domain.Instance) []domain.Instance {
	switch category {
	case domain.SortCategoryRegionPricing:
		return a.regionPricing(instances)
	case domain.SortCategorySpotPrice:
		return a.spotPrice(instances)
	case domain.SortCategoryPricePerPerformance:
		return a.pricePerPerformance(instances)
	default:
		return a.instancePricing(instances)
	}
}

// WithSpot fills PriceSpot from the estimator when the upstream did not quote one.
func (a *Aggregator) WithSpot(i domain.Instance) domain.Instance {
	if i.PriceSpot == 0 && !i.RegionAggregated {
		i.PriceSpot = a.spot.EstimateSpot(i)
		i.SpotEstimated = true
	}
	return i
}

// WithScore attaches the performance score.
func (a *Aggregator) WithScore(i domain.Instance) domain.Instance {
	if !i.RegionAggregated {
		i.PerformanceScore = a.score.Score(i)
	}
	return i
}

func (a *Aggregator) instancePricing(instances []domain.Instance) []domain.Instance {
	out := make([]domain.Instance, len(instances))
	for idx, i := range instances {
		out[idx] = i.WithDerivedCosts()
	}
	return out
}

func (a *Aggregator) spotPrice(instances []domain.Instance) []domain.Instance {
	out := make([]domain.Instance, 0, len(instances))
	for _, i := range instances {
		if i.RegionAggregated {
			continue
		}
		out = append(out, a.WithSpot(i.WithDerivedCosts()))
	}
	return out
}

func (a *Aggregator) pricePerPerformance(instances []domain.Instance) []domain.Instance {
	out := make([]domain.Instance, 0, len(instances))
	for _, i := range instances {
		if i.RegionAggregated {
			continue
		}
		out = append(out, a.WithScore(i.WithDerivedCosts()))
	}
	return out
}

type regionKey struct {
	provider domain.Provider
	region   string
}

// regionPricing collapses instance records into one average per (provider, region), keeping
// the order in which groups were first seen. Region-aggregated input is passed through.
func (a *Aggregator) regionPricing(instances []domain.Instance) []domain.Instance {
	var (
		order  []regionKey
		sums   = make(map[regionKey]float64)
		counts = make(map[regionKey]int)
		out    []domain.Instance
		slots  = make(map[regionKey]int)
	)

	for _, i := range instances {
		if i.RegionAggregated {
			if i.AveragePrice == 0 {
				i.AveragePrice = i.PriceOnDemand
			}
			out = append(out, i)
			continue
		}

		key := regionKey{provider: i.Provider, region: i.Region}
		if _, seen := slots[key]; !seen {
			order = append(order, key)
			slots[key] = len(out)
			out = append(out, domain.Instance{Currency: i.Currency})
		}
		sums[key] += i.PriceOnDemand
		counts[key]++
	}

	for _, key := range order {
		avg := sums[key] / float64(counts[key])
		slot := slots[key]
		out[slot] = domain.Instance{
			ID:               key.regionID(),
			Provider:         key.provider,
			InstanceType:     domain.PlaceholderInstanceType,
			Region:           key.region,
			PriceOnDemand:    avg,
			AveragePrice:     avg,
			SampleCount:      counts[key],
			RegionAggregated: true,
			Currency:         out[slot].Currency,
		}
	}
	return out
}

func (k regionKey) regionID() string {
	return string(k.provider) + ":" + k.region
}
