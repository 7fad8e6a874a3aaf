package aggregator

import "github.com/de-tools/cloudprice/pkg/models/domain"

const (
	DefaultSpotRatio    = 0.7
	DefaultCPUWeight    = 0.6
	DefaultMemoryWeight = 0.4
)

// SpotEstimator approximates a spot price for offerings the upstream has no spot quote for.
type SpotEstimator interface {
	EstimateSpot(i domain.Instance) float64
}

// PerformanceScorer rates how much compute an offering buys per unit of price. Higher is better.
type PerformanceScorer interface {
	Score(i domain.Instance) float64
}

// RatioSpotEstimator is a flat discount off the on-demand price, not a market quote.
type RatioSpotEstimator struct {
	Ratio float64
}

func (e RatioSpotEstimator) EstimateSpot(i domain.Instance) float64 {
	return i.PriceOnDemand * e.Ratio
}

// WeightedScorer blends vCPUs and memory and divides by the hourly price.
type WeightedScorer struct {
	CPUWeight    float64
	MemoryWeight float64
}

func (s WeightedScorer) Score(i domain.Instance) float64 {
	return domain.SafeDiv(s.CPUWeight*i.VCPUs+s.MemoryWeight*i.MemoryGB, i.PriceOnDemand)
}
