package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
	ProviderGCP   Provider = "gcp"
)

// PlaceholderInstanceType marks records that describe a whole region rather than one instance type.
const PlaceholderInstanceType = "N/A"

// HoursPerMonth is the billing month used for monthly projections.
const HoursPerMonth = 730

func AllProviders() []Provider {
	return []Provider{ProviderAWS, ProviderAzure, ProviderGCP}
}

func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderAWS:
		return ProviderAWS, nil
	case ProviderAzure:
		return ProviderAzure, nil
	case ProviderGCP:
		return ProviderGCP, nil
	}
	return "", fmt.Errorf("unknown provider %q, must be one of: aws, azure, gcp", s)
}

type Category string

const (
	CategoryGeneral Category = "general"
	CategoryCompute Category = "compute"
	CategoryMemory  Category = "memory"
	CategoryStorage Category = "storage"
	CategoryGPU     Category = "gpu"
)

// Instance is the provider-independent view of a single VM offering (or, when RegionAggregated
// is set, of a provider's average price in a region).
type Instance struct {
	ID               string
	Provider         Provider  // aws
	InstanceType     string    // m5.large
	Family           string    // General purpose
	Region           string    // us-east-1
	VCPUs            float64   // 2
	MemoryGB         float64   // 8
	StorageGB        float64   // 0 for EBS-only
	Architecture     string    // x86_64
	GPU              bool      // false
	GPUCount         int       // 0
	GPUType          string    // NVIDIA T4
	PriceOnDemand    float64   // 0.096 per hour
	PriceSpot        float64   // 0 when unknown
	SpotEstimated    bool      // PriceSpot derived from on-demand
	CostPerVCPU      float64   // PriceOnDemand / VCPUs
	CostPerGB        float64   // PriceOnDemand / MemoryGB
	Category         Category  // general
	RegionAggregated bool      // true for region-average records
	Currency         string    // USD
	UpdatedAt        time.Time // when the record was normalized

	// view specific
	AveragePrice     float64 // regionPricing
	SampleCount      int     // regionPricing
	PerformanceScore float64 // pricePerPerformance
	MonthlyCost      float64 // side-by-side projection
}

// WithDerivedCosts recomputes cost per vCPU and per GB from the on-demand price.
func (i Instance) WithDerivedCosts() Instance {
	i.CostPerVCPU = SafeDiv(i.PriceOnDemand, i.VCPUs)
	i.CostPerGB = SafeDiv(i.PriceOnDemand, i.MemoryGB)
	return i
}

// SafeDiv returns a/b, or 0 when b is zero or the result is not a finite number.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	res := a / b
	if math.IsNaN(res) || math.IsInf(res, 0) {
		return 0
	}
	return res
}

// ClassifyCategory buckets an instance by its dominant resource.
func ClassifyCategory(i Instance) Category {
	if i.RegionAggregated {
		return ""
	}
	switch {
	case i.GPU || i.GPUCount > 0:
		return CategoryGPU
	case i.MemoryGB > 64:
		return CategoryMemory
	case i.VCPUs > 16:
		return CategoryCompute
	case i.StorageGB > 1000:
		return CategoryStorage
	default:
		return CategoryGeneral
	}
}

type SortCategory string

const (
	SortCategoryInstancePricing     SortCategory = "instancePricing"
	SortCategoryRegionPricing       SortCategory = "regionPricing"
	SortCategorySpotPrice           SortCategory = "spotPrice"
	SortCategoryPricePerPerformance SortCategory = "pricePerPerformance"
)

func ParseSortCategory(s string) (SortCategory, error) {
	switch SortCategory(s) {
	case "", SortCategoryInstancePricing:
		return SortCategoryInstancePricing, nil
	case SortCategoryRegionPricing, SortCategorySpotPrice, SortCategoryPricePerPerformance:
		return SortCategory(s), nil
	}
	return "", fmt.Errorf("unknown sort category %q", s)
}
