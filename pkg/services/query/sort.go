package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/de-tools/cloudprice/pkg/models/domain"
)

type SortKey string

const (
	SortByPrice            SortKey = "price"
	SortByVCPUs            SortKey = "vCPUs"
	SortByMemory           SortKey = "memory"
	SortByCostPerVCPU      SortKey = "costPerVCPU"
	SortByCostPerGB        SortKey = "costPerGB"
	SortBySpotPrice        SortKey = "spotPrice"
	SortByAveragePrice     SortKey = "averagePrice"
	SortByPerformanceScore SortKey = "performanceScore"
	SortByProvider         SortKey = "provider"
	SortByRegion           SortKey = "region"
	SortByInstanceType     SortKey = "instanceType"
)

var sortAliases = map[string]SortKey{
	"onDemand":         SortByPrice,
	"pricing.onDemand": SortByPrice,
	"ram":              SortByMemory,
	"memoryGB":         SortByMemory,
	"vcpus":            SortByVCPUs,
	"pricing.spot":     SortBySpotPrice,
}

var numericKeys = map[SortKey]func(domain.Instance) float64{
	SortByPrice:            func(i domain.Instance) float64 { return i.PriceOnDemand },
	SortByVCPUs:            func(i domain.Instance) float64 { return i.VCPUs },
	SortByMemory:           func(i domain.Instance) float64 { return i.MemoryGB },
	SortByCostPerVCPU:      func(i domain.Instance) float64 { return i.CostPerVCPU },
	SortByCostPerGB:        func(i domain.Instance) float64 { return i.CostPerGB },
	SortBySpotPrice:        func(i domain.Instance) float64 { return i.PriceSpot },
	SortByAveragePrice:     func(i domain.Instance) float64 { return i.AveragePrice },
	SortByPerformanceScore: func(i domain.Instance) float64 { return i.PerformanceScore },
}

var stringKeys = map[SortKey]func(domain.Instance) string{
	SortByProvider:     func(i domain.Instance) string { return string(i.Provider) },
	SortByRegion:       func(i domain.Instance) string { return i.Region },
	SortByInstanceType: func(i domain.Instance) string { return i.InstanceType },
}

// ParseSortKey resolves a client sort field. Unknown names fall back to price.
func ParseSortKey(s string) SortKey {
	s = strings.TrimSpace(s)
	if k, ok := sortAliases[s]; ok {
		return k
	}
	k := SortKey(s)
	if _, ok := numericKeys[k]; ok {
		return k
	}
	if _, ok := stringKeys[k]; ok {
		return k
	}
	return SortByPrice
}

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("invalid sort order %q, must be asc or desc", s)
}

// Sort returns a sorted copy. Ties keep their input order in both directions.
func Sort(instances []domain.Instance, key SortKey, order Order) []domain.Instance {
	out := make([]domain.Instance, len(instances))
	copy(out, instances)

	var less func(a, b domain.Instance) bool
	if str, ok := stringKeys[key]; ok {
		less = func(a, b domain.Instance) bool { return str(a) < str(b) }
	} else {
		num, ok := numericKeys[key]
		if !ok {
			num = numericKeys[SortByPrice]
		}
		less = func(a, b domain.Instance) bool { return num(a) < num(b) }
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
