package adapters

import (
	"github.com/de-tools/cloudprice/pkg/models/api"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/models/store"
)

func MapStoreInstanceToDomain(r store.InstanceRecord) domain.Instance {
	return domain.Instance{
		ID:               r.ID,
		Provider:         domain.Provider(r.Provider),
		InstanceType:     r.InstanceType,
		Family:           r.Family,
		Region:           r.Region,
		VCPUs:            r.VCPUs,
		MemoryGB:         r.MemoryGB,
		StorageGB:        r.StorageGB,
		Architecture:     r.Architecture,
		GPU:              r.GPU,
		GPUCount:         r.GPUCount,
		GPUType:          r.GPUType,
		PriceOnDemand:    r.PriceOnDemand,
		PriceSpot:        r.PriceSpot,
		Category:         domain.Category(r.Category),
		RegionAggregated: r.RegionAggregated,
		Currency:         r.Currency,
		UpdatedAt:        r.UpdatedAt,
	}.WithDerivedCosts()
}

func MapStoreInstancesToDomain(records []store.InstanceRecord) []domain.Instance {
	out := make([]domain.Instance, len(records))
	for i, r := range records {
		out[i] = MapStoreInstanceToDomain(r)
	}
	return out
}

// MapDomainInstanceToStore drops view fields and estimated spot prices; only upstream
// facts are cached.
func MapDomainInstanceToStore(i domain.Instance) store.InstanceRecord {
	spot := i.PriceSpot
	if i.SpotEstimated {
		spot = 0
	}
	return store.InstanceRecord{
		ID:               i.ID,
		Provider:         string(i.Provider),
		InstanceType:     i.InstanceType,
		Family:           i.Family,
		Region:           i.Region,
		VCPUs:            i.VCPUs,
		MemoryGB:         i.MemoryGB,
		StorageGB:        i.StorageGB,
		Architecture:     i.Architecture,
		GPU:              i.GPU,
		GPUCount:         i.GPUCount,
		GPUType:          i.GPUType,
		PriceOnDemand:    i.PriceOnDemand,
		PriceSpot:        spot,
		Category:         string(i.Category),
		RegionAggregated: i.RegionAggregated,
		Currency:         i.Currency,
		UpdatedAt:        i.UpdatedAt,
	}
}

func MapDomainInstancesToStore(instances []domain.Instance) []store.InstanceRecord {
	out := make([]store.InstanceRecord, len(instances))
	for i, inst := range instances {
		out[i] = MapDomainInstanceToStore(inst)
	}
	return out
}

func MapDomainInstanceToApi(i domain.Instance) api.Instance {
	return api.Instance{
		ID:           i.ID,
		Provider:     string(i.Provider),
		InstanceType: i.InstanceType,
		Family:       i.Family,
		Region:       i.Region,
		VCPUs:        i.VCPUs,
		Memory:       i.MemoryGB,
		Storage:      i.StorageGB,
		Architecture: i.Architecture,
		GPU:          i.GPU,
		GPUCount:     i.GPUCount,
		GPUType:      i.GPUType,
		Pricing: api.Pricing{
			OnDemand:      i.PriceOnDemand,
			Spot:          i.PriceSpot,
			SpotEstimated: i.SpotEstimated,
			Currency:      i.Currency,
		},
		CostPerVCPU:        i.CostPerVCPU,
		CostPerGB:          i.CostPerGB,
		Category:           string(i.Category),
		IsRegionAggregated: i.RegionAggregated,
		AveragePrice:       i.AveragePrice,
		SampleCount:        i.SampleCount,
		PerformanceScore:   i.PerformanceScore,
		MonthlyCost:        i.MonthlyCost,
		UpdatedAt:          i.UpdatedAt,
	}
}

func MapDomainInstancesToApi(instances []domain.Instance) []api.Instance {
	out := make([]api.Instance, len(instances))
	for i, inst := range instances {
		out[i] = MapDomainInstanceToApi(inst)
	}
	return out
}

func MapStoreRefreshStatesToApi(states []*store.RefreshState) []api.RefreshState {
	out := make([]api.RefreshState, 0, len(states))
	for _, s := range states {
		if s == nil {
			continue
		}
		out = append(out, api.RefreshState{
			Provider:        s.Provider,
			LastAttemptAt:   s.LastAttemptAt,
			LastRefreshedAt: s.LastRefreshedAt,
			LastError:       s.LastError,
			Records:         s.RecordsCount,
		})
	}
	return out
}

func MapStorePricePointsToDomain(points []store.PricePoint) []domain.PricePoint {
	out := make([]domain.PricePoint, len(points))
	for i, p := range points {
		out[i] = domain.PricePoint{
			Provider:      domain.Provider(p.Provider),
			InstanceType:  p.InstanceType,
			Region:        p.Region,
			PriceOnDemand: p.PriceOnDemand,
			PriceSpot:     p.PriceSpot,
			Currency:      p.Currency,
			RecordedAt:    p.RecordedAt,
		}
	}
	return out
}

func MapDomainPricePointsToApi(points []domain.PricePoint) []api.PricePoint {
	out := make([]api.PricePoint, len(points))
	for i, p := range points {
		out[i] = api.PricePoint{
			Provider:     string(p.Provider),
			InstanceType: p.InstanceType,
			Region:       p.Region,
			Pricing: api.Pricing{
				OnDemand: p.PriceOnDemand,
				Spot:     p.PriceSpot,
				Currency: p.Currency,
			},
			RecordedAt: p.RecordedAt,
		}
	}
	return out
}
