package normalizer

import "github.com/de-tools/cloudprice/pkg/models/domain"

// MemoryKey is an upstream memory field tagged with the unit it is reported in.
type MemoryKey struct {
	Key  string
	InMB bool
}

// FieldMap lists, per canonical field, the upstream keys to try in order. The first key
// present on a record wins.
type FieldMap struct {
	ID           []string
	InstanceType []string
	Family       []string
	Region       []string
	VCPUs        []string
	Memory       []MemoryKey
	Storage      []string
	Price        []string
	SpotPrice    []string
	GPU          []string
	GPUCount     []string
	GPUType      []string
	Architecture []string
}

var common = FieldMap{
	ID:           []string{"Id", "id", "ID"},
	InstanceType: []string{"InstanceType", "instanceType"},
	Family:       []string{"InstanceFamily", "instanceFamily", "Family"},
	Region:       []string{"Region", "region", "RegionId", "regionId"},
	VCPUs:        []string{"ProcessorVCPUCount", "VCPUs", "vCPUs", "vcpus"},
	Memory: []MemoryKey{
		{Key: "MemorySizeInMB", InMB: true},
		{Key: "MemorySizeInGB"},
		{Key: "memory"},
	},
	Storage:      []string{"StorageSizeInGB", "storage"},
	Price:        []string{"PricePerHour", "OnDemandPricePerHour", "AveragePricePerHour"},
	SpotPrice:    []string{"SpotPricePerHour", "AverageSpotPricePerHour"},
	GPU:          []string{"GPU", "gpu"},
	GPUCount:     []string{"GPUCount", "gpuCount"},
	GPUType:      []string{"GPUType", "GPUName", "gpuType"},
	Architecture: []string{"ProcessorArchitecture", "Architecture", "architecture"},
}

// DefaultFieldMaps holds the mapping tables for every supported provider.
var DefaultFieldMaps = map[domain.Provider]FieldMap{
	domain.ProviderAWS: common,
	domain.ProviderGCP: extend(common, FieldMap{
		InstanceType: []string{"MachineType", "Name"},
		Family:       []string{"MachineFamily"},
		SpotPrice:    []string{"PreemptiblePricePerHour"},
		GPUType:      []string{"AcceleratorType"},
		GPUCount:     []string{"AcceleratorCount"},
	}),
	domain.ProviderAzure: extend(common, FieldMap{
		InstanceType: []string{"SkuName", "armSkuName"},
		Region:       []string{"armRegionName", "Location"},
		VCPUs:        []string{"NumberOfCores"},
		Memory:       []MemoryKey{{Key: "MemoryInMB", InMB: true}},
		Price:        []string{"retailPrice"},
		SpotPrice:    []string{"SpotRetailPrice"},
	}),
}

// extend tries the shared keys first, then the provider specific ones.
func extend(base, extra FieldMap) FieldMap {
	join := func(a, b []string) []string {
		out := make([]string, 0, len(a)+len(b))
		out = append(out, a...)
		return append(out, b...)
	}
	m := FieldMap{
		ID:           join(base.ID, extra.ID),
		InstanceType: join(base.InstanceType, extra.InstanceType),
		Family:       join(base.Family, extra.Family),
		Region:       join(base.Region, extra.Region),
		VCPUs:        join(base.VCPUs, extra.VCPUs),
		Storage:      join(base.Storage, extra.Storage),
		Price:        join(base.Price, extra.Price),
		SpotPrice:    join(base.SpotPrice, extra.SpotPrice),
		GPU:          join(base.GPU, extra.GPU),
		GPUCount:     join(base.GPUCount, extra.GPUCount),
		GPUType:      join(base.GPUType, extra.GPUType),
		Architecture: join(base.Architecture, extra.Architecture),
	}
	m.Memory = append(append([]MemoryKey{}, base.Memory...), extra.Memory...)
	return m
}
