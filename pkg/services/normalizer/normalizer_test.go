package normalizer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	n := New()
	n.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     fetcher.RawRecord
		want    domain.Instance
		wantErr bool
	}{
		{
			name: "aws item converts memory from MB once",
			raw: fetcher.RawRecord{Provider: domain.ProviderAWS, Fields: map[string]any{
				"InstanceType":       "m5.large",
				"InstanceFamily":     "General purpose",
				"Region":             "us-east-1",
				"ProcessorVCPUCount": 2.0,
				"MemorySizeInMB":     8192.0,
				"PricePerHour":       0.096,
				"GPUCount":           0.0,
			}},
			want: domain.Instance{
				Provider:      domain.ProviderAWS,
				InstanceType:  "m5.large",
				Family:        "General purpose",
				Region:        "us-east-1",
				VCPUs:         2,
				MemoryGB:      8,
				PriceOnDemand: 0.096,
				CostPerVCPU:   0.048,
				CostPerGB:     0.012,
				Category:      domain.CategoryGeneral,
				Architecture:  unknown,
			},
		},
		{
			name: "gcp item with numeric strings and accelerator",
			raw: fetcher.RawRecord{Provider: domain.ProviderGCP, Fields: map[string]any{
				"MachineType":         "a2-highgpu-1g",
				"RegionId":            "us-central1",
				"vCPUs":               "12",
				"MemorySizeInGB":      "85",
				"AveragePricePerHour": " 3.67 ",
				"AcceleratorCount":    1,
				"AcceleratorType":     "nvidia-tesla-a100",
			}},
			want: domain.Instance{
				Provider:      domain.ProviderGCP,
				InstanceType:  "a2-highgpu-1g",
				Region:        "us-central1",
				VCPUs:         12,
				MemoryGB:      85,
				PriceOnDemand: 3.67,
				CostPerVCPU:   3.67 / 12,
				CostPerGB:     3.67 / 85,
				GPU:           true,
				GPUCount:      1,
				GPUType:       "nvidia-tesla-a100",
				Category:      domain.CategoryGPU,
				Architecture:  unknown,
			},
		},
		{
			name: "missing fields default",
			raw:  fetcher.RawRecord{Provider: domain.ProviderGCP, Fields: map[string]any{}},
			want: domain.Instance{
				Provider:     domain.ProviderGCP,
				InstanceType: unknown,
				Region:       unknown,
				Architecture: unknown,
				Category:     domain.CategoryGeneral,
			},
		},
		{
			name: "region aggregated azure record",
			raw: fetcher.RawRecord{Provider: domain.ProviderAzure, RegionAggregated: true, Fields: map[string]any{
				"InstanceType":        "N/A",
				"Region":              "eastus",
				"AveragePricePerHour": 0.15,
				"ProcessorVCPUCount":  0,
				"MemorySizeInMB":      0,
			}},
			want: domain.Instance{
				Provider:         domain.ProviderAzure,
				InstanceType:     domain.PlaceholderInstanceType,
				Region:           "eastus",
				PriceOnDemand:    0.15,
				AveragePrice:     0.15,
				RegionAggregated: true,
				Architecture:     unknown,
			},
		},
		{
			name:    "missing provider",
			raw:     fetcher.RawRecord{Fields: map[string]any{"InstanceType": "m5.large"}},
			wantErr: true,
		},
		{
			name:    "non numeric price",
			raw:     fetcher.RawRecord{Provider: domain.ProviderAWS, Fields: map[string]any{"PricePerHour": "cheap"}},
			wantErr: true,
		},
		{
			name:    "negative vcpus",
			raw:     fetcher.RawRecord{Provider: domain.ProviderAWS, Fields: map[string]any{"ProcessorVCPUCount": -2.0}},
			wantErr: true,
		},
		{
			name:    "unexpected memory type",
			raw:     fetcher.RawRecord{Provider: domain.ProviderAWS, Fields: map[string]any{"MemorySizeInMB": []any{1}}},
			wantErr: true,
		},
	}

	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
				return
			}
			require.NoError(t, err)

			tt.want.Currency = defaultCurrency
			tt.want.UpdatedAt = n.now()
			tt.want.ID = InstanceID(tt.want.Provider, tt.want.InstanceType, tt.want.Region)

			assert.InDelta(t, tt.want.CostPerVCPU, got.CostPerVCPU, 1e-9)
			assert.InDelta(t, tt.want.CostPerGB, got.CostPerGB, 1e-9)
			tt.want.CostPerVCPU, tt.want.CostPerGB = got.CostPerVCPU, got.CostPerGB
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_UpstreamIDWins(t *testing.T) {
	n := newTestNormalizer()
	got, err := n.Normalize(fetcher.RawRecord{Provider: domain.ProviderAWS, Fields: map[string]any{
		"Id":           "i-123",
		"InstanceType": "t3.micro",
	}})
	require.NoError(t, err)
	assert.Equal(t, "i-123", got.ID)
}

func TestInstanceID_Stable(t *testing.T) {
	a := InstanceID(domain.ProviderAWS, "m5.large", "us-east-1")
	assert.Equal(t, a, InstanceID(domain.ProviderAWS, "m5.large", "us-east-1"))
	assert.NotEqual(t, a, InstanceID(domain.ProviderAWS, "m5.large", "us-west-2"))
	assert.NotEqual(t, a, InstanceID(domain.ProviderGCP, "m5.large", "us-east-1"))
}

func TestNormalize_DerivedCostsAreFinite(t *testing.T) {
	n := newTestNormalizer()
	inputs := []map[string]any{
		{"PricePerHour": 1.0},
		{"PricePerHour": 1.0, "ProcessorVCPUCount": 0, "MemorySizeInMB": 0},
		{"PricePerHour": 0.0, "ProcessorVCPUCount": 4, "MemorySizeInMB": 16384},
		{"PricePerHour": 1e308, "ProcessorVCPUCount": 1e-308},
	}

	for _, fields := range inputs {
		got, err := n.Normalize(fetcher.RawRecord{Provider: domain.ProviderAWS, Fields: fields})
		require.NoError(t, err)

		for _, v := range []float64{got.CostPerVCPU, got.CostPerGB} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			assert.GreaterOrEqual(t, v, 0.0)
		}
		if got.VCPUs == 0 {
			assert.Zero(t, got.CostPerVCPU)
		}
		if got.MemoryGB == 0 {
			assert.Zero(t, got.CostPerGB)
		}
	}
}

func TestNormalizeAll_SkipsMalformed(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	raws := []fetcher.RawRecord{
		{Provider: domain.ProviderAWS, Fields: map[string]any{"InstanceType": "m5.large", "PricePerHour": 0.1}},
		{Provider: domain.ProviderAWS, Fields: map[string]any{"InstanceType": "bad", "PricePerHour": "n/a"}},
		{Fields: map[string]any{"InstanceType": "orphan"}},
		{Provider: domain.ProviderGCP, Fields: map[string]any{"InstanceType": "e2-small", "PricePerHour": "0.02"}},
	}

	got := newTestNormalizer().NormalizeAll(ctx, raws)

	require.Len(t, got, 2)
	assert.Equal(t, "m5.large", got[0].InstanceType)
	assert.Equal(t, "e2-small", got[1].InstanceType)
}
