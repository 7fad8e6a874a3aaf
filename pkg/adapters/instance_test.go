package adapters

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/models/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceMapping(t *testing.T) {
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	inst := domain.Instance{
		ID:               "id-1",
		Provider:         domain.ProviderAWS,
		InstanceType:     "m5.large",
		Region:           "us-east-1",
		VCPUs:            2,
		MemoryGB:         8,
		PriceOnDemand:    0.096,
		PriceSpot:        0.0672,
		SpotEstimated:    true,
		Category:         domain.CategoryGeneral,
		Currency:         "USD",
		UpdatedAt:        updated,
		PerformanceScore: 45,
	}.WithDerivedCosts()

	t.Run("store round trip drops estimates and view fields", func(t *testing.T) {
		back := MapStoreInstanceToDomain(MapDomainInstanceToStore(inst))

		assert.Zero(t, back.PriceSpot)
		assert.False(t, back.SpotEstimated)
		assert.Zero(t, back.PerformanceScore)
		assert.Equal(t, inst.CostPerVCPU, back.CostPerVCPU)
		assert.Equal(t, inst.CostPerGB, back.CostPerGB)
		assert.Equal(t, inst.Category, back.Category)
		assert.Equal(t, updated, back.UpdatedAt)
	})

	t.Run("api shape", func(t *testing.T) {
		out := MapDomainInstanceToApi(inst)

		assert.Equal(t, "aws", out.Provider)
		assert.Equal(t, 8.0, out.Memory)
		assert.Equal(t, 0.096, out.Pricing.OnDemand)
		assert.Equal(t, 0.0672, out.Pricing.Spot)
		assert.True(t, out.Pricing.SpotEstimated)
		assert.Equal(t, "USD", out.Pricing.Currency)
		assert.False(t, out.IsRegionAggregated)
	})

	t.Run("average price is always serialized", func(t *testing.T) {
		raw, err := json.Marshal(MapDomainInstanceToApi(inst))
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))
		assert.Contains(t, fields, "averagePrice")
		assert.Equal(t, 0.0, fields["averagePrice"])
	})
}

func TestPricePointMapping(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	points := MapDomainPricePointsToApi(MapStorePricePointsToDomain([]store.PricePoint{{
		Provider:      "gcp",
		InstanceType:  "e2-standard-2",
		Region:        "us-central1",
		PriceOnDemand: 0.067,
		PriceSpot:     0.02,
		Currency:      "USD",
		RecordedAt:    at,
	}}))

	require.Len(t, points, 1)
	assert.Equal(t, "gcp", points[0].Provider)
	assert.Equal(t, 0.067, points[0].Pricing.OnDemand)
	assert.Equal(t, 0.02, points[0].Pricing.Spot)
	assert.Equal(t, at, points[0].RecordedAt)
}
