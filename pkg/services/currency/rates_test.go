package currency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_RoundTrip(t *testing.T) {
	r := Default()
	for _, code := range r.Codes() {
		for _, v := range []float64{0, 0.0116, 1, 3.67, 12345.678} {
			back := r.Convert(r.Convert(v, "USD", code), code, "USD")
			assert.InDelta(t, v, back, 1e-9, "%s %v", code, v)
		}
	}
}

func TestConvert_Linear(t *testing.T) {
	r := Default()
	a, b := 0.25, 1.75
	assert.InDelta(t, r.Convert(a, "USD", "EUR")+r.Convert(b, "USD", "EUR"), r.Convert(a+b, "USD", "EUR"), 1e-12)
	assert.InDelta(t, 0.92, r.Convert(1, "USD", "EUR"), 1e-12)
}

func TestResolve(t *testing.T) {
	r := Default()

	code, rate := r.Resolve(" jpy ")
	assert.Equal(t, "JPY", code)
	assert.Equal(t, 149.5, rate)

	code, rate = r.Resolve("XYZ")
	assert.Equal(t, "USD", code)
	assert.Equal(t, 1.0, rate)
}

func TestApply(t *testing.T) {
	r := Default()
	input := []domain.Instance{{
		PriceOnDemand:    1,
		PriceSpot:        0.5,
		CostPerVCPU:      0.25,
		CostPerGB:        0.125,
		AveragePrice:     1,
		PerformanceScore: 10,
		Currency:         "USD",
	}}

	got, code := r.Apply(input, "gbp")

	require.Len(t, got, 1)
	assert.Equal(t, "GBP", code)
	assert.Equal(t, "GBP", got[0].Currency)
	assert.InDelta(t, 0.79, got[0].PriceOnDemand, 1e-12)
	assert.InDelta(t, 0.395, got[0].PriceSpot, 1e-12)
	assert.InDelta(t, 0.1975, got[0].CostPerVCPU, 1e-12)
	assert.InDelta(t, 0.09875, got[0].CostPerGB, 1e-12)
	assert.InDelta(t, 0.79, got[0].AveragePrice, 1e-12)
	assert.Equal(t, 10.0, got[0].PerformanceScore)
	assert.Equal(t, 1.0, input[0].PriceOnDemand)

	same, code := r.Apply(input, "")
	assert.Equal(t, "USD", code)
	assert.Equal(t, 1.0, same[0].PriceOnDemand)
}

func TestLoadRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.ini")
	require.NoError(t, os.WriteFile(path, []byte("chf = 0.88\n\n[rates]\nEUR = 0.95\n"), 0o600))

	r, err := LoadRates(path)
	require.NoError(t, err)

	_, rate := r.Resolve("EUR")
	assert.Equal(t, 0.95, rate)
	_, rate = r.Resolve("CHF")
	assert.Equal(t, 0.88, rate)
	_, rate = r.Resolve("GBP")
	assert.Equal(t, 0.79, rate)

	bad := filepath.Join(t.TempDir(), "bad.ini")
	require.NoError(t, os.WriteFile(bad, []byte("[rates]\nEUR = lots\n"), 0o600))
	_, err = LoadRates(bad)
	assert.Error(t, err)

	_, err = LoadRates(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)

	r, err = LoadRates("")
	require.NoError(t, err)
	assert.Equal(t, Default().Codes(), r.Codes())
}
