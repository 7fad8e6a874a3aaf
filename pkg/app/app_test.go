package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/compare"
	"github.com/de-tools/cloudprice/pkg/services/config"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		AzureSchema:  "region-average",
		AWSSource:    config.AWSSourceUpstream,
		AWSRegion:    "us-east-1",
		LogLevel:     "debug",
		FetchTimeout: time.Second,
		PageSize:     20,
		SpotRatio:    0.7,
	}
}

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func upstream(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/aws/ec2/instances":
			_, _ = w.Write([]byte(`{"Data":{"Items":[{"InstanceType":"m5.large","Region":"us-east-1","ProcessorVCPUCount":2,"MemorySizeInMB":8192,"PricePerHour":0.096}]}}`))
		case "/gcp/compute/instances":
			_, _ = w.Write([]byte(`[{"MachineType":"e2-standard-2","Region":"us-central1","ProcessorVCPUCount":2,"MemorySizeInMB":8192,"PricePerHour":0.067}]`))
		case "/v1/region_prices":
			_, _ = w.Write([]byte(`{"PricesPerRegion":[{"regionId":"eastus","averagePrice":0.12}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_NoUpstream(t *testing.T) {
	a, err := New(testContext(t), baseConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.Empty(t, a.Fetchers.Providers())
	assert.False(t, a.Cache.Enabled())
	assert.Nil(t, a.Runner)

	result, err := a.Compare.Compare(testContext(t), compare.Request{})
	require.NoError(t, err)
	assert.Empty(t, result.Data)
	assert.Len(t, result.Sources, 3)
}

func TestNew_UpstreamWithCache(t *testing.T) {
	cfg := baseConfig()
	cfg.UpstreamBaseURL = upstream(t).URL
	cfg.CacheDSN = ":memory:"

	ctx := testContext(t)
	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []domain.Provider{domain.ProviderAWS, domain.ProviderAzure, domain.ProviderGCP}, a.Fetchers.Providers())
	assert.True(t, a.Cache.Enabled())
	require.NotNil(t, a.Runner)

	summary, err := a.Runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records())
	assert.Zero(t, summary.Failed())

	listing, err := a.Compare.ProviderInstances(ctx, domain.ProviderGCP, fetcher.Query{}, 0)
	require.NoError(t, err)
	assert.Equal(t, compare.SourceCache, listing.Source)
	require.Len(t, listing.Instances, 1)
	assert.Equal(t, "e2-standard-2", listing.Instances[0].InstanceType)
}

func TestNew_SDKSourceForAWS(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg := baseConfig()
	cfg.AWSSource = config.AWSSourceSDK
	cfg.UpstreamBaseURL = upstream(t).URL

	a, err := New(testContext(t), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []domain.Provider{domain.ProviderAWS, domain.ProviderAzure, domain.ProviderGCP}, a.Fetchers.Providers())
	assert.Equal(t, "us-east-1", a.AWS.Region)
}

func TestNew_CurrencyRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.ini")
	require.NoError(t, os.WriteFile(path, []byte("[rates]\nEUR = 0.9\nCHF = 0.88\n"), 0o600))

	cfg := baseConfig()
	cfg.CurrencyRatesFile = path
	a, err := New(testContext(t), cfg)
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Compare.Compare(testContext(t), compare.Request{Currency: "CHF"})
	require.NoError(t, err)
	assert.Equal(t, "CHF", result.Currency)

	cfg.CurrencyRatesFile = filepath.Join(t.TempDir(), "missing.ini")
	_, err = New(testContext(t), cfg)
	assert.Error(t, err)
}
