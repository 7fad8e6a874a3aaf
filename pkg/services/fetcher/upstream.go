package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cloudprice/pkg/models/domain"
)

var upstreamPaths = map[domain.Provider]string{
	domain.ProviderAWS: "aws/ec2/instances",
	domain.ProviderGCP: "gcp/compute/instances",
}

var azurePaths = map[AzureSchema]string{
	AzureSchemaRegionAverage: "v1/region_prices",
	AzureSchemaInstanceList:  "azure/vm/instances",
	AzureSchemaRegionList:    "azure/regions",
}

type upstreamFetcher struct {
	provider domain.Provider
	client   *Client
	path     string
	decode   decodeFunc
}

// NewAWS returns a fetcher for the upstream EC2 instance list.
func NewAWS(client *Client, timeout time.Duration) Fetcher {
	return newUpstream(domain.ProviderAWS, client, upstreamPaths[domain.ProviderAWS], decodeItems(domain.ProviderAWS), timeout)
}

// NewGCP returns a fetcher for the upstream Compute Engine instance list.
func NewGCP(client *Client, timeout time.Duration) Fetcher {
	return newUpstream(domain.ProviderGCP, client, upstreamPaths[domain.ProviderGCP], decodeItems(domain.ProviderGCP), timeout)
}

// NewAzure returns a fetcher for the Azure endpoint matching schema.
func NewAzure(client *Client, schema AzureSchema, timeout time.Duration) (Fetcher, error) {
	path, ok := azurePaths[schema]
	if !ok {
		return nil, fmt.Errorf("unknown azure schema %q", schema)
	}

	var decode decodeFunc
	switch schema {
	case AzureSchemaInstanceList:
		decode = decodeItems(domain.ProviderAzure)
	case AzureSchemaRegionList:
		decode = decodeAzureRegionList
	default:
		decode = decodeAzureRegionAverage
	}

	return newUpstream(domain.ProviderAzure, client, path, decode, timeout), nil
}

func newUpstream(p domain.Provider, client *Client, path string, decode decodeFunc, timeout time.Duration) Fetcher {
	return Instrument(&upstreamFetcher{
		provider: p,
		client:   client,
		path:     path,
		decode:   decode,
	}, timeout)
}

func (f *upstreamFetcher) Provider() domain.Provider {
	return f.provider
}

func (f *upstreamFetcher) Fetch(ctx context.Context, q Query) Result {
	body, err := f.client.Get(ctx, f.path, q.values())
	if err != nil {
		return Result{Provider: f.provider, Err: fmt.Errorf("fetch %s: %w", f.provider, err)}
	}

	records, err := f.decode(body)
	if err != nil {
		return Result{Provider: f.provider, Err: err}
	}

	return Result{Provider: f.provider, Records: records}
}
