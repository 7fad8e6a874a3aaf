package awssdk

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const m5LargeDoc = `{
  "product": {"attributes": {"instanceType": "m5.large", "regionCode": "us-east-1"}},
  "terms": {"OnDemand": {"ABC.JRTCKXETXF": {"priceDimensions": {
    "ABC.JRTCKXETXF.6YS6EN2CT7": {"unit": "Hrs", "pricePerUnit": {"USD": "0.0960000000"}}
  }}}}
}`

type fakeEC2 struct {
	clientRegion string
	pages        [][]ec2types.InstanceTypeInfo
	spot         []ec2types.SpotPrice
	spotErr      error
	spotStarted  chan struct{}

	mu          sync.Mutex
	typeRegions []string
	spotRegions []string
}

func newFakeEC2(types ...[]ec2types.InstanceTypeInfo) *fakeEC2 {
	return &fakeEC2{clientRegion: "us-east-1", pages: types}
}

// resolve applies the per-call options the way the SDK client does.
func (f *fakeEC2) resolve(optFns []func(*ec2.Options)) string {
	o := ec2.Options{Region: f.clientRegion}
	for _, fn := range optFns {
		fn(&o)
	}
	return o.Region
}

func (f *fakeEC2) DescribeInstanceTypes(_ context.Context, in *ec2.DescribeInstanceTypesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceTypesOutput, error) {
	f.mu.Lock()
	f.typeRegions = append(f.typeRegions, f.resolve(optFns))
	f.mu.Unlock()

	if len(f.pages) == 0 {
		return &ec2.DescribeInstanceTypesOutput{}, nil
	}
	idx := 0
	if in.NextToken != nil {
		idx, _ = strconv.Atoi(*in.NextToken)
	}
	out := &ec2.DescribeInstanceTypesOutput{InstanceTypes: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.NextToken = aws.String(strconv.Itoa(idx + 1))
	}
	return out, nil
}

func (f *fakeEC2) DescribeSpotPriceHistory(_ context.Context, _ *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error) {
	f.mu.Lock()
	f.spotRegions = append(f.spotRegions, f.resolve(optFns))
	f.mu.Unlock()

	if f.spotStarted != nil {
		close(f.spotStarted)
	}
	if f.spotErr != nil {
		return nil, f.spotErr
	}
	return &ec2.DescribeSpotPriceHistoryOutput{SpotPriceHistory: f.spot}, nil
}

type fakePricing struct {
	docs   []string
	err    error
	region string
	// waitFor blocks GetProducts until it is closed
	waitFor chan struct{}
}

func (f *fakePricing) GetProducts(ctx context.Context, in *pricing.GetProductsInput, _ ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	if f.waitFor != nil {
		select {
		case <-f.waitFor:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	for _, flt := range in.Filters {
		if aws.ToString(flt.Field) == "regionCode" {
			f.region = aws.ToString(flt.Value)
		}
	}
	return &pricing.GetProductsOutput{PriceList: f.docs}, nil
}

func catalog() []ec2types.InstanceTypeInfo {
	return []ec2types.InstanceTypeInfo{
		{
			InstanceType:  ec2types.InstanceTypeM5Large,
			VCpuInfo:      &ec2types.VCpuInfo{DefaultVCpus: aws.Int32(2)},
			MemoryInfo:    &ec2types.MemoryInfo{SizeInMiB: aws.Int64(8192)},
			ProcessorInfo: &ec2types.ProcessorInfo{SupportedArchitectures: []ec2types.ArchitectureType{ec2types.ArchitectureTypeX8664}},
		},
		{
			// no price in the region
			InstanceType: ec2types.InstanceTypeG4dnXlarge,
			VCpuInfo:     &ec2types.VCpuInfo{DefaultVCpus: aws.Int32(4)},
			MemoryInfo:   &ec2types.MemoryInfo{SizeInMiB: aws.Int64(16384)},
			GpuInfo: &ec2types.GpuInfo{Gpus: []ec2types.GpuDeviceInfo{
				{Count: aws.Int32(1), Manufacturer: aws.String("NVIDIA"), Name: aws.String("T4")},
			}},
		},
	}
}

func TestSourceFetch(t *testing.T) {
	tests := []struct {
		name      string
		ec2       *fakeEC2
		pricing   *fakePricing
		wantErr   bool
		wantCount int
		wantSpot  any
	}{
		{
			name: "joins catalog with prices and spot history",
			ec2: &fakeEC2{
				clientRegion: "us-east-1",
				pages:        [][]ec2types.InstanceTypeInfo{catalog()},
				spot: []ec2types.SpotPrice{
					{InstanceType: ec2types.InstanceTypeM5Large, SpotPrice: aws.String("0.0400")},
					{InstanceType: ec2types.InstanceTypeM5Large, SpotPrice: aws.String("0.0350")},
				},
			},
			pricing:   &fakePricing{docs: []string{m5LargeDoc, "not json"}},
			wantCount: 1,
			wantSpot:  0.035,
		},
		{
			name:      "spot history failure is tolerated",
			ec2:       &fakeEC2{clientRegion: "us-east-1", pages: [][]ec2types.InstanceTypeInfo{catalog()}, spotErr: errors.New("throttled")},
			pricing:   &fakePricing{docs: []string{m5LargeDoc}},
			wantCount: 1,
		},
		{
			name:    "price list failure fails the provider",
			ec2:     newFakeEC2(catalog()),
			pricing: &fakePricing{err: errors.New("access denied")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewWithClients("us-east-1", tt.ec2, tt.pricing, 0)
			res := f.Fetch(context.Background(), fetcher.Query{})

			assert.Equal(t, domain.ProviderAWS, res.Provider)
			if tt.wantErr {
				assert.Error(t, res.Err)
				return
			}
			require.NoError(t, res.Err)
			require.Len(t, res.Records, tt.wantCount)

			fields := res.Records[0].Fields
			assert.Equal(t, "m5.large", fields["InstanceType"])
			assert.Equal(t, "m5", fields["InstanceFamily"])
			assert.Equal(t, "us-east-1", fields["Region"])
			assert.Equal(t, int32(2), fields["ProcessorVCPUCount"])
			assert.Equal(t, int64(8192), fields["MemorySizeInMB"])
			assert.Equal(t, "x86_64", fields["ProcessorArchitecture"])
			assert.InDelta(t, 0.096, fields["PricePerHour"], 1e-9)
			if tt.wantSpot != nil {
				assert.InDelta(t, tt.wantSpot, fields["SpotPricePerHour"], 1e-9)
			} else {
				assert.NotContains(t, fields, "SpotPricePerHour")
			}
			assert.Equal(t, "us-east-1", tt.pricing.region)
		})
	}
}

func TestSourceFetch_QueryRegionOverridesDefault(t *testing.T) {
	ec2Client := newFakeEC2(catalog())
	ec2Client.spot = []ec2types.SpotPrice{
		{InstanceType: ec2types.InstanceTypeM5Large, SpotPrice: aws.String("0.0350")},
	}
	p := &fakePricing{docs: []string{m5LargeDoc}}
	f := NewWithClients("us-east-1", ec2Client, p, 0)

	res := f.Fetch(context.Background(), fetcher.Query{Region: "eu-west-1"})

	require.NoError(t, res.Err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "eu-west-1", res.Records[0].Fields["Region"])
	assert.Equal(t, "eu-west-1", p.region)
	assert.Equal(t, []string{"eu-west-1"}, ec2Client.spotRegions, "spot history must come from the requested region")
	assert.Equal(t, []string{"eu-west-1"}, ec2Client.typeRegions)
}

func TestSourceFetch_DefaultRegion(t *testing.T) {
	ec2Client := newFakeEC2(catalog())
	ec2Client.clientRegion = "ap-south-1"
	f := NewWithClients("us-west-2", ec2Client, &fakePricing{docs: []string{m5LargeDoc}}, 0)

	res := f.Fetch(context.Background(), fetcher.Query{})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"us-west-2"}, ec2Client.spotRegions)
	assert.Equal(t, []string{"us-west-2"}, ec2Client.typeRegions)
}

func TestSourceFetch_PagesThroughCatalog(t *testing.T) {
	m5 := catalog()[0]
	c5 := ec2types.InstanceTypeInfo{
		InstanceType: ec2types.InstanceTypeC5Xlarge,
		VCpuInfo:     &ec2types.VCpuInfo{DefaultVCpus: aws.Int32(4)},
		MemoryInfo:   &ec2types.MemoryInfo{SizeInMiB: aws.Int64(8192)},
	}
	c5Doc := strings.Replace(strings.Replace(m5LargeDoc, "m5.large", "c5.xlarge", 1), "0.0960000000", "0.1700000000", 1)

	ec2Client := newFakeEC2([]ec2types.InstanceTypeInfo{m5}, []ec2types.InstanceTypeInfo{catalog()[1]}, []ec2types.InstanceTypeInfo{c5})
	f := NewWithClients("us-east-1", ec2Client, &fakePricing{docs: []string{m5LargeDoc, c5Doc}}, 0)

	res := f.Fetch(context.Background(), fetcher.Query{})

	require.NoError(t, res.Err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "m5.large", res.Records[0].Fields["InstanceType"])
	assert.Equal(t, "c5.xlarge", res.Records[1].Fields["InstanceType"])
	assert.Len(t, ec2Client.typeRegions, 3)
}

func TestSourceFetch_SpotHistoryRunsAlongsidePriceList(t *testing.T) {
	ec2Client := newFakeEC2(catalog())
	ec2Client.spotStarted = make(chan struct{})
	// the price list only answers once spot history has been requested
	p := &fakePricing{docs: []string{m5LargeDoc}, waitFor: ec2Client.spotStarted}

	f := NewWithClients("us-east-1", ec2Client, p, 2*time.Second)
	res := f.Fetch(context.Background(), fetcher.Query{})

	require.NoError(t, res.Err)
	assert.Len(t, res.Records, 1)
}

func TestNewWithClients_DefaultBudget(t *testing.T) {
	assert.Greater(t, DefaultTimeout, fetcher.DefaultTimeout)
	if testing.Short() {
		t.Skip("waits past the upstream fetch timeout")
	}

	ec2Client := newFakeEC2(catalog())
	p := &fakePricing{docs: []string{m5LargeDoc}, waitFor: make(chan struct{})}
	go func() {
		// longer than the single request upstream timeout
		time.Sleep(fetcher.DefaultTimeout + 500*time.Millisecond)
		close(p.waitFor)
	}()

	res := NewWithClients("us-east-1", ec2Client, p, 0).Fetch(context.Background(), fetcher.Query{})

	require.NoError(t, res.Err)
	assert.Len(t, res.Records, 1)
}

func TestInstanceFields_GPU(t *testing.T) {
	fields := instanceFields(catalog()[1])

	assert.Equal(t, int32(1), fields["GPUCount"])
	assert.Equal(t, "NVIDIA T4", fields["GPUType"])
	assert.Equal(t, "g4dn", fields["InstanceFamily"])
}

func TestParsePriceDocument(t *testing.T) {
	instanceType, price, err := parsePriceDocument(m5LargeDoc)
	require.NoError(t, err)
	assert.Equal(t, "m5.large", instanceType)
	assert.InDelta(t, 0.096, price, 1e-9)

	_, _, err = parsePriceDocument("{")
	assert.Error(t, err)
}
