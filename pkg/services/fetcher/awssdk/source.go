// Package awssdk reads the EC2 catalog straight from AWS instead of the aggregated upstream.
package awssdk

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	ptypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/de-tools/cloudprice/pkg/models/domain"
	"github.com/de-tools/cloudprice/pkg/services/fetcher"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// The Price List API is only served from us-east-1 and ap-south-1.
const pricingRegion = "us-east-1"

// DefaultTimeout bounds one fetch, which pages through three AWS APIs.
const DefaultTimeout = time.Minute

type EC2API interface {
	ec2.DescribeInstanceTypesAPIClient
	ec2.DescribeSpotPriceHistoryAPIClient
}

type source struct {
	region  string
	ec2     EC2API
	pricing pricing.GetProductsAPIClient
}

// New returns an AWS fetcher backed by the EC2 and Price List APIs of cfg's account.
func New(cfg aws.Config, timeout time.Duration) fetcher.Fetcher {
	pricingCfg := cfg.Copy()
	pricingCfg.Region = pricingRegion

	return NewWithClients(cfg.Region, ec2.NewFromConfig(cfg), pricing.NewFromConfig(pricingCfg), timeout)
}

func NewWithClients(region string, ec2Client EC2API, pricingClient pricing.GetProductsAPIClient, timeout time.Duration) fetcher.Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return fetcher.Instrument(&source{
		region:  region,
		ec2:     ec2Client,
		pricing: pricingClient,
	}, timeout)
}

func (s *source) Provider() domain.Provider {
	return domain.ProviderAWS
}

func (s *source) Fetch(ctx context.Context, q fetcher.Query) fetcher.Result {
	region := q.Region
	if region == "" {
		region = s.region
	}
	if region == "" {
		return fetcher.Result{Provider: domain.ProviderAWS, Err: fmt.Errorf("aws sdk source: region is required")}
	}

	var (
		prices map[string]float64
		spot   map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prices, err = s.onDemandPrices(gctx, region)
		return err
	})
	g.Go(func() error {
		var err error
		if spot, err = s.spotPrices(gctx, region); err != nil {
			// spot history is optional, the estimator fills the gap
			zerolog.Ctx(ctx).Warn().Err(err).Str("region", region).Msg("failed to describe spot price history")
			spot = map[string]float64{}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fetcher.Result{Provider: domain.ProviderAWS, Err: err}
	}

	var records []fetcher.RawRecord
	paginator := ec2.NewDescribeInstanceTypesPaginator(s.ec2, &ec2.DescribeInstanceTypesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx, inRegion(region))
		if err != nil {
			return fetcher.Result{Provider: domain.ProviderAWS, Err: fmt.Errorf("failed to describe EC2 instance types: %w", err)}
		}

		for _, info := range page.InstanceTypes {
			instanceType := string(info.InstanceType)
			price, ok := prices[instanceType]
			if !ok {
				continue
			}

			fields := instanceFields(info)
			fields["Region"] = region
			fields["PricePerHour"] = price
			if sp, ok := spot[instanceType]; ok {
				fields["SpotPricePerHour"] = sp
			}
			records = append(records, fetcher.RawRecord{Provider: domain.ProviderAWS, Fields: fields})
		}
	}

	return fetcher.Result{Provider: domain.ProviderAWS, Records: records}
}

func instanceFields(info ec2types.InstanceTypeInfo) map[string]any {
	instanceType := string(info.InstanceType)
	fields := map[string]any{
		"InstanceType": instanceType,
	}
	if family, _, ok := strings.Cut(instanceType, "."); ok {
		fields["InstanceFamily"] = family
	}
	if info.VCpuInfo != nil {
		fields["ProcessorVCPUCount"] = aws.ToInt32(info.VCpuInfo.DefaultVCpus)
	}
	if info.MemoryInfo != nil {
		fields["MemorySizeInMB"] = aws.ToInt64(info.MemoryInfo.SizeInMiB)
	}
	if info.InstanceStorageInfo != nil {
		fields["StorageSizeInGB"] = aws.ToInt64(info.InstanceStorageInfo.TotalSizeInGB)
	}
	if info.ProcessorInfo != nil && len(info.ProcessorInfo.SupportedArchitectures) > 0 {
		fields["ProcessorArchitecture"] = string(info.ProcessorInfo.SupportedArchitectures[0])
	}
	if info.GpuInfo != nil && len(info.GpuInfo.Gpus) > 0 {
		var count int32
		for _, gpu := range info.GpuInfo.Gpus {
			count += aws.ToInt32(gpu.Count)
		}
		gpu := info.GpuInfo.Gpus[0]
		fields["GPUCount"] = count
		fields["GPUType"] = strings.TrimSpace(aws.ToString(gpu.Manufacturer) + " " + aws.ToString(gpu.Name))
	}
	return fields
}

func (s *source) onDemandPrices(ctx context.Context, region string) (map[string]float64, error) {
	filters := []ptypes.Filter{
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("regionCode"), Value: aws.String(region)},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("operatingSystem"), Value: aws.String("Linux")},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("preInstalledSw"), Value: aws.String("NA")},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("tenancy"), Value: aws.String("Shared")},
		{Type: ptypes.FilterTypeTermMatch, Field: aws.String("capacitystatus"), Value: aws.String("Used")},
	}

	prices := make(map[string]float64)
	paginator := pricing.NewGetProductsPaginator(s.pricing, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters:     filters,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get EC2 products: %w", err)
		}
		for _, doc := range page.PriceList {
			instanceType, price, err := parsePriceDocument(doc)
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Msg("skipping price document")
				continue
			}
			if instanceType == "" || price <= 0 {
				continue
			}
			prices[instanceType] = price
		}
	}
	return prices, nil
}

// spotPrices returns the lowest current Linux spot price per instance type across the
// region's zones.
func (s *source) spotPrices(ctx context.Context, region string) (map[string]float64, error) {
	prices := make(map[string]float64)
	paginator := ec2.NewDescribeSpotPriceHistoryPaginator(s.ec2, &ec2.DescribeSpotPriceHistoryInput{
		ProductDescriptions: []string{"Linux/UNIX"},
		StartTime:           aws.Time(time.Now()),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx, inRegion(region))
		if err != nil {
			return nil, err
		}
		for _, entry := range page.SpotPriceHistory {
			price, err := strconv.ParseFloat(aws.ToString(entry.SpotPrice), 64)
			if err != nil || price <= 0 {
				continue
			}
			instanceType := string(entry.InstanceType)
			if cur, ok := prices[instanceType]; !ok || price < cur {
				prices[instanceType] = price
			}
		}
	}
	return prices, nil
}

// inRegion points an EC2 call at region instead of the client's configured one.
func inRegion(region string) func(*ec2.Options) {
	return func(o *ec2.Options) {
		o.Region = region
	}
}

type priceDocument struct {
	Product struct {
		Attributes map[string]string `json:"attributes"`
	} `json:"product"`
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string            `json:"unit"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

func parsePriceDocument(raw string) (string, float64, error) {
	var doc priceDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", 0, fmt.Errorf("decode price document: %w", err)
	}

	instanceType := doc.Product.Attributes["instanceType"]
	for _, term := range doc.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			if dim.Unit != "Hrs" {
				continue
			}
			usd, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(usd, 64)
			if err != nil {
				return "", 0, fmt.Errorf("parse price %q: %w", usd, err)
			}
			return instanceType, price, nil
		}
	}
	return instanceType, 0, nil
}
