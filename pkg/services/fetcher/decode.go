package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/de-tools/cloudprice/pkg/models/domain"
)

// AzureSchema names the shape the upstream uses for Azure. The Azure endpoint changed shape
// several times, so it is picked at configuration time instead of being sniffed.
type AzureSchema string

const (
	AzureSchemaRegionAverage AzureSchema = "region-average"
	AzureSchemaInstanceList  AzureSchema = "instance-list"
	AzureSchemaRegionList    AzureSchema = "region-list"
)

func ParseAzureSchema(s string) (AzureSchema, error) {
	switch AzureSchema(s) {
	case "", AzureSchemaRegionAverage:
		return AzureSchemaRegionAverage, nil
	case AzureSchemaInstanceList, AzureSchemaRegionList:
		return AzureSchema(s), nil
	}
	return "", fmt.Errorf("unknown azure schema %q", s)
}

type decodeFunc func(body []byte) ([]RawRecord, error)

// decodeItems accepts {"Data":{"Items":[...]}}, {"Items":[...]} or a bare array.
func decodeItems(provider domain.Provider) decodeFunc {
	return func(body []byte) ([]RawRecord, error) {
		body = bytes.TrimSpace(body)
		var items []map[string]any

		if len(body) > 0 && body[0] == '[' {
			if err := json.Unmarshal(body, &items); err != nil {
				return nil, fmt.Errorf("decode %s items: %w", provider, err)
			}
		} else {
			var envelope struct {
				Data *struct {
					Items []map[string]any `json:"Items"`
				} `json:"Data"`
				Items []map[string]any `json:"Items"`
			}
			if err := json.Unmarshal(body, &envelope); err != nil {
				return nil, fmt.Errorf("decode %s envelope: %w", provider, err)
			}
			switch {
			case envelope.Data != nil && envelope.Data.Items != nil:
				items = envelope.Data.Items
			case envelope.Items != nil:
				items = envelope.Items
			default:
				return nil, fmt.Errorf("%s: %w", provider, ErrUnexpectedEnvelope)
			}
		}

		records := make([]RawRecord, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			records = append(records, RawRecord{Provider: provider, Fields: item})
		}
		return records, nil
	}
}

// decodeAzureRegionAverage reads {"PricesPerRegion":[{"regionId","averagePrice"}]}. The
// endpoint has no instance-level data, so placeholder specs are synthesized.
func decodeAzureRegionAverage(body []byte) ([]RawRecord, error) {
	var envelope struct {
		PricesPerRegion []struct {
			RegionID     string `json:"regionId"`
			AveragePrice any    `json:"averagePrice"`
		} `json:"PricesPerRegion"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode azure region prices: %w", err)
	}
	if envelope.PricesPerRegion == nil {
		return nil, fmt.Errorf("azure: %w", ErrUnexpectedEnvelope)
	}

	records := make([]RawRecord, 0, len(envelope.PricesPerRegion))
	for _, p := range envelope.PricesPerRegion {
		records = append(records, regionAggregated(p.RegionID, p.AveragePrice))
	}
	return records, nil
}

// decodeAzureRegionList reads ["eastus", ...] or {"Regions":[...]}; no price is known.
func decodeAzureRegionList(body []byte) ([]RawRecord, error) {
	body = bytes.TrimSpace(body)
	var regions []string

	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &regions); err != nil {
			return nil, fmt.Errorf("decode azure regions: %w", err)
		}
	} else {
		var envelope struct {
			Regions []string `json:"Regions"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode azure regions envelope: %w", err)
		}
		if envelope.Regions == nil {
			return nil, fmt.Errorf("azure: %w", ErrUnexpectedEnvelope)
		}
		regions = envelope.Regions
	}

	records := make([]RawRecord, 0, len(regions))
	for _, region := range regions {
		records = append(records, regionAggregated(region, 0))
	}
	return records, nil
}

func regionAggregated(region string, price any) RawRecord {
	return RawRecord{
		Provider:         domain.ProviderAzure,
		RegionAggregated: true,
		Fields: map[string]any{
			"InstanceType":        domain.PlaceholderInstanceType,
			"Region":              region,
			"AveragePricePerHour": price,
			"ProcessorVCPUCount":  0,
			"MemorySizeInMB":      0,
		},
	}
}
