package api

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Pricing struct {
	OnDemand      float64 `json:"onDemand"`
	Spot          float64 `json:"spot,omitempty"`
	SpotEstimated bool    `json:"spotEstimated,omitempty"`
	Currency      string  `json:"currency"`
}

type Instance struct {
	ID                 string    `json:"id"`
	Provider           string    `json:"provider"`
	InstanceType       string    `json:"instanceType"`
	Family             string    `json:"family,omitempty"`
	Region             string    `json:"region"`
	VCPUs              float64   `json:"vCPUs"`
	Memory             float64   `json:"memory"`
	Storage            float64   `json:"storage,omitempty"`
	Architecture       string    `json:"architecture,omitempty"`
	GPU                bool      `json:"gpu"`
	GPUCount           int       `json:"gpuCount,omitempty"`
	GPUType            string    `json:"gpuType,omitempty"`
	Pricing            Pricing   `json:"pricing"`
	CostPerVCPU        float64   `json:"costPerVCPU"`
	CostPerGB          float64   `json:"costPerGB"`
	Category           string    `json:"category,omitempty"`
	IsRegionAggregated bool      `json:"isRegionAggregated"`
	AveragePrice       float64   `json:"averagePrice"`
	SampleCount        int       `json:"sampleCount,omitempty"`
	PerformanceScore   float64   `json:"performanceScore,omitempty"`
	MonthlyCost        float64   `json:"monthlyCost,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Pagination struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
}

type SourceStatus struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Records  int    `json:"records"`
	Reason   string `json:"reason,omitempty"`
}

type CompareResponse struct {
	Status     string         `json:"status"`
	Data       []Instance     `json:"data"`
	Pagination Pagination     `json:"pagination"`
	Currency   string         `json:"currency"`
	Sources    []SourceStatus `json:"sources,omitempty"`
}

// DataResponse wraps list and object payloads of the non-paginated endpoints.
type DataResponse[T any] struct {
	Status string `json:"status"`
	Count  int    `json:"count,omitempty"`
	Data   T      `json:"data"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type BestPriceRequest struct {
	VCPUs     float64  `json:"vCPUs"`
	Memory    float64  `json:"memory"`
	GPU       *bool    `json:"gpu,omitempty"`
	Providers []string `json:"providers,omitempty"`
	Currency  string   `json:"currency,omitempty"`
}

type SideBySideRequest struct {
	InstanceIDs []string `json:"instanceIds"`
	Currency    string   `json:"currency,omitempty"`
}

type SavingsRequest struct {
	InstanceID string  `json:"instanceId"`
	UsageHours float64 `json:"usageHours,omitempty"`
	Currency   string  `json:"currency,omitempty"`
}

type Savings struct {
	Instance       Instance `json:"instance"`
	UsageHours     float64  `json:"usageHours"`
	OnDemandCost   float64  `json:"onDemandCost"`
	SpotCost       float64  `json:"spotCost"`
	Savings        float64  `json:"savings"`
	SavingsPercent float64  `json:"savingsPercent"`
	SpotEstimated  bool     `json:"spotEstimated"`
	Currency       string   `json:"currency"`
}

type SimilarRequest struct {
	VCPUs     float64  `json:"vCPUs"`
	Memory    float64  `json:"memory"`
	Region    string   `json:"region,omitempty"`
	Providers []string `json:"providers,omitempty"`
	Currency  string   `json:"currency,omitempty"`
}

type PricePoint struct {
	Provider     string    `json:"provider"`
	InstanceType string    `json:"instanceType"`
	Region       string    `json:"region"`
	Pricing      Pricing   `json:"pricing"`
	RecordedAt   time.Time `json:"recordedAt"`
}
